package chainsync

import (
	"go.uber.org/zap"

	"github.com/ruizhaoz1/ckb/pkg/core/block"
	"github.com/ruizhaoz1/ckb/pkg/core/blockchainer"
)

const msgTypeBlock = "Block"

// BlockPipeline implements the handling of a directly-received full Block
// message (spec.md §4.4): dedup against already-known status, hand off to
// the chain processor, and record the outcome. A failed body validation is
// never penalized here. CompactBlockPipeline, by contrast, scores malformed
// wire structure and a reconstructed block whose body fails validation;
// short-id collisions carry no score on either path.
type BlockPipeline struct {
	shared *Shared
}

// NewBlockPipeline builds a BlockPipeline against shared.
func NewBlockPipeline(shared *Shared) *BlockPipeline {
	return &BlockPipeline{shared: shared}
}

// Process runs the pipeline for one directly-received Block from peer.
func (p *BlockPipeline) Process(peer blockchainer.PeerIndex, b *block.Block) Status {
	s := p.shared
	status := p.process(peer, b)
	s.Metrics.observeProcessed(msgTypeBlock, status)
	return status
}

func (p *BlockPipeline) process(peer blockchainer.PeerIndex, b *block.Block) Status {
	s := p.shared
	hash := b.Hash()

	switch status := s.blockStatus(hash); {
	case status.Contains(blockchainer.StatusBlockInvalid):
		return WithContext(CodeBlockIsInvalid, "block %s already marked invalid", hash)
	case status.Contains(blockchainer.StatusBlockStored):
		return WithContext(CodeCompactBlockAlreadyStored, "block %s already stored", hash)
	}

	if err := s.Proc.ProcessBlock(b); err != nil {
		s.setBlockStatus(hash, blockchainer.StatusBlockInvalid)
		return WithContext(CodeBlockIsInvalid, "block %s: body validation failed: %v", hash, err)
	}

	s.setBlockStatus(hash, blockchainer.StatusBlockStored.Union(blockchainer.StatusBlockValid))
	s.Inflight.ReleaseAllForHash(hash)
	s.Pending.Remove(hash)
	s.Log.Debug("processed block", zap.Stringer("hash", hash), zap.Uint64("peer", uint64(peer)))
	return OK()
}
