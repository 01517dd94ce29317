package chainsync

import (
	"errors"

	"go.uber.org/zap"

	"github.com/ruizhaoz1/ckb/pkg/core/block"
	"github.com/ruizhaoz1/ckb/pkg/core/blockchainer"
)

const msgTypeCompactBlock = "CompactBlock"

// errStructuralOrder means a compact block's prefilled-transaction indexes
// are not strictly increasing, or collide with a short-id slot.
var errStructuralOrder = errors.New("prefilled transaction indexes out of order or overlapping short ids")

// CompactBlockPipeline implements the twelve-gate compact-block
// reconstruction decision tree (spec.md §4.3): structural bounds,
// staleness, known-status short circuits, parent availability, inflight
// and pending dedup, header verification, reconstruction, and the
// resulting pending-insertion or follow-up-request side effects.
type CompactBlockPipeline struct {
	shared      *Shared
	acceptor    *HeaderAcceptor
	reconstruct Reconstructor
	shortIDs    ShortIDSource
}

// NewCompactBlockPipeline builds a CompactBlockPipeline against shared,
// using reconstruct to rebuild blocks and shortIDs to resolve short ids
// against local transactions.
func NewCompactBlockPipeline(shared *Shared, reconstruct Reconstructor, shortIDs ShortIDSource) *CompactBlockPipeline {
	return &CompactBlockPipeline{
		shared: shared,
		acceptor: NewHeaderAcceptorWithParentResolver(shared, pendingParentResolver{
			pending: shared.Pending,
			chain:   shared.Chain,
		}),
		reconstruct: reconstruct,
		shortIDs:    shortIDs,
	}
}

// Process runs the decision tree for one CompactBlock reported by peer.
func (p *CompactBlockPipeline) Process(peer blockchainer.PeerIndex, cb *block.CompactBlock, nowMillis uint64) Status {
	s := p.shared
	status := p.process(peer, cb, nowMillis)
	s.Metrics.observeProcessed(msgTypeCompactBlock, status)
	return status
}

func (p *CompactBlockPipeline) process(peer blockchainer.PeerIndex, cb *block.CompactBlock, nowMillis uint64) Status {
	s := p.shared
	hash := cb.Hash()

	// Gate 1: structural bounds (proposals/uncles within configured limits).
	if uint64(len(cb.Proposals)) > s.Consensus.MaxBlockProposals {
		s.penalize(peer, misbehaviorDelta, "oversize-proposals")
		return WithContext(CodeProtocolMessageIsMalformed,
			"compact block %s: %d proposals exceeds limit %d", hash, len(cb.Proposals), s.Consensus.MaxBlockProposals)
	}
	if uint32(len(cb.Uncles)) > s.Consensus.MaxUncles {
		s.penalize(peer, misbehaviorDelta, "oversize-uncles")
		return WithContext(CodeProtocolMessageIsMalformed,
			"compact block %s: %d uncles exceeds limit %d", hash, len(cb.Uncles), s.Consensus.MaxUncles)
	}

	// Gate 2: staleness — reject blocks too far behind the active tip to be
	// worth reconstructing.
	tip := s.Chain.ActiveChainTip()
	if tip != nil && staleBehindTip(cb.Header.Number, tip.Number, s.Chain.EpochLength()) {
		return WithContext(CodeCompactBlockIsStaled, "compact block %s at height %d is stale (tip %d)",
			hash, cb.Header.Number, tip.Number)
	}

	// Gate 3: known status short circuit.
	switch status := s.blockStatus(hash); {
	case status.Contains(blockchainer.StatusBlockInvalid):
		return WithContext(CodeBlockIsInvalid, "compact block %s already marked invalid", hash)
	case status.Contains(blockchainer.StatusBlockStored):
		if parent, ok := s.Chain.GetHeaderView(cb.Header.ParentHash, true); ok {
			s.Peers.MaySetBestKnown(peer, block.NewView(cb.Header, parent.TotalDifficulty))
		}
		return WithContext(CodeCompactBlockAlreadyStored, "compact block %s already stored", hash)
	}

	// Gate 4: parent availability. HeaderAcceptor both validates and, on
	// success, commits HEADER_VALID for cb.Header — this pipeline never
	// duplicates that logic. Its parent lookup passes storeFirst=true, asking
	// the index to consult the store first, only when the header is at most
	// one block past the active tip.
	headerStatus := p.acceptor.Accept(peer, cb.Header, nowMillis)
	if !headerStatus.IsOK() {
		switch headerStatus.Code() {
		case CodeCompactBlockRequiresParent:
			if sendStatus := s.send(OutboundMessage{Peer: peer, Type: "GetHeaders"}); !sendStatus.IsOK() {
				return sendStatus
			}
			return headerStatus
		case CodeIgnored:
			return headerStatus
		default:
			return WithContext(CodeCompactBlockHasInvalidHeader, "compact block %s: %s", hash, headerStatus.Error())
		}
	}

	// Gate 5: inflight dedup.
	if s.Inflight.IsInflight(peer, hash) {
		return WithContext(CodeCompactBlockIsAlreadyInFlight, "compact block %s already in flight from peer %d", hash, peer)
	}

	// Gate 6: pending dedup, peer-scoped.
	if exists, forPeer := s.Pending.Contains(hash, peer); exists && forPeer {
		return WithContext(CodeCompactBlockIsAlreadyPending, "compact block %s already pending for peer %d", hash, peer)
	}

	// Gate 8: compact-block structural verification.
	if err := validateCompactBlockStructure(cb); err != nil {
		s.penalize(peer, misbehaviorDelta, "malformed-compact-block")
		return WithContext(CodeProtocolMessageIsMalformed, "compact block %s: %v", hash, err)
	}

	// Side effect: ask the peer for the proposal transactions it announced,
	// independent of whatever reconstruction below decides.
	if len(cb.Proposals) > 0 {
		s.send(OutboundMessage{Peer: peer, Type: "GetBlockProposal"})
	}

	// Step 9 + Step 10: reconstruction, then pending insertion. Reconstruction
	// runs without the pending lock; PendingCompactCache.CheckAndInsert then
	// repeats the Gate 6 check and inserts in one locked call, so a second
	// peer announcing the same block concurrently cannot interleave there.
	result := p.reconstruct.Reconstruct(cb, p.shortIDs)

	switch result.Outcome {
	case ReconstructBlock:
		s.Inflight.ReleaseAllForHash(hash)
		s.Pending.Remove(hash)
		if err := s.Proc.ProcessBlock(result.Block); err != nil {
			s.setBlockStatus(hash, blockchainer.StatusBlockInvalid)
			s.penalize(peer, misbehaviorDelta, "invalid-block-body")
			return WithContext(CodeBlockIsInvalid, "compact block %s: body validation failed: %v", hash, err)
		}
		s.setBlockStatus(hash, blockchainer.StatusBlockStored.Union(blockchainer.StatusBlockValid))
		s.Log.Debug("reconstructed compact block", zap.Stringer("hash", hash))
		return OK()

	case ReconstructMissing, ReconstructCollided:
		// A short-id collision means every id resolved but the assembled
		// root disagreed with the header: we cannot tell whether our own
		// mempool view or the peer is at fault, so we neither mark the
		// hash BLOCK_INVALID nor penalize the peer here (the caller may
		// still tally it) — and we re-request every short-id transaction
		// fresh, the same follow-up Missing triggers. Unlike ReconstructMissing, the
		// set of indexes to re-request is this pipeline's own call, not the
		// Reconstructor's: every short id already resolved, so the only
		// candidates for the bad one are all of them, and there is nothing
		// uncle-related to blame.
		missingTransactions := result.MissingTransactions
		missingUncles := result.MissingUncles
		if result.Outcome == ReconstructCollided {
			missingTransactions = cb.ShortIDIndexes()
			missingUncles = nil
		}
		gap := &PendingPeerGap{
			MissingTransactions: missingTransactions,
			MissingUncles:       missingUncles,
		}
		alreadyPending := s.Pending.CheckAndInsert(peer, cb, gap)
		if alreadyPending {
			return WithContext(CodeCompactBlockIsAlreadyPending, "compact block %s already pending for peer %d", hash, peer)
		}
		if !s.Inflight.TryReserve(peer, hash) {
			return WithContext(CodeBlocksInFlightReachLimit, "inflight cap reached requesting compact block %s from peer %d", hash, peer)
		}
		sendStatus := s.send(OutboundMessage{
			Peer:                       peer,
			Type:                       "GetBlockTransactions",
			GetBlockTransactionsHash:   hash,
			GetBlockTransactionsIdxs:   missingTransactions,
			GetBlockTransactionsUncles: missingUncles,
		})
		if !sendStatus.IsOK() {
			s.Inflight.Release(peer, hash)
			return sendStatus
		}
		if result.Outcome == ReconstructCollided {
			return WithContext(CodeCompactBlockMeetsShortIdsCollision,
				"compact block %s: short id collision, re-requested %d transactions", hash, len(missingTransactions))
		}
		return WithContext(CodeCompactBlockRequiresFreshTransactions,
			"compact block %s: requested %d missing transactions, %d missing uncles",
			hash, len(missingTransactions), len(missingUncles))

	default: // ReconstructError
		s.penalize(peer, misbehaviorDelta, "malformed-compact-block")
		return WithContext(CodeProtocolMessageIsMalformed, "compact block %s: reconstruction error: %v", hash, result.Err)
	}
}

// validateCompactBlockStructure checks the invariants an external
// CompactBlockVerifier would enforce (spec.md §4.3 Gate 8): prefilled
// transaction indexes are strictly increasing and never collide with a
// short-id slot, and the uncle count stays within bounds already checked
// by Gate 1.
func validateCompactBlockStructure(cb *block.CompactBlock) error {
	var lastIndex int64 = -1
	for _, pf := range cb.PrefilledTransactions {
		if int64(pf.Index) <= lastIndex {
			return errStructuralOrder
		}
		lastIndex = int64(pf.Index)
	}
	total := len(cb.ShortIDs) + len(cb.PrefilledTransactions)
	for _, pf := range cb.PrefilledTransactions {
		if int(pf.Index) >= total {
			return errStructuralOrder
		}
	}
	return nil
}

// staleBehindTip reports whether a block at height is too far behind tip to
// be worth reconstructing, using the epoch length as the staleness window
// (spec.md §4.3 Gate 2).
func staleBehindTip(height, tip, epochLength uint64) bool {
	if epochLength == 0 {
		epochLength = 1
	}
	return tip > height && tip-height > epochLength
}
