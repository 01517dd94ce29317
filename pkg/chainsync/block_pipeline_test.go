package chainsync

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ruizhaoz1/ckb/pkg/config"
	"github.com/ruizhaoz1/ckb/pkg/core/block"
	"github.com/ruizhaoz1/ckb/pkg/core/blockchainer"
)

func TestBlockPipeline_AlreadyStored(t *testing.T) {
	cfg := config.DefaultConsensus()
	shared, chain, _, _, _ := newTestShared(cfg)
	pipeline := NewBlockPipeline(shared)

	header := genesisHeader()
	b := &block.Block{Header: header}
	chain.InsertBlockStatus(header.Hash(), blockchainer.StatusBlockStored)

	status := pipeline.Process(1, b)
	require.Equal(t, CodeCompactBlockAlreadyStored, status.Code())
}

func TestBlockPipeline_InvalidBodyMarksInvalidWithoutPenalty(t *testing.T) {
	cfg := config.DefaultConsensus()
	shared, chain, _, _, proc := newTestShared(cfg)
	shared.Peers.Register(1, PeerFlags{})
	proc.processF = func(*block.Block) error { return errBoom }

	pipeline := NewBlockPipeline(shared)
	header := genesisHeader()
	b := &block.Block{Header: header}

	status := pipeline.Process(1, b)
	require.Equal(t, CodeBlockIsInvalid, status.Code())
	require.True(t, chain.GetBlockStatus(header.Hash()).Contains(blockchainer.StatusBlockInvalid))
	state, _ := shared.Peers.Get(1)
	require.Equal(t, uint32(0), state.Misbehavior())
}

func TestBlockPipeline_Success(t *testing.T) {
	cfg := config.DefaultConsensus()
	shared, chain, _, _, _ := newTestShared(cfg)
	pipeline := NewBlockPipeline(shared)

	header := genesisHeader()
	b := &block.Block{Header: header}

	status := pipeline.Process(1, b)
	require.True(t, status.IsOK())
	require.True(t, chain.GetBlockStatus(header.Hash()).Contains(blockchainer.StatusBlockStored))
}
