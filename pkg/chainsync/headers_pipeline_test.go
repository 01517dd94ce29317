package chainsync

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ruizhaoz1/ckb/pkg/config"
	"github.com/ruizhaoz1/ckb/pkg/core/block"
)

func TestHeadersPipeline_ContinuityBreak(t *testing.T) {
	cfg := config.DefaultConsensus()
	shared, chain, _, _, _ := newTestShared(cfg)
	shared.Peers.Register(1, PeerFlags{})
	pipeline := NewHeadersPipeline(shared)

	genesis := genesisHeader()
	chain.putHeader(genesis, 0)

	h1 := childHeader(genesis, 1, 1000)
	h2 := childHeader(h1, 2, 2000)
	h3 := childHeader(genesis, 3, 3000) // wrong parent: should chain onto h2

	status := pipeline.Process(1, []*block.Header{h1, h2, h3}, 4000)
	require.Equal(t, CodeOK, status.Code())
	state, _ := shared.Peers.Get(1)
	require.Equal(t, uint32(misbehaviorDeltaMinor), state.Misbehavior())

	_, admitted := chain.headers[h1.Hash()]
	require.False(t, admitted, "no headers from the batch should be admitted on a continuity break")
}

func TestHeadersPipeline_EmptyIsSyncedSignal(t *testing.T) {
	cfg := config.DefaultConsensus()
	shared, chain, _, _, _ := newTestShared(cfg)
	chain.ibd = false
	shared.Peers.Register(1, PeerFlags{})
	shared.Peers.StartHeadersSync(1)

	pipeline := NewHeadersPipeline(shared)
	status := pipeline.Process(1, nil, 1000)
	require.Equal(t, CodeOK, status.Code())

	state, _ := shared.Peers.Get(1)
	require.False(t, state.HeaderSyncActive())
}

func TestHeadersPipeline_Oversize(t *testing.T) {
	cfg := config.DefaultConsensus()
	cfg.MaxHeadersLen = 2
	shared, chain, _, _, _ := newTestShared(cfg)
	shared.Peers.Register(1, PeerFlags{})
	pipeline := NewHeadersPipeline(shared)

	genesis := genesisHeader()
	chain.putHeader(genesis, 0)
	h1 := childHeader(genesis, 1, 1000)
	h2 := childHeader(h1, 2, 2000)
	h3 := childHeader(h2, 3, 3000)

	status := pipeline.Process(1, []*block.Header{h1, h2, h3}, 4000)
	require.Equal(t, CodeOK, status.Code())
	state, _ := shared.Peers.Get(1)
	require.Equal(t, uint32(misbehaviorDeltaMinor), state.Misbehavior())
}
