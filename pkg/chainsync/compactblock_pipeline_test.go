package chainsync

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ruizhaoz1/ckb/pkg/config"
	"github.com/ruizhaoz1/ckb/pkg/core/block"
	"github.com/ruizhaoz1/ckb/pkg/core/blockchainer"
)

func genesisHeader() *block.Header {
	return &block.Header{Number: 0, CompactTarget: 0x20010000}
}

func childHeader(parent *block.Header, number uint64, timestamp uint64) *block.Header {
	return &block.Header{
		Number:        number,
		ParentHash:    parent.Hash(),
		Timestamp:     timestamp,
		CompactTarget: 0x20010000,
	}
}

func newPipeline(t *testing.T, cfg config.Consensus, reconstruct Reconstructor) (*CompactBlockPipeline, *Shared, *fakeChainStub) {
	t.Helper()
	shared, chain, _, _, _ := newTestShared(cfg)
	pipeline := NewCompactBlockPipeline(shared, reconstruct, fakeShortIDSource{})
	return pipeline, shared, chain
}

func TestCompactBlockPipeline_StaleCompactBlock(t *testing.T) {
	cfg := config.DefaultConsensus()
	pipeline, shared, chain := newPipeline(t, cfg, &fakeReconstructor{})
	shared.Peers.Register(1, PeerFlags{})

	tip := genesisHeader()
	tip.Number = 10000
	chain.tip = block.NewView(tip, nil)
	chain.epochLen = 1800

	header := childHeader(tip, 8000, 1000)
	cb := &block.CompactBlock{Header: header}

	status := pipeline.Process(1, cb, 2000)
	require.Equal(t, CodeCompactBlockIsStaled, status.Code())
	state, _ := shared.Peers.Get(1)
	require.Equal(t, uint32(0), state.Misbehavior())
}

func TestCompactBlockPipeline_UnknownParent(t *testing.T) {
	cfg := config.DefaultConsensus()
	pipeline, shared, _ := newPipeline(t, cfg, &fakeReconstructor{})
	shared.Peers.Register(1, PeerFlags{})

	parent := genesisHeader()
	parent.Number = 4
	header := childHeader(parent, 5, 1000)
	cb := &block.CompactBlock{Header: header}

	status := pipeline.Process(1, cb, 2000)
	require.Equal(t, CodeCompactBlockRequiresParent, status.Code())

	sender := shared.Sender.(*fakeSender)
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "GetHeaders", msgs[0].Type)
}

func TestCompactBlockPipeline_TooNewHeader(t *testing.T) {
	cfg := config.DefaultConsensus()
	pipeline, shared, chain := newPipeline(t, cfg, &fakeReconstructor{})
	shared.Peers.Register(1, PeerFlags{})

	genesis := genesisHeader()
	chain.putHeader(genesis, blockchainer.StatusHeaderValid)

	now := uint64(1_000_000)
	header := childHeader(genesis, 1, now+20*60*1000) // 20 minutes in the future
	cb := &block.CompactBlock{Header: header}

	status := pipeline.Process(1, cb, now)
	require.Equal(t, CodeIgnored, status.Code())
	state, _ := shared.Peers.Get(1)
	require.Equal(t, uint32(0), state.Misbehavior())
	require.False(t, chain.GetBlockStatus(header.Hash()).Contains(blockchainer.StatusBlockInvalid))
}

func TestCompactBlockPipeline_ShortIdCollisionRequestsAllShortIds(t *testing.T) {
	cfg := config.DefaultConsensus()
	// Deliberately wrong: a real Reconstructor never fills these in for a
	// collision outcome, but this proves the pipeline derives its own
	// re-request set from cb.ShortIDIndexes() rather than trusting whatever
	// the Reconstructor happens to report here.
	reconstruct := &fakeReconstructor{result: ReconstructResult{
		Outcome:             ReconstructCollided,
		MissingTransactions: []uint32{99},
		MissingUncles:       []uint32{7},
	}}
	pipeline, shared, chain := newPipeline(t, cfg, reconstruct)
	shared.Peers.Register(1, PeerFlags{})

	genesis := genesisHeader()
	chain.putHeader(genesis, blockchainer.StatusHeaderValid)

	header := childHeader(genesis, 1, 1000)
	cb := &block.CompactBlock{
		Header:   header,
		ShortIDs: []block.ShortID{{1}, {2}, {3}},
	}

	status := pipeline.Process(1, cb, 2000)
	require.Equal(t, CodeCompactBlockMeetsShortIdsCollision, status.Code())
	require.False(t, chain.GetBlockStatus(header.Hash()).Contains(blockchainer.StatusBlockInvalid))

	sender := shared.Sender.(*fakeSender)
	msgs := sender.messages()
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	require.Equal(t, "GetBlockTransactions", last.Type)
	require.Equal(t, cb.ShortIDIndexes(), last.GetBlockTransactionsIdxs)
	require.Equal(t, []uint32{0, 1, 2}, last.GetBlockTransactionsIdxs)
	require.Empty(t, last.GetBlockTransactionsUncles)
}

func TestCompactBlockPipeline_InflightCapReached(t *testing.T) {
	cfg := config.DefaultConsensus()
	cfg.PerPeerInflight = 16
	reconstruct := &fakeReconstructor{result: ReconstructResult{
		Outcome:             ReconstructMissing,
		MissingTransactions: []uint32{0},
	}}
	pipeline, shared, chain := newPipeline(t, cfg, reconstruct)
	shared.Peers.Register(1, PeerFlags{})

	genesis := genesisHeader()
	chain.putHeader(genesis, blockchainer.StatusHeaderValid)

	for i := 0; i < cfg.PerPeerInflight; i++ {
		filler := childHeader(genesis, 1, 1000)
		filler.Nonce = uint64(i + 1)
		shared.Inflight.TryReserve(1, filler.Hash())
	}
	require.Equal(t, cfg.PerPeerInflight, shared.Inflight.PeerCount(1))

	header := childHeader(genesis, 1, 1000)
	header.Nonce = 999
	cb := &block.CompactBlock{Header: header}

	status := pipeline.Process(1, cb, 2000)
	require.Equal(t, CodeBlocksInFlightReachLimit, status.Code())

	sender := shared.Sender.(*fakeSender)
	for _, m := range sender.messages() {
		require.NotEqual(t, "GetBlockTransactions", m.Type)
	}

	exists, forPeer := shared.Pending.Contains(header.Hash(), 1)
	require.True(t, exists)
	require.True(t, forPeer)
}

func TestCompactBlockPipeline_ParentResolvesThroughPendingCache(t *testing.T) {
	cfg := config.DefaultConsensus()
	reconstruct := &fakeReconstructor{result: ReconstructResult{
		Outcome:             ReconstructMissing,
		MissingTransactions: []uint32{0},
	}}
	pipeline, shared, chain := newPipeline(t, cfg, reconstruct)
	shared.Peers.Register(1, PeerFlags{})

	genesis := genesisHeader()
	chain.putHeader(genesis, blockchainer.StatusHeaderValid)

	// parentHeader is only known as a still-pending compact block, never
	// committed to the chain store.
	parentHeader := childHeader(genesis, 1, 1000)
	parentCB := &block.CompactBlock{Header: parentHeader}
	shared.Pending.CheckAndInsert(1, parentCB, &PendingPeerGap{MissingTransactions: []uint32{0}})

	childHdr := childHeader(parentHeader, 2, 2000)
	cb := &block.CompactBlock{Header: childHdr}

	status := pipeline.Process(1, cb, 3000)
	require.NotEqual(t, CodeCompactBlockRequiresParent, status.Code(),
		"a parent still in PendingCompactCache must resolve without a GetHeaders round trip")
	require.Equal(t, CodeCompactBlockRequiresFreshTransactions, status.Code())
}
