package chainsync

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ruizhaoz1/ckb/internal/random"
	"github.com/ruizhaoz1/ckb/pkg/core/block"
	"github.com/ruizhaoz1/ckb/pkg/core/blockchainer"
)

func TestPendingCompactCache_CheckAndInsertPerPeer(t *testing.T) {
	c := NewPendingCompactCache()
	header := &block.Header{Number: 1, CompactTarget: 0x20010000}
	cb := &block.CompactBlock{Header: header}
	gap := &PendingPeerGap{MissingTransactions: []uint32{0}}

	alreadyPending := c.CheckAndInsert(1, cb, gap)
	require.False(t, alreadyPending)

	alreadyPending = c.CheckAndInsert(1, cb, gap)
	require.True(t, alreadyPending)

	// A second peer announcing the same block is independent.
	alreadyPending = c.CheckAndInsert(2, cb, gap)
	require.False(t, alreadyPending)

	require.Equal(t, 1, c.Len())
}

func TestPendingCompactCache_RemovePeerDropsEmptyEntry(t *testing.T) {
	c := NewPendingCompactCache()
	header := &block.Header{Number: 1, CompactTarget: 0x20010000}
	cb := &block.CompactBlock{Header: header}
	gap := &PendingPeerGap{}

	c.CheckAndInsert(1, cb, gap)
	c.RemovePeer(header.Hash(), 1)

	exists, _ := c.Contains(header.Hash(), 1)
	require.False(t, exists)
	require.Equal(t, 0, c.Len())
}

func TestPendingCompactCache_LenTracksManyDistinctBlocks(t *testing.T) {
	c := NewPendingCompactCache()
	const n = 50

	for i := 0; i < n; i++ {
		header := &block.Header{Number: uint64(i), CompactTarget: 0x20010000, ParentHash: random.Hash()}
		cb := &block.CompactBlock{Header: header}
		alreadyPending := c.CheckAndInsert(blockchainer.PeerIndex(i), cb, &PendingPeerGap{})
		require.False(t, alreadyPending)
	}

	require.Equal(t, n, c.Len())
}
