package chainsync

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ruizhaoz1/ckb/pkg/util"
)

func TestInflightTracker_SingleReservationPerPair(t *testing.T) {
	tr := NewInflightTracker(10, 4)
	hash := util.Hash{1}

	require.True(t, tr.TryReserve(1, hash))
	require.True(t, tr.TryReserve(1, hash)) // re-reserving the same pair is a no-op success
	require.Equal(t, 1, tr.Total())
	require.Equal(t, 1, tr.PeerCount(1))
}

func TestInflightTracker_PerPeerCap(t *testing.T) {
	tr := NewInflightTracker(100, 2)
	require.True(t, tr.TryReserve(1, util.Hash{1}))
	require.True(t, tr.TryReserve(1, util.Hash{2}))
	require.False(t, tr.TryReserve(1, util.Hash{3}))
	require.Equal(t, 2, tr.PeerCount(1))
}

func TestInflightTracker_GlobalCap(t *testing.T) {
	tr := NewInflightTracker(2, 10)
	require.True(t, tr.TryReserve(1, util.Hash{1}))
	require.True(t, tr.TryReserve(2, util.Hash{2}))
	require.False(t, tr.TryReserve(3, util.Hash{3}))
	require.Equal(t, 2, tr.Total())
}

func TestInflightTracker_Release(t *testing.T) {
	tr := NewInflightTracker(10, 10)
	hash := util.Hash{1}
	tr.TryReserve(1, hash)
	tr.Release(1, hash)
	require.Equal(t, 0, tr.Total())
	require.False(t, tr.IsInflight(1, hash))
}

func TestInflightTracker_ReleaseAllForPeer(t *testing.T) {
	tr := NewInflightTracker(10, 10)
	tr.TryReserve(1, util.Hash{1})
	tr.TryReserve(1, util.Hash{2})
	tr.TryReserve(2, util.Hash{3})

	tr.ReleaseAllForPeer(1)
	require.Equal(t, 0, tr.PeerCount(1))
	require.Equal(t, 1, tr.Total())
}
