package chainsync

import (
	"sync"

	"github.com/ruizhaoz1/ckb/pkg/core/blockchainer"
	"github.com/ruizhaoz1/ckb/pkg/util"
)

// inflightKey identifies one outstanding request for a block's body.
type inflightKey struct {
	peer blockchainer.PeerIndex
	hash util.Hash
}

// InflightTracker bookkeeps outstanding GetBlockTransactions /
// reconstruction requests against a global cap and a per-peer cap
// (spec.md §4.3 Gate 5, Step 11; §5's resource model).
type InflightTracker struct {
	mu sync.RWMutex

	byKey    map[inflightKey]struct{}
	byPeer   map[blockchainer.PeerIndex]int
	byHash   map[util.Hash]map[blockchainer.PeerIndex]struct{}
	total    int
	maxTotal int
	maxPeer  int
}

// NewInflightTracker returns an empty tracker enforcing maxTotal concurrent
// reservations overall and maxPeer per individual peer.
func NewInflightTracker(maxTotal, maxPeer int) *InflightTracker {
	return &InflightTracker{
		byKey:    make(map[inflightKey]struct{}),
		byPeer:   make(map[blockchainer.PeerIndex]int),
		byHash:   make(map[util.Hash]map[blockchainer.PeerIndex]struct{}),
		maxTotal: maxTotal,
		maxPeer:  maxPeer,
	}
}

// IsInflight reports whether (peer, hash) already has a reservation
// (spec.md §4.3 Gate 5: CompactBlockIsAlreadyInFlight).
func (t *InflightTracker) IsInflight(peer blockchainer.PeerIndex, hash util.Hash) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.byKey[inflightKey{peer, hash}]
	return ok
}

// TryReserve admits a new (peer, hash) reservation if neither cap would be
// exceeded, returning false (BlocksInFlightReachLimit) otherwise. Reserving
// an already-reserved key is a no-op success.
func (t *InflightTracker) TryReserve(peer blockchainer.PeerIndex, hash util.Hash) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := inflightKey{peer, hash}
	if _, ok := t.byKey[key]; ok {
		return true
	}
	if t.total >= t.maxTotal || t.byPeer[peer] >= t.maxPeer {
		return false
	}

	t.byKey[key] = struct{}{}
	t.byPeer[peer]++
	t.total++
	if t.byHash[hash] == nil {
		t.byHash[hash] = make(map[blockchainer.PeerIndex]struct{})
	}
	t.byHash[hash][peer] = struct{}{}
	return true
}

// Release removes the (peer, hash) reservation, e.g. once the body
// arrives or the peer disconnects.
func (t *InflightTracker) Release(peer blockchainer.PeerIndex, hash util.Hash) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := inflightKey{peer, hash}
	if _, ok := t.byKey[key]; !ok {
		return
	}
	delete(t.byKey, key)
	t.byPeer[peer]--
	if t.byPeer[peer] <= 0 {
		delete(t.byPeer, peer)
	}
	t.total--
	if peers := t.byHash[hash]; peers != nil {
		delete(peers, peer)
		if len(peers) == 0 {
			delete(t.byHash, hash)
		}
	}
}

// ReleaseAllForHash drops every peer's reservation for hash, e.g. once the
// block has been fully reconstructed and handed to the chain processor.
func (t *InflightTracker) ReleaseAllForHash(hash util.Hash) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for peer := range t.byHash[hash] {
		key := inflightKey{peer, hash}
		delete(t.byKey, key)
		t.byPeer[peer]--
		if t.byPeer[peer] <= 0 {
			delete(t.byPeer, peer)
		}
		t.total--
	}
	delete(t.byHash, hash)
}

// ReleaseAllForPeer drops every reservation held by peer, e.g. on disconnect.
func (t *InflightTracker) ReleaseAllForPeer(peer blockchainer.PeerIndex) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for hash, peers := range t.byHash {
		if _, ok := peers[peer]; !ok {
			continue
		}
		delete(peers, peer)
		if len(peers) == 0 {
			delete(t.byHash, hash)
		}
	}
	for k := range t.byKey {
		if k.peer == peer {
			delete(t.byKey, k)
			t.total--
		}
	}
	delete(t.byPeer, peer)
}

// Total returns the current global reservation count.
func (t *InflightTracker) Total() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.total
}

// PeerCount returns the current reservation count for peer.
func (t *InflightTracker) PeerCount(peer blockchainer.PeerIndex) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byPeer[peer]
}
