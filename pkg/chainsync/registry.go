package chainsync

import (
	"sync"

	"github.com/ruizhaoz1/ckb/pkg/core/block"
	"github.com/ruizhaoz1/ckb/pkg/core/blockchainer"
)

// PeerRegistry is the store of connected peers' PeerState, guarded by a
// single RWMutex. It never takes another store's lock while holding its
// own (spec.md §5's lock-ordering discipline).
type PeerRegistry struct {
	mu    sync.RWMutex
	peers map[blockchainer.PeerIndex]*PeerState

	misbehaviorThreshold uint32
}

// NewPeerRegistry returns an empty registry that disconnects peers whose
// score reaches misbehaviorThreshold.
func NewPeerRegistry(misbehaviorThreshold uint32) *PeerRegistry {
	return &PeerRegistry{
		peers:                make(map[blockchainer.PeerIndex]*PeerState),
		misbehaviorThreshold: misbehaviorThreshold,
	}
}

// Register adds peer with the given flags, replacing any prior state.
func (r *PeerRegistry) Register(peer blockchainer.PeerIndex, flags PeerFlags) *PeerState {
	state := NewPeerState(flags)
	r.mu.Lock()
	r.peers[peer] = state
	r.mu.Unlock()
	return state
}

// Unregister drops all state for peer, e.g. on disconnect.
func (r *PeerRegistry) Unregister(peer blockchainer.PeerIndex) {
	r.mu.Lock()
	delete(r.peers, peer)
	r.mu.Unlock()
}

// Get returns peer's state, or (nil, false) if it is not registered.
func (r *PeerRegistry) Get(peer blockchainer.PeerIndex) (*PeerState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.peers[peer]
	return state, ok
}

// GetBestKnown returns peer's best-known header view, or nil if the peer
// is unknown or has not reported one.
func (r *PeerRegistry) GetBestKnown(peer blockchainer.PeerIndex) *block.View {
	state, ok := r.Get(peer)
	if !ok {
		return nil
	}
	return state.BestKnown()
}

// MaySetBestKnown updates peer's best-known header view to v when v
// represents more total work than what is currently recorded, or when
// nothing is recorded yet. Returns false if peer is not registered.
func (r *PeerRegistry) MaySetBestKnown(peer blockchainer.PeerIndex, v *block.View) bool {
	state, ok := r.Get(peer)
	if !ok {
		return false
	}
	cur := state.BestKnown()
	if cur == nil || cur.TotalDifficulty.Cmp(v.TotalDifficulty) < 0 {
		state.SetBestKnown(v)
	}
	return true
}

// Misbehavior adds delta to peer's misbehavior score (skipping
// whitelisted peers entirely, per spec.md §4.6) and reports whether the
// peer has now reached the disconnect threshold and is not protected.
func (r *PeerRegistry) Misbehavior(peer blockchainer.PeerIndex, delta uint32) (shouldDisconnect bool) {
	state, ok := r.Get(peer)
	if !ok {
		return false
	}
	if state.Flags.IsWhitelist {
		return false
	}
	score := state.AddMisbehavior(delta)
	if state.Flags.IsProtect {
		return false
	}
	return score >= r.misbehaviorThreshold
}

// StopHeadersSync cancels peer's outstanding headers-sync timer (spec.md
// §5's stop_headers_sync(peer)), reporting whether one was active.
func (r *PeerRegistry) StopHeadersSync(peer blockchainer.PeerIndex) bool {
	state, ok := r.Get(peer)
	if !ok {
		return false
	}
	return state.CancelHeaderSync()
}

// StartHeadersSync marks peer as having an outstanding headers-sync round
// trip, e.g. right after sending it a GetHeaders.
func (r *PeerRegistry) StartHeadersSync(peer blockchainer.PeerIndex) {
	if state, ok := r.Get(peer); ok {
		state.StartHeaderSync()
	}
}

// IsBehindTip reports whether peer's best-known header carries less total
// work than tip. It reports false when either view is unknown.
func (r *PeerRegistry) IsBehindTip(peer blockchainer.PeerIndex, tip *block.View) bool {
	best := r.GetBestKnown(peer)
	if best == nil || tip == nil {
		return false
	}
	return best.TotalDifficulty.Cmp(tip.TotalDifficulty) < 0
}

// Len returns the number of registered peers.
func (r *PeerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}
