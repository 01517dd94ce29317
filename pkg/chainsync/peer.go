package chainsync

import (
	"sync/atomic"

	"github.com/ruizhaoz1/ckb/pkg/core/block"
	"github.com/ruizhaoz1/ckb/pkg/core/blockchainer"
)

// PeerFlags records the connection attributes that shape how strictly a
// peer's misbehavior is scored and whether it may be disconnected for
// protocol violations (spec.md §4.6).
type PeerFlags struct {
	// IsOutbound is true for connections this node initiated.
	IsOutbound bool
	// IsProtect exempts a peer from eviction even at a high misbehavior score.
	IsProtect bool
	// IsWhitelist exempts a peer from misbehavior scoring entirely.
	IsWhitelist bool
}

// PeerState is the ingestion core's per-peer bookkeeping: best-known chain
// view, misbehavior score, and connection flags. All mutation goes through
// atomics or the owning PeerRegistry's lock; PeerState itself has no lock.
type PeerState struct {
	Flags PeerFlags

	bestKnown atomic.Value // *block.View, possibly nil-valued entry

	// misbehavior is a saturating counter: Add never wraps past math.MaxUint32.
	misbehavior uint32

	// headerSync is set while a headers-sync round trip with this peer is
	// outstanding; an empty Headers message cancels it (spec.md §4.2).
	headerSync atomic.Bool
}

// NewPeerState returns a PeerState with no best-known header and a zero
// misbehavior score.
func NewPeerState(flags PeerFlags) *PeerState {
	p := &PeerState{Flags: flags}
	p.bestKnown.Store((*block.View)(nil))
	return p
}

// BestKnown returns the peer's best-known header view, or nil if none has
// been reported yet.
func (p *PeerState) BestKnown() *block.View {
	v, _ := p.bestKnown.Load().(*block.View)
	return v
}

// SetBestKnown atomically replaces the peer's best-known header view.
func (p *PeerState) SetBestKnown(v *block.View) {
	p.bestKnown.Store(v)
}

// Misbehavior returns the peer's current saturating misbehavior score.
func (p *PeerState) Misbehavior() uint32 {
	return atomic.LoadUint32(&p.misbehavior)
}

// AddMisbehavior adds delta to the peer's score without wrapping past
// math.MaxUint32, and returns the resulting score. Whitelisted peers are
// never scored by callers (the registry enforces this), but AddMisbehavior
// itself performs the arithmetic unconditionally.
func (p *PeerState) AddMisbehavior(delta uint32) uint32 {
	for {
		old := atomic.LoadUint32(&p.misbehavior)
		next := old + delta
		if next < old { // overflow
			next = ^uint32(0)
		}
		if atomic.CompareAndSwapUint32(&p.misbehavior, old, next) {
			return next
		}
	}
}

// StartHeaderSync marks a headers-sync round trip with this peer as
// outstanding.
func (p *PeerState) StartHeaderSync() { p.headerSync.Store(true) }

// CancelHeaderSync clears the outstanding headers-sync marker, reporting
// whether one was actually outstanding.
func (p *PeerState) CancelHeaderSync() bool { return p.headerSync.CompareAndSwap(true, false) }

// HeaderSyncActive reports whether a headers-sync round trip is outstanding.
func (p *PeerState) HeaderSyncActive() bool { return p.headerSync.Load() }

// misbehaviorDelta is the fixed DoS score added for a Malformed-kind status,
// per spec.md §7 ("DoS-100").
const misbehaviorDelta = 100

// misbehaviorDeltaMinor is the lighter score added for Headers-batch
// bounds/continuity violations (spec.md §4.2): real but not, alone, worth
// an immediate disconnect.
const misbehaviorDeltaMinor = 20

// peerIndex is an alias kept local for readability; the type
// itself lives in blockchainer to avoid an import cycle back into chainsync.
type peerIndex = blockchainer.PeerIndex
