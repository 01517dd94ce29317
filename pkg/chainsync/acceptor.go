package chainsync

import (
	"go.uber.org/zap"

	"github.com/ruizhaoz1/ckb/pkg/core/block"
	"github.com/ruizhaoz1/ckb/pkg/core/blockchainer"
	"github.com/ruizhaoz1/ckb/pkg/util"
)

// HeaderAcceptor runs the single-header acceptance pipeline (spec.md §4.1):
// fast-path on known status, reject on an invalid/unknown parent, run
// non-contextual + contextual verification (exempting too-new timestamps
// from the DoS penalty), gate on version, then commit HEADER_VALID.
type HeaderAcceptor struct {
	shared         *Shared
	parentResolver ParentResolver
}

// NewHeaderAcceptor builds a HeaderAcceptor against shared, resolving
// parents directly off shared.Chain.
func NewHeaderAcceptor(shared *Shared) *HeaderAcceptor {
	return NewHeaderAcceptorWithParentResolver(shared, shared.Chain)
}

// NewHeaderAcceptorWithParentResolver builds a HeaderAcceptor that resolves
// Step 2's parent lookup through resolver instead of shared.Chain directly.
// CompactBlockPipeline uses this to consult PendingCompactCache before the
// chain store (spec.md §4.3 Gate 7), so two compact blocks that chain onto
// each other while both are still only pending can validate against each
// other without an unnecessary GetHeaders round trip; HeadersPipeline keeps
// using the plain store by way of NewHeaderAcceptor.
func NewHeaderAcceptorWithParentResolver(shared *Shared, resolver ParentResolver) *HeaderAcceptor {
	return &HeaderAcceptor{shared: shared, parentResolver: resolver}
}

// Accept runs the pipeline for one header reported by peer, returning the
// resulting Status. nowMillis is the current wall-clock time in
// milliseconds, threaded in explicitly so tests can control it.
func (a *HeaderAcceptor) Accept(peer blockchainer.PeerIndex, header *block.Header, nowMillis uint64) Status {
	s := a.shared
	hash := header.Hash()

	// Step 1: fast path on already-known status.
	switch status := s.blockStatus(hash); {
	case status.Contains(blockchainer.StatusBlockInvalid):
		return WithContext(CodeBlockIsInvalid, "header %s already marked invalid", hash)
	case status.Contains(blockchainer.StatusHeaderValid):
		if view, ok := s.Chain.GetHeaderView(hash, false); ok {
			s.Peers.MaySetBestKnown(peer, view)
		}
		return OK()
	}

	// Step 2: parent must exist and must not itself be invalid.
	if header.IsGenesis() {
		return OK()
	}
	storeFirst := true
	if tip := s.Chain.ActiveChainTip(); tip != nil {
		storeFirst = header.Number <= tip.Number+1
	}
	parent, ok := a.parentResolver.GetHeaderView(header.ParentHash, storeFirst)
	if !ok {
		return WithContext(CodeCompactBlockRequiresParent, "header %s: unknown parent %s", hash, header.ParentHash)
	}
	if s.blockStatus(header.ParentHash).Contains(blockchainer.StatusBlockInvalid) {
		s.penalize(peer, misbehaviorDelta, "invalid-parent")
		return WithContext(CodeProtocolMessageIsMalformed, "header %s: parent %s is invalid", hash, header.ParentHash)
	}

	// Step 3: non-contextual + contextual verification. A too-new timestamp
	// is reported but never penalized (spec.md §4.1 step 3).
	if verr := s.Verifier.Verify(header, parent, medianTimeResolver{s.Chain}, nowMillis); verr != nil {
		if verr.TooNew() {
			return Ignored()
		}
		s.penalize(peer, misbehaviorDelta, "invalid-header")
		return WithContext(CodeCompactBlockHasInvalidHeader, "header %s: %s", hash, verr.Error())
	}

	// Step 4: version gate. A protocol violation, but not scored as a DoS
	// vector: a future version bump must not cause mass disconnects of
	// not-yet-upgraded peers relaying their own valid headers.
	if header.Version != block.VersionInitial {
		s.setBlockStatus(hash, blockchainer.StatusBlockInvalid)
		return WithContext(CodeProtocolMessageIsMalformed, "header %s: unsupported version %d", hash, header.Version)
	}

	// Step 5: commit.
	if err := s.Chain.InsertValidHeader(peer, header); err != nil {
		return WithContext(CodeProtocolMessageIsMalformed, "header %s: insert: %v", hash, err)
	}
	s.setBlockStatus(hash, blockchainer.StatusHeaderValid)
	s.Log.Debug("accepted header", zap.Stringer("hash", hash), zap.Uint64("number", header.Number))
	return OK()
}

// medianTimeResolver adapts blockchainer.HeaderIndex to the narrower
// MedianTimeResolver interface HeaderVerifier depends on.
type medianTimeResolver struct {
	chain blockchainer.HeaderIndex
}

// MedianTimePast walks parent's ancestor chain up to windowSize headers and
// returns the median of their timestamps.
func (r medianTimeResolver) MedianTimePast(parent util.Hash, windowSize uint32) (uint64, bool) {
	timestamps := make([]uint64, 0, windowSize)
	cursor := parent
	for i := uint32(0); i < windowSize; i++ {
		view, ok := r.chain.GetHeaderView(cursor, false)
		if !ok {
			break
		}
		timestamps = append(timestamps, view.Timestamp)
		if view.IsGenesis() {
			break
		}
		cursor = view.ParentHash
	}
	if len(timestamps) == 0 {
		return 0, false
	}
	return median(timestamps), true
}

func median(values []uint64) uint64 {
	sorted := append([]uint64(nil), values...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	return sorted[len(sorted)/2]
}
