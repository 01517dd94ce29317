package chainsync

import (
	"github.com/ruizhaoz1/ckb/pkg/core/block"
	"github.com/ruizhaoz1/ckb/pkg/util"
)

// HeaderErrKind classifies why a header failed verification (spec.md
// §4.1's non_contextual_check/prev_block_check/version_check).
type HeaderErrKind int

const (
	// HeaderErrInvalidParent means the referenced parent is unknown or
	// itself BLOCK_INVALID.
	HeaderErrInvalidParent HeaderErrKind = iota
	// HeaderErrPow means the header's hash does not satisfy its own
	// declared compact target.
	HeaderErrPow
	// HeaderErrTimestampTooOld means the header's timestamp does not
	// exceed the median of its ancestor window.
	HeaderErrTimestampTooOld
	// HeaderErrTimestampTooNew means the header's timestamp is further into
	// the future than AllowedFutureBlockTimeMillis permits. This kind alone
	// is exempt from the DoS-100 penalty (spec.md §4.1 step 3).
	HeaderErrTimestampTooNew
	// HeaderErrNumber means the header's Number is not exactly
	// parent.Number+1.
	HeaderErrNumber
	// HeaderErrEpoch means the header's compact target does not match what
	// the epoch schedule requires.
	HeaderErrEpoch
	// HeaderErrVersion means the header declares an unsupported version.
	HeaderErrVersion
)

// HeaderErr is the structured verification failure a HeaderVerifier
// returns; Kind drives both the Status code chosen by HeaderAcceptor and
// whether the offending peer is scored.
type HeaderErr struct {
	Kind HeaderErrKind
	Msg  string
}

func (e *HeaderErr) Error() string { return e.Msg }

// TooNew reports whether e is the one non-punished verification failure.
func (e *HeaderErr) TooNew() bool { return e.Kind == HeaderErrTimestampTooNew }

// MedianTimeResolver supplies the ancestor timestamp window a HeaderVerifier
// needs for median-time-past checks (spec.md's CompactBlockMedianTimeView
// resolver), without requiring the verifier to know about HeaderIndex.
type MedianTimeResolver interface {
	// MedianTimePast returns the median timestamp of up to windowSize
	// ancestors of parent (inclusive), in milliseconds since epoch.
	MedianTimePast(parent util.Hash, windowSize uint32) (uint64, bool)
}

// ParentResolver supplies parent header lookups, decoupling the verifier
// from the full HeaderIndex interface.
type ParentResolver interface {
	GetHeaderView(hash util.Hash, storeFirst bool) (*block.View, bool)
}

// HeaderVerifier performs the non-contextual and contextual checks a
// single header must pass before it may be marked HEADER_VALID (spec.md
// §4.1). A concrete implementation lives in pkg/chainsync/verify.
type HeaderVerifier interface {
	// Verify checks header against its parent view, using resolver for the
	// ancestor median-time window and nowMillis as the current wall clock.
	Verify(header *block.Header, parent *block.View, resolver MedianTimeResolver, nowMillis uint64) *HeaderErr
}
