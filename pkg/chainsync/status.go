// Package chainsync is the block-propagation ingestion core: the message
// dispatch state machines for Headers, CompactBlock, and Block peer
// messages, the header acceptance pipeline, compact-block reconstruction
// bookkeeping, and peer misbehavior accounting described in spec.md.
package chainsync

import "fmt"

// StatusCode is a stable, numeric outcome code suitable for telemetry
// (spec.md §6).
type StatusCode int

const (
	// CodeOK is the generic success outcome.
	CodeOK StatusCode = iota
	// CodeIgnored marks a message that was silently dropped without state
	// change (e.g. a too-new header) and carries no penalty.
	CodeIgnored

	// CodeProtocolMessageIsMalformed is a structural/DoS-100 violation.
	CodeProtocolMessageIsMalformed
	// CodeCompactBlockIsStaled marks a compact block below the staleness floor.
	CodeCompactBlockIsStaled
	// CodeCompactBlockAlreadyStored marks a block already in the store.
	CodeCompactBlockAlreadyStored
	// CodeBlockIsInvalid marks a hash already known BLOCK_INVALID, or one that
	// just failed chain-processor validation.
	CodeBlockIsInvalid
	// CodeCompactBlockRequiresParent means the header's parent is unknown;
	// CompactBlockPipeline sends a GetHeaders follow-up when it sees it.
	CodeCompactBlockRequiresParent
	// CodeCompactBlockIsAlreadyInFlight means (peer, hash) is already outstanding.
	CodeCompactBlockIsAlreadyInFlight
	// CodeCompactBlockIsAlreadyPending means this peer already has a pending entry.
	CodeCompactBlockIsAlreadyPending
	// CodeCompactBlockHasInvalidHeader is a DoS-100 header-verification failure.
	CodeCompactBlockHasInvalidHeader
	// CodeCompactBlockMeetsShortIdsCollision means every short id resolved but
	// the reconstructed root disagreed with the committed one, so every
	// short-id transaction was re-requested; the hash is not marked invalid
	// (the header itself may be at fault).
	CodeCompactBlockMeetsShortIdsCollision
	// CodeCompactBlockRequiresFreshTransactions means a GetBlockTransactions
	// follow-up was sent for a non-collision Missing reconstruction.
	CodeCompactBlockRequiresFreshTransactions
	// CodeBlocksInFlightReachLimit means the inflight cap blocked a reservation.
	CodeBlocksInFlightReachLimit
	// CodeNetwork wraps a message-send failure.
	CodeNetwork
)

// String implements fmt.Stringer for readable logs/telemetry tags.
func (c StatusCode) String() string {
	switch c {
	case CodeOK:
		return "Ok"
	case CodeIgnored:
		return "Ignored"
	case CodeProtocolMessageIsMalformed:
		return "ProtocolMessageIsMalformed"
	case CodeCompactBlockIsStaled:
		return "CompactBlockIsStaled"
	case CodeCompactBlockAlreadyStored:
		return "CompactBlockAlreadyStored"
	case CodeBlockIsInvalid:
		return "BlockIsInvalid"
	case CodeCompactBlockRequiresParent:
		return "CompactBlockRequiresParent"
	case CodeCompactBlockIsAlreadyInFlight:
		return "CompactBlockIsAlreadyInFlight"
	case CodeCompactBlockIsAlreadyPending:
		return "CompactBlockIsAlreadyPending"
	case CodeCompactBlockHasInvalidHeader:
		return "CompactBlockHasInvalidHeader"
	case CodeCompactBlockMeetsShortIdsCollision:
		return "CompactBlockMeetsShortIdsCollision"
	case CodeCompactBlockRequiresFreshTransactions:
		return "CompactBlockRequiresFreshTransactions"
	case CodeBlocksInFlightReachLimit:
		return "BlocksInFlightReachLimit"
	case CodeNetwork:
		return "Network"
	default:
		return fmt.Sprintf("StatusCode(%d)", int(c))
	}
}

// Status is the outcome of processing one message: Ok, Ignored, or an
// Err carrying a code and free-form context (spec.md §3).
type Status struct {
	code    StatusCode
	context string
}

// OK builds the generic success status.
func OK() Status { return Status{code: CodeOK} }

// Ignored builds the "retry later, no state change, no penalty" status.
func Ignored() Status { return Status{code: CodeIgnored} }

// WithContext returns a Status for code carrying a formatted context string,
// mirroring the teacher's StatusCode::with_context idiom.
func WithContext(code StatusCode, format string, args ...interface{}) Status {
	return Status{code: code, context: fmt.Sprintf(format, args...)}
}

// Code returns the status's StatusCode.
func (s Status) Code() StatusCode { return s.code }

// Context returns the free-form context attached to s, if any.
func (s Status) Context() string { return s.context }

// IsOK reports whether s is the plain Ok outcome.
func (s Status) IsOK() bool { return s.code == CodeOK }

// Error implements the error interface so pipelines can be tested with
// error-shaped assertions; callers should branch on Code(), not on this
// string.
func (s Status) Error() string {
	if s.context == "" {
		return s.code.String()
	}
	return fmt.Sprintf("%s: %s", s.code, s.context)
}

// Kind classifies a StatusCode: spec.md §7's four error kinds plus a
// success kind and a network-failure kind.
type Kind int

const (
	// KindSuccess covers Ok and any code Kind does not otherwise classify.
	KindSuccess Kind = iota
	// KindMalformed is a DoS-100 protocol/consensus violation.
	KindMalformed
	// KindTransient is a no-penalty, may-retry-later outcome (too-new timestamps).
	KindTransient
	// KindDuplicate is a no-penalty "already known" outcome.
	KindDuplicate
	// KindFollowup is a no-penalty, expected steady-state outcome tied to a
	// follow-up message: one was sent, or, for BlocksInFlightReachLimit, the
	// inflight cap kept it from being sent.
	KindFollowup
	// KindNetwork is a send failure; no block/peer state mutation implied.
	KindNetwork
)

// Kind classifies s.code.
func (s Status) Kind() Kind {
	switch s.code {
	case CodeOK:
		return KindSuccess
	case CodeIgnored:
		return KindTransient
	case CodeProtocolMessageIsMalformed, CodeCompactBlockHasInvalidHeader:
		return KindMalformed
	case CodeBlockIsInvalid:
		return KindMalformed
	case CodeCompactBlockIsStaled, CodeCompactBlockAlreadyStored,
		CodeCompactBlockIsAlreadyInFlight, CodeCompactBlockIsAlreadyPending:
		return KindDuplicate
	case CodeCompactBlockRequiresParent, CodeCompactBlockMeetsShortIdsCollision,
		CodeCompactBlockRequiresFreshTransactions, CodeBlocksInFlightReachLimit:
		return KindFollowup
	case CodeNetwork:
		return KindNetwork
	default:
		return KindSuccess
	}
}
