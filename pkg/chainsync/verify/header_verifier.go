// Package verify provides the reference HeaderVerifier implementation:
// parent-number continuity, timestamp, and proof-of-work checks for a single
// header (spec.md §4.1). The compact target is not checked against an epoch
// schedule, and the header version is not checked here.
package verify

import (
	"github.com/holiman/uint256"

	"github.com/ruizhaoz1/ckb/pkg/chainsync"
	"github.com/ruizhaoz1/ckb/pkg/core/block"
)

// Verifier is the default HeaderVerifier: it checks proof-of-work against
// the header's own declared compact target, parent continuity, median-time
// ordering, and the allowed future-time window.
type Verifier struct {
	// MedianTimeBlockCount is the ancestor window size used for median-time
	// checks.
	MedianTimeBlockCount uint32
	// AllowedFutureBlockTimeMillis bounds how far into the future a
	// timestamp may sit before it is classified too-new rather than
	// too-old-relative-to-median.
	AllowedFutureBlockTimeMillis uint64
}

// New returns a Verifier configured from the given limits.
func New(medianTimeBlockCount uint32, allowedFutureBlockTimeMillis uint64) *Verifier {
	return &Verifier{
		MedianTimeBlockCount:         medianTimeBlockCount,
		AllowedFutureBlockTimeMillis: allowedFutureBlockTimeMillis,
	}
}

// Verify implements chainsync.HeaderVerifier.
func (v *Verifier) Verify(header *block.Header, parent *block.View, resolver chainsync.MedianTimeResolver, nowMillis uint64) *chainsync.HeaderErr {
	if header.Number != parent.Number+1 {
		return &chainsync.HeaderErr{
			Kind: chainsync.HeaderErrNumber,
			Msg:  "header number is not parent number + 1",
		}
	}

	if nowMillis > 0 && header.Timestamp > nowMillis+v.AllowedFutureBlockTimeMillis {
		return &chainsync.HeaderErr{
			Kind: chainsync.HeaderErrTimestampTooNew,
			Msg:  "header timestamp too far in the future",
		}
	}

	if median, ok := resolver.MedianTimePast(parent.Hash(), v.MedianTimeBlockCount); ok && header.Timestamp <= median {
		return &chainsync.HeaderErr{
			Kind: chainsync.HeaderErrTimestampTooOld,
			Msg:  "header timestamp does not exceed median time past",
		}
	}

	if !v.checkProofOfWork(header) {
		return &chainsync.HeaderErr{
			Kind: chainsync.HeaderErrPow,
			Msg:  "header hash does not satisfy its declared compact target",
		}
	}

	return nil
}

// checkProofOfWork reports whether header's hash, read as a big-endian
// integer, is at or below the target its CompactTarget field expands to.
func (v *Verifier) checkProofOfWork(header *block.Header) bool {
	target := block.Target(header.CompactTarget)
	if target.IsZero() {
		return false
	}
	hash := header.Hash()
	hashInt := new(uint256.Int).SetBytes(hash.Bytes())
	return hashInt.Cmp(target) <= 0
}
