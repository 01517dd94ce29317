// Package block holds the wire-level value types the ingestion core
// consumes and produces: headers, blocks, and compact-block announcements.
package block

import (
	"encoding/binary"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/blake2b"

	"github.com/ruizhaoz1/ckb/pkg/util"
)

// VersionInitial is the only header version this peer accepts.
const VersionInitial uint32 = 0

// Header is the fixed-size record every block and compact-block carries.
// It is immutable after construction: callers must not mutate a Header
// once its Hash has been read, or the cached hash goes stale.
type Header struct {
	Version       uint32
	ParentHash    util.Hash
	Number        uint64
	Timestamp     uint64 // milliseconds since epoch
	CompactTarget uint32
	Nonce         uint64

	// TransactionsRoot is the Merkle root over the block's transactions.
	TransactionsRoot util.Hash
	// ExtraHash roots proposals and uncles (CKB's second Merkle root).
	ExtraHash util.Hash

	hash     util.Hash
	hashSet  bool
}

// Hash returns the BLAKE2b-256 digest of the header's hashable fields,
// caching it on first call the way callers expect to call Hash() often
// during relay without re-hashing.
func (h *Header) Hash() util.Hash {
	if !h.hashSet {
		h.hash = h.computeHash()
		h.hashSet = true
	}
	return h.hash
}

func (h *Header) computeHash() util.Hash {
	buf := make([]byte, 0, 4+32+8+8+4+8+32+32)
	buf = binary.LittleEndian.AppendUint32(buf, h.Version)
	buf = append(buf, h.ParentHash[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, h.Number)
	buf = binary.LittleEndian.AppendUint64(buf, h.Timestamp)
	buf = binary.LittleEndian.AppendUint32(buf, h.CompactTarget)
	buf = binary.LittleEndian.AppendUint64(buf, h.Nonce)
	buf = append(buf, h.TransactionsRoot[:]...)
	buf = append(buf, h.ExtraHash[:]...)

	digest := blake2b.Sum256(buf)
	var out util.Hash
	copy(out[:], digest[:])
	return out
}

// IsGenesis reports whether h is a genesis header (number zero and a zero
// parent hash, the only header the index may accept without a stored parent).
func (h *Header) IsGenesis() bool {
	return h.Number == 0 && h.ParentHash.IsZero()
}

// View pairs a Header with its derived total difficulty, per spec.md's
// HeaderView: total_difficulty = parent.total_difficulty + difficulty(target).
type View struct {
	*Header
	TotalDifficulty *uint256.Int
}

// DifficultyFromTarget expands a compact PoW target (bitcoin-style nBits
// encoding: MSB is the exponent, low 3 bytes the mantissa) into the
// corresponding difficulty, 0xffff0000... / target.
func DifficultyFromTarget(compact uint32) *uint256.Int {
	target := Target(compact)
	if target.IsZero() {
		return uint256.NewInt(0)
	}
	maxTarget, _ := uint256.FromHex("0x" + "ffff" + "00000000000000000000000000000000000000000000000000000000")
	result := new(uint256.Int).Div(maxTarget, target)
	return result
}

// Target expands a compact PoW target (bitcoin-style nBits encoding) into
// the full-width integer a header's hash must not exceed to satisfy its
// declared proof of work.
func Target(compact uint32) *uint256.Int {
	return expandCompactTarget(compact)
}

func expandCompactTarget(compact uint32) *uint256.Int {
	exponent := compact >> 24
	mantissa := compact & 0x007fffff
	result := uint256.NewInt(uint64(mantissa))
	if exponent <= 3 {
		result.Rsh(result, uint(8*(3-exponent)))
		return result
	}
	shift := uint(8 * (exponent - 3))
	if shift >= 256 {
		return uint256.NewInt(0)
	}
	return result.Lsh(result, shift)
}

// NewView builds a View from a header and its parent's total difficulty.
func NewView(h *Header, parentTotalDifficulty *uint256.Int) *View {
	td := new(uint256.Int)
	if parentTotalDifficulty != nil {
		td.Set(parentTotalDifficulty)
	}
	td.Add(td, DifficultyFromTarget(h.CompactTarget))
	return &View{Header: h, TotalDifficulty: td}
}
