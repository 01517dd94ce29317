// Package shortid derives compact-block short transaction ids: a 6-byte
// murmur3 fingerprint salted per block, so two peers relaying the same
// block independently produce the same ids without exchanging a key.
package shortid

import (
	"encoding/binary"

	"github.com/twmb/murmur3"

	"github.com/ruizhaoz1/ckb/pkg/core/block"
	"github.com/ruizhaoz1/ckb/pkg/util"
)

// Key is the per-block (k0, k1) murmur3 seed pair, derived from the
// block's header hash and nonce so it cannot be predicted before the
// compact block is announced.
type Key struct {
	K0, K1 uint64
}

// DeriveKey computes the short-id key for a compact block from its
// header hash and nonce.
func DeriveKey(headerHash util.Hash, nonce uint64) Key {
	buf := make([]byte, 32+8)
	copy(buf, headerHash.Bytes())
	binary.LittleEndian.PutUint64(buf[32:], nonce)
	k0, k1 := murmur3.SeedSum128(0, 0, buf)
	return Key{K0: k0, K1: k1}
}

// Compute derives the 6-byte short id for txHash under key, the
// siphash-like construction CKB uses: murmur3-128 seeded by (k0, k1),
// truncated to 6 bytes.
func Compute(key Key, txHash util.Hash) block.ShortID {
	h0, _ := murmur3.SeedSum128(key.K0, key.K1, txHash.Bytes())
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], h0)
	var out block.ShortID
	copy(out[:], buf[:6])
	return out
}
