// Package random provides deterministic-looking but non-reproducible test
// fixtures: random strings, byte slices, and hash/address values.
package random

import (
	"math/rand"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/ruizhaoz1/ckb/pkg/util"
)

// String returns a random string with the n as its length.
func String(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(Int(65, 90))
	}

	return string(b)
}

// Bytes returns a random byte slice of specified length.
func Bytes(n int) []byte {
	b := make([]byte, n)
	Fill(b)
	return b
}

// Fill fills buffer with random bytes.
func Fill(buf []byte) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	// Rand reader returns no errors
	r.Read(buf)
}

// Int returns a random integer in [min,max).
func Int(min, max int) int {
	return min + rand.Intn(max-min)
}

// Hash returns a random util.Hash.
func Hash() util.Hash {
	digest := blake2b.Sum256(Bytes(32))
	var h util.Hash
	copy(h[:], digest[:])
	return h
}

// Address returns a random util.Address.
func Address() util.Address {
	var a util.Address
	Fill(a[:])
	return a
}

func init() {
	//nolint:staticcheck
	rand.Seed(time.Now().UTC().UnixNano())
}
