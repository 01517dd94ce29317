// Package util holds small fixed-size value types shared across the
// ingestion core: 32-byte hashes and 20-byte addresses.
package util

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// HashSize is the length in bytes of a Hash.
const HashSize = 32

// Hash is a 32-byte identifier of a header or block.
type Hash [HashSize]byte

// Equals reports whether h and other identify the same value.
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Bytes returns a copy of the raw hash bytes.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// String returns the hex representation of h, prefixed with "0x".
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// MarshalJSON implements json.Marshaler.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := HashFromString(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HashFromString parses a hex-encoded hash, with or without a "0x" prefix.
func HashFromString(s string) (Hash, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("util: invalid hash %q: %w", s, err)
	}
	if len(b) != HashSize {
		return h, fmt.Errorf("util: invalid hash length %d, want %d", len(b), HashSize)
	}
	copy(h[:], b)
	return h, nil
}

// HashFromBytes copies b into a Hash, erroring if the length doesn't match.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, errors.New("util: wrong byte slice length for hash")
	}
	copy(h[:], b)
	return h, nil
}
