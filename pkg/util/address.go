package util

import "encoding/hex"

// AddressSize is the length in bytes of an Address.
const AddressSize = 20

// Address identifies a miner/author script hash (e.g. a block's next-miner
// field). It plays no role in consensus validation here; it is carried
// through as opaque data.
type Address [AddressSize]byte

// Equals reports whether a and other are the same address.
func (a Address) Equals(other Address) bool {
	return a == other
}

// String returns the hex representation of a, prefixed with "0x".
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}
