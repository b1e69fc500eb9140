// Package hash computes layout-independent content hashes of analyzed
// programs from a canonical CBOR encoding of their trees.
package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/chazu/plc/compiler"
)

// HashSource computes the SHA-256 content hash of an analyzed program.
//
// The hash covers the normalized tree including every resolved type and
// binding, but no source positions: reformatting a program leaves its hash
// unchanged, and analyzing the same tree twice yields the same hash.
func HashSource(src *compiler.Source) ([32]byte, error) {
	hn, err := NormalizeSource(src)
	if err != nil {
		return [32]byte{}, err
	}
	data, err := Serialize(hn)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// Hex renders a content hash as lowercase hexadecimal.
func Hex(sum [32]byte) string {
	return hex.EncodeToString(sum[:])
}
