// Package hashing implements the 256-bit content digest used across rhizo:
// chunk identity, Merkle internal nodes, and schema digests all hash through
// this single entry point so the on-disk hex form is always produced the
// same way.
package hashing

import (
	"encoding/hex"
	"regexp"

	"golang.org/x/crypto/blake2b"
)

// Size is the digest length in bytes (256 bits).
const Size = 32

// HexLen is the length of the hex-encoded digest string.
const HexLen = Size * 2

var hexPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Sum returns the lowercase hex digest of data.
func Sum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SumConcatHex hashes the concatenation of a set of already-hex-encoded
// child digests, as used to fold Merkle internal nodes.
func SumConcatHex(children []string) string {
	buf := make([]byte, 0, len(children)*HexLen)
	for _, c := range children {
		buf = append(buf, c...)
	}
	return Sum(buf)
}

// Valid reports whether s is a well-formed 64-character lowercase hex digest.
func Valid(s string) bool {
	return hexPattern.MatchString(s)
}
