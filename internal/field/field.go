// Copyright 2025 Shadow Atlas Contributors
//
// Package field wraps the BN254 scalar field and the Poseidon2 permutation
// used to build every hash in the system: leaf hashes, tree nodes, and
// provenance/geometry commitments all reduce to hash_pair and hash_single
// over this field.

package field

import (
	"encoding/hex"
	"errors"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Element is a BN254 scalar field element (254 bits, reduced mod r).
type Element = fr.Element

// ErrChunkTooLarge is returned when a byte chunk does not fit in a single
// field element (more than 31 bytes).
var ErrChunkTooLarge = errors.New("field: chunk exceeds 31 bytes")

// Zero returns the additive identity.
func Zero() Element {
	var z Element
	z.SetZero()
	return z
}

// FromUint64 lifts a small integer into the field.
func FromUint64(v uint64) Element {
	var e Element
	e.SetUint64(v)
	return e
}

// FromBytes reduces up to 31 raw bytes into a single field element. 31 bytes
// (248 bits) always fits below the BN254 modulus without risk of silent
// truncation, which is why the string/byte-stream hashing contract below
// chunks at that width rather than the full 32-byte word size.
func FromBytes(chunk []byte) (Element, error) {
	var e Element
	if len(chunk) > 31 {
		return e, ErrChunkTooLarge
	}
	e.SetBytes(chunk)
	return e, nil
}

// Equal reports whether two elements are the same field value.
func Equal(a, b Element) bool {
	return a.Equal(&b)
}

// Bytes32 renders an element as a 32-byte big-endian array, the canonical
// wire/hex form used throughout the committed payload (§6).
func Bytes32(e Element) [32]byte {
	return e.Bytes()
}

// HexString renders an element as lowercase hex, zero-padded to 64 chars,
// matching the committed payload's hash encoding rule.
func HexString(e Element) string {
	b := e.Bytes()
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 64)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}

// FromHex parses the 64-hex-char form produced by HexString back into an
// Element. Used when reloading a persisted snapshot's global_root.
func FromHex(s string) (Element, error) {
	var e Element
	b, err := hex.DecodeString(s)
	if err != nil {
		return e, err
	}
	e.SetBytes(b)
	return e, nil
}
