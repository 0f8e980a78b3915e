// Package hash provides the content-addressing primitive used throughout
// the engine: a 20-byte SHA-1 digest, hex-encoded for display and for the
// two-level object directory layout on disk.
package hash

import (
	"encoding/hex"
	"hash"
	"sort"

	"github.com/pjbgf/sha1cd"
)

// Size is the length in bytes of a Hash.
const Size = 20

// HexSize is the length in bytes of the hex encoding of a Hash.
const HexSize = Size * 2

// Hash is a SHA-1 content digest.
type Hash [Size]byte

// ZeroHash is the Hash with all bytes set to zero.
var ZeroHash Hash

// NewHasher returns a hash.Hash implementing the object ID function used
// to address stored objects. sha1cd additionally detects the SHAttered/
// Shambles collision attacks and refuses to hash colliding inputs.
func NewHasher() hash.Hash {
	return sha1cd.New()
}

// New hashes b and returns the resulting digest.
func New(b []byte) Hash {
	h := NewHasher()
	h.Write(b)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// FromHex decodes the hex string in and reports whether it was a valid
// Hash encoding.
func FromHex(in string) (Hash, bool) {
	var h Hash
	if len(in) != HexSize {
		return h, false
	}
	b, err := hex.DecodeString(in)
	if err != nil {
		return h, false
	}
	copy(h[:], b)
	return h, true
}

// MustFromHex is like FromHex but panics if in is not a valid encoding.
// It exists for use with compile-time-known constants in tests and fixtures.
func MustFromHex(in string) Hash {
	h, ok := FromHex(in)
	if !ok {
		panic("hash: invalid hex string " + in)
	}
	return h
}

// FromBytes copies b into a Hash and reports whether the length was valid.
func FromBytes(b []byte) (Hash, bool) {
	var h Hash
	if len(b) != Size {
		return h, false
	}
	copy(h[:], b)
	return h, true
}

// IsValidHex reports whether in is a syntactically valid hex-encoded hash.
func IsValidHex(in string) bool {
	_, ok := FromHex(in)
	return ok
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// String returns the lowercase hex encoding of h.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the underlying bytes of h.
func (h Hash) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, h[:])
	return b
}

// Less reports whether a sorts before b in bytewise order.
func Less(a, b Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Sort orders hs in ascending order.
func Sort(hs []Hash) {
	sort.Slice(hs, func(i, j int) bool { return Less(hs[i], hs[j]) })
}
