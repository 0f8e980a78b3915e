package binary

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/sourcevc/source/plumbing/hash"
)

// Read reads the binary representation of data from r, using BigEndian
// order. https://golang.org/pkg/encoding/binary/#Read
func Read(r io.Reader, data ...interface{}) error {
	for _, v := range data {
		if err := binary.Read(r, binary.BigEndian, v); err != nil {
			return err
		}
	}

	return nil
}

// ReadUint32 reads a BigEndian-encoded uint32 from r.
func ReadUint32(r io.Reader) (uint32, error) {
	var v uint32
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// ReadUint16 reads a BigEndian-encoded uint16 from r.
func ReadUint16(r io.Reader) (uint16, error) {
	var v uint16
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// ReadHash reads a raw 20-byte object hash from r.
func ReadHash(r io.Reader) (hash.Hash, error) {
	var h hash.Hash
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return hash.Hash{}, err
	}
	return h, nil
}

// ReadUntil reads from r until it encounters delim, returning everything
// read before it (the delimiter itself is consumed but not returned).
func ReadUntil(r io.Reader, delim byte) ([]byte, error) {
	if br, ok := r.(*bufio.Reader); ok {
		return ReadUntilFromBufioReader(br, delim)
	}
	return ReadUntilFromBufioReader(bufio.NewReader(r), delim)
}

// ReadUntilFromBufioReader is like ReadUntil but takes a *bufio.Reader
// directly, avoiding an extra buffering layer when the caller already
// has one.
func ReadUntilFromBufioReader(r *bufio.Reader, delim byte) ([]byte, error) {
	b, err := r.ReadBytes(delim)
	if err != nil {
		return nil, err
	}
	return b[:len(b)-1], nil
}

// ReadVariableWidthInt reads the base-128 varint encoding git uses for
// pack and index offsets: the high bit of each byte signals continuation.
func ReadVariableWidthInt(r io.Reader) (int64, error) {
	var (
		buf [1]byte
		val int64
	)

	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		val = (val << 7) | int64(buf[0]&0x7f)
		if buf[0]&0x80 == 0 {
			break
		}
		val++
	}

	return val, nil
}
