package objfile

import (
	"bufio"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/sourcevc/source/plumbing/object"
)

var ErrMalformedHeader = errors.New("objfile: malformed header")

// Reader decodes a loose object file: it inflates the zlib stream and
// parses the "<type> <size>\x00" header, leaving the content to be read
// through io.Reader/io.Copy.
type Reader struct {
	zr   io.ReadCloser
	r    *bufio.Reader
	typ  object.Type
	size int64
}

// NewReader wraps r, which must yield a complete loose object file.
func NewReader(r io.Reader) (*Reader, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &Reader{zr: zr, r: bufio.NewReader(zr)}, nil
}

// Header reads and parses the object's type/size header. It must be
// called before Read.
func (r *Reader) Header() (object.Type, int64, error) {
	typToken, err := r.r.ReadString(' ')
	if err != nil {
		return object.InvalidObject, 0, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	typToken = typToken[:len(typToken)-1]

	sizeToken, err := r.r.ReadString(0)
	if err != nil {
		return object.InvalidObject, 0, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	sizeToken = sizeToken[:len(sizeToken)-1]

	typ, err := object.ParseType(typToken)
	if err != nil {
		return object.InvalidObject, 0, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	size, err := strconv.ParseInt(sizeToken, 10, 64)
	if err != nil {
		return object.InvalidObject, 0, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	r.typ = typ
	r.size = size
	return typ, size, nil
}

// Read reads decompressed content bytes.
func (r *Reader) Read(p []byte) (int, error) {
	return r.r.Read(p)
}

// ReadAll reads and returns the full content after Header.
func (r *Reader) ReadAll() ([]byte, error) {
	buf := make([]byte, r.size)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close closes the underlying zlib stream.
func (r *Reader) Close() error {
	return r.zr.Close()
}
