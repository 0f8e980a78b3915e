// Package objfile implements the on-disk encoding of a loose object: a
// zlib-compressed "<type> <size>\x00<content>" stream, hashed as it is
// written so the final content hash is available the moment the stream
// closes.
package objfile

import (
	"compress/zlib"
	"errors"
	"fmt"
	"hash"
	"io"

	srchash "github.com/sourcevc/source/plumbing/hash"
	"github.com/sourcevc/source/plumbing/object"
)

var (
	ErrOverflow     = errors.New("objfile: write beyond declared size")
	ErrNegativeSize = errors.New("objfile: negative object size")
	ErrClosed       = errors.New("objfile: writer already closed")
	ErrInvalidType  = errors.New("objfile: invalid object type")
)

// Writer produces a loose object file. The caller must call WriteHeader
// exactly once, then Write exactly size bytes of content, then Close.
type Writer struct {
	raw    io.Writer
	zw     *zlib.Writer
	hasher hash.Hash
	size   int64

	written int64
	closed  bool
}

// NewWriter wraps w, which receives the compressed object file bytes.
func NewWriter(w io.Writer) *Writer {
	return &Writer{raw: w}
}

// WriteHeader writes the "<type> <size>\x00" framing and must be called
// before any call to Write.
func (w *Writer) WriteHeader(t object.Type, size int64) error {
	if t == object.InvalidObject {
		return ErrInvalidType
	}
	if size < 0 {
		return ErrNegativeSize
	}

	w.size = size
	w.zw = zlib.NewWriter(w.raw)
	w.hasher = srchash.NewHasher()

	header := fmt.Sprintf("%s %d", t, size)
	if _, err := io.WriteString(w.hasher, header); err != nil {
		return err
	}
	if _, err := w.hasher.Write([]byte{0}); err != nil {
		return err
	}
	if _, err := io.WriteString(w.zw, header); err != nil {
		return err
	}
	if _, err := w.zw.Write([]byte{0}); err != nil {
		return err
	}

	return nil
}

// Write writes up to the remaining declared size of content, returning
// ErrOverflow if p would exceed it.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}

	remaining := w.size - w.written
	overflow := int64(len(p)) > remaining

	toWrite := p
	if overflow {
		toWrite = p[:remaining]
	}

	if len(toWrite) > 0 {
		if _, err := w.hasher.Write(toWrite); err != nil {
			return 0, err
		}
		if _, err := w.zw.Write(toWrite); err != nil {
			return 0, err
		}
		w.written += int64(len(toWrite))
	}

	if overflow {
		return len(toWrite), ErrOverflow
	}
	return len(toWrite), nil
}

// Hash returns the content hash of everything written so far.
func (w *Writer) Hash() srchash.Hash {
	var h srchash.Hash
	copy(h[:], w.hasher.Sum(nil))
	return h
}

// Close flushes the zlib stream. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.zw.Close()
}
