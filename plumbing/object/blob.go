package object

import (
	"bytes"
	"io"

	"github.com/sourcevc/source/plumbing/hash"
)

// Blob is an opaque blob of file content, addressed by the hash of its
// raw bytes. Blobs carry no name or mode; that metadata lives in the
// tree entry that references them.
type Blob struct {
	Size int64

	hash    hash.Hash
	content []byte
}

// NewBlob constructs a Blob in memory from content without storing it.
// Callers that need the object persisted should pass it to PutObject.
func NewBlob(content []byte) *Blob {
	return &Blob{
		Size:    int64(len(content)),
		content: append([]byte(nil), content...),
	}
}

func (b *Blob) ID() hash.Hash { return b.hash }
func (b *Blob) Type() Type    { return BlobObject }

// Reader returns a stream over the blob's content.
func (b *Blob) Reader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.content)), nil
}

// Encode appends the blob's raw content to buf: a blob's wire body is
// its content, verbatim.
func (b *Blob) Encode(buf []byte) ([]byte, error) {
	return append(buf, b.content...), nil
}

// Decode populates b from content, assigning the hash h that addresses it.
func (b *Blob) Decode(h hash.Hash, content []byte) error {
	b.hash = h
	b.Size = int64(len(content))
	b.content = content
	return nil
}
