package objfile

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcevc/source/plumbing/object"
)

func TestWriteReadRoundtrip(t *testing.T) {
	content := []byte("the quick brown fox")
	buf := &bytes.Buffer{}

	w := NewWriter(buf)
	require.NoError(t, w.WriteHeader(object.BlobObject, int64(len(content))))
	n, err := io.Copy(w, bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), n)
	require.NoError(t, w.Close())

	h := w.Hash()
	assert.False(t, h.IsZero())

	r, err := NewReader(buf)
	require.NoError(t, err)
	typ, size, err := r.Header()
	require.NoError(t, err)
	assert.Equal(t, object.BlobObject, typ)
	assert.Equal(t, int64(len(content)), size)

	got, err := r.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, content, got)
	require.NoError(t, r.Close())
}

func TestWriteOverflow(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(buf)
	require.NoError(t, w.WriteHeader(object.BlobObject, 8))

	n, err := w.Write([]byte("1234"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = w.Write([]byte("56789"))
	assert.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, 4, n)
}

func TestWriteInvalidType(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(buf)
	assert.ErrorIs(t, w.WriteHeader(object.InvalidObject, 8), ErrInvalidType)
}

func TestWriteNegativeSize(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(buf)
	assert.ErrorIs(t, w.WriteHeader(object.BlobObject, -1), ErrNegativeSize)
}
