package atomicio

import (
	"os"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileCreatesParentsAndContent(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, WriteFile(fs, "a/b/c.txt", []byte("hi"), 0o644))

	b, err := ReadStrict(fs, "a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, "hi", string(b))
}

func TestSafeRemoveIsNoopWhenMissing(t *testing.T) {
	fs := memfs.New()
	assert.NoError(t, SafeRemove(fs, "nope.txt"))
}

func TestReadOrEmptyReturnsNilWithoutError(t *testing.T) {
	fs := memfs.New()
	b, err := ReadOrEmpty(fs, "nope.txt")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestReadStrictReturnsNotExist(t *testing.T) {
	fs := memfs.New()
	_, err := ReadStrict(fs, "nope.txt")
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}
