package filesystem

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcevc/source/plumbing"
	"github.com/sourcevc/source/plumbing/format/index"
	"github.com/sourcevc/source/plumbing/hash"
	"github.com/sourcevc/source/plumbing/object"
	"github.com/sourcevc/source/storage"
	"github.com/sourcevc/source/storage/filesystem/dotgit"
)

func newTestStores(t *testing.T) (*ObjectStorage, *ReferenceStorage, *IndexStorage) {
	t.Helper()
	fs := memfs.New()
	dir, err := dotgit.New(fs)
	require.NoError(t, err)

	return NewObjectStorage(dir, 0), NewReferenceStorage(dir), NewIndexStorage(fs)
}

func TestObjectStorageRoundtrip(t *testing.T) {
	objs, _, _ := newTestStores(t)

	h, err := objs.EncodeObject(object.BlobObject, []byte("hello"))
	require.NoError(t, err)

	ok, err := objs.HasObject(h)
	require.NoError(t, err)
	assert.True(t, ok)

	typ, content, err := objs.DecodeObject(h)
	require.NoError(t, err)
	assert.Equal(t, object.BlobObject, typ)
	assert.Equal(t, []byte("hello"), content)
}

func TestObjectStorageMissing(t *testing.T) {
	objs, _, _ := newTestStores(t)

	ok, err := objs.HasObject(hash.New([]byte("nope")))
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = objs.DecodeObject(hash.New([]byte("nope")))
	assert.ErrorIs(t, err, object.ErrObjectNotFound)
}

func TestReferenceStorageRoundtrip(t *testing.T) {
	_, refs, _ := newTestStores(t)

	name := plumbing.NewBranchReferenceName("main")
	h := hash.New([]byte("c1"))

	require.NoError(t, refs.SetReference(plumbing.NewHashReference(name, h), nil))

	got, err := refs.Reference(name)
	require.NoError(t, err)
	assert.Equal(t, h, got.Hash())

	n, err := refs.CountLooseRefs()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, refs.RemoveReference(name))
	_, err = refs.Reference(name)
	assert.ErrorIs(t, err, storage.ErrReferenceNotFound)
}

func TestIndexStorageRoundtrip(t *testing.T) {
	_, _, idxStore := newTestStores(t)

	idx, err := idxStore.Index()
	require.NoError(t, err)
	assert.Empty(t, idx.Entries)

	idx.Add(&index.Entry{Name: "a.txt", Hash: hash.New([]byte("a"))})
	require.NoError(t, idxStore.SetIndex(idx))

	got, err := idxStore.Index()
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "a.txt", got.Entries[0].Name)
}
