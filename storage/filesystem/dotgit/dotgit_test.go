package dotgit

import (
	"io"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcevc/source/plumbing"
	"github.com/sourcevc/source/plumbing/hash"
	"github.com/sourcevc/source/plumbing/object"
	"github.com/sourcevc/source/storage"
)

func TestNewCreatesSkeleton(t *testing.T) {
	fs := memfs.New()
	d, err := New(fs)
	require.NoError(t, err)

	_, err = fs.Stat("objects")
	assert.NoError(t, err)
	_, err = fs.Stat(fs.Join("refs", "heads"))
	assert.NoError(t, err)

	_ = d
}

func writeBlob(t *testing.T, d *DotGit, content []byte) hash.Hash {
	t.Helper()

	w, err := d.NewObject()
	require.NoError(t, err)

	require.NoError(t, w.WriteHeader(object.BlobObject, int64(len(content))))
	_, err = w.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return w.Hash()
}

func TestObjectRoundtrip(t *testing.T) {
	fs := memfs.New()
	d, err := New(fs)
	require.NoError(t, err)

	h := writeBlob(t, d, []byte("hello world"))

	ok, err := d.HasObject(h.String())
	require.NoError(t, err)
	assert.True(t, ok)

	f, err := d.Object(h.String())
	require.NoError(t, err)
	defer f.Close()

	b, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.NotEmpty(t, b)

	objs, err := d.Objects()
	require.NoError(t, err)
	assert.Contains(t, objs, h.String())
}

func TestSetReferenceAndRead(t *testing.T) {
	fs := memfs.New()
	d, err := New(fs)
	require.NoError(t, err)

	h := hash.New([]byte("commit-ish"))
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), h)

	require.NoError(t, d.SetReference(ref, nil))

	got, err := d.Reference(plumbing.NewBranchReferenceName("main"))
	require.NoError(t, err)
	assert.Equal(t, h, got.Hash())
}

func TestSetReferenceCompareAndSwap(t *testing.T) {
	fs := memfs.New()
	d, err := New(fs)
	require.NoError(t, err)

	name := plumbing.NewBranchReferenceName("main")
	h1 := hash.New([]byte("one"))
	h2 := hash.New([]byte("two"))
	wrong := hash.New([]byte("wrong"))

	require.NoError(t, d.SetReference(plumbing.NewHashReference(name, h1), nil))

	err = d.SetReference(
		plumbing.NewHashReference(name, h2),
		plumbing.NewHashReference(name, wrong),
	)
	assert.ErrorIs(t, err, storage.ErrReferenceHasChanged)

	require.NoError(t, d.SetReference(
		plumbing.NewHashReference(name, h2),
		plumbing.NewHashReference(name, h1),
	))

	got, err := d.Reference(name)
	require.NoError(t, err)
	assert.Equal(t, h2, got.Hash())
}

func TestReferenceNotFound(t *testing.T) {
	fs := memfs.New()
	d, err := New(fs)
	require.NoError(t, err)

	_, err = d.Reference(plumbing.NewBranchReferenceName("nope"))
	assert.ErrorIs(t, err, storage.ErrReferenceNotFound)
}

func TestReferencesListsLooseRefs(t *testing.T) {
	fs := memfs.New()
	d, err := New(fs)
	require.NoError(t, err)

	require.NoError(t, d.SetReference(
		plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), hash.New([]byte("a"))), nil))
	require.NoError(t, d.SetReference(
		plumbing.NewHashReference(plumbing.NewBranchReferenceName("dev"), hash.New([]byte("b"))), nil))

	refs, err := d.References()
	require.NoError(t, err)
	assert.Len(t, refs, 2)
}

func TestRemoveReference(t *testing.T) {
	fs := memfs.New()
	d, err := New(fs)
	require.NoError(t, err)

	name := plumbing.NewBranchReferenceName("main")
	require.NoError(t, d.SetReference(plumbing.NewHashReference(name, hash.New([]byte("a"))), nil))
	require.NoError(t, d.RemoveReference(name))

	_, err = d.Reference(name)
	assert.ErrorIs(t, err, storage.ErrReferenceNotFound)

	// Removing a reference that's already gone is a no-op.
	assert.NoError(t, d.RemoveReference(name))
}
