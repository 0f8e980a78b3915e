package source

import (
	"os"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcevc/source/plumbing/format/index"
)

func TestAddStagesNewAndModifiedFiles(t *testing.T) {
	wt := memfs.New()
	r, err := Init(wt, "", "")
	require.NoError(t, err)

	f, err := r.wt.Create("a.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	res, err := Add(r, []string{"a.txt"}, AddOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, res.Added)
	assert.Empty(t, res.Modified)

	idx, err := r.Index.Index()
	require.NoError(t, err)
	require.Len(t, idx.Entries, 1)

	f2, err := r.wt.OpenFile("a.txt", os.O_WRONLY|os.O_TRUNC, 0o644)
	require.NoError(t, err)
	_, err = f2.Write([]byte("hello v2"))
	require.NoError(t, err)
	require.NoError(t, f2.Close())

	res2, err := Add(r, []string{"a.txt"}, AddOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, res2.Modified)
	assert.Empty(t, res2.Added)
}

func TestAddRespectsIgnoreUnlessForced(t *testing.T) {
	wt := memfs.New()
	r, err := Init(wt, "", "")
	require.NoError(t, err)

	ignoreFile, err := r.wt.Create(".sourceignore")
	require.NoError(t, err)
	_, err = ignoreFile.Write([]byte("*.log\n"))
	require.NoError(t, err)
	require.NoError(t, ignoreFile.Close())

	logFile, err := r.wt.Create("debug.log")
	require.NoError(t, err)
	_, err = logFile.Write([]byte("noise"))
	require.NoError(t, err)
	require.NoError(t, logFile.Close())

	res, err := Add(r, []string{"debug.log"}, AddOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"debug.log"}, res.Ignored)
	assert.Empty(t, res.Added)

	res2, err := Add(r, []string{"debug.log"}, AddOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"debug.log"}, res2.Added)
}

func TestRemoveDropsFromIndexAndOptionallyDisk(t *testing.T) {
	wt := memfs.New()
	r, err := Init(wt, "", "")
	require.NoError(t, err)

	idx := index.NewIndex()
	stageFile(t, r, idx, "a.txt", "hello")
	require.NoError(t, r.Index.SetIndex(idx))

	require.NoError(t, Remove(r, []string{"a.txt"}, false))
	newIdx, err := r.Index.Index()
	require.NoError(t, err)
	assert.Empty(t, newIdx.Entries)

	_, err = r.wt.Stat("a.txt")
	assert.NoError(t, err)

	idx2 := index.NewIndex()
	stageFile(t, r, idx2, "b.txt", "world")
	require.NoError(t, r.Index.SetIndex(idx2))
	require.NoError(t, Remove(r, []string{"b.txt"}, true))

	_, err = r.wt.Stat("b.txt")
	assert.True(t, os.IsNotExist(err))
}

func TestStatusClassifiesStagedUnstagedAndUntracked(t *testing.T) {
	wt := memfs.New()
	r, err := Init(wt, "", "")
	require.NoError(t, err)

	idx := index.NewIndex()
	stageFile(t, r, idx, "a.txt", "hello")
	commitIndex(t, r, idx, "root")

	// staged addition
	f, err := r.wt.Create("new.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("brand new"))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	_, err = Add(r, []string{"new.txt"}, AddOptions{})
	require.NoError(t, err)

	// unstaged modification
	f2, err := r.wt.OpenFile("a.txt", os.O_WRONLY|os.O_TRUNC, 0o644)
	require.NoError(t, err)
	_, err = f2.Write([]byte("hello, dirtied"))
	require.NoError(t, err)
	require.NoError(t, f2.Close())

	// untracked
	f3, err := r.wt.Create("scratch.txt")
	require.NoError(t, err)
	require.NoError(t, f3.Close())

	st, err := Status(r, false)
	require.NoError(t, err)

	assert.Equal(t, "added", st.Staged["new.txt"])
	assert.Equal(t, "modified", st.Unstaged["a.txt"])
	assert.Contains(t, st.Untracked, "scratch.txt")
}
