package gitignore

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcherLastPatternWins(t *testing.T) {
	ps := []Pattern{
		ParsePattern("**/middle/v[uo]l?ano", nil),
		ParsePattern("!volcano", nil),
	}

	m := NewMatcher(ps)
	assert.True(t, m.Match([]string{"head", "middle", "vulkano"}, false))
	assert.False(t, m.Match([]string{"head", "middle", "volcano"}, false))
}

func TestReadPatternsFromGitignore(t *testing.T) {
	fs := memfs.New()
	f, err := fs.Create(".sourceignore")
	require.NoError(t, err)
	_, err = f.Write([]byte("vendor/\n# comment\n/ignore_dir\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	ps, err := ReadPatterns(fs, nil, ".sourceignore", ".source")
	require.NoError(t, err)
	require.Len(t, ps, 2)

	m := NewMatcher(ps)
	assert.True(t, m.Match([]string{"vendor"}, true))
	assert.True(t, m.Match([]string{"ignore_dir"}, true))
	assert.False(t, m.Match([]string{"keep"}, false))
}

func TestReadRepositoryExclude(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, fs.MkdirAll(".source/info", 0o755))
	f, err := fs.Create(".source/info/exclude")
	require.NoError(t, err)
	_, err = f.Write([]byte("local_only.txt\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	ps, err := ReadRepositoryExclude(fs, ".source")
	require.NoError(t, err)
	require.Len(t, ps, 1)

	m := NewMatcher(ps)
	assert.True(t, m.Match([]string{"local_only.txt"}, false))
}
