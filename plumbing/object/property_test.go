package object

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/sourcevc/source/plumbing/filemode"
	"github.com/sourcevc/source/plumbing/hash"
)

func genBytes(label string, max int) func(*rapid.T) []byte {
	return func(t *rapid.T) []byte {
		return rapid.SliceOfN(rapid.Byte(), 0, max).Draw(t, label)
	}
}

// TestProperty_BlobRoundTrip covers invariant 1 (parse(serialize(o)) ==
// o) and invariant 4 (writing the same content twice returns the same
// hash) for arbitrary blob content.
func TestProperty_BlobRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := newMemStore()
		content := genBytes("content", 512)(t)

		b := NewBlob(content)
		h1, err := PutObject(s, b)
		require.NoError(t, err)

		h2, err := PutObject(s, NewBlob(content))
		require.NoError(t, err)
		if h1 != h2 {
			t.Fatalf("same content hashed differently: %s vs %s", h1, h2)
		}

		got, err := GetBlob(s, h1)
		require.NoError(t, err)
		r, err := got.Reader()
		require.NoError(t, err)
		defer r.Close()
		buf := make([]byte, len(content))
		if len(content) > 0 {
			_, err = r.Read(buf)
			require.NoError(t, err)
		}
		if string(buf) != string(content) {
			t.Fatalf("roundtrip mismatch: got %q want %q", buf, content)
		}
	})
}

// TestProperty_CommitMessagePreservedVerbatim covers invariant 1 for
// commits specifically: arbitrary message bytes (including embedded and
// trailing newlines, and no trailing newline at all) survive an
// encode/decode cycle unchanged.
func TestProperty_CommitMessagePreservedVerbatim(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := newMemStore()
		treeHash, err := s.EncodeObject(TreeObject, nil)
		require.NoError(t, err)

		author := Person{
			Name:  rapid.StringMatching(`[A-Za-z ]{1,20}`).Draw(t, "name"),
			Email: rapid.StringMatching(`[a-z]{1,10}@[a-z]{1,10}\.com`).Draw(t, "email"),
			When:  time.Unix(rapid.Int64Range(0, 2_000_000_000).Draw(t, "when"), 0).In(time.UTC),
		}

		lines := rapid.SliceOfN(rapid.StringMatching(`[A-Za-z0-9 ,.!]{0,30}`), 0, 5).Draw(t, "lines")
		trailingNewlines := rapid.IntRange(0, 3).Draw(t, "trailing_newlines")
		message := ""
		for i, l := range lines {
			if i > 0 {
				message += "\n"
			}
			message += l
		}
		for i := 0; i < trailingNewlines; i++ {
			message += "\n"
		}

		c := &Commit{TreeHash: treeHash, Author: author, Committer: author, Message: message}
		h, err := PutObject(s, c)
		require.NoError(t, err)

		got, err := GetCommit(s, h)
		require.NoError(t, err)
		if got.Message != message {
			t.Fatalf("message not preserved verbatim: got %q want %q", got.Message, message)
		}
	})
}

// TestProperty_TreeSortIsPermutationInvariant covers invariant 2: two
// trees built from the same (mode, name, hash) entries in different
// insertion orders always produce identical serialized bytes and hash.
func TestProperty_TreeSortIsPermutationInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(t, "n")
		names := make(map[string]bool, n)
		var entries []TreeEntry
		for i := 0; i < n; i++ {
			name := rapid.StringMatching(`[a-z][a-z0-9_]{0,9}`).Draw(t, "name")
			if names[name] {
				continue // keep names distinct; NewTree rejects duplicates
			}
			names[name] = true

			mode := filemode.Regular
			if rapid.Bool().Draw(t, "is_dir") {
				mode = filemode.Dir
			}
			hb := rapid.SliceOfN(rapid.Byte(), hash.Size, hash.Size).Draw(t, "entry_hash")
			h, _ := hash.FromBytes(hb)
			entries = append(entries, TreeEntry{Name: name, Mode: mode, Hash: h})
		}

		t1, err := NewTree(append([]TreeEntry(nil), entries...))
		require.NoError(t, err)

		shuffled := append([]TreeEntry(nil), entries...)
		for i := len(shuffled) - 1; i > 0; i-- {
			j := rapid.IntRange(0, i).Draw(t, "swap")
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		}
		t2, err := NewTree(shuffled)
		require.NoError(t, err)

		b1, err := t1.Encode(nil)
		require.NoError(t, err)
		b2, err := t2.Encode(nil)
		require.NoError(t, err)
		if string(b1) != string(b2) {
			t.Fatalf("permutation changed serialized bytes")
		}
		if hash.New(b1) != hash.New(b2) {
			t.Fatalf("permutation changed hash")
		}
	})
}
