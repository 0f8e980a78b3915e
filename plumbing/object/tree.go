package object

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/sourcevc/source/plumbing/filemode"
	"github.com/sourcevc/source/plumbing/hash"
)

// TreeEntry is one child of a Tree: a name, its mode, and the hash of the
// blob or tree it names.
type TreeEntry struct {
	Name string
	Mode filemode.FileMode
	Hash hash.Hash
}

// Tree is an ordered, content-addressed directory listing.
type Tree struct {
	Entries []TreeEntry

	hash hash.Hash
}

// NewTree builds a Tree from entries, sorting them into git's canonical
// order. Two trees with the same entries always produce the same hash.
// Entries must have distinct names.
func NewTree(entries []TreeEntry) (*Tree, error) {
	if name, dup := duplicateName(entries); dup {
		return nil, fmt.Errorf("object: duplicate tree entry name %q", name)
	}
	sorted := append([]TreeEntry(nil), entries...)
	sortTreeEntries(sorted)
	return &Tree{Entries: sorted}, nil
}

func duplicateName(entries []TreeEntry) (string, bool) {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.Name]; ok {
			return e.Name, true
		}
		seen[e.Name] = struct{}{}
	}
	return "", false
}

func (t *Tree) ID() hash.Hash { return t.hash }
func (t *Tree) Type() Type    { return TreeObject }

// sortKey returns the name git sorts by: directories (and submodules) sort
// as though their name had a trailing slash, so "foo" (a file) sorts
// before "foo.go" but "foo/" (a directory) sorts after it.
func sortKey(e TreeEntry) string {
	if e.Mode == filemode.Dir || e.Mode == filemode.Submodule {
		return e.Name + "/"
	}
	return e.Name
}

func sortTreeEntries(entries []TreeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return sortKey(entries[i]) < sortKey(entries[j])
	})
}

// Entry returns the entry named name and reports whether it was found.
func (t *Tree) Entry(name string) (TreeEntry, bool) {
	for _, e := range t.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return TreeEntry{}, false
}

// Encode renders the tree in git's wire format: a sequence of
// "<mode> <name>\x00<20-byte hash>" records in sorted order.
func (t *Tree) Encode(buf []byte) ([]byte, error) {
	if name, dup := duplicateName(t.Entries); dup {
		return nil, fmt.Errorf("object: duplicate tree entry name %q", name)
	}

	sorted := append([]TreeEntry(nil), t.Entries...)
	sortTreeEntries(sorted)

	var b bytes.Buffer
	b.Write(buf)
	for _, e := range sorted {
		fmt.Fprintf(&b, "%o %s", uint32(e.Mode), e.Name)
		b.WriteByte(0)
		b.Write(e.Hash.Bytes())
	}
	return b.Bytes(), nil
}

// DecodeTree parses a tree's wire body.
func DecodeTree(h hash.Hash, content []byte) (*Tree, error) {
	t := &Tree{hash: h}

	r := content
	for len(r) > 0 {
		sp := bytes.IndexByte(r, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("object: malformed tree entry (missing space)")
		}
		modeStr := string(r[:sp])
		r = r[sp+1:]

		nul := bytes.IndexByte(r, 0)
		if nul < 0 {
			return nil, fmt.Errorf("object: malformed tree entry (missing NUL)")
		}
		name := string(r[:nul])
		r = r[nul+1:]

		if len(r) < hash.Size {
			return nil, fmt.Errorf("object: malformed tree entry (short hash)")
		}
		entryHash, _ := hash.FromBytes(r[:hash.Size])
		r = r[hash.Size:]

		modeVal, err := strconv.ParseUint(modeStr, 8, 32)
		if err != nil {
			return nil, fmt.Errorf("object: malformed tree entry mode %q: %w", modeStr, err)
		}

		t.Entries = append(t.Entries, TreeEntry{
			Name: name,
			Mode: filemode.FileMode(modeVal),
			Hash: entryHash,
		})
	}

	return t, nil
}
