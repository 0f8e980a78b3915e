package source

import (
	"sort"
	"strings"

	"github.com/sourcevc/source/plumbing/filemode"
	"github.com/sourcevc/source/plumbing/format/index"
	"github.com/sourcevc/source/plumbing/hash"
	"github.com/sourcevc/source/plumbing/object"
)

type dirNode struct {
	files []*index.Entry
	subs  []string
}

// BuildTree builds, persists, and returns the hash of the root Tree
// whose recursive content exactly corresponds to idx's entries. It
// reads only the index; it never touches the working tree.
func BuildTree(store object.Store, idx *index.Index) (hash.Hash, error) {
	dirs := map[string]*dirNode{"": {}}

	registerDir := func(d string) {
		if _, ok := dirs[d]; !ok {
			dirs[d] = &dirNode{}
		}
	}

	for _, e := range idx.Entries {
		dir := parentOf(e.Name)

		// Register dir and every ancestor up to the root, wiring each
		// into its own parent's subs list.
		for d := dir; ; d = parentOf(d) {
			registerDir(d)
			if d == "" {
				break
			}
			p := parentOf(d)
			registerDir(p)
			if !containsString(dirs[p].subs, d) {
				dirs[p].subs = append(dirs[p].subs, d)
			}
		}

		dirs[dir].files = append(dirs[dir].files, e)
	}

	order := make([]string, 0, len(dirs))
	for d := range dirs {
		order = append(order, d)
	}
	// Deepest directories first, so a parent can look up its children's
	// already-computed tree hashes.
	sort.Slice(order, func(i, j int) bool {
		return depth(order[i]) > depth(order[j])
	})

	treeHashes := map[string]hash.Hash{}

	for _, dir := range order {
		node := dirs[dir]

		entries := make([]object.TreeEntry, 0, len(node.files)+len(node.subs))
		for _, e := range node.files {
			entries = append(entries, object.TreeEntry{
				Name: baseName(e.Name),
				Mode: e.Mode,
				Hash: e.Hash,
			})
		}
		for _, sub := range node.subs {
			h, ok := treeHashes[sub]
			if !ok {
				continue
			}
			entries = append(entries, object.TreeEntry{
				Name: baseName(sub),
				Mode: filemode.Dir,
				Hash: h,
			})
		}

		t, err := object.NewTree(entries)
		if err != nil {
			return hash.ZeroHash, &ObjectError{Kind: ObjectMalformed, Reason: "build tree", Err: err}
		}
		h, err := object.PutObject(store, t)
		if err != nil {
			return hash.ZeroHash, &ObjectError{Kind: ObjectMalformed, Reason: "persist tree", Err: err}
		}
		treeHashes[dir] = h
	}

	return treeHashes[""], nil
}

func parentOf(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return ""
	}
	return path[:i]
}

func baseName(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return path
	}
	return path[i+1:]
}

func depth(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, "/") + 1
}

func containsString(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
