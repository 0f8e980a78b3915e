package source

import (
	"os"

	"github.com/sourcevc/source/plumbing"
	"github.com/sourcevc/source/plumbing/filemode"
	"github.com/sourcevc/source/plumbing/format/index"
	"github.com/sourcevc/source/plumbing/hash"
	"github.com/sourcevc/source/plumbing/object"
)

// AddOptions controls Add's traversal and ignore-engine behavior.
type AddOptions struct {
	All     bool // "." or -A: stage the whole tree, including deletions.
	DryRun  bool
	Force   bool // stage even paths the ignore engine would exclude.
}

// AddResult partitions the outcome of an Add call per spec.md §4.F.
type AddResult struct {
	Added    []string
	Modified []string
	Ignored  []string
	Failed   map[string]error
}

// StatusResult is the three-way classification spec.md §4.F describes:
// staged (index vs HEAD tree), unstaged (working tree vs index), and
// untracked (on disk, in neither).
type StatusResult struct {
	Staged    map[string]string // path -> "added"|"modified"|"deleted"
	Unstaged  map[string]string // path -> "modified"|"deleted"
	Untracked []string
	Ignored   []string
}

// Add expands paths (directories recurse; "." or All means the whole
// working tree), hashes and stores each file's content as a blob, and
// updates the index to match. Per-file failures do not abort the call;
// they are reported in Failed.
func Add(r *Repository, paths []string, opts AddOptions) (*AddResult, error) {
	idx, err := r.Index.Index()
	if err != nil {
		return nil, &IndexError{Reason: "load index", Err: err}
	}

	ignore, err := NewIgnoreEngine(r)
	if err != nil {
		return nil, err
	}

	files, err := expandPaths(r, paths, opts.All)
	if err != nil {
		return nil, &RepositoryError{Op: "add", Reason: "expand paths", Err: err}
	}

	res := &AddResult{Failed: map[string]error{}}

	for _, p := range files {
		if !opts.Force && ignore.IsIgnored(r.metaDirName, p, false) {
			res.Ignored = append(res.Ignored, p)
			continue
		}

		content, mode, err := readStageable(r, p)
		if err != nil {
			res.Failed[p] = err
			continue
		}

		if opts.DryRun {
			if _, ok := idx.Entry(p); ok == nil {
				res.Modified = append(res.Modified, p)
			} else {
				res.Added = append(res.Added, p)
			}
			continue
		}

		h, err := r.Objects.EncodeObject(object.BlobObject, content)
		if err != nil {
			res.Failed[p] = &ObjectError{Kind: ObjectMalformed, Reason: "store blob", Err: err}
			continue
		}

		existing, errLookup := idx.Entry(p)
		fi, statErr := r.wt.Lstat(p)
		entry := &index.Entry{Name: p, Hash: h, Mode: mode}
		if statErr == nil {
			entry.Size = uint32(fi.Size())
			entry.ModifiedAt = fi.ModTime()
		}
		idx.Add(entry)

		if errLookup == nil && existing.Hash == h {
			continue
		}
		if errLookup != nil {
			res.Added = append(res.Added, p)
		} else {
			res.Modified = append(res.Modified, p)
		}
	}

	if opts.All {
		for _, e := range append(idx.Entries[:0:0], idx.Entries...) {
			if _, err := r.wt.Lstat(e.Name); err != nil && os.IsNotExist(err) {
				idx.Remove(e.Name)
				res.Modified = append(res.Modified, e.Name)
			}
		}
	}

	if !opts.DryRun {
		if err := r.Index.SetIndex(idx); err != nil {
			return res, &IndexError{Reason: "save index", Err: err}
		}
	}

	return res, nil
}

// Remove drops paths from the index and, if fromDisk is set, deletes
// them from the working tree too.
func Remove(r *Repository, paths []string, fromDisk bool) error {
	idx, err := r.Index.Index()
	if err != nil {
		return &IndexError{Reason: "load index", Err: err}
	}

	for _, p := range paths {
		idx.Remove(p)
		if fromDisk {
			if err := r.wt.Remove(p); err != nil && !os.IsNotExist(err) {
				return &IOError{Op: "remove", Path: p, Err: err}
			}
		}
	}

	if err := r.Index.SetIndex(idx); err != nil {
		return &IndexError{Reason: "save index", Err: err}
	}
	return nil
}

// Status computes the three-way staged/unstaged/untracked classification.
// includeIgnored additionally populates Ignored; the working-tree walk
// that finds untracked and ignored paths runs either way.
func Status(r *Repository, includeIgnored bool) (*StatusResult, error) {
	idx, err := r.Index.Index()
	if err != nil {
		return nil, &IndexError{Reason: "load index", Err: err}
	}

	res := &StatusResult{Staged: map[string]string{}, Unstaged: map[string]string{}}

	headTree, err := headTreeState(r)
	if err != nil {
		return nil, err
	}

	indexState := stateFromIndex(idx)
	for p, st := range indexState {
		if prev, ok := headTree[p]; !ok {
			res.Staged[p] = "added"
		} else if prev.Hash != st.Hash || prev.Mode != st.Mode {
			res.Staged[p] = "modified"
		}
	}
	for p := range headTree {
		if _, ok := indexState[p]; !ok {
			res.Staged[p] = "deleted"
		}
	}

	for _, e := range idx.Entries {
		fi, err := r.wt.Lstat(e.Name)
		if err != nil {
			if os.IsNotExist(err) {
				res.Unstaged[e.Name] = "deleted"
				continue
			}
			return nil, &IOError{Op: "lstat", Path: e.Name, Err: err}
		}
		if fi.IsDir() {
			continue
		}
		if uint32(fi.Size()) != e.Size {
			res.Unstaged[e.Name] = "modified"
			continue
		}
		content, err := readWorkingFile(r.wt, e.Name, e.Mode)
		if err != nil {
			return nil, &IOError{Op: "read", Path: e.Name, Err: err}
		}
		h := hash.New(append([]byte("blob "+itoa(len(content))+"\x00"), content...))
		if h != e.Hash {
			res.Unstaged[e.Name] = "modified"
		}
	}

	ignore, err := NewIgnoreEngine(r)
	if err != nil {
		return nil, err
	}

	all, err := expandPaths(r, []string{"."}, true)
	if err != nil {
		return nil, &RepositoryError{Op: "status", Reason: "walk working tree", Err: err}
	}
	for _, p := range all {
		if _, tracked := indexState[p]; tracked {
			continue
		}
		if ignore.IsIgnored(r.metaDirName, p, false) {
			if includeIgnored {
				res.Ignored = append(res.Ignored, p)
			}
			continue
		}
		res.Untracked = append(res.Untracked, p)
	}

	return res, nil
}

func headTreeState(r *Repository) (map[string]pathState, error) {
	out := map[string]pathState{}

	head, err := r.Refs.Reference(plumbing.HEAD)
	if err != nil {
		return out, nil
	}
	target := head
	if target.Type() == plumbing.SymbolicReference {
		resolved, err := r.Refs.Reference(target.Target())
		if err != nil {
			return out, nil // unborn branch: empty tree
		}
		target = resolved
	}

	c, err := object.GetCommit(r.Objects, target.Hash())
	if err != nil {
		return nil, &ObjectError{Kind: ObjectNotFound, Hash: target.Hash().String(), Reason: "load HEAD commit", Err: err}
	}
	if err := loadTree(r.Objects, c.TreeHash, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

// expandPaths resolves paths (files or directories, "." meaning
// everything) into a flat, sorted, de-duplicated list of working-tree
// file paths, skipping the metadata directory unconditionally.
func expandPaths(r *Repository, paths []string, all bool) ([]string, error) {
	var roots []string
	if all || (len(paths) == 1 && paths[0] == ".") {
		roots = []string{""}
	} else {
		roots = paths
	}

	seen := map[string]bool{}
	var out []string
	var walk func(p string) error
	walk = func(p string) error {
		if p == r.metaDirName {
			return nil
		}
		fi, err := r.wt.Lstat(p)
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
			return nil
		}
		entries, err := r.wt.ReadDir(p)
		if err != nil {
			return err
		}
		for _, e := range entries {
			child := e.Name()
			if p != "" {
				child = r.wt.Join(p, e.Name())
			}
			if child == r.metaDirName {
				continue
			}
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range roots {
		if err := walk(root); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readStageable(r *Repository, p string) ([]byte, filemode.FileMode, error) {
	fi, err := r.wt.Lstat(p)
	if err != nil {
		return nil, 0, err
	}

	if fi.Mode()&os.ModeSymlink != 0 {
		target, err := r.wt.Readlink(p)
		if err != nil {
			return nil, 0, err
		}
		return []byte(target), filemode.Symlink, nil
	}

	f, err := r.wt.Open(p)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	content, err := readAll(f)
	if err != nil {
		return nil, 0, err
	}

	mode := filemode.Regular
	if fi.Mode()&0o111 != 0 {
		mode = filemode.Executable
	}
	return content, mode, nil
}
