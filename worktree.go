package source

import (
	"os"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"

	"github.com/sourcevc/source/internal/atomicio"
	"github.com/sourcevc/source/plumbing/filemode"
	"github.com/sourcevc/source/plumbing/format/index"
	"github.com/sourcevc/source/plumbing/hash"
	"github.com/sourcevc/source/plumbing/object"
)

// pathState is the (blob-hash, mode) pair a path resolves to, whether
// from a tree, the index, or the working tree.
type pathState struct {
	Hash hash.Hash
	Mode filemode.FileMode
}

// FileOpAction is the kind of change an UpdateToCommit plan entry makes.
type FileOpAction int

const (
	OpCreate FileOpAction = iota
	OpModify
	OpDelete
)

// FileOp is a single step of a checkout plan.
type FileOp struct {
	Path string
	Action FileOpAction
	Hash   hash.Hash
	Mode   filemode.FileMode
}

// UpdateResult reports the outcome of UpdateToCommit.
type UpdateResult struct {
	Success     bool
	FilesChanged int
	Err         error
}

type backupEntry struct {
	Path    string
	Existed bool
	Content []byte
	Mode    os.FileMode
}

// WorkingTree brings the working directory into exact correspondence
// with a target commit, guaranteeing that any failure during apply
// rolls the tree and index back to their pre-operation state.
type WorkingTree struct {
	repo *Repository
}

// NewWorkingTree returns a WorkingTree manager bound to r.
func NewWorkingTree(r *Repository) *WorkingTree { return &WorkingTree{repo: r} }

// loadTree recursively walks treeHash, producing a flat path -> state
// map for the whole tree.
func loadTree(store object.Store, treeHash hash.Hash, prefix string, out map[string]pathState) error {
	t, err := object.GetTree(store, treeHash)
	if err != nil {
		return &ObjectError{Kind: ObjectNotFound, Hash: treeHash.String(), Reason: "load tree", Err: err}
	}

	for _, e := range t.Entries {
		path := e.Name
		if prefix != "" {
			path = prefix + "/" + e.Name
		}
		if e.Mode == filemode.Dir {
			if err := loadTree(store, e.Hash, path, out); err != nil {
				return err
			}
			continue
		}
		out[path] = pathState{Hash: e.Hash, Mode: e.Mode}
	}

	return nil
}

func stateFromIndex(idx *index.Index) map[string]pathState {
	out := make(map[string]pathState, len(idx.Entries))
	for _, e := range idx.Entries {
		out[e.Name] = pathState{Hash: e.Hash, Mode: e.Mode}
	}
	return out
}

// diff produces an ordered plan turning current into target: deletes
// are emitted last so a path that changes type (directory <-> file)
// never transiently collides with itself.
func diff(current, target map[string]pathState) []FileOp {
	var creates, modifies, deletes []FileOp

	for path, want := range target {
		have, ok := current[path]
		if !ok {
			creates = append(creates, FileOp{Path: path, Action: OpCreate, Hash: want.Hash, Mode: want.Mode})
		} else if have.Hash != want.Hash || have.Mode != want.Mode {
			modifies = append(modifies, FileOp{Path: path, Action: OpModify, Hash: want.Hash, Mode: want.Mode})
		}
	}
	for path := range current {
		if _, ok := target[path]; !ok {
			deletes = append(deletes, FileOp{Path: path, Action: OpDelete})
		}
	}

	sort.Slice(creates, func(i, j int) bool { return creates[i].Path < creates[j].Path })
	sort.Slice(modifies, func(i, j int) bool { return modifies[i].Path < modifies[j].Path })
	sort.Slice(deletes, func(i, j int) bool { return deletes[i].Path < deletes[j].Path })

	plan := make([]FileOp, 0, len(creates)+len(modifies)+len(deletes))
	plan = append(plan, creates...)
	plan = append(plan, modifies...)
	plan = append(plan, deletes...)
	return plan
}

// checkDirty refuses to proceed when a path scheduled to change has
// been modified on disk relative to current (the index) without being
// staged. A time-only change (same size/content, different mtime) is
// treated as safe.
func (w *WorkingTree) checkDirty(current map[string]pathState, plan []FileOp) error {
	wt := w.repo.wt

	var conflicts []string
	for _, op := range plan {
		want, tracked := current[op.Path]
		if !tracked {
			continue
		}

		fi, err := wt.Lstat(op.Path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return &IOError{Op: "lstat", Path: op.Path, Err: err}
		}
		if fi.IsDir() {
			continue
		}

		content, err := readWorkingFile(wt, op.Path, want.Mode)
		if err != nil {
			return &IOError{Op: "read", Path: op.Path, Err: err}
		}

		h := hash.New(append([]byte("blob "+itoa(len(content))+"\x00"), content...))
		if h != want.Hash {
			conflicts = append(conflicts, op.Path)
		}
	}

	if len(conflicts) > 0 {
		return &WorkingTreeError{Kind: WorkingTreeDirty, Conflicts: conflicts}
	}
	return nil
}

func readWorkingFile(fs billy.Filesystem, path string, mode filemode.FileMode) ([]byte, error) {
	if mode == filemode.Symlink {
		target, err := fs.Readlink(path)
		if err != nil {
			return nil, err
		}
		return []byte(target), nil
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readAll(f)
}

func readAll(f billy.File) ([]byte, error) {
	var buf []byte
	chunk := make([]byte, 32*1024)
	for {
		n, err := f.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			break
		}
	}
	return buf, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

// UpdateToCommit brings the working tree and index into exact
// correspondence with the commit addressed by targetHash.
func (w *WorkingTree) UpdateToCommit(targetHash hash.Hash, force bool) *UpdateResult {
	r := w.repo

	commit, err := object.GetCommit(r.Objects, targetHash)
	if err != nil {
		return &UpdateResult{Err: &ObjectError{Kind: ObjectNotFound, Hash: targetHash.String(), Reason: "load target commit", Err: err}}
	}

	target := map[string]pathState{}
	if err := loadTree(r.Objects, commit.TreeHash, "", target); err != nil {
		return &UpdateResult{Err: err}
	}

	idx, err := r.Index.Index()
	if err != nil {
		return &UpdateResult{Err: &IndexError{Reason: "load index", Err: err}}
	}
	current := stateFromIndex(idx)

	plan := diff(current, target)

	if !force {
		if err := w.checkDirty(current, plan); err != nil {
			return &UpdateResult{Err: err}
		}
	}

	backups, err := w.backup(plan)
	if err != nil {
		return &UpdateResult{Err: err}
	}

	if err := w.apply(plan); err != nil {
		w.rollback(backups)
		return &UpdateResult{Err: err}
	}

	newIdx := index.NewIndex()
	for path, st := range target {
		newIdx.Add(&index.Entry{Name: path, Hash: st.Hash, Mode: st.Mode})
	}
	if err := r.Index.SetIndex(newIdx); err != nil {
		w.rollback(backups)
		return &UpdateResult{Err: &IndexError{Reason: "rewrite index", Err: err}}
	}

	return &UpdateResult{Success: true, FilesChanged: len(plan)}
}

func (w *WorkingTree) backup(plan []FileOp) ([]backupEntry, error) {
	wt := w.repo.wt
	backups := make([]backupEntry, 0, len(plan))

	for _, op := range plan {
		if op.Action == OpCreate {
			backups = append(backups, backupEntry{Path: op.Path, Existed: false})
			continue
		}

		fi, err := wt.Lstat(op.Path)
		if err != nil {
			if os.IsNotExist(err) {
				backups = append(backups, backupEntry{Path: op.Path, Existed: false})
				continue
			}
			return nil, &IOError{Op: "lstat", Path: op.Path, Err: err}
		}

		var content []byte
		if fi.Mode()&os.ModeSymlink != 0 {
			target, err := wt.Readlink(op.Path)
			if err != nil {
				return nil, &IOError{Op: "readlink", Path: op.Path, Err: err}
			}
			content = []byte(target)
		} else {
			content, err = atomicio.ReadStrict(wt, op.Path)
			if err != nil {
				return nil, &IOError{Op: "read", Path: op.Path, Err: err}
			}
		}

		backups = append(backups, backupEntry{Path: op.Path, Existed: true, Content: content, Mode: fi.Mode()})
	}

	return backups, nil
}

func (w *WorkingTree) apply(plan []FileOp) error {
	wt := w.repo.wt

	for _, op := range plan {
		switch op.Action {
		case OpCreate, OpModify:
			_, content, err := w.repo.Objects.DecodeObject(op.Hash)
			if err != nil {
				return &ObjectError{Kind: ObjectNotFound, Hash: op.Hash.String(), Reason: "load blob for checkout", Err: err}
			}

			dir := path.Dir(op.Path)
			if dir != "" && dir != "." {
				if err := wt.MkdirAll(dir, 0o755); err != nil {
					return &IOError{Op: "mkdir", Path: dir, Err: err}
				}
			}

			if op.Mode == filemode.Symlink {
				_ = wt.Remove(op.Path)
				if err := wt.Symlink(string(content), op.Path); err != nil {
					return &WorkingTreeError{Kind: WorkingTreeSymlinkFailed, Err: err}
				}
				continue
			}

			perm := os.FileMode(0o644)
			if op.Mode == filemode.Executable {
				perm = 0o755
			}
			if err := atomicio.WriteFile(wt, op.Path, content, perm); err != nil {
				return &IOError{Op: "write", Path: op.Path, Err: err}
			}

		case OpDelete:
			if err := wt.Remove(op.Path); err != nil && !os.IsNotExist(err) {
				return &IOError{Op: "remove", Path: op.Path, Err: err}
			}
			cleanupEmptyParents(wt, path.Dir(op.Path))
		}
	}

	return nil
}

func cleanupEmptyParents(fs billy.Filesystem, dir string) {
	for dir != "" && dir != "." {
		entries, err := fs.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := fs.Remove(dir); err != nil {
			return
		}
		dir = path.Dir(dir)
	}
}

// rollback reverses a partially applied plan: restores every backed up
// file to its pre-operation bytes, and removes files that did not
// exist before the operation began. Failures during rollback are
// swallowed by design — the goal is best-effort restoration, and the
// original error is what's surfaced to the caller.
func (w *WorkingTree) rollback(backups []backupEntry) {
	wt := w.repo.wt

	for i := len(backups) - 1; i >= 0; i-- {
		b := backups[i]
		if !b.Existed {
			_ = wt.Remove(b.Path)
			continue
		}

		if b.Mode&os.ModeSymlink != 0 {
			_ = wt.Remove(b.Path)
			_ = wt.Symlink(string(b.Content), b.Path)
			continue
		}

		_ = atomicio.WriteFile(wt, b.Path, b.Content, b.Mode.Perm())
	}
}

// IsClean reports whether idx matches the working tree exactly, using
// the same change-detection heuristic as Status' "unstaged" pass. A
// time-only change (same content, different mtime) counts as clean.
func IsClean(r *Repository, idx *index.Index) (bool, []string, error) {
	wt := r.wt
	var dirty []string

	for _, e := range idx.Entries {
		fi, err := wt.Lstat(e.Name)
		if err != nil {
			if os.IsNotExist(err) {
				dirty = append(dirty, e.Name)
				continue
			}
			return false, nil, &IOError{Op: "lstat", Path: e.Name, Err: err}
		}

		if fi.IsDir() {
			continue
		}
		if uint32(fi.Size()) != e.Size {
			dirty = append(dirty, e.Name)
			continue
		}

		content, err := readWorkingFile(wt, e.Name, e.Mode)
		if err != nil {
			return false, nil, &IOError{Op: "read", Path: e.Name, Err: err}
		}
		h := hash.New(append([]byte("blob "+itoa(len(content))+"\x00"), content...))
		if h != e.Hash {
			dirty = append(dirty, e.Name)
		}
	}

	return len(dirty) == 0, dirty, nil
}
