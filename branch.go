package source

import (
	"sort"
	"strings"

	"github.com/sourcevc/source/plumbing"
	"github.com/sourcevc/source/plumbing/format/index"
	"github.com/sourcevc/source/plumbing/hash"
	"github.com/sourcevc/source/plumbing/object"
)

var reservedRefNames = map[string]bool{
	"HEAD":        true,
	"refs":        true,
	"refs/heads":  true,
	"refs/tags":   true,
	"refs/remotes": true,
}

const invalidNameChars = "\x00\x01\x02\x03\x04\x05\x06\x07\x08\x09\x0a\x0b\x0c\x0d\x0e\x0f" +
	"\x10\x11\x12\x13\x14\x15\x16\x17\x18\x19\x1a\x1b\x1c\x1d\x1e\x1f\x7f ~^:?*[]"

// ValidateBranchName enforces spec.md §4.J's naming rules.
func ValidateBranchName(name string) error {
	if name == "" {
		return &ValidationError{Field: "name", Reason: "empty"}
	}
	if reservedRefNames[name] {
		return &ValidationError{Field: "name", Reason: "reserved name"}
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") || strings.HasSuffix(name, "/") {
		return &ValidationError{Field: "name", Reason: "leading or trailing '.', or trailing '/'"}
	}
	if strings.HasSuffix(name, ".lock") {
		return &ValidationError{Field: "name", Reason: "reserved '.lock' suffix"}
	}
	for _, bad := range []string{"..", "//", "@{", "\\"} {
		if strings.Contains(name, bad) {
			return &ValidationError{Field: "name", Reason: "contains " + bad}
		}
	}
	if strings.ContainsAny(name, invalidNameChars) {
		return &ValidationError{Field: "name", Reason: "contains an invalid character"}
	}
	return nil
}

// BranchInfo summarizes a branch for listing.
type BranchInfo struct {
	Name             string
	Tip              hash.Hash
	IsCurrent        bool
	CommitCount      int
	LastCommitMsg    string
	LastCommitAuthor string
}

// BranchManager composes the ref subsystem with the object store and
// working-directory manager to implement spec.md §4.J.
type BranchManager struct {
	repo *Repository
}

// NewBranchManager returns a BranchManager bound to r.
func NewBranchManager(r *Repository) *BranchManager { return &BranchManager{repo: r} }

// CreateOptions parameterizes Create.
type CreateOptions struct {
	StartPoint string // branch name or commit hash; empty means current HEAD.
	Force      bool
}

// currentBranch returns the branch name HEAD points at, or "" if HEAD is
// detached, plus the resolved commit hash HEAD currently points to (the
// zero hash if unborn).
func (m *BranchManager) currentBranch() (string, hash.Hash, error) {
	head, err := m.repo.Refs.Reference(plumbing.HEAD)
	if err != nil {
		return "", hash.ZeroHash, &RefError{Kind: RefNotFound, Name: "HEAD", Err: err}
	}

	if head.Type() != plumbing.SymbolicReference {
		return "", head.Hash(), nil
	}

	branch := head.Target().Short()
	ref, err := m.repo.Refs.Reference(head.Target())
	if err != nil {
		return branch, hash.ZeroHash, nil // unborn branch
	}
	return branch, ref.Hash(), nil
}

// Create writes a new branch ref at the resolved start point.
func (m *BranchManager) Create(name string, opts CreateOptions) error {
	if err := ValidateBranchName(name); err != nil {
		return err
	}

	start := opts.StartPoint
	var tip hash.Hash
	if start == "" {
		_, h, err := m.currentBranch()
		if err != nil {
			return err
		}
		if h.IsZero() {
			return ErrNoCommitsYet
		}
		tip = h
	} else {
		h, err := m.ResolveCommitish(start)
		if err != nil {
			return err
		}
		tip = h
	}

	refName := plumbing.NewBranchReferenceName(name)
	_, err := m.repo.Refs.Reference(refName)
	exists := err == nil
	if exists && !opts.Force {
		return ErrAlreadyExists
	}

	return m.repo.Refs.SetReference(plumbing.NewHashReference(refName, tip), nil)
}

// Delete removes a branch, refusing unless it is fully merged into some
// other reachable tip or force is set (spec.md §9 Open Question,
// resolved: force-required when not merged).
func (m *BranchManager) Delete(name string, force bool) error {
	current, _, err := m.currentBranch()
	if err != nil {
		return err
	}
	if name == current {
		return &RefError{Kind: RefInvalidName, Name: name, Err: nil}
	}

	refName := plumbing.NewBranchReferenceName(name)
	ref, err := m.repo.Refs.Reference(refName)
	if err != nil {
		return &RefError{Kind: RefNotFound, Name: name, Err: err}
	}

	if !force {
		merged, err := m.isMergedIntoAnyOther(name, ref.Hash())
		if err != nil {
			return err
		}
		if !merged {
			return &RefError{Kind: RefInvalidName, Name: name, Err: ErrNotFullyMerged}
		}
	}

	return m.repo.Refs.RemoveReference(refName)
}

// isMergedIntoAnyOther reports whether tip is an ancestor of some other
// branch's tip.
func (m *BranchManager) isMergedIntoAnyOther(excludeName string, tip hash.Hash) (bool, error) {
	branches, err := m.list()
	if err != nil {
		return false, err
	}
	for _, b := range branches {
		if b.Name == excludeName || b.Tip.IsZero() {
			continue
		}
		ok, err := object.IsAncestor(m.repo.Objects, b.Tip, tip)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Rename moves old to new, relocating HEAD if old is the current branch.
func (m *BranchManager) Rename(oldName, newName string, force bool) error {
	if err := ValidateBranchName(newName); err != nil {
		return err
	}

	oldRef := plumbing.NewBranchReferenceName(oldName)
	ref, err := m.repo.Refs.Reference(oldRef)
	if err != nil {
		return &RefError{Kind: RefNotFound, Name: oldName, Err: err}
	}

	newRef := plumbing.NewBranchReferenceName(newName)
	if _, err := m.repo.Refs.Reference(newRef); err == nil && !force {
		return ErrAlreadyExists
	}

	if err := m.repo.Refs.SetReference(plumbing.NewHashReference(newRef, ref.Hash()), nil); err != nil {
		return &RefError{Kind: RefInvalidName, Name: newName, Err: err}
	}
	if err := m.repo.Refs.RemoveReference(oldRef); err != nil {
		return &RefError{Kind: RefNotFound, Name: oldName, Err: err}
	}

	current, _, err := m.currentBranch()
	if err == nil && current == oldName {
		head := plumbing.NewSymbolicReference(plumbing.HEAD, newRef)
		if err := m.repo.Refs.SetReference(head, nil); err != nil {
			return &RefError{Kind: RefInvalidName, Name: newName, Err: err}
		}
	}

	return nil
}

func (m *BranchManager) list() ([]BranchInfo, error) {
	refs, err := m.repo.Refs.IterReferences()
	if err != nil {
		return nil, &RefError{Kind: RefNotFound, Name: "refs/heads", Err: err}
	}

	current, _, _ := m.currentBranch()

	var out []BranchInfo
	for _, ref := range refs {
		if !ref.Name().IsBranch() {
			continue
		}
		name := ref.Name().Short()
		info := BranchInfo{Name: name, Tip: ref.Hash(), IsCurrent: name == current}

		if !ref.Hash().IsZero() {
			c, err := object.GetCommit(m.repo.Objects, ref.Hash())
			if err == nil {
				info.LastCommitMsg = firstLine(c.Message)
				info.LastCommitAuthor = c.Author.Name
				info.CommitCount = countReachable(m.repo.Objects, ref.Hash())
			}
		}
		out = append(out, info)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].IsCurrent != out[j].IsCurrent {
			return out[i].IsCurrent
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// List returns every branch, current branch first, the rest sorted by
// name.
func (m *BranchManager) List() ([]BranchInfo, error) { return m.list() }

func countReachable(store object.Store, tip hash.Hash) int {
	it := object.NewCommitPreorderIter(store, tip, nil)
	n := 0
	_ = it.ForEach(func(*object.Commit) error { n++; return nil })
	return n
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// ResolveCommitish resolves name as a branch, tag, or full/unique-prefix
// commit hash.
func (m *BranchManager) ResolveCommitish(name string) (hash.Hash, error) {
	if ref, err := m.repo.Refs.Reference(plumbing.NewBranchReferenceName(name)); err == nil {
		return ref.Hash(), nil
	}
	if ref, err := m.repo.Refs.Reference(plumbing.NewTagReferenceName(name)); err == nil {
		return ref.Hash(), nil
	}
	if h, ok := hash.FromHex(name); ok {
		if has, _ := m.repo.Objects.HasObject(h); has {
			return h, nil
		}
	}
	if len(name) >= 4 && len(name) < hash.Size*2 {
		return m.resolvePrefix(name)
	}
	return hash.ZeroHash, &RefError{Kind: RefNotFound, Name: name}
}

func (m *BranchManager) resolvePrefix(prefix string) (hash.Hash, error) {
	objs, err := m.repo.dg.Objects()
	if err != nil {
		return hash.ZeroHash, &ObjectError{Kind: ObjectNotFound, Reason: "list objects", Err: err}
	}

	var candidates []string
	for _, hex := range objs {
		if strings.HasPrefix(hex, prefix) {
			candidates = append(candidates, hex)
		}
	}
	switch len(candidates) {
	case 0:
		return hash.ZeroHash, &RefError{Kind: RefNotFound, Name: prefix}
	case 1:
		h, _ := hash.FromHex(candidates[0])
		return h, nil
	default:
		return hash.ZeroHash, &RefError{Kind: RefAmbiguous, Name: prefix, Candidates: candidates}
	}
}

// CheckoutOptions parameterizes Checkout.
type CheckoutOptions struct {
	Force  bool
	Create bool
	Detach bool
	Orphan string // new branch name for an orphan checkout; empty means not orphan.
}

// Checkout resolves target, brings the working tree to match it, and
// updates HEAD accordingly.
func (m *BranchManager) Checkout(target string, opts CheckoutOptions) (*UpdateResult, error) {
	if opts.Orphan != "" {
		if err := ValidateBranchName(opts.Orphan); err != nil {
			return nil, err
		}
		head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(opts.Orphan))
		if err := m.repo.Refs.SetReference(head, nil); err != nil {
			return nil, &RefError{Kind: RefInvalidName, Name: opts.Orphan, Err: err}
		}
		if err := m.repo.Index.SetIndex(index.NewIndex()); err != nil {
			return nil, &IndexError{Reason: "clear index", Err: err}
		}
		return &UpdateResult{Success: true}, nil
	}

	if opts.Create {
		if err := m.Create(target, CreateOptions{Force: opts.Force}); err != nil {
			return nil, err
		}
	}

	branchRef := plumbing.NewBranchReferenceName(target)
	isBranch := false
	var commitHash hash.Hash
	if ref, err := m.repo.Refs.Reference(branchRef); err == nil {
		isBranch = true
		commitHash = ref.Hash()
	} else {
		h, err := m.ResolveCommitish(target)
		if err != nil {
			return nil, err
		}
		commitHash = h
	}

	wt := NewWorkingTree(m.repo)
	result := wt.UpdateToCommit(commitHash, opts.Force)
	if result.Err != nil {
		return result, result.Err
	}

	var head *plumbing.Reference
	if isBranch && !opts.Detach {
		head = plumbing.NewSymbolicReference(plumbing.HEAD, branchRef)
	} else {
		head = plumbing.NewHashReference(plumbing.HEAD, commitHash)
	}
	if err := m.repo.Refs.SetReference(head, nil); err != nil {
		return result, &RefError{Kind: RefInvalidName, Name: target, Err: err}
	}

	return result, nil
}
