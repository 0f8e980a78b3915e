package source

import (
	"time"

	"github.com/sourcevc/source/plumbing"
	"github.com/sourcevc/source/plumbing/hash"
	"github.com/sourcevc/source/plumbing/object"
)

// CommitOptions parameterizes Commit.
type CommitOptions struct {
	Message     string
	Author      object.Person
	Committer   *object.Person // nil means same as Author.
	Amend       bool
	AllowEmpty  bool
	Parents     []hash.Hash // overrides the default parent determination when non-nil.
	Tree        *hash.Hash  // overrides Tree Builder output when non-nil.
}

// CommitManager composes the ref subsystem, object store, and Tree
// Builder to implement spec.md §4.K.
type CommitManager struct {
	repo *Repository
}

// NewCommitManager returns a CommitManager bound to r.
func NewCommitManager(r *Repository) *CommitManager { return &CommitManager{repo: r} }

// Commit builds and persists a new Commit object from the current index
// (or opts.Tree, if given), then advances HEAD (or the branch it points
// to) to the new commit.
func (m *CommitManager) Commit(opts CommitOptions) (hash.Hash, error) {
	head, headErr := m.repo.Refs.Reference(plumbing.HEAD)
	var branchRef plumbing.ReferenceName
	var headCommitHash hash.Hash
	var headCommit *object.Commit

	if headErr == nil && head.Type() == plumbing.SymbolicReference {
		branchRef = head.Target()
		if ref, err := m.repo.Refs.Reference(branchRef); err == nil {
			headCommitHash = ref.Hash()
		}
	} else if headErr == nil {
		headCommitHash = head.Hash()
	}

	if !headCommitHash.IsZero() {
		c, err := object.GetCommit(m.repo.Objects, headCommitHash)
		if err != nil {
			return hash.ZeroHash, &ObjectError{Kind: ObjectNotFound, Hash: headCommitHash.String(), Reason: "load HEAD commit", Err: err}
		}
		headCommit = c
	}

	parents := opts.Parents
	if parents == nil {
		switch {
		case opts.Amend:
			if headCommit == nil {
				return hash.ZeroHash, ErrNoCommitsYet
			}
			parents = headCommit.ParentHashes
		case headCommit != nil:
			parents = []hash.Hash{headCommitHash}
		default:
			parents = nil
		}
	}

	var treeHash hash.Hash
	if opts.Tree != nil {
		treeHash = *opts.Tree
	} else {
		idx, err := m.repo.Index.Index()
		if err != nil {
			return hash.ZeroHash, &IndexError{Reason: "load index", Err: err}
		}
		h, err := BuildTree(m.repo.Objects, idx)
		if err != nil {
			return hash.ZeroHash, err
		}
		treeHash = h
	}

	if !opts.AllowEmpty && !opts.Amend && headCommit != nil && headCommit.TreeHash == treeHash {
		return hash.ZeroHash, ErrNothingToCommit
	}

	author := opts.Author
	if author.When.IsZero() {
		author.When = time.Now()
	}
	committer := author
	if opts.Committer != nil {
		committer = *opts.Committer
		if committer.When.IsZero() {
			committer.When = time.Now()
		}
	}

	c := &object.Commit{
		TreeHash:     treeHash,
		ParentHashes: parents,
		Author:       author,
		Committer:    committer,
		Message:      opts.Message,
	}

	newHash, err := object.PutObject(m.repo.Objects, c)
	if err != nil {
		return hash.ZeroHash, &ObjectError{Kind: ObjectMalformed, Reason: "persist commit", Err: err}
	}

	if branchRef != "" {
		var old *plumbing.Reference
		if !headCommitHash.IsZero() {
			old = plumbing.NewHashReference(branchRef, headCommitHash)
		}
		if err := m.repo.Refs.SetReference(plumbing.NewHashReference(branchRef, newHash), old); err != nil {
			return hash.ZeroHash, &RefError{Kind: RefInvalidName, Name: branchRef.String(), Err: err}
		}
	} else {
		var old *plumbing.Reference
		if !headCommitHash.IsZero() {
			old = plumbing.NewHashReference(plumbing.HEAD, headCommitHash)
		}
		if err := m.repo.Refs.SetReference(plumbing.NewHashReference(plumbing.HEAD, newHash), old); err != nil {
			return hash.ZeroHash, &RefError{Kind: RefInvalidName, Name: "HEAD", Err: err}
		}
	}

	return newHash, nil
}
