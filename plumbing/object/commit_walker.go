package object

import (
	"io"

	"github.com/sourcevc/source/plumbing/hash"
)

// CommitIter yields commits one at a time until exhausted.
type CommitIter interface {
	Next() (*Commit, error)
	ForEach(func(*Commit) error) error
}

// commitPreorderIter walks history starting at a commit, visiting each
// parent before that parent's own ancestors (a breadth-first walk over
// the commit DAG), visiting each reachable commit exactly once.
type commitPreorderIter struct {
	store Store
	seen  map[hash.Hash]bool
	queue []hash.Hash
}

// NewCommitPreorderIter returns an iterator over every commit reachable
// from start, each commit visited exactly once. ignore seeds the seen
// set, so the listed commits, and history reachable only through them,
// are skipped.
func NewCommitPreorderIter(store Store, start hash.Hash, ignore []hash.Hash) CommitIter {
	seen := make(map[hash.Hash]bool, len(ignore))
	for _, h := range ignore {
		seen[h] = true
	}
	return &commitPreorderIter{
		store: store,
		seen:  seen,
		queue: []hash.Hash{start},
	}
}

func (w *commitPreorderIter) Next() (*Commit, error) {
	for len(w.queue) > 0 {
		h := w.queue[0]
		w.queue = w.queue[1:]

		if w.seen[h] {
			continue
		}
		w.seen[h] = true

		c, err := GetCommit(w.store, h)
		if err != nil {
			return nil, err
		}

		for _, p := range c.ParentHashes {
			if !w.seen[p] {
				w.queue = append(w.queue, p)
			}
		}

		return c, nil
	}
	return nil, io.EOF
}

func (w *commitPreorderIter) ForEach(cb func(*Commit) error) error {
	for {
		c, err := w.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := cb(c); err != nil {
			return err
		}
	}
}

// IsAncestor reports whether ancestor is target itself or reachable by
// following parent links from target. It grounds the "fully merged"
// reachability check used before a branch delete.
func IsAncestor(store Store, target, ancestor hash.Hash) (bool, error) {
	if target == ancestor {
		return true, nil
	}

	it := NewCommitPreorderIter(store, target, nil)
	for {
		c, err := it.Next()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if c.hash == ancestor {
			return true, nil
		}
	}
}
