package filesystem

import (
	"os"

	"github.com/go-git/go-billy/v5"

	"github.com/sourcevc/source/plumbing/format/index"
)

const (
	indexPath     = "index"
	indexLockPath = "index.lock"
)

// IndexStorage reads and writes the binary staging-area index file,
// guarding concurrent writers with an index.lock file created via
// O_CREATE|O_EXCL, the same advisory-locking convention git itself uses.
type IndexStorage struct {
	fs billy.Filesystem
}

// NewIndexStorage returns an IndexStorage rooted at fs (the ".git"
// directory).
func NewIndexStorage(fs billy.Filesystem) *IndexStorage {
	return &IndexStorage{fs: fs}
}

// ErrIndexLocked is returned when another process already holds
// index.lock.
var ErrIndexLocked = os.ErrExist

// Index reads the current index, returning an empty one if no index file
// exists yet (a freshly initialized repository).
func (s *IndexStorage) Index() (*index.Index, error) {
	f, err := s.fs.Open(indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return index.NewIndex(), nil
		}
		return nil, err
	}
	defer f.Close()

	idx := &index.Index{}
	if err := index.NewDecoder(f).Decode(idx); err != nil {
		return nil, err
	}
	return idx, nil
}

// SetIndex atomically persists idx: it's written to index.lock, then
// renamed over index, so a reader never observes a partially written
// file.
func (s *IndexStorage) SetIndex(idx *index.Index) error {
	lock, err := s.fs.OpenFile(indexLockPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0666)
	if err != nil {
		return err
	}

	if err := index.NewEncoder(lock).Encode(idx); err != nil {
		lock.Close()
		_ = s.fs.Remove(indexLockPath)
		return err
	}

	if err := lock.Close(); err != nil {
		_ = s.fs.Remove(indexLockPath)
		return err
	}

	return s.fs.Rename(indexLockPath, indexPath)
}
