package filesystem

import (
	"github.com/sourcevc/source/plumbing"
	"github.com/sourcevc/source/storage/filesystem/dotgit"
)

// ReferenceStorage implements reference storage on top of DotGit's loose
// reference files.
type ReferenceStorage struct {
	dir *dotgit.DotGit
}

// NewReferenceStorage returns a ReferenceStorage rooted at dir.
func NewReferenceStorage(dir *dotgit.DotGit) *ReferenceStorage {
	return &ReferenceStorage{dir: dir}
}

// SetReference writes r, failing with storage.ErrReferenceHasChanged if
// old is non-nil and no longer matches what's on disk.
func (s *ReferenceStorage) SetReference(r, old *plumbing.Reference) error {
	return s.dir.SetReference(r, old)
}

// Reference reads the reference named name.
func (s *ReferenceStorage) Reference(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	return s.dir.Reference(name)
}

// RemoveReference deletes the reference named name.
func (s *ReferenceStorage) RemoveReference(name plumbing.ReferenceName) error {
	return s.dir.RemoveReference(name)
}

// IterReferences lists every stored reference.
func (s *ReferenceStorage) IterReferences() ([]*plumbing.Reference, error) {
	return s.dir.References()
}

// CountLooseRefs returns the number of loose references on disk.
func (s *ReferenceStorage) CountLooseRefs() (int, error) {
	refs, err := s.dir.References()
	if err != nil {
		return 0, err
	}
	return len(refs), nil
}
