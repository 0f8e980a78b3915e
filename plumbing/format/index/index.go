// Package index implements a simplified reading and writing of git's
// binary staging-area index format: the "DIRC" signature, a version and
// entry count, fixed-width entries padded to an 8-byte boundary, and a
// trailing SHA-1 checksum over everything that came before it. Extensions
// (TREE, REUC, UNTR, and friends) are not produced or understood; the
// staging area this engine needs never requires them.
package index

import (
	"errors"
	"time"

	"github.com/sourcevc/source/plumbing/filemode"
	"github.com/sourcevc/source/plumbing/hash"
)

var (
	// ErrUnsupportedVersion is returned by Decode for an index version
	// other than the one this package writes.
	ErrUnsupportedVersion = errors.New("index: unsupported version")
	// ErrInvalidChecksum is returned by Decode when the trailing SHA-1
	// does not match the file content.
	ErrInvalidChecksum = errors.New("index: invalid checksum")
	// ErrEntryNotFound is returned by Index.Entry for an unknown path.
	ErrEntryNotFound = errors.New("index: entry not found")
)

// Version is the only index format version this package produces.
const Version = 2

// Entry is one staged path: its object hash plus enough filesystem
// metadata to detect when the working-tree copy has changed without
// rehashing its content.
type Entry struct {
	Name string
	Hash hash.Hash
	Mode filemode.FileMode
	Size uint32

	CreatedAt  time.Time
	ModifiedAt time.Time
	Dev        uint32
	Inode      uint32
	UID        uint32
	GID        uint32
}

// Index is the in-memory staging area: every currently-staged path and
// the blob hash, mode, and stat data recorded for it the last time it
// was added.
type Index struct {
	Version uint32
	Entries []*Entry
}

// NewIndex returns an empty, version-2 Index.
func NewIndex() *Index {
	return &Index{Version: Version}
}

// Entry returns the entry for path, or ErrEntryNotFound.
func (idx *Index) Entry(path string) (*Entry, error) {
	for _, e := range idx.Entries {
		if e.Name == path {
			return e, nil
		}
	}
	return nil, ErrEntryNotFound
}

// Remove deletes the entry for path, if any, and reports whether it was
// present.
func (idx *Index) Remove(path string) bool {
	for i, e := range idx.Entries {
		if e.Name == path {
			idx.Entries = append(idx.Entries[:i], idx.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// Add inserts or replaces the entry for e.Name, keeping Entries sorted
// by name as the on-disk format requires.
func (idx *Index) Add(e *Entry) {
	for i, existing := range idx.Entries {
		if existing.Name == e.Name {
			idx.Entries[i] = e
			return
		}
		if existing.Name > e.Name {
			idx.Entries = append(idx.Entries, nil)
			copy(idx.Entries[i+1:], idx.Entries[i:])
			idx.Entries[i] = e
			return
		}
	}
	idx.Entries = append(idx.Entries, e)
}
