// Package dotgit implements direct, low-level access to the on-disk
// layout of a ".git" directory: the object store, the loose reference
// files, and HEAD. Everything here talks to a billy.Filesystem rather
// than the os package directly, so the same code drives an on-disk
// repository or an in-memory one used by tests.
package dotgit

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/sourcevc/source/plumbing"
	"github.com/sourcevc/source/storage"
)

const (
	objectsPath = "objects"
	refsPath    = "refs"
	headPath    = "HEAD"
)

var (
	// ErrEmptyRefFile is returned internally when a loose ref file exists
	// but contains no content; callers interpret that as "ref missing".
	ErrEmptyRefFile = errors.New("dotgit: ref file is empty")
	// ErrIsDir reports a directory found where a loose object file was
	// expected; no DotGit method returns it.
	ErrIsDir = errors.New("dotgit: is a directory")
)

// DotGit wraps a ".git" directory rooted at fs.
type DotGit struct {
	fs billy.Filesystem
}

// New returns a DotGit rooted at fs, creating the directory skeleton
// (objects/ and refs/heads, refs/tags) it needs.
func New(fs billy.Filesystem) (*DotGit, error) {
	d := &DotGit{fs: fs}
	if err := d.Initialize(); err != nil {
		return nil, err
	}
	return d, nil
}

// Initialize creates the directory skeleton a fresh repository needs.
// It is idempotent.
func (d *DotGit) Initialize() error {
	for _, dir := range []string{
		objectsPath,
		d.fs.Join(refsPath, "heads"),
		d.fs.Join(refsPath, "tags"),
	} {
		if err := d.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// Fs returns the underlying filesystem.
func (d *DotGit) Fs() billy.Filesystem { return d.fs }

// NewObject returns a writer for a new loose object.
func (d *DotGit) NewObject() (*ObjectWriter, error) {
	return newObjectWriter(d.fs)
}

// objectPath returns the two-level sharded path for h's loose object
// file: objects/<first two hex chars>/<remaining 38>.
func (d *DotGit) objectPath(h string) string {
	return d.fs.Join(objectsPath, h[0:2], h[2:])
}

// Object opens the loose object file for h.
func (d *DotGit) Object(h string) (billy.File, error) {
	path := d.objectPath(h)
	f, err := d.fs.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// HasObject reports whether a loose object for h exists.
func (d *DotGit) HasObject(h string) (bool, error) {
	_, err := d.fs.Stat(d.objectPath(h))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Objects lists the hex names of every loose object on disk.
func (d *DotGit) Objects() ([]string, error) {
	shards, err := d.fs.ReadDir(objectsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []string
	for _, shard := range shards {
		if !shard.IsDir() || len(shard.Name()) != 2 {
			continue
		}
		entries, err := d.fs.ReadDir(d.fs.Join(objectsPath, shard.Name()))
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), "tmp_obj_") {
				continue
			}
			out = append(out, shard.Name()+e.Name())
		}
	}
	return out, nil
}

// ReadReferenceFile reads and parses a single loose reference file.
func (d *DotGit) ReadReferenceFile(path string) (*plumbing.Reference, error) {
	f, err := d.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return d.readReferenceFrom(f, path)
}

func (d *DotGit) readReferenceFrom(r io.Reader, name string) (*plumbing.Reference, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil, ErrEmptyRefFile
	}
	return plumbing.ParseReference(plumbing.ReferenceName(name), string(b))
}

// Reference reads the reference named name.
func (d *DotGit) Reference(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	ref, err := d.ReadReferenceFile(string(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrReferenceNotFound
		}
		if errors.Is(err, ErrEmptyRefFile) {
			return nil, storage.ErrReferenceNotFound
		}
		return nil, err
	}
	return ref, nil
}

// References lists every loose reference under refs/, in no particular
// order.
func (d *DotGit) References() ([]*plumbing.Reference, error) {
	var refs []*plumbing.Reference
	if err := d.walkReferences(refsPath, &refs); err != nil {
		if os.IsNotExist(err) {
			return refs, nil
		}
		return nil, err
	}
	return refs, nil
}

func (d *DotGit) walkReferences(dir string, out *[]*plumbing.Reference) error {
	entries, err := d.fs.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, e := range entries {
		path := d.fs.Join(dir, e.Name())
		if e.IsDir() {
			if err := d.walkReferences(path, out); err != nil {
				return err
			}
			continue
		}

		ref, err := d.ReadReferenceFile(path)
		if err != nil {
			if errors.Is(err, ErrEmptyRefFile) {
				continue
			}
			return err
		}
		*out = append(*out, ref)
	}

	return nil
}

// SetReference performs an atomic compare-and-swap update of a
// reference: if old is non-nil, the update only applies when the
// currently stored value still matches old.
func (d *DotGit) SetReference(r, old *plumbing.Reference) error {
	ss := r.Strings()
	content := fmt.Sprintf("%s\n", ss[1])
	return d.setRef(ss[0], content, old)
}

// RemoveReference deletes the loose reference file named name.
func (d *DotGit) RemoveReference(name plumbing.ReferenceName) error {
	err := d.fs.Remove(string(name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// CountLoose returns the number of loose objects currently stored.
func (d *DotGit) CountLoose() (int, error) {
	objs, err := d.Objects()
	if err != nil {
		return 0, err
	}
	return len(objs), nil
}

// checkReferenceAndTruncate verifies that f currently holds old's value
// (if old is non-nil) and then truncates it for the caller to overwrite,
// failing the whole operation without truncating on a mismatch.
func (d *DotGit) checkReferenceAndTruncate(f billy.File, old *plumbing.Reference) error {
	if old == nil {
		return nil
	}

	ref, err := d.readReferenceFrom(f, old.Name().String())
	if err != nil {
		return err
	}

	if ref.Hash() != old.Hash() || ref.Target() != old.Target() {
		return storage.ErrReferenceHasChanged
	}

	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	return nil
}
