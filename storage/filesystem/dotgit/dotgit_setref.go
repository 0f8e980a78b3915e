package dotgit

import (
	"errors"
	"os"

	"github.com/go-git/go-billy/v5"

	"github.com/sourcevc/source/plumbing"
	"github.com/sourcevc/source/storage"
	"github.com/sourcevc/source/utils/ioutil"
)

// setRef writes content to fileName, atomically checking it against old
// first when old is non-nil. Loose refs only: there is no packed-refs
// fallback in this engine.
func (d *DotGit) setRef(fileName, content string, old *plumbing.Reference) (err error) {
	if err := d.fs.MkdirAll(d.fs.Join(splitDir(fileName)...), 0o755); err != nil {
		return err
	}

	if billy.CapabilityCheck(d.fs, billy.ReadAndWriteCapability) {
		return d.setRefRwfs(fileName, content, old)
	}

	return d.setRefNorwfs(fileName, content, old)
}

func (d *DotGit) setRefRwfs(fileName, content string, old *plumbing.Reference) (err error) {
	mode := os.O_RDWR | os.O_CREATE
	if old == nil {
		mode |= os.O_TRUNC
	}

	f, err := d.fs.OpenFile(fileName, mode, 0666)
	if err != nil {
		return err
	}
	defer ioutil.CheckClose(f, &err)

	// Lock is released by the deferred Close above: Unlock alone doesn't
	// imply a sync, and releasing it before Close would race other
	// writers against our own pending write.
	if err = f.Lock(); err != nil {
		return err
	}

	if err = d.checkReferenceAndTruncate(f, old); err != nil {
		switch {
		case errors.Is(err, ErrEmptyRefFile) && old == nil:
			// Fall through: nothing to compare against, just write.
		case errors.Is(err, ErrEmptyRefFile):
			return storage.ErrReferenceHasChanged
		default:
			return err
		}
	}

	_, err = f.Write([]byte(content))
	return err
}

// setRefNorwfs is used for filesystems that don't support opening files
// in RDWR mode. It loses the atomic-lock guarantee and is usually only
// safe when one process touches the repository at a time.
func (d *DotGit) setRefNorwfs(fileName, content string, old *plumbing.Reference) error {
	_, err := d.fs.Stat(fileName)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err == nil && old != nil {
		fRead, err := d.fs.Open(fileName)
		if err != nil {
			return err
		}
		ref, err := d.readReferenceFrom(fRead, old.Name().String())
		fRead.Close()
		if err != nil {
			return err
		}
		if ref.Hash() != old.Hash() || ref.Target() != old.Target() {
			return storage.ErrReferenceHasChanged
		}
	} else if old != nil {
		return storage.ErrReferenceHasChanged
	}

	f, err := d.fs.Create(fileName)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write([]byte(content))
	return err
}

// splitDir returns the directory portion of fileName as path segments,
// suitable for MkdirAll, so that creating refs/heads/feature/x works even
// when refs/heads/feature doesn't exist yet.
func splitDir(fileName string) []string {
	idx := -1
	for i := len(fileName) - 1; i >= 0; i-- {
		if fileName[i] == '/' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return []string{"."}
	}
	return []string{fileName[:idx]}
}
