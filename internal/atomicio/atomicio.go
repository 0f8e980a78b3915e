// Package atomicio provides write-temp-then-rename primitives over a
// billy.Filesystem, the same discipline the teacher uses for loose
// objects and loose refs, generalized here for the working-tree and
// index writers.
package atomicio

import (
	"fmt"
	"io"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
)

// WriteFile writes data to target atomically: it writes to a sibling
// temp file in target's directory, then renames over target, so a
// concurrent reader never observes a partially written file.
func WriteFile(fs billy.Filesystem, target string, data []byte, mode os.FileMode) error {
	dir := path.Dir(target)
	if dir != "" && dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("atomicio: ensure dir %s: %w", dir, err)
		}
	}

	tmp, err := fs.TempFile(dir, ".tmp-atomicio-")
	if err != nil {
		return fmt.Errorf("atomicio: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = fs.Remove(tmpName)
		return fmt.Errorf("atomicio: write %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("atomicio: close %s: %w", target, err)
	}

	if chmodFS, ok := fs.(billy.Chmod); ok {
		_ = chmodFS.Chmod(tmpName, mode)
	}

	if err := fs.Rename(tmpName, target); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("atomicio: rename into place %s: %w", target, err)
	}

	return nil
}

// SafeRemove removes path, treating "already gone" as success.
func SafeRemove(fs billy.Filesystem, path string) error {
	err := fs.Remove(path)
	if err == nil || os.IsNotExist(err) {
		return nil
	}
	return fmt.Errorf("atomicio: remove %s: %w", path, err)
}

// ReadStrict reads path, returning an error (including a not-exist
// error the caller can test with os.IsNotExist) if it is absent.
func ReadStrict(fs billy.Filesystem, path string) ([]byte, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

// ReadOrEmpty reads path, returning a nil slice (not an error) if it
// does not exist.
func ReadOrEmpty(fs billy.Filesystem, path string) ([]byte, error) {
	b, err := ReadStrict(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

// EnsureDir creates path and all missing parents. It is idempotent.
func EnsureDir(fs billy.Filesystem, path string) error {
	return fs.MkdirAll(path, 0o755)
}
