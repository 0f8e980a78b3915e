package dotgit

import (
	"github.com/go-git/go-billy/v5"

	"github.com/sourcevc/source/plumbing/format/objfile"
	"github.com/sourcevc/source/plumbing/object"
)

// ObjectWriter writes a loose object to a temp file under objects/, then
// renames it into its final, content-addressed, two-level-sharded path
// once the write completes and the hash is known.
type ObjectWriter struct {
	*objfile.Writer
	fs billy.Filesystem
	f  billy.File
}

func newObjectWriter(fs billy.Filesystem) (*ObjectWriter, error) {
	if err := fs.MkdirAll(objectsPath, 0o755); err != nil {
		return nil, err
	}

	f, err := fs.TempFile(objectsPath, "tmp_obj_")
	if err != nil {
		return nil, err
	}

	return &ObjectWriter{
		Writer: objfile.NewWriter(f),
		fs:     fs,
		f:      f,
	}, nil
}

// WriteHeader writes the "<type> <size>\x00" object framing.
func (w *ObjectWriter) WriteHeader(t object.Type, size int64) error {
	return w.Writer.WriteHeader(t, size)
}

// Close finishes the compressed stream, then moves the temp file into its
// final objects/<ab>/<cd...> location and makes it read-only.
func (w *ObjectWriter) Close() error {
	if err := w.Writer.Close(); err != nil {
		return err
	}

	if err := w.f.Close(); err != nil {
		return err
	}

	return w.save()
}

func (w *ObjectWriter) save() error {
	h := w.Hash()
	hex := h.String()

	dir := w.fs.Join(objectsPath, hex[0:2])
	if err := w.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	file := w.fs.Join(dir, hex[2:])
	if err := w.fs.Rename(w.f.Name(), file); err != nil {
		return err
	}
	fixPermissions(w.fs, file)

	return nil
}
