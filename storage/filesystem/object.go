package filesystem

import (
	"github.com/sourcevc/source/plumbing/cache"
	"github.com/sourcevc/source/plumbing/format/objfile"
	"github.com/sourcevc/source/plumbing/hash"
	"github.com/sourcevc/source/plumbing/object"
	"github.com/sourcevc/source/storage/filesystem/dotgit"
)

// ObjectStorage implements object.Store on top of a DotGit loose object
// store, with an in-memory LRU cache in front of decoded content.
type ObjectStorage struct {
	dir   *dotgit.DotGit
	cache cache.Object
}

// NewObjectStorage returns an ObjectStorage rooted at dir, caching up to
// maxCacheSize bytes of decoded object content.
func NewObjectStorage(dir *dotgit.DotGit, maxCacheSize int64) *ObjectStorage {
	if maxCacheSize <= 0 {
		maxCacheSize = cache.DefaultMaxSize
	}
	return &ObjectStorage{dir: dir, cache: cache.NewObjectLRU(maxCacheSize)}
}

// EncodeObject hashes, compresses and persists content as a loose object
// of type typ, returning its hash. Writing an object that already exists
// compresses it again and renames the same bytes over the same path,
// which is harmless since loose objects are immutable and
// content-addressed.
func (s *ObjectStorage) EncodeObject(typ object.Type, content []byte) (hash.Hash, error) {
	w, err := s.dir.NewObject()
	if err != nil {
		return hash.ZeroHash, err
	}

	if err := w.WriteHeader(typ, int64(len(content))); err != nil {
		return hash.ZeroHash, err
	}
	if _, err := w.Write(content); err != nil {
		return hash.ZeroHash, err
	}
	if err := w.Close(); err != nil {
		return hash.ZeroHash, err
	}

	h := w.Hash()
	s.cache.Add(h, cache.Entry{Type: typ, Content: content})
	return h, nil
}

// DecodeObject returns the type and raw content of the object named h.
func (s *ObjectStorage) DecodeObject(h hash.Hash) (object.Type, []byte, error) {
	if e, ok := s.cache.Get(h); ok {
		return e.Type, e.Content, nil
	}

	f, err := s.dir.Object(h.String())
	if err != nil {
		return object.InvalidObject, nil, object.ErrObjectNotFound
	}
	defer f.Close()

	r, err := objfile.NewReader(f)
	if err != nil {
		return object.InvalidObject, nil, err
	}
	defer r.Close()

	typ, _, err := r.Header()
	if err != nil {
		return object.InvalidObject, nil, err
	}

	content, err := r.ReadAll()
	if err != nil {
		return object.InvalidObject, nil, err
	}

	s.cache.Add(h, cache.Entry{Type: typ, Content: content})
	return typ, content, nil
}

// HasObject reports whether a loose object named h is on disk.
func (s *ObjectStorage) HasObject(h hash.Hash) (bool, error) {
	if _, ok := s.cache.Get(h); ok {
		return true, nil
	}
	return s.dir.HasObject(h.String())
}

var _ object.Store = (*ObjectStorage)(nil)
