// Package object implements the four git object kinds — blob, tree, commit
// and tag — their canonical wire encoding, and the decoding/encoding glue
// that turns raw object-store bytes into typed values and back.
package object

import (
	"errors"
	"fmt"

	"github.com/sourcevc/source/plumbing/hash"
)

// ErrObjectNotFound is returned when a Store has no object for the
// requested hash.
var ErrObjectNotFound = errors.New("object: not found")

// Type identifies the kind of a stored object.
type Type int8

const (
	InvalidObject Type = iota
	BlobObject
	TreeObject
	CommitObject
	TagObject
)

// String returns the lowercase git wire-format name of the type.
func (t Type) String() string {
	switch t {
	case BlobObject:
		return "blob"
	case TreeObject:
		return "tree"
	case CommitObject:
		return "commit"
	case TagObject:
		return "tag"
	default:
		return "invalid"
	}
}

// ParseType parses the type token that prefixes a loose object's content.
func ParseType(s string) (Type, error) {
	switch s {
	case "blob":
		return BlobObject, nil
	case "tree":
		return TreeObject, nil
	case "commit":
		return CommitObject, nil
	case "tag":
		return TagObject, nil
	default:
		return InvalidObject, fmt.Errorf("object: invalid type %q", s)
	}
}

// Object is implemented by every decoded object kind.
type Object interface {
	// ID returns the content hash of the object.
	ID() hash.Hash
	// Type returns the object kind.
	Type() Type
	// Encode appends the object's canonical body (without the
	// "<type> <size>\x00" framing) to the given buffer and returns the
	// result.
	Encode(buf []byte) ([]byte, error)
}

// Store is the minimal persistence contract the object package needs:
// reading and writing framed, content-addressed objects. It is
// implemented by storage/filesystem's ObjectStorage.
type Store interface {
	EncodeObject(typ Type, content []byte) (hash.Hash, error)
	DecodeObject(h hash.Hash) (Type, []byte, error)
	HasObject(h hash.Hash) (bool, error)
}

// GetBlob reads and decodes the blob addressed by h.
func GetBlob(s Store, h hash.Hash) (*Blob, error) {
	typ, content, err := s.DecodeObject(h)
	if err != nil {
		return nil, err
	}
	if typ != BlobObject {
		return nil, fmt.Errorf("object: %s is a %s, not a blob", h, typ)
	}
	return &Blob{hash: h, Size: int64(len(content)), content: content}, nil
}

// GetTree reads and decodes the tree addressed by h.
func GetTree(s Store, h hash.Hash) (*Tree, error) {
	typ, content, err := s.DecodeObject(h)
	if err != nil {
		return nil, err
	}
	if typ != TreeObject {
		return nil, fmt.Errorf("object: %s is a %s, not a tree", h, typ)
	}
	return DecodeTree(h, content)
}

// GetCommit reads and decodes the commit addressed by h.
func GetCommit(s Store, h hash.Hash) (*Commit, error) {
	typ, content, err := s.DecodeObject(h)
	if err != nil {
		return nil, err
	}
	if typ != CommitObject {
		return nil, fmt.Errorf("object: %s is a %s, not a commit", h, typ)
	}
	return DecodeCommit(h, content)
}

// GetTag reads and decodes the tag addressed by h.
func GetTag(s Store, h hash.Hash) (*Tag, error) {
	typ, content, err := s.DecodeObject(h)
	if err != nil {
		return nil, err
	}
	if typ != TagObject {
		return nil, fmt.Errorf("object: %s is a %s, not a tag", h, typ)
	}
	return DecodeTag(h, content)
}

// PutObject encodes and stores o, returning the resulting Hash. This is
// how trees, commits and tags persist themselves once fully built.
func PutObject(s Store, o Object) (hash.Hash, error) {
	body, err := o.Encode(nil)
	if err != nil {
		return hash.Hash{}, err
	}
	return s.EncodeObject(o.Type(), body)
}
