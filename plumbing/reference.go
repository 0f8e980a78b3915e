package plumbing

import (
	"fmt"
	"strings"

	"github.com/sourcevc/source/plumbing/hash"
)

// ReferenceName is the name of a reference, e.g. "refs/heads/main" or the
// special name "HEAD".
type ReferenceName string

const (
	HEAD ReferenceName = "HEAD"

	refHeadPrefix   = "refs/heads/"
	refTagPrefix    = "refs/tags/"
	refRemotePrefix = "refs/remotes/"
)

// NewBranchReferenceName builds the full reference name for branch b.
func NewBranchReferenceName(b string) ReferenceName {
	return ReferenceName(refHeadPrefix + b)
}

// NewTagReferenceName builds the full reference name for tag t.
func NewTagReferenceName(t string) ReferenceName {
	return ReferenceName(refTagPrefix + t)
}

// IsBranch reports whether n names a branch.
func (n ReferenceName) IsBranch() bool { return strings.HasPrefix(string(n), refHeadPrefix) }

// IsTag reports whether n names a tag.
func (n ReferenceName) IsTag() bool { return strings.HasPrefix(string(n), refTagPrefix) }

// IsRemote reports whether n names a remote-tracking branch.
func (n ReferenceName) IsRemote() bool { return strings.HasPrefix(string(n), refRemotePrefix) }

// Short returns n with any refs/heads/, refs/tags/, or refs/remotes/
// prefix stripped, the form users type at the CLI.
func (n ReferenceName) Short() string {
	s := string(n)
	for _, prefix := range []string{refHeadPrefix, refTagPrefix, refRemotePrefix} {
		if strings.HasPrefix(s, prefix) {
			return strings.TrimPrefix(s, prefix)
		}
	}
	return s
}

func (n ReferenceName) String() string { return string(n) }

// ReferenceType distinguishes a direct (hash) reference from a symbolic
// one that points at another reference by name.
type ReferenceType int8

const (
	InvalidReference ReferenceType = iota
	HashReference
	SymbolicReference
)

// Reference is a named pointer: either directly at a commit hash, or
// symbolically at another reference (as HEAD usually is).
type Reference struct {
	typ    ReferenceType
	name   ReferenceName
	hash   hash.Hash
	target ReferenceName
}

// NewHashReference builds a Reference named name pointing directly at h.
func NewHashReference(name ReferenceName, h hash.Hash) *Reference {
	return &Reference{typ: HashReference, name: name, hash: h}
}

// NewSymbolicReference builds a Reference named name pointing at target.
func NewSymbolicReference(name, target ReferenceName) *Reference {
	return &Reference{typ: SymbolicReference, name: name, target: target}
}

func (r *Reference) Type() ReferenceType  { return r.typ }
func (r *Reference) Name() ReferenceName  { return r.name }
func (r *Reference) Hash() hash.Hash      { return r.hash }
func (r *Reference) Target() ReferenceName { return r.target }

// Strings renders r the way it appears in a loose ref file or
// packed-refs line: a hash or a "ref: " indirection.
func (r *Reference) Strings() [2]string {
	var s string
	switch r.typ {
	case HashReference:
		s = r.hash.String()
	case SymbolicReference:
		s = fmt.Sprintf("ref: %s", r.target)
	}
	return [2]string{string(r.name), s}
}

func (r *Reference) String() string {
	ss := r.Strings()
	return fmt.Sprintf("%s %s", ss[1], ss[0])
}

// ParseReference decodes the content of a single loose ref file (or
// packed-refs line target) for the reference named name.
func ParseReference(name ReferenceName, content string) (*Reference, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("plumbing: empty reference content for %s", name)
	}

	if strings.HasPrefix(content, "ref: ") {
		target := ReferenceName(strings.TrimSpace(strings.TrimPrefix(content, "ref: ")))
		return NewSymbolicReference(name, target), nil
	}

	h, ok := hash.FromHex(content)
	if !ok {
		return nil, fmt.Errorf("plumbing: malformed reference content %q for %s", content, name)
	}
	return NewHashReference(name, h), nil
}
