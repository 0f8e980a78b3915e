package object

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/sourcevc/source/plumbing/hash"
)

// Tag is an annotated tag: a named, signed-or-not pointer to another
// object, almost always a commit.
type Tag struct {
	Name       string
	TargetHash hash.Hash
	TargetType Type
	Tagger     Person
	Message    string

	hash hash.Hash
}

func (t *Tag) ID() hash.Hash { return t.hash }
func (t *Tag) Type() Type    { return TagObject }

// Target resolves the tagged commit. Lightweight tags (plain refs, no
// tag object) never reach this type.
func (t *Tag) Target(s Store) (*Commit, error) {
	if t.TargetType != CommitObject {
		return nil, fmt.Errorf("object: tag %s does not point at a commit", t.Name)
	}
	return GetCommit(s, t.TargetHash)
}

// Encode renders the tag in git's wire format.
func (t *Tag) Encode(buf []byte) ([]byte, error) {
	var b bytes.Buffer
	b.Write(buf)

	fmt.Fprintf(&b, "object %s\n", t.TargetHash)
	fmt.Fprintf(&b, "type %s\n", t.TargetType)
	fmt.Fprintf(&b, "tag %s\n", t.Name)
	fmt.Fprintf(&b, "tagger %s\n", t.Tagger.String())
	b.WriteByte('\n')
	b.WriteString(t.Message)

	return b.Bytes(), nil
}

// DecodeTag parses a tag's wire body.
func DecodeTag(h hash.Hash, content []byte) (*Tag, error) {
	t := &Tag{hash: h}

	s := bufio.NewScanner(bytes.NewReader(content))
	s.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var headerDone bool
	var message bytes.Buffer
	for s.Scan() {
		line := s.Text()
		if headerDone {
			message.WriteString(line)
			message.WriteByte('\n')
			continue
		}
		if line == "" {
			headerDone = true
			continue
		}

		field, value, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("object: malformed tag header line %q", line)
		}

		switch field {
		case "object":
			oh, ok := hash.FromHex(value)
			if !ok {
				return nil, fmt.Errorf("object: malformed tag object hash %q", value)
			}
			t.TargetHash = oh
		case "type":
			typ, err := ParseType(value)
			if err != nil {
				return nil, err
			}
			t.TargetType = typ
		case "tag":
			t.Name = value
		case "tagger":
			p, err := ParsePerson(value)
			if err != nil {
				return nil, err
			}
			t.Tagger = p
		default:
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}

	t.Message = strings.TrimSuffix(message.String(), "\n")
	return t, nil
}
