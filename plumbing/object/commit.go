package object

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sourcevc/source/plumbing/hash"
)

// Person identifies the author or committer of a commit or tag: a name,
// an email, and the instant the action was taken.
type Person struct {
	Name  string
	Email string
	When  time.Time
}

// String renders p in git's "Name <email> seconds tz" wire format.
func (p Person) String() string {
	_, offset := p.When.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	hh := offset / 3600
	mm := (offset % 3600) / 60
	return fmt.Sprintf("%s <%s> %d %s%02d%02d",
		p.Name, p.Email, p.When.Unix(), sign, hh, mm)
}

// ParsePerson parses a person line of the form "Name <email> seconds tz".
func ParsePerson(line string) (Person, error) {
	lt := strings.LastIndexByte(line, '<')
	gt := strings.LastIndexByte(line, '>')
	if lt < 0 || gt < 0 || gt < lt {
		return Person{}, fmt.Errorf("object: malformed person line %q", line)
	}

	name := strings.TrimSpace(line[:lt])
	email := line[lt+1 : gt]

	rest := strings.TrimSpace(line[gt+1:])
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return Person{}, fmt.Errorf("object: malformed person timestamp %q", line)
	}

	sec, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Person{}, fmt.Errorf("object: malformed person timestamp %q: %w", line, err)
	}

	tz := fields[1]
	if len(tz) != 5 || (tz[0] != '+' && tz[0] != '-') {
		return Person{}, fmt.Errorf("object: malformed person timezone %q", line)
	}
	sign := 1
	if tz[0] == '-' {
		sign = -1
	}
	hh, err1 := strconv.Atoi(tz[1:3])
	mm, err2 := strconv.Atoi(tz[3:5])
	if err1 != nil || err2 != nil {
		return Person{}, fmt.Errorf("object: malformed person timezone %q", line)
	}
	offset := sign * (hh*3600 + mm*60)
	loc := time.FixedZone(tz, offset)

	return Person{
		Name:  name,
		Email: email,
		When:  time.Unix(sec, 0).In(loc),
	}, nil
}

// Commit is a single point in history: the state of a tree, its parents,
// and who and why it was recorded.
type Commit struct {
	TreeHash     hash.Hash
	ParentHashes []hash.Hash
	Author       Person
	Committer    Person
	Message      string

	hash hash.Hash
}

func (c *Commit) ID() hash.Hash { return c.hash }
func (c *Commit) Type() Type    { return CommitObject }

// NumParents returns the number of parent commits.
func (c *Commit) NumParents() int { return len(c.ParentHashes) }

// IsMerge reports whether the commit has more than one parent.
func (c *Commit) IsMerge() bool { return len(c.ParentHashes) > 1 }

// Parents resolves each parent hash against s, in order.
func (c *Commit) Parents(s Store) ([]*Commit, error) {
	out := make([]*Commit, 0, len(c.ParentHashes))
	for _, h := range c.ParentHashes {
		p, err := GetCommit(s, h)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Tree resolves the commit's tree against s.
func (c *Commit) Tree(s Store) (*Tree, error) {
	return GetTree(s, c.TreeHash)
}

// Encode renders the commit in git's wire format.
func (c *Commit) Encode(buf []byte) ([]byte, error) {
	var b bytes.Buffer
	b.Write(buf)

	fmt.Fprintf(&b, "tree %s\n", c.TreeHash)
	for _, p := range c.ParentHashes {
		fmt.Fprintf(&b, "parent %s\n", p)
	}
	fmt.Fprintf(&b, "author %s\n", c.Author.String())
	fmt.Fprintf(&b, "committer %s\n", c.Committer.String())
	b.WriteByte('\n')
	b.WriteString(c.Message)

	return b.Bytes(), nil
}

// DecodeCommit parses a commit's wire body.
func DecodeCommit(h hash.Hash, content []byte) (*Commit, error) {
	c := &Commit{hash: h}

	s := bufio.NewScanner(bytes.NewReader(content))
	s.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var sawTree, sawAuthor, sawCommitter bool
	var headerEnd int
	for s.Scan() {
		line := s.Text()
		headerEnd += len(line) + 1
		if line == "" {
			break
		}

		field, value, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("object: malformed commit header line %q", line)
		}

		switch field {
		case "tree":
			if sawTree {
				return nil, fmt.Errorf("object: multiple tree headers")
			}
			sawTree = true
			th, ok := hash.FromHex(value)
			if !ok {
				return nil, fmt.Errorf("object: malformed commit tree hash %q", value)
			}
			c.TreeHash = th
		case "parent":
			ph, ok := hash.FromHex(value)
			if !ok {
				return nil, fmt.Errorf("object: malformed commit parent hash %q", value)
			}
			c.ParentHashes = append(c.ParentHashes, ph)
		case "author":
			if sawAuthor {
				return nil, fmt.Errorf("object: multiple author headers")
			}
			sawAuthor = true
			p, err := ParsePerson(value)
			if err != nil {
				return nil, err
			}
			c.Author = p
		case "committer":
			if sawCommitter {
				return nil, fmt.Errorf("object: multiple committer headers")
			}
			sawCommitter = true
			p, err := ParsePerson(value)
			if err != nil {
				return nil, err
			}
			c.Committer = p
		default:
			// Unknown header lines (gpgsig, mergetag, ...) are tolerated
			// but not round-tripped: signing is out of scope.
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}

	if headerEnd > len(content) {
		headerEnd = len(content)
	}
	c.Message = string(content[headerEnd:])
	return c, nil
}
