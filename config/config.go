// Package config reads and writes the repository-local configuration
// file in gitconfig syntax, scoped to the minimal keys this engine
// needs: the core section seeded at init, and optional per-branch
// tracking metadata.
package config

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/go-git/gcfg"
)

// Core holds the handful of core.* keys this engine cares about.
type Core struct {
	RepositoryFormatVersion int  `gcfg:"repositoryformatversion"`
	Bare                    bool `gcfg:"bare"`
}

// Branch holds optional tracking metadata for a single local branch.
// It is decoded and encoded with the rest of the file; neither the core
// nor the CLI reads it.
type Branch struct {
	Remote string `gcfg:"remote"`
	Merge  string `gcfg:"merge"`
}

// raw mirrors the gcfg section layout; Branch is a map keyed by branch
// name via gcfg's subsection support.
type raw struct {
	Core   Core
	Branch map[string]*Branch
}

// Config is the parsed repository configuration.
type Config struct {
	Core    Core
	Branch  map[string]*Branch
}

// Default returns the configuration seeded by a fresh init: format
// version 0, not bare, no branch tracking metadata.
func Default() *Config {
	return &Config{
		Core:   Core{RepositoryFormatVersion: 0, Bare: false},
		Branch: map[string]*Branch{},
	}
}

// Decode parses b as gitconfig-syntax text.
func Decode(b []byte) (*Config, error) {
	var r raw
	r.Branch = map[string]*Branch{}
	if err := gcfg.ReadStringInto(&r, string(b)); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return &Config{Core: r.Core, Branch: r.Branch}, nil
}

// Encode renders c as gitconfig-syntax text. gcfg doesn't ship an
// encoder, so this writes the small, fixed key set by hand — the same
// approach the teacher's own seeded "config" file at init uses (a
// handful of known keys, not general-purpose serialization).
func Encode(c *Config) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "[core]\n")
	fmt.Fprintf(&buf, "\trepositoryformatversion = %d\n", c.Core.RepositoryFormatVersion)
	fmt.Fprintf(&buf, "\tbare = %t\n", c.Core.Bare)

	names := make([]string, 0, len(c.Branch))
	for name := range c.Branch {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b := c.Branch[name]
		fmt.Fprintf(&buf, "[branch %q]\n", name)
		if b.Remote != "" {
			fmt.Fprintf(&buf, "\tremote = %s\n", b.Remote)
		}
		if b.Merge != "" {
			fmt.Fprintf(&buf, "\tmerge = %s\n", b.Merge)
		}
	}

	return buf.Bytes()
}
