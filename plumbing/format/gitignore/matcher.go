package gitignore

// Matcher decides, for any path in the tree, whether it should be
// ignored, applying every loaded Pattern in order so that a later
// pattern (e.g. a "!" re-inclusion) overrides an earlier one.
type Matcher interface {
	Match(path []string, isDir bool) bool
}

type matcher struct {
	patterns []Pattern
}

// NewMatcher builds a Matcher from patterns, most general first — the
// order patterns were read from .gitignore files in, root-to-leaf.
func NewMatcher(patterns []Pattern) Matcher {
	return &matcher{patterns: patterns}
}

// Match reports whether path should be excluded, applying the
// last-matching-pattern-wins rule: later patterns override earlier ones,
// so a negated pattern can re-include something an earlier pattern
// excluded.
func (m *matcher) Match(path []string, isDir bool) bool {
	excluded := false
	for _, p := range m.patterns {
		switch p.Match(path, isDir) {
		case Exclude:
			excluded = true
		case Include:
			excluded = false
		}
	}
	return excluded
}
