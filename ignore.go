package source

import (
	"strings"

	"github.com/sourcevc/source/plumbing/format/gitignore"
)

// IgnorePatternFile is the per-directory ignore file name this engine
// reads, deliberately not ".gitignore" so a repository doesn't
// accidentally pick up patterns meant for Git tooling and vice versa.
const IgnorePatternFile = ".sourceignore"

// IgnoreEngine answers is-this-path-ignored questions by layering
// .sourceignore files found throughout the working tree; the deepest
// matching pattern wins, exactly as gitignore.Matcher already
// implements.
type IgnoreEngine struct {
	matcher gitignore.Matcher
}

// NewIgnoreEngine builds an IgnoreEngine from the working tree, reading
// every .sourceignore file plus the metadata directory's info/exclude
// file, if present.
func NewIgnoreEngine(r *Repository) (*IgnoreEngine, error) {
	patterns, err := gitignore.ReadPatterns(r.wt, nil, IgnorePatternFile, r.metaDirName)
	if err != nil {
		return nil, &RepositoryError{Op: "ignore", Reason: "read .sourceignore files", Err: err}
	}

	exclude, err := gitignore.ReadRepositoryExclude(r.wt, r.metaDirName)
	if err != nil {
		return nil, &RepositoryError{Op: "ignore", Reason: "read exclude file", Err: err}
	}
	patterns = append(exclude, patterns...)

	return &IgnoreEngine{matcher: gitignore.NewMatcher(patterns)}, nil
}

// IsIgnored reports whether path (slash-separated, relative to the
// working tree root) is ignored. The metadata directory is always
// ignored, regardless of patterns.
func (e *IgnoreEngine) IsIgnored(metaDirName, path string, isDir bool) bool {
	segs := strings.Split(path, "/")
	if len(segs) > 0 && segs[0] == metaDirName {
		return true
	}
	return e.matcher.Match(segs, isDir)
}

// Filter returns the subset of paths that are not ignored.
func (e *IgnoreEngine) Filter(metaDirName string, paths []string, isDir func(string) bool) []string {
	kept := make([]string, 0, len(paths))
	for _, p := range paths {
		if !e.IsIgnored(metaDirName, p, isDir(p)) {
			kept = append(kept, p)
		}
	}
	return kept
}
