package gitignore

import (
	"bufio"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
)

const commentPrefix = "#"

// readIgnoreFile reads one gitignore-formatted file at path, scoping
// every resulting Pattern to domain.
func readIgnoreFile(fs billy.Filesystem, domain []string, path string) ([]Pattern, error) {
	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var ps []Pattern
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}
		ps = append(ps, ParsePattern(line, domain))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return ps, nil
}

// ReadPatterns walks fs starting at the directory named by path,
// collecting the patterns from every fileName file found (e.g.
// ".gitignore" or ".sourceignore"), scoped to the directory that
// contains it, recursing into subdirectories but never into skipDir
// (the repository's metadata directory). This is the same precedence
// git itself applies: deeper ignore files layer their rules on top of
// shallower ones.
func ReadPatterns(fs billy.Filesystem, path []string, fileName, skipDir string) ([]Pattern, error) {
	dir := "/" + strings.Join(path, "/")

	ps, err := readIgnoreFile(fs, path, fs.Join(dir, fileName))
	if err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return ps, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == skipDir {
			continue
		}
		subPs, err := ReadPatterns(fs, append(append([]string(nil), path...), entry.Name()), fileName, skipDir)
		if err != nil {
			return nil, err
		}
		ps = append(ps, subPs...)
	}

	return ps, nil
}

// ReadRepositoryExclude reads the repository-local exclude file at
// <metaDir>/info/exclude, which behaves like an unversioned top-level
// ignore file.
func ReadRepositoryExclude(fs billy.Filesystem, metaDir string) ([]Pattern, error) {
	return readIgnoreFile(fs, nil, fs.Join(metaDir, "info", "exclude"))
}
