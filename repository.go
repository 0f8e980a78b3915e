package source

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/rs/zerolog"

	"github.com/sourcevc/source/config"
	"github.com/sourcevc/source/internal/atomicio"
	"github.com/sourcevc/source/internal/pathutil"
	"github.com/sourcevc/source/plumbing"
	"github.com/sourcevc/source/plumbing/cache"
	"github.com/sourcevc/source/storage/filesystem"
	"github.com/sourcevc/source/storage/filesystem/dotgit"
)

// DefaultMetaDirName is used when a caller doesn't specify one. It's
// deliberately not ".git" so a repository created by this engine never
// collides with real Git tooling pointed at the same directory.
const DefaultMetaDirName = ".source"

// DefaultBranch is the branch HEAD points to right after init, unless
// the caller overrides it.
const DefaultBranch = "master"

// Repository is the triple spec.md §3 names: a working directory, a
// metadata directory, and the object store rooted inside it, plus the
// wired-together subsystems that operate over them.
type Repository struct {
	metaDirName string

	wt   billy.Filesystem
	meta billy.Filesystem

	dg      *dotgit.DotGit
	Objects *filesystem.ObjectStorage
	Refs    *filesystem.ReferenceStorage
	Index   *filesystem.IndexStorage

	Config *config.Config

	Log zerolog.Logger
}

// Init creates the metadata-directory layout of spec.md §3 rooted at
// wt (the working directory), failing RepositoryError if metaDirName
// already exists there.
func Init(wt billy.Filesystem, metaDirName, defaultBranch string) (*Repository, error) {
	if metaDirName == "" {
		metaDirName = DefaultMetaDirName
	}
	if defaultBranch == "" {
		defaultBranch = DefaultBranch
	}

	if _, err := wt.Stat(metaDirName); err == nil {
		return nil, &RepositoryError{Op: "init", Reason: fmt.Sprintf("%s already exists", metaDirName)}
	}

	meta, err := wt.Chroot(metaDirName)
	if err != nil {
		return nil, &RepositoryError{Op: "init", Reason: "create metadata directory", Err: err}
	}

	dg, err := dotgit.New(meta)
	if err != nil {
		return nil, &RepositoryError{Op: "init", Reason: "initialize object/ref layout", Err: err}
	}

	r := newRepository(wt, meta, metaDirName, dg)

	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(defaultBranch))
	if err := r.Refs.SetReference(head, nil); err != nil {
		return nil, &RepositoryError{Op: "init", Reason: "write HEAD", Err: err}
	}

	r.Config = config.Default()
	if err := r.saveConfig(); err != nil {
		return nil, &RepositoryError{Op: "init", Reason: "write config", Err: err}
	}

	if err := atomicTextFile(meta, "description", "Unnamed repository; edit this file to name it for yourself.\n"); err != nil {
		return nil, &RepositoryError{Op: "init", Reason: "write description", Err: err}
	}

	return r, nil
}

func newRepository(wt, meta billy.Filesystem, metaDirName string, dg *dotgit.DotGit) *Repository {
	return &Repository{
		metaDirName: metaDirName,
		wt:          wt,
		meta:        meta,
		dg:          dg,
		Objects:     filesystem.NewObjectStorage(dg, cache.DefaultMaxSize),
		Refs:        filesystem.NewReferenceStorage(dg),
		Index:       filesystem.NewIndexStorage(meta),
		Log:         zerolog.Nop(),
	}
}

func atomicTextFile(fs billy.Filesystem, name, content string) error {
	return atomicio.WriteFile(fs, name, []byte(content), 0o644)
}

func (r *Repository) saveConfig() error {
	return atomicTextFile(r.meta, "config", string(config.Encode(r.Config)))
}

// Discover walks upward from startDir looking for metaDirName, the way
// `git` climbs parent directories to find ".git". It stops at the
// filesystem root, returning RepositoryError if nothing is found.
func Discover(startDir, metaDirName string) (*Repository, error) {
	if metaDirName == "" {
		metaDirName = DefaultMetaDirName
	}

	startDir, err := pathutil.ReplaceTildeWithHome(startDir)
	if err != nil {
		return nil, &RepositoryError{Op: "discover", Reason: "resolve home", Err: err}
	}
	path, err := filepath.Abs(startDir)
	if err != nil {
		return nil, &RepositoryError{Op: "discover", Reason: "resolve absolute path", Err: err}
	}

	for {
		wt := osfs.New(path)
		if _, err := wt.Stat(metaDirName); err == nil {
			meta, err := wt.Chroot(metaDirName)
			if err != nil {
				return nil, &RepositoryError{Op: "discover", Reason: "chroot metadata directory", Err: err}
			}
			return Open(wt, meta, metaDirName)
		}

		parent := filepath.Dir(path)
		if parent == path {
			return nil, &RepositoryError{Op: "discover", Reason: fmt.Sprintf("no %s found above %s", metaDirName, startDir)}
		}
		path = parent
	}
}

// Open wires the engine's subsystems over an already-located working
// directory/metadata-directory pair.
func Open(wt, meta billy.Filesystem, metaDirName string) (*Repository, error) {
	if _, err := meta.Stat("objects"); err != nil {
		return nil, &RepositoryError{Op: "open", Reason: "not a repository", Err: err}
	}

	dg, err := dotgit.New(meta)
	if err != nil {
		return nil, &RepositoryError{Op: "open", Reason: "open object/ref layout", Err: err}
	}

	r := newRepository(wt, meta, metaDirName, dg)

	cfgBytes, err := atomicio.ReadOrEmpty(meta, "config")
	if err != nil {
		return nil, &RepositoryError{Op: "open", Reason: "read config", Err: err}
	}
	if len(cfgBytes) == 0 {
		r.Config = config.Default()
	} else {
		r.Config, err = config.Decode(cfgBytes)
		if err != nil {
			return nil, &RepositoryError{Op: "open", Reason: "parse config", Err: err}
		}
	}

	return r, nil
}

// WorkingTree returns the billy.Filesystem rooted at the working
// directory.
func (r *Repository) WorkingTree() billy.Filesystem { return r.wt }

// MetaDir returns the billy.Filesystem rooted at the metadata
// directory.
func (r *Repository) MetaDir() billy.Filesystem { return r.meta }

// MetaDirName returns the configured metadata directory name (e.g.
// ".source").
func (r *Repository) MetaDirName() string { return r.metaDirName }

// Destroy removes the metadata directory only, leaving working files
// untouched.
func (r *Repository) Destroy() error {
	return removeAll(r.wt, r.metaDirName)
}

func removeAll(fs billy.Filesystem, path string) error {
	fi, err := fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !fi.IsDir() {
		return fs.Remove(path)
	}

	entries, err := fs.ReadDir(path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := removeAll(fs, fs.Join(path, e.Name())); err != nil {
			return err
		}
	}
	return fs.Remove(path)
}
