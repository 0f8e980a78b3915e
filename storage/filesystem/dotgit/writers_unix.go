//go:build !windows

package dotgit

import (
	"github.com/go-git/go-billy/v5"
	"github.com/rs/zerolog/log"
)

func fixPermissions(fs billy.Filesystem, path string) {
	if chmodFS, ok := fs.(billy.Chmod); ok {
		if err := chmodFS.Chmod(path, 0o444); err != nil {
			log.Debug().Err(err).Str("path", path).Msg("chmod object file read-only failed")
		}
	}
}

func isReadOnly(fs billy.Filesystem, path string) (bool, error) {
	fi, err := fs.Stat(path)
	if err != nil {
		return false, err
	}

	if fi.Mode().Perm() == 0o444 {
		return true, nil
	}

	return false, nil
}
