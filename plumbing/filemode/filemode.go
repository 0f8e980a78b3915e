// Package filemode defines the small set of file modes the object model
// understands, mirroring the octal modes used in tree entries.
package filemode

import (
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
)

// A FileMode represents the type and permissions of a tree entry.
type FileMode uint32

const (
	Empty      FileMode = 0
	Dir        FileMode = 0o40000
	Regular    FileMode = 0o100644
	Deprecated FileMode = 0o100664
	Executable FileMode = 0o100755
	Symlink    FileMode = 0o120000
	Submodule  FileMode = 0o160000
)

// New decodes a mode from its six-or-so octal digit string representation,
// as found in tree object entries.
func New(s string) (FileMode, error) {
	m := FileMode(0)
	err := m.UnmarshalText([]byte(s))
	return m, err
}

// NewFromOSFileMode derives the closest FileMode for an os.FileMode,
// following the same collapsing rules git itself applies when adding a
// working-tree file to the index.
func NewFromOSFileMode(m os.FileMode) (FileMode, error) {
	if m.IsDir() {
		return Dir, nil
	}

	if m&os.ModeSymlink != 0 {
		return Symlink, nil
	}

	if m&os.ModeNamedPipe != 0 {
		return Empty, fmt.Errorf("no equivalent file mode for named pipes")
	}

	if m&os.ModeSocket != 0 {
		return Empty, fmt.Errorf("no equivalent file mode for sockets")
	}

	if m&os.ModeDevice != 0 {
		return Empty, fmt.Errorf("no equivalent file mode for devices")
	}

	if m&os.ModeCharDevice != 0 {
		return Empty, fmt.Errorf("no equivalent file mode for char devices")
	}

	if m&os.ModeTemporary != 0 {
		return Empty, fmt.Errorf("no equivalent file mode for temporary files")
	}

	if isSetExecutable(m) {
		return Executable, nil
	}

	return Regular, nil
}

func isSetExecutable(m os.FileMode) bool {
	return m&0o111 != 0
}

// UnmarshalText decodes the on-disk representation of a mode.
func (m *FileMode) UnmarshalText(v []byte) error {
	*m = Empty

	n, err := strconv.ParseUint(string(v), 8, 32)
	if err != nil {
		return err
	}

	*m = FileMode(n)
	return nil
}

// Bytes returns m as a 4-byte little-endian uint32.
func (m FileMode) Bytes() []byte {
	result := make([]byte, 4)
	binary.LittleEndian.PutUint32(result, uint32(m))
	return result
}

// IsMalformed reports whether m is not one of the well-known modes.
func (m FileMode) IsMalformed() bool {
	switch m {
	case Dir, Regular, Deprecated, Executable, Symlink, Submodule:
		return false
	default:
		return true
	}
}

// String returns the seven-digit, zero-padded octal representation.
func (m FileMode) String() string {
	return fmt.Sprintf("%07o", uint32(m))
}

// IsRegular reports whether m denotes a plain (non-executable) file.
func (m FileMode) IsRegular() bool {
	return m == Regular || m == Deprecated
}

// IsFile reports whether m denotes anything that occupies working-tree
// disk space as a single file: regular, executable or symlink.
func (m FileMode) IsFile() bool {
	switch m {
	case Regular, Deprecated, Executable, Symlink:
		return true
	default:
		return false
	}
}

// ToOSFileMode converts m to the closest os.FileMode, failing for modes
// that are not valid file modes.
func (m FileMode) ToOSFileMode() (os.FileMode, error) {
	switch m {
	case Dir, Submodule:
		return os.ModePerm | os.ModeDir, nil
	case Symlink:
		return os.ModePerm | os.ModeSymlink, nil
	case Regular, Deprecated:
		return os.FileMode(0o644), nil
	case Executable:
		return os.FileMode(0o755), nil
	default:
		return os.FileMode(0), fmt.Errorf("malformed mode %v", m)
	}
}
