package stagefs

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// execBits is the set of permission bits toggled by SetExecutable.
const execBits fs.FileMode = 0o111

// defaultFilePerm is the mode new files are created with, before umask.
const defaultFilePerm fs.FileMode = 0o666

// defaultDirPerm is the mode used for parent directories created during flush.
const defaultDirPerm fs.FileMode = 0o755

// Backend is the filesystem the overlay loads from and flushes to.
// Names are the overlay's path keys; a backend resolves them against its own
// base directory.
type Backend interface {
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
	Remove(name string) error
	Chmod(name string, mode fs.FileMode) error
	MkdirAll(name string, perm fs.FileMode) error
}

// diskState is what a backend reports about one path.
type diskState struct {
	exists bool
	mode   fs.FileMode
}

func (d diskState) executable() bool {
	return d.exists && d.mode&execBits != 0
}

// statPath stats name, treating a missing file as a non-error absent state.
func statPath(b Backend, name string) (diskState, error) {
	info, err := b.Stat(name)
	if err != nil {
		if isNotExist(err) {
			return diskState{}, nil
		}
		return diskState{}, err
	}
	if info.IsDir() {
		return diskState{}, &fs.PathError{Op: "stat", Path: name, Err: ErrIsDir}
	}
	return diskState{exists: true, mode: info.Mode()}, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err)
}

// resolvePath joins name onto base the way a shell resolves a relative path:
// absolute names are returned cleaned and unchanged.
func resolvePath(base, name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(base, name)
}

// resolveSlashPath is resolvePath for slash-separated virtual filesystems.
func resolveSlashPath(base, name string) string {
	name = filepath.ToSlash(name)
	if path.IsAbs(name) {
		return path.Clean(name)
	}
	return path.Join(base, name)
}

// cleanKey normalizes a path key so that "a.txt" and "./a.txt" share an entry.
func cleanKey(name string) string {
	return filepath.Clean(name)
}
