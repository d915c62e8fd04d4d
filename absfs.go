package stagefs

import (
	"io"
	"io/fs"
	"os"

	"github.com/absfs/absfs"
)

// absfsBackend adapts an absfs.FileSystem rooted at base. absfs filesystems
// are slash-separated regardless of host OS.
type absfsBackend struct {
	fs   absfs.FileSystem
	base string
}

// Ensure absfsBackend implements Backend at compile time
var _ Backend = (*absfsBackend)(nil)

// NewFileSystemBackend returns a Backend that resolves overlay paths against
// base on the given absfs filesystem. An empty base means "/".
//
// Example:
//
//	mfs, _ := memfs.NewFS()
//	sfs := stagefs.New("/", stagefs.WithBackend(stagefs.NewFileSystemBackend(mfs, "/project")))
func NewFileSystemBackend(afs absfs.FileSystem, base string) Backend {
	if base == "" {
		base = "/"
	}
	return &absfsBackend{fs: afs, base: base}
}

func (b *absfsBackend) resolve(name string) string {
	return resolveSlashPath(b.base, name)
}

func (b *absfsBackend) Stat(name string) (fs.FileInfo, error) {
	return b.fs.Stat(b.resolve(name))
}

func (b *absfsBackend) ReadFile(name string) ([]byte, error) {
	f, err := b.fs.Open(b.resolve(name))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (b *absfsBackend) WriteFile(name string, data []byte, perm fs.FileMode) error {
	f, err := b.fs.OpenFile(b.resolve(name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (b *absfsBackend) Remove(name string) error {
	return b.fs.Remove(b.resolve(name))
}

func (b *absfsBackend) Chmod(name string, mode fs.FileMode) error {
	return b.fs.Chmod(b.resolve(name), mode)
}

func (b *absfsBackend) MkdirAll(name string, perm fs.FileMode) error {
	return b.fs.MkdirAll(b.resolve(name), perm)
}
