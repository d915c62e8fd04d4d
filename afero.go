package stagefs

import (
	"io/fs"

	"github.com/spf13/afero"
)

// aferoBackend adapts an afero.Fs rooted at base.
type aferoBackend struct {
	fs   afero.Fs
	base string
}

// Ensure aferoBackend implements Backend at compile time
var _ Backend = (*aferoBackend)(nil)

// NewAferoBackend returns a Backend that resolves overlay paths against base
// on the given afero filesystem.
func NewAferoBackend(afs afero.Fs, base string) Backend {
	return &aferoBackend{fs: afs, base: base}
}

// NewOsBackend returns a Backend over the real filesystem rooted at base.
func NewOsBackend(base string) Backend {
	return NewAferoBackend(afero.NewOsFs(), base)
}

func (b *aferoBackend) resolve(name string) string {
	return resolvePath(b.base, name)
}

func (b *aferoBackend) Stat(name string) (fs.FileInfo, error) {
	return b.fs.Stat(b.resolve(name))
}

func (b *aferoBackend) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(b.fs, b.resolve(name))
}

func (b *aferoBackend) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return afero.WriteFile(b.fs, b.resolve(name), data, perm)
}

func (b *aferoBackend) Remove(name string) error {
	return b.fs.Remove(b.resolve(name))
}

func (b *aferoBackend) Chmod(name string, mode fs.FileMode) error {
	return b.fs.Chmod(b.resolve(name), mode)
}

// MkdirAll resolves name like every other call, so callers pass the parent
// directory's overlay key.
func (b *aferoBackend) MkdirAll(name string, perm fs.FileMode) error {
	return b.fs.MkdirAll(b.resolve(name), perm)
}
