package stagefs

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/absfs/absfs"
	"github.com/spf13/afero"
)

var (
	// ErrIsDir is returned when a staged path names a directory on disk
	ErrIsDir = errors.New("is a directory")
)

// FS stages file mutations in memory on top of a base directory and
// reconciles them with the backend on Flush.
type FS struct {
	baseDir string
	backend Backend
	entries *entryTable
	version uint64
	onEvent EventHandler
	logger  *slog.Logger
	mu      sync.Mutex
}

// Option is a functional option for configuring FS
type Option func(*FS)

// WithBackend replaces the real-filesystem backend.
func WithBackend(b Backend) Option {
	return func(sfs *FS) {
		sfs.backend = b
	}
}

// WithAfero stages on top of an afero filesystem, rooted at the overlay's
// base directory.
func WithAfero(afs afero.Fs) Option {
	return func(sfs *FS) {
		sfs.backend = NewAferoBackend(afs, sfs.baseDir)
	}
}

// WithFileSystem stages on top of an absfs filesystem, rooted at the
// overlay's base directory.
func WithFileSystem(afs absfs.FileSystem) Option {
	return func(sfs *FS) {
		sfs.backend = NewFileSystemBackend(afs, sfs.baseDir)
	}
}

// WithOutput sets where change lines are printed during Flush.
// A nil writer silences them.
func WithOutput(w io.Writer) Option {
	return func(sfs *FS) {
		if w == nil {
			sfs.onEvent = nil
			return
		}
		sfs.onEvent = lineWriter(w)
	}
}

// WithEventHandler delivers flush events to fn instead of printing them.
// fn runs while Flush holds the overlay's lock and must not call back into it.
func WithEventHandler(fn EventHandler) Option {
	return func(sfs *FS) {
		sfs.onEvent = fn
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(sfs *FS) {
		if logger != nil {
			sfs.logger = logger
		}
	}
}

// New creates an overlay over the real filesystem rooted at baseDir.
// Options that depend on the base directory (WithAfero, WithFileSystem)
// see baseDir as given here.
func New(baseDir string, opts ...Option) *FS {
	sfs := &FS{
		baseDir: baseDir,
		entries: newEntryTable(),
		onEvent: lineWriter(os.Stdout),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(sfs)
	}
	if sfs.backend == nil {
		sfs.backend = NewOsBackend(baseDir)
	}
	return sfs
}

// BaseDir returns the directory relative paths are resolved against.
func (sfs *FS) BaseDir() string {
	return sfs.baseDir
}

// Version returns a counter that increases by one for every staged mutation
// that changed contents or the executable flag.
func (sfs *FS) Version() uint64 {
	sfs.mu.Lock()
	defer sfs.mu.Unlock()
	return sfs.version
}

// entry returns the staged entry for name, loading it from the backend the
// first time the path is touched. A failed load is not cached.
// Callers must hold sfs.mu.
func (sfs *FS) entry(name string) (string, *Entry, error) {
	key := cleanKey(name)
	if e, ok := sfs.entries.get(key); ok {
		return key, e, nil
	}

	disk, err := statPath(sfs.backend, key)
	if err != nil {
		return key, nil, err
	}
	e := &Entry{Exists: disk.exists, Executable: disk.executable()}
	if disk.exists {
		if e.Data, err = sfs.backend.ReadFile(key); err != nil {
			return key, nil, err
		}
	}
	sfs.entries.put(key, e)
	sfs.logger.Debug("stagefs: loaded entry", "path", key, "exists", e.Exists, "executable", e.Executable, "size", len(e.Data))
	return key, e, nil
}

// Exists reports whether name has staged contents.
func (sfs *FS) Exists(name string) (bool, error) {
	sfs.mu.Lock()
	defer sfs.mu.Unlock()

	_, e, err := sfs.entry(name)
	if err != nil {
		return false, err
	}
	return e.Exists, nil
}

// Read returns a copy of the staged contents of name. If the file is absent
// or staged for deletion the error wraps fs.ErrNotExist.
func (sfs *FS) Read(name string) ([]byte, error) {
	sfs.mu.Lock()
	defer sfs.mu.Unlock()

	key, e, err := sfs.entry(name)
	if err != nil {
		return nil, err
	}
	if !e.Exists {
		return nil, &fs.PathError{Op: "read", Path: key, Err: fs.ErrNotExist}
	}
	return append([]byte{}, e.Data...), nil
}

// Stat returns a snapshot of the staged entry for name.
func (sfs *FS) Stat(name string) (Entry, error) {
	sfs.mu.Lock()
	defer sfs.mu.Unlock()

	_, e, err := sfs.entry(name)
	if err != nil {
		return Entry{}, err
	}
	snapshot := *e
	if e.Exists {
		snapshot.Data = append([]byte{}, e.Data...)
	}
	return snapshot, nil
}

// Write stages data as the contents of name. Writing the bytes already
// staged is a no-op and leaves the version unchanged. A nil slice stages an
// empty file.
func (sfs *FS) Write(name string, data []byte) error {
	return sfs.stage(name, true, data)
}

// Delete stages the removal of name.
func (sfs *FS) Delete(name string) error {
	return sfs.stage(name, false, nil)
}

func (sfs *FS) stage(name string, exists bool, data []byte) error {
	sfs.mu.Lock()
	defer sfs.mu.Unlock()

	_, e, err := sfs.entry(name)
	if err != nil {
		return err
	}
	if sameContents(e.Exists, e.Data, exists, data) {
		return nil
	}
	e.Exists = exists
	e.Data = nil
	if exists {
		e.Data = append([]byte{}, data...)
	}
	sfs.version++
	return nil
}

// SetExecutable stages the executable flag of name.
func (sfs *FS) SetExecutable(name string, executable bool) error {
	sfs.mu.Lock()
	defer sfs.mu.Unlock()

	_, e, err := sfs.entry(name)
	if err != nil {
		return err
	}
	if e.Executable == executable {
		return nil
	}
	e.Executable = executable
	sfs.version++
	return nil
}

// Paths returns every staged path in the order it was first touched.
func (sfs *FS) Paths() []string {
	sfs.mu.Lock()
	defer sfs.mu.Unlock()
	return sfs.entries.keys()
}

// Stats returns a summary of the staged entries.
func (sfs *FS) Stats() Stats {
	sfs.mu.Lock()
	defer sfs.mu.Unlock()
	s := sfs.entries.stats()
	s.Version = sfs.version
	return s
}
