package stagefs

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"testing"

	"github.com/absfs/absfs"
	"github.com/absfs/memfs"
)

// mustNewMemFS creates a new memfs or panics
func mustNewMemFS() absfs.FileSystem {
	mfs, err := memfs.NewFS()
	if err != nil {
		panic(err)
	}
	return mfs
}

// readFile reads a file from a filesystem
func readFile(fs interface {
	Open(string) (absfs.File, error)
}, name string) ([]byte, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// writeFile writes data to a file in a filesystem
func writeFile(fs interface {
	OpenFile(string, int, os.FileMode) (absfs.File, error)
	MkdirAll(string, os.FileMode) error
}, name string, data []byte, perm os.FileMode) error {
	// Create parent directory if needed
	dir := name[:len(name)-len(name[lastSlash(name):])]
	if dir != "" && dir != "/" {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

// lastSlash finds the last slash in a path
func lastSlash(path string) int {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return i
		}
	}
	return -1
}

// newMemStage creates an overlay rooted at /project on a fresh memfs
func newMemStage(t *testing.T) (*FS, absfs.FileSystem) {
	t.Helper()
	mfs := mustNewMemFS()
	if err := mfs.MkdirAll("/project", 0755); err != nil {
		t.Fatalf("failed to create base directory: %v", err)
	}
	return New("/project", WithFileSystem(mfs), WithOutput(nil)), mfs
}

// TestReadThrough tests that unstaged paths are loaded from disk
func TestReadThrough(t *testing.T) {
	sfs, mfs := newMemStage(t)
	writeFile(mfs, "/project/test.txt", []byte("base content"), 0644)

	data, err := sfs.Read("test.txt")
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if string(data) != "base content" {
		t.Errorf("expected 'base content', got '%s'", string(data))
	}

	ok, err := sfs.Exists("test.txt")
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if !ok {
		t.Error("test.txt should exist")
	}
}

// TestReadMissing tests that missing files read as fs.ErrNotExist
func TestReadMissing(t *testing.T) {
	sfs, _ := newMemStage(t)

	_, err := sfs.Read("missing.txt")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}

	ok, err := sfs.Exists("missing.txt")
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if ok {
		t.Error("missing.txt should not exist")
	}
}

// TestReadAfterWrite tests that staged writes are visible before flush
func TestReadAfterWrite(t *testing.T) {
	sfs, mfs := newMemStage(t)
	writeFile(mfs, "/project/test.txt", []byte("original"), 0644)

	if err := sfs.Write("test.txt", []byte("modified")); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	data, err := sfs.Read("test.txt")
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if string(data) != "modified" {
		t.Errorf("expected 'modified', got '%s'", string(data))
	}

	// Disk is untouched until flush
	data, err = readFile(mfs, "/project/test.txt")
	if err != nil {
		t.Fatalf("failed to read from disk: %v", err)
	}
	if string(data) != "original" {
		t.Errorf("disk should still have 'original', got '%s'", string(data))
	}
}

// TestWriteCopiesInput tests that callers cannot mutate staged contents
func TestWriteCopiesInput(t *testing.T) {
	sfs, _ := newMemStage(t)

	buf := []byte("abc")
	sfs.Write("a.txt", buf)
	buf[0] = 'X'

	data, _ := sfs.Read("a.txt")
	if string(data) != "abc" {
		t.Errorf("staged contents changed through caller buffer: %q", data)
	}

	data[1] = 'Y'
	again, _ := sfs.Read("a.txt")
	if string(again) != "abc" {
		t.Errorf("staged contents changed through returned buffer: %q", again)
	}
}

// TestIdempotentWrite tests that rewriting equal bytes keeps the version
func TestIdempotentWrite(t *testing.T) {
	sfs, _ := newMemStage(t)

	sfs.Write("a.txt", []byte("hi"))
	if v := sfs.Version(); v != 1 {
		t.Fatalf("expected version 1, got %d", v)
	}

	// A different slice with the same bytes
	sfs.Write("a.txt", []byte("hi"))
	if v := sfs.Version(); v != 1 {
		t.Errorf("expected version to stay 1, got %d", v)
	}
}

// TestEmptyFileIsPresent tests that empty contents are distinct from absence
func TestEmptyFileIsPresent(t *testing.T) {
	sfs, _ := newMemStage(t)

	sfs.Write("empty.txt", nil)
	ok, _ := sfs.Exists("empty.txt")
	if !ok {
		t.Error("empty file should exist")
	}
	if v := sfs.Version(); v != 1 {
		t.Errorf("absent -> empty should bump version, got %d", v)
	}

	sfs.Write("empty.txt", []byte{})
	if v := sfs.Version(); v != 1 {
		t.Errorf("nil and empty slices should compare equal, got version %d", v)
	}
}

// TestDeleteThenExists tests that delete hides files regardless of disk state
func TestDeleteThenExists(t *testing.T) {
	sfs, mfs := newMemStage(t)
	writeFile(mfs, "/project/on-disk.txt", []byte("x"), 0644)

	for _, name := range []string{"on-disk.txt", "never-existed.txt"} {
		if err := sfs.Delete(name); err != nil {
			t.Fatalf("delete %s: %v", name, err)
		}
		ok, err := sfs.Exists(name)
		if err != nil {
			t.Fatalf("exists %s: %v", name, err)
		}
		if ok {
			t.Errorf("%s should not exist after delete", name)
		}
	}

	// Only the file that existed counts as a mutation
	if v := sfs.Version(); v != 1 {
		t.Errorf("expected version 1, got %d", v)
	}
}

// TestVersionMonotonicity tests the version across a mixed sequence
func TestVersionMonotonicity(t *testing.T) {
	sfs, mfs := newMemStage(t)
	writeFile(mfs, "/project/script.sh", []byte("echo"), 0644)

	steps := []struct {
		name  string
		apply func() error
		bump  uint64
	}{
		{"write new", func() error { return sfs.Write("a.txt", []byte("1")) }, 1},
		{"write same", func() error { return sfs.Write("a.txt", []byte("1")) }, 0},
		{"write different", func() error { return sfs.Write("a.txt", []byte("2")) }, 1},
		{"read", func() error { _, err := sfs.Read("a.txt"); return err }, 0},
		{"exists", func() error { _, err := sfs.Exists("b.txt"); return err }, 0},
		{"chmod +x", func() error { return sfs.SetExecutable("script.sh", true) }, 1},
		{"chmod +x again", func() error { return sfs.SetExecutable("script.sh", true) }, 0},
		{"chmod -x", func() error { return sfs.SetExecutable("script.sh", false) }, 1},
		{"delete", func() error { return sfs.Delete("a.txt") }, 1},
		{"delete again", func() error { return sfs.Delete("a.txt") }, 0},
		{"recreate", func() error { return sfs.Write("a.txt", []byte("2")) }, 1},
	}

	for _, step := range steps {
		before := sfs.Version()
		if err := step.apply(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if got := sfs.Version() - before; got != step.bump {
			t.Errorf("%s: version moved by %d, want %d", step.name, got, step.bump)
		}
	}
}

// TestPathsInsertionOrder tests that paths are kept in first-touch order
func TestPathsInsertionOrder(t *testing.T) {
	sfs, _ := newMemStage(t)

	sfs.Write("c.txt", []byte("c"))
	sfs.Exists("a.txt")
	sfs.Delete("b.txt")
	sfs.Write("c.txt", []byte("again"))
	sfs.Write("./a.txt", []byte("a"))

	got := sfs.Paths()
	want := []string{"c.txt", "a.txt", "b.txt"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("paths[%d]: expected %s, got %s", i, want[i], got[i])
		}
	}
}

// TestStatSnapshot tests that Stat reports staged state
func TestStatSnapshot(t *testing.T) {
	sfs, mfs := newMemStage(t)
	writeFile(mfs, "/project/run.sh", []byte("echo"), 0755)

	e, err := sfs.Stat("run.sh")
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if !e.Exists || !e.Executable || string(e.Data) != "echo" {
		t.Errorf("unexpected entry: %+v", e)
	}

	sfs.Delete("run.sh")
	e, _ = sfs.Stat("run.sh")
	if e.Exists || e.Data != nil {
		t.Errorf("deleted entry should be absent: %+v", e)
	}
	if !e.Executable {
		t.Error("delete should not clear the executable flag")
	}
}

// TestStats tests the staged entry summary
func TestStats(t *testing.T) {
	sfs, _ := newMemStage(t)

	sfs.Write("a.txt", []byte("abc"))
	sfs.Write("b.sh", []byte("echo"))
	sfs.SetExecutable("b.sh", true)
	sfs.Delete("gone.txt")

	s := sfs.Stats()
	if s.Entries != 3 || s.Present != 2 || s.Absent != 1 || s.Executable != 1 || s.Bytes != 7 {
		t.Errorf("unexpected stats: %+v", s)
	}
	if s.Version != 3 {
		t.Errorf("expected version 3, got %d", s.Version)
	}
}

// TestIndependentInstances tests that overlays do not share state
func TestIndependentInstances(t *testing.T) {
	mfs := mustNewMemFS()
	mfs.MkdirAll("/project", 0755)

	first := New("/project", WithFileSystem(mfs), WithOutput(nil))
	second := New("/project", WithFileSystem(mfs), WithOutput(nil))

	first.Write("a.txt", []byte("first"))
	if ok, _ := second.Exists("a.txt"); ok {
		t.Error("second overlay should not see first overlay's staged file")
	}
	if second.Version() != 0 {
		t.Errorf("second overlay version should be 0, got %d", second.Version())
	}
}
