/*
Package stagefs provides a staged, in-memory overlay on top of a real
filesystem, committed to disk with minimal diff-aware I/O.

# Overview

An FS is rooted at a base directory. Files are addressed by paths relative to
that directory. Reads, writes, deletes and changes to the executable flag are
recorded in memory; nothing touches the disk until Flush is called.

The first time a path is touched its current state is loaded from disk: the
file contents, or an absence marker if it does not exist, and whether any
execute bit is set. After that, the staged entry is the source of truth.

# Basic Usage

	sfs := stagefs.New("/path/to/project")

	// Stage a new script
	sfs.Write("bin/run.sh", []byte("#!/bin/sh\necho hi\n"))
	sfs.SetExecutable("bin/run.sh", true)

	// Stage a deletion
	sfs.Delete("old/notes.txt")

	// Nothing has changed on disk yet
	if err := sfs.Flush(); err != nil {
	    log.Fatal(err)
	}

Flush prints one line per change it applies:

	add bin/run.sh
	chmod +x bin/run.sh
	delete old/notes.txt

# Versions

Version returns a counter that grows by exactly one for each staged mutation
that actually changed something. Writing the bytes a file already holds, or
setting the executable flag it already has, leaves the counter alone:

	before := sfs.Version()
	generateFiles(sfs)
	if sfs.Version() == before {
	    // nothing to flush
	}

# Flush

For every staged path, in the order paths were first touched:

  - A deleted path is removed if it exists; otherwise nothing happens.
  - A path whose file exists is rewritten only if its bytes differ.
  - A path whose file is missing gets its parent directories created and is written.
  - The file's current execute bits are then compared with the staged flag and
    toggled only when they differ. Other permission bits are left alone.

An error aborts the rest of the flush. Nothing is rolled back, and staged
state still describes the target, so a second Flush picks up where the first
stopped.

Plan reports the same decisions without writing anything.

# Backends

By default an FS works against the operating system through afero. Any
afero.Fs or absfs.FileSystem can be used instead, which is handy in tests:

	sfs := stagefs.New("/project", stagefs.WithAfero(afero.NewMemMapFs()))

	mfs, _ := memfs.NewFS()
	sfs = stagefs.New("/project", stagefs.WithFileSystem(mfs))

# Thread Safety

FS methods are serialized by a mutex owned by the instance. Separate instances
pointed at the same base directory do not coordinate with each other.
*/
package stagefs
