package stagefs

import (
	"fmt"
	"path/filepath"
)

// Flush reconciles every staged entry with the backend, in the order paths
// were first touched. Unchanged files are not rewritten, missing parent
// directories are created, and only execute bits that differ are changed.
//
// The first error aborts the remaining paths. Changes already applied are
// kept; staged state is untouched, so calling Flush again resumes.
func (sfs *FS) Flush() error {
	sfs.mu.Lock()
	defer sfs.mu.Unlock()

	keys := sfs.entries.keys()
	sfs.logger.Debug("stagefs: flush started", "base", sfs.baseDir, "entries", len(keys), "version", sfs.version)

	applied := 0
	for _, key := range keys {
		e, _ := sfs.entries.get(key)
		n, err := sfs.flushEntry(key, e)
		applied += n
		if err != nil {
			sfs.logger.Debug("stagefs: flush aborted", "path", key, "applied", applied, "error", err)
			return fmt.Errorf("flush %s: %w", key, err)
		}
	}

	sfs.logger.Debug("stagefs: flush finished", "applied", applied)
	return nil
}

// flushEntry applies one entry and returns the number of events emitted.
func (sfs *FS) flushEntry(key string, e *Entry) (int, error) {
	disk, onDisk, err := sfs.inspect(key, e)
	if err != nil {
		return 0, err
	}

	applied := 0
	switch op := contentAction(e, disk, onDisk); op {
	case OpDelete:
		if err := sfs.backend.Remove(key); err != nil {
			return applied, err
		}
		sfs.emit(Event{Op: op, Path: key})
		return applied + 1, nil
	case OpAdd:
		if err := sfs.backend.MkdirAll(filepath.Dir(key), defaultDirPerm); err != nil {
			return applied, err
		}
		fallthrough
	case OpUpdate:
		if err := sfs.backend.WriteFile(key, e.Data, defaultFilePerm); err != nil {
			return applied, err
		}
		sfs.emit(Event{Op: op, Path: key, Size: len(e.Data)})
		applied++
	}

	if !e.Exists {
		return applied, nil
	}

	// New files get whatever mode the backend chose, so look again.
	disk, err = statPath(sfs.backend, key)
	if err != nil {
		return applied, err
	}
	if op := modeAction(e, disk); op != 0 {
		if err := sfs.backend.Chmod(key, chmodTarget(disk.mode, op)); err != nil {
			return applied, err
		}
		sfs.emit(Event{Op: op, Path: key})
		applied++
	}
	return applied, nil
}

// inspect reports the on-disk state of key, reading its contents only when
// they need comparing against staged contents.
func (sfs *FS) inspect(key string, e *Entry) (diskState, []byte, error) {
	disk, err := statPath(sfs.backend, key)
	if err != nil {
		return diskState{}, nil, err
	}
	if !disk.exists || !e.Exists {
		return disk, nil, nil
	}
	onDisk, err := sfs.backend.ReadFile(key)
	if err != nil {
		return diskState{}, nil, err
	}
	return disk, onDisk, nil
}

func (sfs *FS) emit(ev Event) {
	if sfs.onEvent != nil {
		sfs.onEvent(ev)
	}
}

// Plan computes the changes Flush would apply without touching the backend's
// contents. Files that would be created are assumed to come out
// non-executable. Paths needing no change are omitted.
func (sfs *FS) Plan() ([]Change, error) {
	sfs.mu.Lock()
	defer sfs.mu.Unlock()

	var changes []Change
	for _, key := range sfs.entries.keys() {
		e, _ := sfs.entries.get(key)
		disk, onDisk, err := sfs.inspect(key, e)
		if err != nil {
			return changes, fmt.Errorf("plan %s: %w", key, err)
		}

		c := Change{Path: key, Content: contentAction(e, disk, onDisk)}
		if c.Content == OpAdd {
			disk = diskState{exists: true, mode: defaultFilePerm &^ execBits}
		}
		c.Mode = modeAction(e, disk)
		if !c.IsZero() {
			changes = append(changes, c)
		}
	}
	return changes, nil
}
