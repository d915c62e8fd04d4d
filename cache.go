package stagefs

import "bytes"

// Entry is the staged state of one file.
type Entry struct {
	// Data holds the file contents. Only meaningful when Exists is true.
	Data []byte
	// Exists is false when the file is absent or staged for deletion.
	Exists bool
	// Executable reports whether the execute permission bits are set.
	Executable bool
}

// sameContents reports whether two staged contents are byte-for-byte equal.
// Absent and present contents are never equal.
func sameContents(aExists bool, a []byte, bExists bool, b []byte) bool {
	if aExists != bExists {
		return false
	}
	if !aExists {
		return true
	}
	return bytes.Equal(a, b)
}

// entryTable stores staged entries keyed by path and remembers the order in
// which paths were first touched. Entries are never removed.
type entryTable struct {
	entries map[string]*Entry
	order   []string
}

func newEntryTable() *entryTable {
	return &entryTable{entries: make(map[string]*Entry)}
}

func (t *entryTable) get(key string) (*Entry, bool) {
	e, ok := t.entries[key]
	return e, ok
}

func (t *entryTable) put(key string, e *Entry) {
	if _, ok := t.entries[key]; !ok {
		t.order = append(t.order, key)
	}
	t.entries[key] = e
}

func (t *entryTable) keys() []string {
	keys := make([]string, len(t.order))
	copy(keys, t.order)
	return keys
}

// Stats summarizes the staged entries of an overlay.
type Stats struct {
	Entries    int    // paths touched so far
	Present    int    // entries whose contents exist
	Absent     int    // entries that are missing or staged for deletion
	Executable int    // present entries with the executable flag set
	Bytes      int    // total size of present contents
	Version    uint64 // current version counter
}

func (t *entryTable) stats() Stats {
	var s Stats
	for _, e := range t.entries {
		s.Entries++
		if !e.Exists {
			s.Absent++
			continue
		}
		s.Present++
		s.Bytes += len(e.Data)
		if e.Executable {
			s.Executable++
		}
	}
	return s
}
