package stagefs

import (
	"bytes"
	"io/fs"
	"strings"
)

// Change is the reconciliation decision for one staged path: what Flush
// would do to its contents and to its executable bits.
// A zero Op means no action.
type Change struct {
	Path    string
	Content Op // OpAdd, OpUpdate, OpDelete or 0
	Mode    Op // OpChmodExec, OpChmodNoExec or 0
}

// IsZero reports whether the change requires no I/O.
func (c Change) IsZero() bool {
	return c.Content == 0 && c.Mode == 0
}

// Events lists the events Flush emits when applying c.
func (c Change) Events() []Event {
	var events []Event
	if c.Content != 0 {
		events = append(events, Event{Op: c.Content, Path: c.Path})
	}
	if c.Mode != 0 {
		events = append(events, Event{Op: c.Mode, Path: c.Path})
	}
	return events
}

func (c Change) String() string {
	var parts []string
	for _, e := range c.Events() {
		parts = append(parts, e.String())
	}
	if len(parts) == 0 {
		return "unchanged " + c.Path
	}
	return strings.Join(parts, ", ")
}

// contentAction decides what to do with the contents of one path.
// onDisk is nil unless the file exists and staged contents are present.
func contentAction(staged *Entry, disk diskState, onDisk []byte) Op {
	switch {
	case !staged.Exists && disk.exists:
		return OpDelete
	case !staged.Exists:
		return 0
	case !disk.exists:
		return OpAdd
	case !bytes.Equal(staged.Data, onDisk):
		return OpUpdate
	default:
		return 0
	}
}

// modeAction decides whether the executable bits on disk need to change.
// disk must describe the file after the content step.
func modeAction(staged *Entry, disk diskState) Op {
	if !staged.Exists || !disk.exists || disk.executable() == staged.Executable {
		return 0
	}
	if staged.Executable {
		return OpChmodExec
	}
	return OpChmodNoExec
}

// chmodTarget returns mode with only the execute bits changed.
func chmodTarget(mode fs.FileMode, op Op) fs.FileMode {
	if op == OpChmodExec {
		return mode | execBits
	}
	return mode &^ execBits
}
