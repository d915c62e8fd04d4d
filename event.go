package stagefs

import (
	"fmt"
	"io"
)

// Op identifies a change applied to disk during Flush.
type Op int

const (
	OpAdd Op = iota + 1
	OpUpdate
	OpDelete
	OpChmodExec   // chmod +x
	OpChmodNoExec // chmod -x
)

var opNames = map[Op]string{
	OpAdd:         "add",
	OpUpdate:      "update",
	OpDelete:      "delete",
	OpChmodExec:   "chmod +x",
	OpChmodNoExec: "chmod -x",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Event records one change applied during Flush.
type Event struct {
	Op   Op
	Path string
	// Size is the number of bytes written for OpAdd and OpUpdate.
	Size int
}

// String returns the human-readable change line, e.g. "chmod +x bin/run.sh".
func (e Event) String() string {
	return e.Op.String() + " " + e.Path
}

// EventHandler receives every change applied during Flush, in order.
type EventHandler func(Event)

// lineWriter returns an EventHandler that prints one change line per event.
func lineWriter(w io.Writer) EventHandler {
	return func(e Event) {
		fmt.Fprintln(w, e.String())
	}
}
