package interp

import (
	"fmt"
	"io"
	"os"

	"github.com/aledsdavies/quill/runtime/value"
)

// ExternFunc is a host-registered command body. It reads its arguments
// from args (args[0] is the command name), sets the interpreter result,
// and returns a result code.
type ExternFunc func(in *Interp, args []*value.Value) Code

// Host is the capability set the core consumes from its embedder:
// standard channel endpoints, file access for the channel layer, and
// external command lookup. Everything else - values, variables, frames,
// the command registry for procedures - lives in-core.
type Host interface {
	Stdin() io.Reader
	Stdout() io.Writer
	Stderr() io.Writer
	// Open opens a file channel endpoint for the given Tcl access mode
	// (r, r+, w, w+, a, a+).
	Open(name, mode string) (io.ReadWriteCloser, error)
	// LookupExtern resolves a command the host provides. Dispatch
	// consults it after built-ins and procedures.
	LookupExtern(name string) (ExternFunc, bool)
}

// OSHost is the default host: process stdio and the real filesystem.
type OSHost struct {
	externs map[string]ExternFunc
}

// NewOSHost creates a host over os.Stdin/Stdout/Stderr.
func NewOSHost() *OSHost {
	return &OSHost{externs: make(map[string]ExternFunc)}
}

func (h *OSHost) Stdin() io.Reader  { return os.Stdin }
func (h *OSHost) Stdout() io.Writer { return os.Stdout }
func (h *OSHost) Stderr() io.Writer { return os.Stderr }

// Register adds an external command to the host registry.
func (h *OSHost) Register(name string, fn ExternFunc) {
	h.externs[name] = fn
}

func (h *OSHost) LookupExtern(name string) (ExternFunc, bool) {
	fn, ok := h.externs[name]
	return fn, ok
}

// Open maps Tcl access modes onto os.OpenFile flags.
func (h *OSHost) Open(name, mode string) (io.ReadWriteCloser, error) {
	var flag int
	switch mode {
	case "", "r":
		flag = os.O_RDONLY
	case "r+":
		flag = os.O_RDWR
	case "w":
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case "w+":
		flag = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	case "a":
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	case "a+":
		flag = os.O_RDWR | os.O_CREATE | os.O_APPEND
	default:
		return nil, fmt.Errorf("illegal access mode %q", mode)
	}
	return os.OpenFile(name, flag, 0o644)
}
