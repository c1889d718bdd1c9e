// Package interp implements the quill evaluation engine: the
// tree-walking evaluator with its explicit frame stack, the substitution
// engine, command dispatch and procedure binding, and the coroutine
// continuation machinery.
//
// An Interp is single-threaded and not safe for concurrent use. Code
// that needs parallel evaluation runs one interpreter per goroutine.
package interp

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/aledsdavies/quill/core/ast"
	"github.com/aledsdavies/quill/runtime/parser"
	"github.com/aledsdavies/quill/runtime/value"
)

// Code is a Tcl result code. Dispatch and the loop commands treat the
// five codes as distinct values; catch converts any of them to OK and
// reports the integer.
type Code int

const (
	OK Code = iota
	Error
	Return
	Break
	Continue
)

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case Error:
		return "error"
	case Return:
		return "return"
	case Break:
		return "break"
	case Continue:
		return "continue"
	default:
		return fmt.Sprintf("%d", int(c))
	}
}

// EvalError is the error an Interp returns through its public Go API.
type EvalError struct {
	Msg  string
	Info string // accumulated errorInfo
	Code string // errorCode list, "NONE" by default
}

func (e *EvalError) Error() string { return e.Msg }

// Interp is one interpreter instance: a global frame, a current frame,
// the live result, and the coroutine bookkeeping the evaluator and the
// continuation layer share.
type Interp struct {
	host Host

	global *Frame
	frame  *Frame

	result *value.Value

	errorInfo string
	errorCode *value.Value

	scriptFile string
	line       int

	parent *Interp
	safe   bool

	// coroutine state: per-interpreter, never process-global
	coros        map[string]*Coroutine
	current      *Coroutine
	pendingYield bool
	// innerCont is the single-slot stash the continuation layer uses to
	// hand a detached continuation to the enclosing script runner.
	innerCont *Continuation

	procs    map[string]*Proc
	channels map[string]*Channel
	chanSeq  int

	// scriptCache maps blake2b content hashes to parsed trees so that
	// loop bodies and procedure bodies keep a stable AST identity
	// across dispatches, which the continuation layer relies on.
	scriptCache map[cacheKey]*ast.Script

	returnLevel int
	returnCode  Code

	// errSeeded suppresses the first "while executing" append when a
	// script supplied its own errorInfo via the error command.
	errSeeded bool

	logger *slog.Logger
}

type cacheKey struct {
	sum  [32]byte
	line int
}

// Option configures a new interpreter.
type Option func(*Interp)

// WithHost selects the host environment: channel endpoints and external
// command lookup.
func WithHost(h Host) Option {
	return func(in *Interp) { in.host = h }
}

// WithSafe marks the interpreter safe: file channels cannot be opened.
func WithSafe() Option {
	return func(in *Interp) { in.safe = true }
}

// WithParent links a nested interpreter to the one that created it.
func WithParent(p *Interp) Option {
	return func(in *Interp) { in.parent = p }
}

// New creates an interpreter with its global frame and standard
// channels wired.
func New(opts ...Option) *Interp {
	logLevel := slog.LevelInfo
	if os.Getenv("QUILL_DEBUG_EVAL") != "" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))

	in := &Interp{
		host:        NewOSHost(),
		result:      value.Empty(),
		errorCode:   value.NewString("NONE"),
		coros:       make(map[string]*Coroutine),
		procs:       make(map[string]*Proc),
		channels:    make(map[string]*Channel),
		scriptCache: make(map[cacheKey]*ast.Script),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(in)
	}
	in.global = newFrame(nil, FrameGlobal)
	in.frame = in.global
	in.wireStdChannels()
	return in
}

// Result returns the current result value.
func (in *Interp) Result() *value.Value { return in.result }

// SetResult sets the current result value.
func (in *Interp) SetResult(v *value.Value) {
	if v == nil {
		v = value.Empty()
	}
	in.result = v
}

func (in *Interp) setResultString(s string) { in.result = value.NewString(s) }

// errorf raises a fresh script error: the result becomes the message
// and errorInfo restarts from it.
func (in *Interp) errorf(format string, args ...any) Code {
	msg := fmt.Sprintf(format, args...)
	in.result = value.NewString(msg)
	in.errorInfo = msg
	in.errorCode = value.NewString("NONE")
	in.errSeeded = false
	in.mirrorErrorVars()
	return Error
}

// errorValue raises an error whose message is already a value.
func (in *Interp) errorValue(v *value.Value) Code {
	in.result = v
	in.errorInfo = v.String()
	in.errorCode = value.NewString("NONE")
	in.errSeeded = false
	in.mirrorErrorVars()
	return Error
}

// SetErrorCode replaces the errorCode list.
func (in *Interp) SetErrorCode(v *value.Value) {
	in.errorCode = v
	in.mirrorErrorVars()
}

// AddErrorInfo appends context to the accumulated errorInfo.
func (in *Interp) AddErrorInfo(info string) {
	in.errorInfo += info
	in.mirrorErrorVars()
}

// mirrorErrorVars keeps the ::errorInfo and ::errorCode globals in sync
// with the interpreter fields, the way scripts expect to read them.
func (in *Interp) mirrorErrorVars() {
	in.global.setVar("errorInfo", value.NewString(in.errorInfo))
	in.global.setVar("errorCode", in.errorCode)
}

// appendErrorContext records "while executing" context as an error
// unwinds through a command.
func (in *Interp) appendErrorContext(args []*value.Value, line int) {
	if in.errSeeded {
		in.errSeeded = false
		return
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	cmd := strings.Join(parts, " ")
	if len(cmd) > 150 {
		cmd = cmd[:150] + "..."
	}
	in.AddErrorInfo("\n    while executing\n\"" + cmd + "\"")
	if in.scriptFile != "" {
		in.AddErrorInfo(fmt.Sprintf("\n    (file %q line %d)", in.scriptFile, line))
	}
}

// suspended reports whether a yield is pending: evaluation is unwinding
// into the continuation snapshotter and every script runner on the way
// out must stop and return OK.
func (in *Interp) suspended() bool { return in.pendingYield }

// cachedScript parses src starting at the given line, memoized by
// content hash. Commands that evaluate scripts repeatedly (loop bodies,
// procedure bodies, eval arguments) go through here so that the same
// text always yields the same tree, which is what lets a continuation
// find its way back into the loop that suspended it.
func (in *Interp) cachedScript(src string, line int) (*ast.Script, error) {
	key := cacheKey{sum: blake2b.Sum256([]byte(src)), line: line}
	if s, ok := in.scriptCache[key]; ok {
		return s, nil
	}
	s, err := parser.ParseAt(src, line)
	if err != nil {
		return nil, err
	}
	in.scriptCache[key] = s
	return s, nil
}

// evalValue evaluates a value as a script in the current scope.
func (in *Interp) evalValue(v *value.Value, line int) Code {
	script, err := in.cachedScript(v.String(), line)
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	return in.evalScriptCont(script, in.takeCont(script))
}

// EvalFlags modify public evaluation entry points.
type EvalFlags uint

const (
	// EvalGlobal evaluates in the global scope regardless of the
	// current frame.
	EvalGlobal EvalFlags = 1 << iota
)

// Eval parses and evaluates src, returning the result value or an
// *EvalError. Break and continue escaping to the top level are
// rejected here.
func (in *Interp) Eval(src string) (*value.Value, error) {
	return in.EvalWithFlags(src, 0)
}

// EvalWithFlags is Eval with scope modifiers.
func (in *Interp) EvalWithFlags(src string, flags EvalFlags) (*value.Value, error) {
	saved := in.frame
	if flags&EvalGlobal != 0 {
		in.frame = in.global
	}
	code := in.evalTop(src)
	in.frame = saved
	return in.finish(code)
}

// EvalFile evaluates src recording the file name for diagnostics.
func (in *Interp) EvalFile(name, src string) (*value.Value, error) {
	savedFile := in.scriptFile
	in.scriptFile = name
	code := in.evalTop(src)
	in.scriptFile = savedFile
	return in.finish(code)
}

// EvalWords evaluates a pre-built argument vector as one command.
func (in *Interp) EvalWords(words []*value.Value) (*value.Value, error) {
	code := in.invoke(words)
	return in.finish(code)
}

func (in *Interp) evalTop(src string) Code {
	script, err := in.cachedScript(src, 1)
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	return in.evalScriptCont(script, in.takeCont(script))
}

func (in *Interp) finish(code Code) (*value.Value, error) {
	switch code {
	case OK, Return:
		return in.result, nil
	case Break:
		return nil, &EvalError{Msg: `invoked "break" outside of a loop`}
	case Continue:
		return nil, &EvalError{Msg: `invoked "continue" outside of a loop`}
	default:
		return nil, &EvalError{
			Msg:  in.result.String(),
			Info: in.errorInfo,
			Code: in.errorCode.String(),
		}
	}
}

// ScriptComplete reports whether src is a syntactically complete
// script: no unterminated brace, quote, or bracket. REPLs use it to
// decide between evaluating and prompting for a continuation line.
func ScriptComplete(src string) bool { return scriptComplete(src) }

// CommandNames lists every resolvable command name: built-ins,
// procedures, and live coroutines.
func (in *Interp) CommandNames() []string {
	names := make([]string, 0, len(builtins)+len(in.procs)+len(in.coros))
	for _, b := range builtins {
		names = append(names, b.name)
	}
	for n := range in.procs {
		names = append(names, n)
	}
	for n := range in.coros {
		names = append(names, shortName(n))
	}
	return names
}

// ErrorInfo returns the accumulated error trace for the last error.
func (in *Interp) ErrorInfo() string { return in.errorInfo }

// ErrorCode returns the current errorCode list.
func (in *Interp) ErrorCode() *value.Value { return in.errorCode }
