package interp

import (
	"sort"
	"sync"

	"github.com/aledsdavies/quill/core/ast"
	"github.com/aledsdavies/quill/runtime/value"
)

// builtinFunc is the signature of a built-in command body.
type builtinFunc func(in *Interp, args []*value.Value) Code

type builtinEntry struct {
	name string
	fn   builtinFunc
}

// builtins is the core command table, sorted by name at init so
// dispatch can binary-search it.
var builtins []builtinEntry

func registerBuiltin(name string, fn builtinFunc) {
	builtins = append(builtins, builtinEntry{name, fn})
}

// builtinsOnce defers sorting until the first lookup, after every
// file's init registrations have run.
var builtinsOnce sync.Once

func lookupBuiltin(name string) builtinFunc {
	builtinsOnce.Do(func() {
		sort.Slice(builtins, func(i, j int) bool { return builtins[i].name < builtins[j].name })
	})
	i := sort.Search(len(builtins), func(i int) bool { return builtins[i].name >= name })
	if i < len(builtins) && builtins[i].name == name {
		return builtins[i].fn
	}
	return nil
}

// dispatch resolves and runs one command. Lookup order: the built-in
// table, the procedure registry, host extensions, then the coroutine
// name table.
func (in *Interp) dispatch(args []*value.Value) Code {
	if len(args) == 0 {
		return OK
	}
	name := args[0].String()
	in.logger.Debug("dispatch", "name", name, "argc", len(args)-1)
	if fn := lookupBuiltin(name); fn != nil {
		return fn(in, args)
	}
	if p, ok := in.procs[name]; ok {
		return in.callProc(p, args)
	}
	if fn, ok := in.host.LookupExtern(name); ok {
		return fn(in, args)
	}
	if co := in.lookupCoroutine(name); co != nil {
		return in.resumeByName(co, args)
	}
	return in.errorf("invalid command name %q", name)
}

// invoke runs a pre-built argument vector as one command.
func (in *Interp) invoke(args []*value.Value) Code {
	return in.dispatch(args)
}

// paramSpec is one entry of a procedure's argument list.
type paramSpec struct {
	name   string
	def    *value.Value
	hasDef bool
}

// Proc is a script-defined procedure. The body parses once, on first
// call; the parsed tree's identity is stable for the life of the proc,
// which the continuation layer depends on when a yield suspends the
// body.
type Proc struct {
	name     string
	params   []paramSpec
	variadic bool
	body     string
	bodyLine int
	bodyAST  *ast.Script
}

// parseParams turns an argument-list value into parameter specs. The
// last spec is variadic iff its name is exactly "args".
func parseParams(argList *value.Value) ([]paramSpec, bool, error) {
	elems, err := argList.List()
	if err != nil {
		return nil, false, err
	}
	specs := make([]paramSpec, 0, len(elems))
	for _, e := range elems {
		parts, err := e.List()
		if err != nil {
			return nil, false, err
		}
		switch len(parts) {
		case 1:
			specs = append(specs, paramSpec{name: parts[0].String()})
		case 2:
			specs = append(specs, paramSpec{name: parts[0].String(), def: parts[1], hasDef: true})
		default:
			specs = append(specs, paramSpec{name: e.String()})
		}
	}
	variadic := len(specs) > 0 && specs[len(specs)-1].name == "args"
	return specs, variadic, nil
}

// usage renders the wrong-#-args usage string: plain names, defaults in
// ?..?, a trailing ?arg ...? for variadic procs.
func (p *Proc) usage() string {
	s := p.name
	n := len(p.params)
	if p.variadic {
		n--
	}
	for i := 0; i < n; i++ {
		if p.params[i].hasDef {
			s += " ?" + p.params[i].name + "?"
		} else {
			s += " " + p.params[i].name
		}
	}
	if p.variadic {
		s += " ?arg ...?"
	}
	return s
}

// callProc binds arguments and evaluates the body in a fresh PROC
// frame. When the stashed continuation belongs to this body, the call
// is a resumption: binding is skipped and the saved execution frame
// comes back through the continuation.
func (in *Interp) callProc(p *Proc, args []*value.Value) Code {
	if p.bodyAST == nil {
		s, err := in.cachedScript(p.body, p.bodyLine)
		if err != nil {
			return in.errorf("%s", err.Error())
		}
		p.bodyAST = s
	}

	if cont := in.takeCont(p.bodyAST); cont != nil {
		saved := in.frame
		code := in.evalScriptCont(p.bodyAST, cont)
		return in.finishProcCall(saved, code)
	}

	required := len(p.params)
	if p.variadic {
		required--
	}
	min := 0
	for i := 0; i < required; i++ {
		if !p.params[i].hasDef {
			min++
		}
	}
	actual := len(args) - 1
	if actual < min || (!p.variadic && actual > required) {
		return in.errorf("wrong # args: should be %q", p.usage())
	}

	frame := newFrame(in.frame, FrameProc)
	frame.procName = p.name
	frame.invocation = args
	for i := 0; i < required; i++ {
		spec := p.params[i]
		switch {
		case i < actual:
			frame.setVar(spec.name, args[i+1])
		case spec.hasDef:
			frame.setVar(spec.name, spec.def)
		default:
			frame.setVar(spec.name, value.Empty())
		}
	}
	if p.variadic {
		if actual > required {
			frame.setVar("args", value.NewList(args[required+1:]...))
		} else {
			frame.setVar("args", value.Empty())
		}
	}

	saved := in.frame
	in.frame = frame
	code := in.evalScript(p.bodyAST)
	return in.finishProcCall(saved, code)
}

// finishProcCall restores the caller's frame and collapses a body-level
// return. On suspension the PROC frame stays alive inside the saved
// continuation.
func (in *Interp) finishProcCall(saved *Frame, code Code) Code {
	in.frame = saved
	if in.suspended() {
		return OK
	}
	if code == Return {
		code = in.finishReturn()
	}
	return code
}

// finishReturn resolves a TCL_RETURN at a procedure boundary: the
// -level count ticks down, and at zero the stored -code takes over
// (plain return collapses to OK).
func (in *Interp) finishReturn() Code {
	if in.returnLevel > 0 {
		in.returnLevel--
	}
	if in.returnLevel > 0 {
		return Return
	}
	code := in.returnCode
	in.returnCode = OK
	return code
}
