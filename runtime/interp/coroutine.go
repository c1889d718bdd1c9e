package interp

import (
	"strings"

	"github.com/aledsdavies/quill/core/invariant"
	"github.com/aledsdavies/quill/runtime/value"
)

// Coroutine is a named suspendable task. Between a yield and the next
// resume no evaluation happens in the coroutine; its whole in-flight
// state lives in the saved continuation chain.
//
// State transitions: not started -> running -> (suspended <-> running)*
// -> done. Exactly one coroutine is running at any instant, and it is
// the interpreter's current coroutine.
type Coroutine struct {
	name string // fully qualified, begins with ::
	objv []*value.Value

	cont *Continuation // nil before first yield and after completion

	yieldValue  *value.Value // last value passed to yield
	resumeValue *value.Value // staged for the next resume

	started bool
	running bool
	done    bool
}

func init() {
	registerBuiltin("coroutine", builtinCoroutine)
	registerBuiltin("yield", builtinYield)
	registerBuiltin("yieldto", builtinYieldto)
}

// qualifyName prefixes :: when absent; coroutine names are global.
func qualifyName(name string) string {
	if strings.HasPrefix(name, "::") {
		return name
	}
	return "::" + name
}

func shortName(name string) string {
	return strings.TrimPrefix(name, "::")
}

// lookupCoroutine resolves a command name against the coroutine table,
// accepting both qualified and short forms.
func (in *Interp) lookupCoroutine(name string) *Coroutine {
	if co, ok := in.coros[qualifyName(name)]; ok {
		return co
	}
	return nil
}

// builtinCoroutine implements: coroutine name cmd ?arg ...?
//
// The named coroutine starts immediately. The creation command returns
// the first yielded value, or the command's final result if it
// completes without yielding.
func builtinCoroutine(in *Interp, args []*value.Value) Code {
	if len(args) < 3 {
		return in.errorf("wrong # args: should be %q", "coroutine name cmd ?arg ...?")
	}
	name := qualifyName(args[1].String())
	if _, exists := in.coros[name]; exists {
		return in.errorf("command already exists: %q", name)
	}
	short := shortName(name)
	if lookupBuiltin(short) != nil {
		return in.errorf("command already exists: %q", name)
	}
	if _, exists := in.procs[short]; exists {
		return in.errorf("command already exists: %q", name)
	}

	co := &Coroutine{name: name, objv: args[2:]}
	in.coros[name] = co
	return in.runCoroutine(co)
}

// resumeByName handles invocation of a registered coroutine by its
// command name. The invocation arguments form the resume value: none is
// the empty string, one is the value itself, several become a list.
func (in *Interp) resumeByName(co *Coroutine, args []*value.Value) Code {
	if co.done {
		return in.errorf("invalid command name %q", shortName(co.name))
	}
	if co.running {
		return in.errorf("coroutine %q is already running", shortName(co.name))
	}
	switch len(args) {
	case 1:
		co.resumeValue = value.Empty()
	case 2:
		co.resumeValue = args[1]
	default:
		co.resumeValue = value.NewList(args[1:]...)
	}
	return in.runCoroutine(co)
}

// runCoroutine enters the coroutine - first start or resume - and
// surfaces either the yielded value or the final result to the caller.
func (in *Interp) runCoroutine(co *Coroutine) Code {
	prev := in.current
	prevFrame := in.frame
	in.current = co
	co.running = true
	in.frame = in.global

	if co.started {
		invariant.NotNil(co.cont, "suspended coroutine continuation")
		// arm the stash so the re-dispatched root command resumes
		// instead of starting over
		in.innerCont = co.cont
		co.cont = nil
	} else {
		co.started = true
	}

	code := in.invoke(co.objv)

	co.running = false
	in.current = prev
	in.frame = prevFrame

	if in.pendingYield {
		// the evaluator unwound through the snapshotter; the outermost
		// continuation is sitting in the stash
		in.pendingYield = false
		co.cont = in.innerCont
		in.innerCont = nil
		invariant.NotNil(co.cont, "yield must leave a continuation")
		v := co.yieldValue
		if v == nil {
			v = value.Empty()
		}
		in.SetResult(v)
		return OK
	}

	// ran to completion (or error): the coroutine is spent
	co.done = true
	co.cont = nil
	if code == Return {
		code = in.finishReturn()
	}
	return code
}

// builtinYield implements: yield ?value?
func builtinYield(in *Interp, args []*value.Value) Code {
	if in.current == nil {
		return in.errorf("yield can only be called in a coroutine")
	}
	if len(args) > 2 {
		return in.errorf("wrong # args: should be %q", "yield ?value?")
	}
	v := value.Empty()
	if len(args) == 2 {
		v = args[1]
	}
	in.current.yieldValue = v
	in.pendingYield = true
	in.SetResult(value.Empty())
	return OK
}

// builtinYieldto implements: yieldto cmd ?arg ...?
//
// The target command runs synchronously in the caller's context, then
// its result is yielded.
func builtinYieldto(in *Interp, args []*value.Value) Code {
	if in.current == nil {
		return in.errorf("yieldto can only be called in a coroutine")
	}
	if len(args) < 2 {
		return in.errorf("wrong # args: should be %q", "yieldto command ?arg ...?")
	}
	code := in.invoke(args[1:])
	if code != OK {
		return code
	}
	in.current.yieldValue = in.result.Dup()
	in.pendingYield = true
	return OK
}
