package interp

import (
	"github.com/aledsdavies/quill/core/ast"
	"github.com/aledsdavies/quill/core/invariant"
	"github.com/aledsdavies/quill/runtime/value"
)

// The evaluator walks the syntax tree with an explicit stack of
// evaluation frames rather than Go recursion. That is what makes
// yield-in-the-middle-of-anything possible: the whole in-flight state
// is a data structure the continuation layer can snapshot. Go-level
// recursion depth is bounded by procedure-call nesting only, never by
// tree depth.

type phase int

const (
	phaseScript phase = iota
	phaseCommand
	phaseWord
)

func (p phase) String() string {
	switch p {
	case phaseScript:
		return "SCRIPT"
	case phaseCommand:
		return "COMMAND"
	default:
		return "WORD"
	}
}

// evalFrame is one transient stack element. It lives between push and
// pop within a single eval call - unless a yield snapshots it into a
// continuation.
type evalFrame struct {
	phase   phase
	node    ast.Node
	cursor  int
	args    []*value.Value
	partial string
	expand  bool
}

// evalScript evaluates a parsed script in the current scope.
func (in *Interp) evalScript(script *ast.Script) Code {
	return in.evalScriptCont(script, in.takeCont(script))
}

// evalScriptCont runs the step loop, either from the top of script or
// from a restored continuation. On a pending yield the loop stops
// stepping, saves the stack, and returns OK; the enclosing script
// runners see the suspension and unwind the same way.
func (in *Interp) evalScriptCont(script *ast.Script, cont *Continuation) Code {
	var stack []*evalFrame
	if cont != nil {
		stack = cont.rebuild()
		in.frame = cont.execFrame
		in.innerCont = cont.inner
		if cont.popYield {
			// the top frame is the command that called yield; resume
			// after it, with the staged resume value as its result
			invariant.Precondition(len(stack) > 0, "continuation stack must not be empty")
			stack = stack[:len(stack)-1]
			rv := value.Empty()
			if in.current != nil && in.current.resumeValue != nil {
				rv = in.current.resumeValue
				in.current.resumeValue = nil
			}
			in.SetResult(rv)
		}
	} else {
		in.SetResult(value.Empty())
		stack = append(stack, &evalFrame{phase: phaseScript, node: script})
	}

	for len(stack) > 0 {
		code := in.step(&stack)
		if code != OK {
			return code
		}
		if in.pendingYield {
			in.saveContinuation(stack, script)
			return OK
		}
	}
	return OK
}

// step runs one evaluator transition on the top frame.
func (in *Interp) step(stack *[]*evalFrame) Code {
	f := (*stack)[len(*stack)-1]
	in.logger.Debug("step", "phase", f.phase.String(), "cursor", f.cursor, "depth", len(*stack))

	switch f.phase {
	case phaseScript:
		s := f.node.(*ast.Script)
		if f.cursor >= len(s.Commands) {
			return in.popEval(stack, nil)
		}
		cmd := s.Commands[f.cursor]
		f.cursor++
		*stack = append(*stack, &evalFrame{phase: phaseCommand, node: cmd})
		return OK

	case phaseCommand:
		cmd := f.node.(*ast.Command)
		if f.cursor >= len(cmd.Words) {
			in.line = cmd.Ln
			code := in.dispatch(f.args)
			if code == Error {
				in.appendErrorContext(f.args, cmd.Ln)
				return Error
			}
			if code != OK {
				return code
			}
			if in.pendingYield {
				// leave the frame in place: the snapshotter wants the
				// yielding command on top of the saved stack
				return OK
			}
			return in.popEval(stack, nil)
		}
		w := cmd.Words[f.cursor]
		f.cursor++
		switch n := w.(type) {
		case *ast.Literal:
			f.args = append(f.args, value.NewString(n.Text))
		case *ast.Backslash:
			f.args = append(f.args, value.NewString(n.Value))
		case *ast.SimpleVar:
			v, code := in.varGet(n.Name)
			if code != OK {
				return code
			}
			f.args = append(f.args, v)
		case *ast.Expand:
			*stack = append(*stack, &evalFrame{phase: phaseWord, node: n.Word, expand: true})
		default:
			*stack = append(*stack, &evalFrame{phase: phaseWord, node: w})
		}
		return OK

	default:
		return in.stepWord(stack, f)
	}
}

// stepWord advances a WORD frame.
func (in *Interp) stepWord(stack *[]*evalFrame, f *evalFrame) Code {
	switch n := f.node.(type) {
	case *ast.Literal:
		return in.popEval(stack, value.NewString(n.Text))
	case *ast.Backslash:
		return in.popEval(stack, value.NewString(n.Value))
	case *ast.SimpleVar:
		v, code := in.varGet(n.Name)
		if code != OK {
			return code
		}
		return in.popEval(stack, v)
	case *ast.ArrayVar:
		if f.cursor == 0 {
			// first step: evaluate the index subtree
			f.cursor = 1
			*stack = append(*stack, &evalFrame{phase: phaseWord, node: n.Index})
			return OK
		}
		v, code := in.varGet(n.Name + "(" + f.partial + ")")
		if code != OK {
			return code
		}
		return in.popEval(stack, v)
	case *ast.CmdSubst:
		if f.cursor == 0 {
			f.cursor = 1
			in.SetResult(value.Empty())
			*stack = append(*stack, &evalFrame{phase: phaseScript, node: n.Script})
			return OK
		}
		return in.popEval(stack, in.result)
	case *ast.Word:
		for f.cursor < len(n.Parts) {
			part := n.Parts[f.cursor]
			switch p := part.(type) {
			case *ast.Literal:
				f.partial += p.Text
				f.cursor++
			case *ast.Backslash:
				f.partial += p.Value
				f.cursor++
			default:
				f.cursor++
				*stack = append(*stack, &evalFrame{phase: phaseWord, node: part})
				return OK
			}
		}
		return in.popEval(stack, value.NewString(f.partial))
	default:
		return in.errorf("internal error: unexpected %T in word position", n)
	}
}

// popEval removes the top frame and delivers its result to the parent:
// argv for a COMMAND parent (spliced when the frame carries the expand
// flag), concatenation for a WORD parent.
func (in *Interp) popEval(stack *[]*evalFrame, v *value.Value) Code {
	f := (*stack)[len(*stack)-1]
	*stack = (*stack)[:len(*stack)-1]
	if v == nil || len(*stack) == 0 {
		return OK
	}
	parent := (*stack)[len(*stack)-1]
	switch parent.phase {
	case phaseCommand:
		if f.expand {
			elems, err := v.List()
			if err != nil {
				return in.errorf("%s", err.Error())
			}
			parent.args = append(parent.args, elems...)
			return OK
		}
		parent.args = append(parent.args, v)
	case phaseWord:
		parent.partial += v.String()
	}
	return OK
}
