package interp

import (
	"github.com/aledsdavies/quill/core/ast"
	"github.com/aledsdavies/quill/runtime/value"
)

// A Continuation is a persistent snapshot of the evaluator's frame
// stack, sufficient to resume execution without re-running prior code.
// Snapshot frames are deep copies, never aliases of the transient
// stack; the syntax tree itself is shared, which is why script-running
// commands parse through the interpreter's content-addressed cache.
//
// Continuations chain: when a yield unwinds through nested script
// evaluations (a loop body inside a procedure inside a coroutine), each
// level saves its own stack and links the one below it through inner.
// On resume the chain unwinds in reverse - restoring a level re-arms
// the single-slot stash with its inner continuation so the command
// re-dispatched at the top of that level finds exactly the state it
// needs to re-enter its script.
type Continuation struct {
	top       *contFrame
	script    *ast.Script
	execFrame *Frame
	inner     *Continuation
	// popYield is set on the innermost continuation: its top frame is
	// the command that called yield, and resumption continues after it.
	popYield bool
	// loopState carries iteration state for loop commands that cannot
	// recover it from script variables (foreach's list cursor, lmap's
	// accumulator).
	loopState any
}

// contFrame mirrors an evalFrame with values duplicated into persistent
// storage. Frames chain through parent links from the stack top down.
type contFrame struct {
	phase   phase
	node    ast.Node
	cursor  int
	args    []*value.Value
	partial string
	expand  bool
	parent  *contFrame
}

// saveContinuation snapshots the stack, chains any deeper continuation
// already stashed, and arms the single slot for the enclosing runner.
func (in *Interp) saveContinuation(stack []*evalFrame, script *ast.Script) {
	var top, prev *contFrame
	for i := len(stack) - 1; i >= 0; i-- {
		f := stack[i]
		cf := &contFrame{
			phase:   f.phase,
			node:    f.node,
			cursor:  f.cursor,
			partial: f.partial,
			expand:  f.expand,
		}
		if len(f.args) > 0 {
			cf.args = make([]*value.Value, len(f.args))
			for j, a := range f.args {
				cf.args[j] = a.Dup()
			}
		}
		if prev == nil {
			top = cf
		} else {
			prev.parent = cf
		}
		prev = cf
	}
	c := &Continuation{
		top:       top,
		script:    script,
		execFrame: in.frame,
		inner:     in.innerCont,
	}
	c.popYield = c.inner == nil
	in.innerCont = c
	in.logger.Debug("continuation saved", "frames", len(stack), "popYield", c.popYield)
}

// rebuild reconstructs a fresh transient stack, bottom-to-top, so the
// stack top matches what existed at yield.
func (c *Continuation) rebuild() []*evalFrame {
	var chain []*contFrame
	for cf := c.top; cf != nil; cf = cf.parent {
		chain = append(chain, cf)
	}
	stack := make([]*evalFrame, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		cf := chain[i]
		f := &evalFrame{
			phase:   cf.phase,
			node:    cf.node,
			cursor:  cf.cursor,
			partial: cf.partial,
			expand:  cf.expand,
		}
		if len(cf.args) > 0 {
			f.args = make([]*value.Value, len(cf.args))
			for j, a := range cf.args {
				f.args[j] = a.Dup()
			}
		}
		stack = append(stack, f)
	}
	return stack
}

// takeCont claims the stashed continuation if it belongs to the given
// script. Script-running commands call this on entry: a non-nil result
// means the command is being re-dispatched to resume a suspension that
// unwound through it.
func (in *Interp) takeCont(s *ast.Script) *Continuation {
	if in.innerCont != nil && in.innerCont.script == s {
		c := in.innerCont
		in.innerCont = nil
		return c
	}
	return nil
}
