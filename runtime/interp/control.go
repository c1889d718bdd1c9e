package interp

import (
	"github.com/aledsdavies/quill/core/ast"
	"github.com/aledsdavies/quill/runtime/value"
)

func init() {
	registerBuiltin("if", builtinIf)
	registerBuiltin("while", builtinWhile)
	registerBuiltin("for", builtinFor)
	registerBuiltin("foreach", builtinForeach)
	registerBuiltin("lmap", builtinLmap)
	registerBuiltin("break", builtinBreak)
	registerBuiltin("continue", builtinContinue)
}

func builtinBreak(in *Interp, args []*value.Value) Code {
	if len(args) != 1 {
		return in.wrongArgs("break")
	}
	in.SetResult(value.Empty())
	return Break
}

func builtinContinue(in *Interp, args []*value.Value) Code {
	if len(args) != 1 {
		return in.wrongArgs("continue")
	}
	in.SetResult(value.Empty())
	return Continue
}

// ifClause is one condition/body pair of an if chain.
type ifClause struct {
	cond string // empty for the else arm
	body *ast.Script
}

// builtinIf implements: if expr ?then? body ?elseif expr ?then? body
// ...? ??else? body?
//
// When a suspension unwound through one of the bodies, the re-dispatch
// resumes that body directly; the conditions are not re-evaluated.
func builtinIf(in *Interp, args []*value.Value) Code {
	var clauses []ifClause
	i := 1
	for {
		if i >= len(args) {
			return in.errorf(`wrong # args: no expression after "%s" argument`, args[i-1].String())
		}
		cond := args[i].String()
		i++
		if i < len(args) && args[i].String() == "then" {
			i++
		}
		if i >= len(args) {
			return in.errorf(`wrong # args: no script following "%s" argument`, args[i-1].String())
		}
		body, err := in.cachedScript(args[i].String(), in.line)
		if err != nil {
			return in.errorf("%s", err.Error())
		}
		clauses = append(clauses, ifClause{cond: cond, body: body})
		i++

		if i >= len(args) {
			break
		}
		switch args[i].String() {
		case "elseif":
			i++
			continue
		case "else":
			i++
			if i >= len(args) {
				return in.errorf(`wrong # args: no script following "else" argument`)
			}
			body, err := in.cachedScript(args[i].String(), in.line)
			if err != nil {
				return in.errorf("%s", err.Error())
			}
			clauses = append(clauses, ifClause{body: body})
			i++
			if i < len(args) {
				return in.errorf(`wrong # args: extra words after "else" clause in "if" command`)
			}
		default:
			return in.errorf(`invalid argument %q after body of "if" command`, args[i].String())
		}
		if i >= len(args) {
			break
		}
	}

	// resumption: find the body the suspension belongs to
	for _, c := range clauses {
		if cont := in.takeCont(c.body); cont != nil {
			return in.evalScriptCont(c.body, cont)
		}
	}

	for _, c := range clauses {
		if c.cond != "" {
			t, code := in.exprTruth(c.cond)
			if code != OK {
				return code
			}
			if !t {
				continue
			}
		}
		return in.evalScriptCont(c.body, nil)
	}
	in.SetResult(value.Empty())
	return OK
}

// builtinWhile implements: while test body
//
// The test re-substitutes and re-evaluates each iteration; the loop
// counter therefore lives in script variables and survives suspension
// without replaying. Resuming re-enters the body mid-flight through
// the stashed continuation and only then returns to the test.
func builtinWhile(in *Interp, args []*value.Value) Code {
	if len(args) != 3 {
		return in.wrongArgs("while test command")
	}
	test := args[1].String()
	body, err := in.cachedScript(args[2].String(), in.line)
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	cont := in.takeCont(body)
	for {
		if cont == nil {
			t, code := in.exprTruth(test)
			if code != OK {
				return code
			}
			if !t {
				break
			}
		}
		code := in.evalScriptCont(body, cont)
		cont = nil
		if in.suspended() {
			return OK
		}
		switch code {
		case OK, Continue:
		case Break:
			in.SetResult(value.Empty())
			return OK
		default:
			return code
		}
	}
	in.SetResult(value.Empty())
	return OK
}

// builtinFor implements: for start test next body
func builtinFor(in *Interp, args []*value.Value) Code {
	if len(args) != 5 {
		return in.wrongArgs("for start test next command")
	}
	test := args[2].String()
	next, err := in.cachedScript(args[3].String(), in.line)
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	body, err := in.cachedScript(args[4].String(), in.line)
	if err != nil {
		return in.errorf("%s", err.Error())
	}

	bodyCont := in.takeCont(body)
	nextCont := in.takeCont(next)
	if bodyCont == nil && nextCont == nil {
		// the start script runs once; evalValue resumes it by itself if
		// the suspension happened there
		code := in.evalValue(args[1], in.line)
		if in.suspended() {
			return OK
		}
		if code != OK {
			return code
		}
	}

	for {
		if bodyCont == nil && nextCont == nil {
			t, code := in.exprTruth(test)
			if code != OK {
				return code
			}
			if !t {
				break
			}
		}
		if nextCont == nil {
			code := in.evalScriptCont(body, bodyCont)
			bodyCont = nil
			if in.suspended() {
				return OK
			}
			switch code {
			case OK, Continue:
			case Break:
				in.SetResult(value.Empty())
				return OK
			default:
				return code
			}
		}
		code := in.evalScriptCont(next, nextCont)
		nextCont = nil
		if in.suspended() {
			return OK
		}
		if code != OK {
			return code
		}
	}
	in.SetResult(value.Empty())
	return OK
}

// foreachPair is one varList/valueList pair of a foreach or lmap.
type foreachPair struct {
	vars  []*value.Value
	elems []*value.Value
}

// foreachState is the iteration cursor a loop stores on the stashed
// continuation when its body suspends; the list position cannot be
// recovered from script variables.
type foreachState struct {
	iter int
	acc  []*value.Value // lmap results collected so far
}

func parseForeachPairs(in *Interp, args []*value.Value) ([]foreachPair, *ast.Script, Code) {
	if len(args) < 4 || len(args)%2 != 0 {
		return nil, nil, in.wrongArgs(args[0].String() + " varList list ?varList list ...? command")
	}
	body, err := in.cachedScript(args[len(args)-1].String(), in.line)
	if err != nil {
		return nil, nil, in.errorf("%s", err.Error())
	}
	var pairs []foreachPair
	for i := 1; i < len(args)-1; i += 2 {
		vars, err := args[i].List()
		if err != nil {
			return nil, nil, in.errorf("%s", err.Error())
		}
		if len(vars) == 0 {
			return nil, nil, in.errorf("foreach varlist is empty")
		}
		elems, err := args[i+1].List()
		if err != nil {
			return nil, nil, in.errorf("%s", err.Error())
		}
		pairs = append(pairs, foreachPair{vars: vars, elems: elems})
	}
	return pairs, body, OK
}

func (in *Interp) foreachIterations(pairs []foreachPair) int {
	iters := 0
	for _, p := range pairs {
		n := (len(p.elems) + len(p.vars) - 1) / len(p.vars)
		if n > iters {
			iters = n
		}
	}
	return iters
}

// bindForeachVars assigns each pair's variables for iteration i,
// filling exhausted lists with empty strings.
func (in *Interp) bindForeachVars(pairs []foreachPair, iter int) {
	for _, p := range pairs {
		base := iter * len(p.vars)
		for vi, v := range p.vars {
			if base+vi < len(p.elems) {
				in.varSet(v.String(), p.elems[base+vi])
			} else {
				in.varSet(v.String(), value.Empty())
			}
		}
	}
}

func builtinForeach(in *Interp, args []*value.Value) Code {
	pairs, body, pcode := parseForeachPairs(in, args)
	if pcode != OK {
		return pcode
	}
	iters := in.foreachIterations(pairs)

	start := 0
	cont := in.takeCont(body)
	if cont != nil {
		if st, ok := cont.loopState.(foreachState); ok {
			start = st.iter
		}
	}

	for i := start; i < iters; i++ {
		if cont == nil {
			in.bindForeachVars(pairs, i)
		}
		code := in.evalScriptCont(body, cont)
		cont = nil
		if in.suspended() {
			in.innerCont.loopState = foreachState{iter: i}
			return OK
		}
		switch code {
		case OK, Continue:
		case Break:
			in.SetResult(value.Empty())
			return OK
		default:
			return code
		}
	}
	in.SetResult(value.Empty())
	return OK
}

// builtinLmap is foreach that collects each iteration's result into a
// list.
func builtinLmap(in *Interp, args []*value.Value) Code {
	pairs, body, pcode := parseForeachPairs(in, args)
	if pcode != OK {
		return pcode
	}
	iters := in.foreachIterations(pairs)

	start := 0
	var acc []*value.Value
	cont := in.takeCont(body)
	if cont != nil {
		if st, ok := cont.loopState.(foreachState); ok {
			start = st.iter
			acc = st.acc
		}
	}

	for i := start; i < iters; i++ {
		if cont == nil {
			in.bindForeachVars(pairs, i)
		}
		code := in.evalScriptCont(body, cont)
		cont = nil
		if in.suspended() {
			in.innerCont.loopState = foreachState{iter: i, acc: acc}
			return OK
		}
		switch code {
		case OK:
			acc = append(acc, in.result.Dup())
		case Continue:
		case Break:
			in.SetResult(value.NewList(acc...))
			return OK
		default:
			return code
		}
	}
	in.SetResult(value.NewList(acc...))
	return OK
}
