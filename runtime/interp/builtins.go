package interp

import (
	"strings"

	"github.com/aledsdavies/quill/runtime/expr"
	"github.com/aledsdavies/quill/runtime/value"
)

func init() {
	registerBuiltin("set", builtinSet)
	registerBuiltin("unset", builtinUnset)
	registerBuiltin("incr", builtinIncr)
	registerBuiltin("append", builtinAppend)
	registerBuiltin("proc", builtinProc)
	registerBuiltin("apply", builtinApply)
	registerBuiltin("return", builtinReturn)
	registerBuiltin("error", builtinError)
	registerBuiltin("throw", builtinThrow)
	registerBuiltin("expr", builtinExpr)
	registerBuiltin("eval", builtinEval)
	registerBuiltin("concat", builtinConcat)
	registerBuiltin("uplevel", builtinUplevel)
	registerBuiltin("upvar", builtinUpvar)
	registerBuiltin("global", builtinGlobal)
	registerBuiltin("rename", builtinRename)
	registerBuiltin("catch", builtinCatch)
	registerBuiltin("try", builtinTry)
	registerBuiltin("switch", builtinSwitch)
}

func (in *Interp) wrongArgs(usage string) Code {
	return in.errorf("wrong # args: should be %q", usage)
}

func builtinSet(in *Interp, args []*value.Value) Code {
	switch len(args) {
	case 2:
		v, code := in.varGet(args[1].String())
		if code != OK {
			return code
		}
		in.SetResult(v)
		return OK
	case 3:
		in.varSet(args[1].String(), args[2])
		in.SetResult(args[2])
		return OK
	default:
		return in.wrongArgs("set varName ?newValue?")
	}
}

func builtinUnset(in *Interp, args []*value.Value) Code {
	complain := true
	i := 1
	for ; i < len(args); i++ {
		switch args[i].String() {
		case "-nocomplain":
			complain = false
			continue
		case "--":
			i++
		}
		break
	}
	for ; i < len(args); i++ {
		name := args[i].String()
		if !in.varUnset(name) && complain {
			return in.errorf("can't unset %q: no such variable", name)
		}
	}
	in.SetResult(value.Empty())
	return OK
}

func builtinIncr(in *Interp, args []*value.Value) Code {
	if len(args) < 2 || len(args) > 3 {
		return in.wrongArgs("incr varName ?increment?")
	}
	name := args[1].String()
	delta := int64(1)
	if len(args) == 3 {
		d, err := args[2].Int()
		if err != nil {
			return in.errorf("%s", err.Error())
		}
		delta = d
	}
	// a missing variable starts from zero
	cur := int64(0)
	if v, ok := in.varRead(name); ok {
		i, err := v.Int()
		if err != nil {
			return in.errorf("%s", err.Error())
		}
		cur = i
	}
	result := value.NewInt(cur + delta)
	in.varSet(name, result)
	in.SetResult(result)
	return OK
}

func builtinAppend(in *Interp, args []*value.Value) Code {
	if len(args) < 2 {
		return in.wrongArgs("append varName ?value ...?")
	}
	name := args[1].String()
	var b strings.Builder
	if v, ok := in.varRead(name); ok {
		b.WriteString(v.String())
	}
	for _, a := range args[2:] {
		b.WriteString(a.String())
	}
	result := value.NewString(b.String())
	in.varSet(name, result)
	in.SetResult(result)
	return OK
}

func builtinProc(in *Interp, args []*value.Value) Code {
	if len(args) != 4 {
		return in.wrongArgs("proc name args body")
	}
	name := args[1].String()
	params, variadic, err := parseParams(args[2])
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	in.procs[name] = &Proc{
		name:     name,
		params:   params,
		variadic: variadic,
		body:     args[3].String(),
		bodyLine: in.line,
	}
	in.SetResult(value.Empty())
	return OK
}

// builtinApply implements: apply {params body ?namespace?} ?arg ...?
func builtinApply(in *Interp, args []*value.Value) Code {
	if len(args) < 2 {
		return in.wrongArgs("apply lambdaExpr ?arg ...?")
	}
	lambda, err := args[1].List()
	if err != nil || len(lambda) < 2 || len(lambda) > 3 {
		return in.errorf("can't interpret %q as a lambda expression", args[1].String())
	}
	params, variadic, err := parseParams(lambda[0])
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	p := &Proc{
		name:     "apply",
		params:   params,
		variadic: variadic,
		body:     lambda[1].String(),
		bodyLine: in.line,
	}
	// argument 0 of the call is the lambda itself
	return in.callProc(p, args[1:])
}

func codeFromName(s string) (Code, bool) {
	switch s {
	case "ok", "0":
		return OK, true
	case "error", "1":
		return Error, true
	case "return", "2":
		return Return, true
	case "break", "3":
		return Break, true
	case "continue", "4":
		return Continue, true
	}
	return OK, false
}

// builtinReturn implements: return ?-code code? ?-level level? ?value?
func builtinReturn(in *Interp, args []*value.Value) Code {
	level := int64(1)
	rcode := OK
	i := 1
	for i+1 < len(args) {
		switch args[i].String() {
		case "-code":
			c, ok := codeFromName(args[i+1].String())
			if !ok {
				return in.errorf("bad completion code %q: must be ok, error, return, break, continue, or an integer", args[i+1].String())
			}
			rcode = c
			i += 2
		case "-level":
			n, err := args[i+1].Int()
			if err != nil || n < 0 {
				return in.errorf("bad -level value: expected non-negative integer but got %q", args[i+1].String())
			}
			level = n
			i += 2
		default:
			goto options_done
		}
	}
options_done:
	result := value.Empty()
	switch len(args) - i {
	case 0:
	case 1:
		result = args[i]
	default:
		return in.wrongArgs("return ?-code code? ?-level level? ?result?")
	}
	if level == 0 {
		if rcode == Error {
			return in.errorValue(result)
		}
		in.SetResult(result)
		return rcode
	}
	in.returnLevel = int(level)
	in.returnCode = rcode
	in.SetResult(result)
	return Return
}

// builtinError implements: error message ?info? ?code?
func builtinError(in *Interp, args []*value.Value) Code {
	if len(args) < 2 || len(args) > 4 {
		return in.wrongArgs("error message ?errorInfo? ?errorCode?")
	}
	code := in.errorValue(args[1])
	if len(args) >= 3 && !args[2].IsEmpty() {
		in.errorInfo = args[2].String()
		in.errSeeded = true
		in.mirrorErrorVars()
	}
	if len(args) == 4 {
		in.SetErrorCode(args[3])
	}
	return code
}

// builtinThrow implements: throw type message
func builtinThrow(in *Interp, args []*value.Value) Code {
	if len(args) != 3 {
		return in.wrongArgs("throw type message")
	}
	code := in.errorValue(args[2])
	in.SetErrorCode(args[1])
	return code
}

// builtinExpr concatenates its arguments, runs full substitution on the
// result, and hands the substituted text to the expression evaluator.
func builtinExpr(in *Interp, args []*value.Value) Code {
	if len(args) < 2 {
		return in.wrongArgs("expr arg ?arg ...?")
	}
	parts := make([]string, len(args)-1)
	for i, a := range args[1:] {
		parts[i] = a.String()
	}
	src, code := in.Subst(strings.Join(parts, " "), SubstAll)
	if code != OK {
		return code
	}
	v, err := expr.Eval(src.String())
	if err != nil {
		return in.errorValue(value.NewString(err.Error()))
	}
	in.SetResult(v)
	return OK
}

// exprTruth substitutes and evaluates a condition string, used by the
// control-flow commands.
func (in *Interp) exprTruth(src string) (bool, Code) {
	sub, code := in.Subst(src, SubstAll)
	if code != OK {
		return false, code
	}
	b, err := expr.EvalTruth(sub.String())
	if err != nil {
		return false, in.errorValue(value.NewString(err.Error()))
	}
	return b, OK
}

func builtinEval(in *Interp, args []*value.Value) Code {
	if len(args) < 2 {
		return in.wrongArgs("eval arg ?arg ...?")
	}
	return in.evalValue(concatValues(args[1:]), in.line)
}

// concatValues joins arguments with single spaces, trimming each, the
// way concat and eval assemble scripts.
func concatValues(args []*value.Value) *value.Value {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		t := strings.TrimSpace(a.String())
		if t != "" {
			parts = append(parts, t)
		}
	}
	return value.NewString(strings.Join(parts, " "))
}

func builtinConcat(in *Interp, args []*value.Value) Code {
	in.SetResult(concatValues(args[1:]))
	return OK
}

// builtinUplevel implements: uplevel ?level? arg ?arg ...?
func builtinUplevel(in *Interp, args []*value.Value) Code {
	i := 1
	spec := "1"
	if len(args) > 2 && looksLikeLevel(args[1].String()) {
		spec = args[1].String()
		i = 2
	}
	if i >= len(args) {
		return in.wrongArgs("uplevel ?level? command ?arg ...?")
	}
	target, err := in.frameAtLevel(spec)
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	saved := in.frame
	in.frame = target
	code := in.evalValue(concatValues(args[i:]), in.line)
	in.frame = saved
	return code
}

// builtinUpvar implements: upvar ?level? otherVar myVar ?otherVar myVar ...?
func builtinUpvar(in *Interp, args []*value.Value) Code {
	i := 1
	spec := "1"
	if len(args) > 3 && len(args)%2 == 0 && looksLikeLevel(args[1].String()) {
		spec = args[1].String()
		i = 2
	}
	if (len(args)-i)%2 != 0 || len(args)-i == 0 {
		return in.wrongArgs("upvar ?level? otherVar localVar ?otherVar localVar ...?")
	}
	target, err := in.frameAtLevel(spec)
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	for ; i < len(args); i += 2 {
		in.frame.linkVar(args[i+1].String(), target, args[i].String())
	}
	in.SetResult(value.Empty())
	return OK
}

// builtinGlobal links each name in the current frame to the same-named
// global variable.
func builtinGlobal(in *Interp, args []*value.Value) Code {
	if len(args) < 2 {
		return in.wrongArgs("global varName ?varName ...?")
	}
	for _, a := range args[1:] {
		name := a.String()
		if in.frame != in.global {
			in.frame.linkVar(name, in.global, name)
		}
	}
	in.SetResult(value.Empty())
	return OK
}

// builtinRename implements: rename oldName newName. An empty newName
// deletes the command.
func builtinRename(in *Interp, args []*value.Value) Code {
	if len(args) != 3 {
		return in.wrongArgs("rename oldName newName")
	}
	oldName, newName := args[1].String(), args[2].String()
	p, ok := in.procs[oldName]
	if !ok {
		if lookupBuiltin(oldName) != nil {
			return in.errorf("can't rename built-in command %q", oldName)
		}
		return in.errorf("can't rename %q: command doesn't exist", oldName)
	}
	delete(in.procs, oldName)
	if newName != "" {
		p.name = newName
		in.procs[newName] = p
	}
	in.SetResult(value.Empty())
	return OK
}

// builtinCatch implements: catch script ?resultVar? ?optionsVar?
//
// catch never propagates: every result code converts to OK and the raw
// code is reported as an integer.
func builtinCatch(in *Interp, args []*value.Value) Code {
	if len(args) < 2 || len(args) > 4 {
		return in.wrongArgs("catch script ?resultVarName? ?optionVarName?")
	}
	code := in.evalValue(args[1], in.line)
	if in.suspended() {
		return OK
	}
	if len(args) >= 3 {
		in.varSet(args[2].String(), in.result)
	}
	if len(args) == 4 {
		opts := []*value.Value{
			value.NewString("-code"), value.NewInt(int64(code)),
			value.NewString("-level"), value.NewInt(0),
		}
		if code == Error {
			opts = append(opts,
				value.NewString("-errorinfo"), value.NewString(in.errorInfo),
				value.NewString("-errorcode"), in.errorCode)
		}
		in.varSet(args[3].String(), value.NewList(opts...))
	}
	in.SetResult(value.NewInt(int64(code)))
	return OK
}

// tryHandler is one parsed on/trap arm.
type tryHandler struct {
	trap    bool
	code    Code         // for on
	pattern *value.Value // for trap: errorCode prefix
	vars    []*value.Value
	body    *value.Value
}

// builtinTry implements:
//
//	try body ?on code varList body ...? ?trap pattern varList body ...?
//	    ?finally body?
func builtinTry(in *Interp, args []*value.Value) Code {
	if len(args) < 2 {
		return in.wrongArgs("try body ?handler ...? ?finally script?")
	}
	var handlers []tryHandler
	var finally *value.Value
	i := 2
	for i < len(args) {
		switch args[i].String() {
		case "on":
			if i+3 >= len(args) {
				return in.errorf("wrong # args to on clause: must be %q", "... on code variableList script")
			}
			c, ok := codeFromName(args[i+1].String())
			if !ok {
				return in.errorf("bad completion code %q: must be ok, error, return, break, continue, or an integer", args[i+1].String())
			}
			vars, err := args[i+2].List()
			if err != nil {
				return in.errorf("%s", err.Error())
			}
			handlers = append(handlers, tryHandler{code: c, vars: vars, body: args[i+3]})
			i += 4
		case "trap":
			if i+3 >= len(args) {
				return in.errorf("wrong # args to trap clause: must be %q", "... trap pattern variableList script")
			}
			vars, err := args[i+2].List()
			if err != nil {
				return in.errorf("%s", err.Error())
			}
			handlers = append(handlers, tryHandler{trap: true, pattern: args[i+1], vars: vars, body: args[i+3]})
			i += 4
		case "finally":
			if i+1 >= len(args) || i+2 != len(args) {
				return in.errorf("wrong # args to finally clause: must be %q", "... finally script")
			}
			finally = args[i+1]
			i += 2
		default:
			return in.errorf("bad handler %q: must be on, trap, or finally", args[i].String())
		}
	}

	code := in.evalValue(args[1], in.line)
	if in.suspended() {
		return OK
	}
	result := in.result
	errInfo, errCode := in.errorInfo, in.errorCode

	for _, h := range handlers {
		if !h.matches(code, errCode) {
			continue
		}
		if len(h.vars) >= 1 {
			in.varSet(h.vars[0].String(), result)
		}
		if len(h.vars) >= 2 {
			opts := []*value.Value{
				value.NewString("-code"), value.NewInt(int64(code)),
				value.NewString("-errorinfo"), value.NewString(errInfo),
				value.NewString("-errorcode"), errCode,
			}
			in.varSet(h.vars[1].String(), value.NewList(opts...))
		}
		code = in.evalValue(h.body, in.line)
		if in.suspended() {
			return OK
		}
		break
	}

	if finally != nil {
		saved := in.result
		fcode := in.evalValue(finally, in.line)
		if in.suspended() {
			return OK
		}
		if fcode != OK {
			// a failing finally supersedes the body's outcome
			return fcode
		}
		in.SetResult(saved)
	}
	return code
}

func (h tryHandler) matches(code Code, errCode *value.Value) bool {
	if h.trap {
		if code != Error {
			return false
		}
		want, err := h.pattern.List()
		if err != nil {
			return false
		}
		have, err := errCode.List()
		if err != nil || len(have) < len(want) {
			return false
		}
		for i := range want {
			if want[i].String() != have[i].String() {
				return false
			}
		}
		return true
	}
	return h.code == code
}

// builtinSwitch implements: switch ?-exact|-glob? ?--? value {pattern
// body ...} with default arms and - fallthrough bodies.
func builtinSwitch(in *Interp, args []*value.Value) Code {
	mode := "-exact"
	i := 1
	for i < len(args) {
		s := args[i].String()
		if s == "-exact" || s == "-glob" {
			mode = s
			i++
			continue
		}
		if s == "--" {
			i++
		}
		break
	}
	if i >= len(args) {
		return in.wrongArgs("switch ?options? string pattern body ?pattern body ...?")
	}
	subject := args[i].String()
	i++

	var arms []*value.Value
	if len(args)-i == 1 {
		list, err := args[i].List()
		if err != nil {
			return in.errorf("%s", err.Error())
		}
		arms = list
	} else {
		arms = args[i:]
	}
	if len(arms) == 0 || len(arms)%2 != 0 {
		return in.errorf("extra switch pattern with no body")
	}

	for j := 0; j < len(arms); j += 2 {
		pat := arms[j].String()
		match := pat == "default" && j == len(arms)-2
		if !match {
			if mode == "-glob" {
				match = globMatch(pat, subject)
			} else {
				match = pat == subject
			}
		}
		if !match {
			continue
		}
		// a - body falls through to the next arm's body
		for j < len(arms) && arms[j+1].String() == "-" {
			j += 2
		}
		if j >= len(arms) {
			return in.errorf("no body specified for pattern %q", pat)
		}
		return in.evalValue(arms[j+1], in.line)
	}
	in.SetResult(value.Empty())
	return OK
}
