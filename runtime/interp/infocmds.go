package interp

import (
	"sort"

	"github.com/aledsdavies/quill/runtime/lexer"
	"github.com/aledsdavies/quill/runtime/value"
)

func init() {
	registerBuiltin("info", builtinInfo)
	registerBuiltin("array", builtinArray)
}

// matchNames filters sorted names by an optional glob pattern.
func matchNames(names []string, pattern string) []*value.Value {
	out := make([]*value.Value, 0, len(names))
	for _, n := range names {
		if pattern == "" || globMatch(pattern, n) {
			out = append(out, value.NewString(n))
		}
	}
	return out
}

func builtinInfo(in *Interp, args []*value.Value) Code {
	if len(args) < 2 {
		return in.wrongArgs("info subcommand ?arg ...?")
	}
	sub := args[1].String()
	switch sub {
	case "exists":
		if len(args) != 3 {
			return in.wrongArgs("info exists varName")
		}
		in.SetResult(value.NewBool(in.varExists(args[2].String())))
		return OK

	case "args", "body":
		if len(args) != 3 {
			return in.wrongArgs("info " + sub + " procname")
		}
		p, ok := in.procs[args[2].String()]
		if !ok {
			return in.errorf("%q isn't a procedure", args[2].String())
		}
		if sub == "body" {
			in.setResultString(p.body)
			return OK
		}
		names := make([]*value.Value, len(p.params))
		for i, spec := range p.params {
			names[i] = value.NewString(spec.name)
		}
		in.SetResult(value.NewList(names...))
		return OK

	case "default":
		if len(args) != 5 {
			return in.wrongArgs("info default procname arg varname")
		}
		p, ok := in.procs[args[2].String()]
		if !ok {
			return in.errorf("%q isn't a procedure", args[2].String())
		}
		argName := args[3].String()
		for _, spec := range p.params {
			if spec.name != argName {
				continue
			}
			if spec.hasDef {
				in.varSet(args[4].String(), spec.def)
				in.SetResult(value.NewBool(true))
			} else {
				in.varSet(args[4].String(), value.Empty())
				in.SetResult(value.NewBool(false))
			}
			return OK
		}
		return in.errorf("procedure %q doesn't have an argument %q", args[2].String(), argName)

	case "commands":
		pattern := ""
		if len(args) == 3 {
			pattern = args[2].String()
		}
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
		sort.Strings(names)
		in.SetResult(value.NewList(matchNames(names, pattern)...))
		return OK

	case "procs":
		pattern := ""
		if len(args) == 3 {
			pattern = args[2].String()
		}
		names := make([]string, 0, len(in.procs))
		for n := range in.procs {
			names = append(names, n)
		}
		sort.Strings(names)
		in.SetResult(value.NewList(matchNames(names, pattern)...))
		return OK

	case "complete":
		if len(args) != 3 {
			return in.wrongArgs("info complete command")
		}
		in.SetResult(value.NewBool(scriptComplete(args[2].String())))
		return OK

	case "globals":
		pattern := ""
		if len(args) == 3 {
			pattern = args[2].String()
		}
		in.SetResult(value.NewList(matchNames(in.global.varNames(), pattern)...))
		return OK

	case "locals", "vars":
		pattern := ""
		if len(args) == 3 {
			pattern = args[2].String()
		}
		in.SetResult(value.NewList(matchNames(in.frame.varNames(), pattern)...))
		return OK

	case "level":
		if len(args) == 2 {
			in.SetResult(value.NewInt(int64(in.frame.level)))
			return OK
		}
		n, err := args[2].Int()
		if err != nil {
			return in.errorf("%s", err.Error())
		}
		// non-positive arguments are relative to the current level,
		// positive arguments are absolute
		target := int(n)
		if n <= 0 {
			target = in.frame.level + int(n)
		}
		f := in.frame
		for f != nil && f.level != target {
			f = f.parent
		}
		if f == nil || target <= 0 {
			return in.errorf("bad level %q", args[2].String())
		}
		if f.invocation == nil {
			return in.errorf("bad level %q", args[2].String())
		}
		in.SetResult(value.NewList(f.invocation...))
		return OK

	case "coroutine":
		if in.current != nil {
			in.setResultString(in.current.name)
		} else {
			in.SetResult(value.Empty())
		}
		return OK

	default:
		return in.errorf("unknown or ambiguous subcommand %q: must be args, body, commands, complete, coroutine, default, exists, globals, level, locals, procs, or vars", sub)
	}
}

// scriptComplete reports whether a script has no unterminated braces,
// quotes, or brackets, for REPL prompting.
func scriptComplete(src string) bool {
	sc := lexer.New(src)
	for {
		sc.SkipCommandSeparators()
		if sc.EOF() {
			return true
		}
		sc.SkipSpace()
		if sc.EOF() || sc.AtCommandEnd() {
			continue
		}
		if _, err := sc.Next(); err != nil {
			return false
		}
	}
}

func builtinArray(in *Interp, args []*value.Value) Code {
	if len(args) < 3 {
		return in.wrongArgs("array subcommand arrayName ?arg ...?")
	}
	sub := args[1].String()
	name := args[2].String()
	arr, exists := in.arrayFor(name)

	switch sub {
	case "exists":
		in.SetResult(value.NewBool(exists))
		return OK
	case "size":
		in.SetResult(value.NewInt(int64(len(arr))))
		return OK
	case "names":
		pattern := ""
		if len(args) == 4 {
			pattern = args[3].String()
		}
		keys := make([]string, 0, len(arr))
		for k := range arr {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		in.SetResult(value.NewList(matchNames(keys, pattern)...))
		return OK
	case "get":
		keys := make([]string, 0, len(arr))
		for k := range arr {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]*value.Value, 0, 2*len(keys))
		for _, k := range keys {
			out = append(out, value.NewString(k), arr[k])
		}
		in.SetResult(value.NewList(out...))
		return OK
	case "set":
		if len(args) != 4 {
			return in.wrongArgs("array set arrayName list")
		}
		elems, err := args[3].List()
		if err != nil {
			return in.errorf("%s", err.Error())
		}
		if len(elems)%2 != 0 {
			return in.errorf("list must have an even number of elements")
		}
		for i := 0; i < len(elems); i += 2 {
			in.varSet(name+"("+elems[i].String()+")", elems[i+1])
		}
		in.SetResult(value.Empty())
		return OK
	case "unset":
		if len(args) == 3 {
			in.varUnset(name)
		} else {
			pattern := args[3].String()
			for k := range arr {
				if globMatch(pattern, k) {
					in.varUnset(name + "(" + k + ")")
				}
			}
		}
		in.SetResult(value.Empty())
		return OK
	default:
		return in.errorf("unknown or ambiguous subcommand %q: must be exists, get, names, set, size, or unset", sub)
	}
}
