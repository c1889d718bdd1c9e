package interp

import (
	"sort"
	"strconv"
	"strings"

	"github.com/aledsdavies/quill/runtime/value"
)

func init() {
	registerBuiltin("list", builtinList)
	registerBuiltin("llength", builtinLlength)
	registerBuiltin("lindex", builtinLindex)
	registerBuiltin("lrange", builtinLrange)
	registerBuiltin("lappend", builtinLappend)
	registerBuiltin("linsert", builtinLinsert)
	registerBuiltin("lreplace", builtinLreplace)
	registerBuiltin("lremove", builtinLremove)
	registerBuiltin("lrepeat", builtinLrepeat)
	registerBuiltin("lreverse", builtinLreverse)
	registerBuiltin("lsort", builtinLsort)
	registerBuiltin("lsearch", builtinLsearch)
	registerBuiltin("lseq", builtinLseq)
	registerBuiltin("lset", builtinLset)
	registerBuiltin("lpop", builtinLpop)
	registerBuiltin("lassign", builtinLassign)
	registerBuiltin("ledit", builtinLedit)
	registerBuiltin("join", builtinJoin)
	registerBuiltin("split", builtinSplit)
}

// parseIndex resolves a list index: an integer, end, or end+-N.
func parseIndex(s string, length int) (int, error) {
	if s == "end" {
		return length - 1, nil
	}
	if strings.HasPrefix(s, "end-") || strings.HasPrefix(s, "end+") {
		n, err := strconv.Atoi(s[3:])
		if err != nil {
			return 0, badIndex(s)
		}
		return length - 1 + n, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, badIndex(s)
	}
	return n, nil
}

func badIndex(s string) error {
	return &indexError{s}
}

type indexError struct{ spec string }

func (e *indexError) Error() string {
	return "bad index \"" + e.spec + "\": must be integer?[+-]integer? or end?[+-]integer?"
}

func builtinList(in *Interp, args []*value.Value) Code {
	in.SetResult(value.NewList(args[1:]...))
	return OK
}

func builtinLlength(in *Interp, args []*value.Value) Code {
	if len(args) != 2 {
		return in.wrongArgs("llength list")
	}
	elems, err := args[1].List()
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	in.SetResult(value.NewInt(int64(len(elems))))
	return OK
}

func builtinLindex(in *Interp, args []*value.Value) Code {
	if len(args) < 2 {
		return in.wrongArgs("lindex list ?index ...?")
	}
	cur := args[1]
	for _, idxArg := range args[2:] {
		elems, err := cur.List()
		if err != nil {
			return in.errorf("%s", err.Error())
		}
		i, err := parseIndex(idxArg.String(), len(elems))
		if err != nil {
			return in.errorf("%s", err.Error())
		}
		if i < 0 || i >= len(elems) {
			in.SetResult(value.Empty())
			return OK
		}
		cur = elems[i]
	}
	in.SetResult(cur)
	return OK
}

func builtinLrange(in *Interp, args []*value.Value) Code {
	if len(args) != 4 {
		return in.wrongArgs("lrange list first last")
	}
	elems, err := args[1].List()
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	first, err := parseIndex(args[2].String(), len(elems))
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	last, err := parseIndex(args[3].String(), len(elems))
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	if first < 0 {
		first = 0
	}
	if last >= len(elems) {
		last = len(elems) - 1
	}
	if first > last {
		in.SetResult(value.Empty())
		return OK
	}
	in.SetResult(value.NewList(elems[first : last+1]...))
	return OK
}

func builtinLappend(in *Interp, args []*value.Value) Code {
	if len(args) < 2 {
		return in.wrongArgs("lappend varName ?value ...?")
	}
	name := args[1].String()
	var elems []*value.Value
	if v, ok := in.varRead(name); ok {
		list, err := v.List()
		if err != nil {
			return in.errorf("%s", err.Error())
		}
		elems = append(elems, list...)
	}
	elems = append(elems, args[2:]...)
	result := value.NewList(elems...)
	in.varSet(name, result)
	in.SetResult(result)
	return OK
}

func builtinLinsert(in *Interp, args []*value.Value) Code {
	if len(args) < 3 {
		return in.wrongArgs("linsert list index ?element ...?")
	}
	elems, err := args[1].List()
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	// end means after the last element here
	idx := len(elems)
	if args[2].String() != "end" {
		idx, err = parseIndex(args[2].String(), len(elems))
		if err != nil {
			return in.errorf("%s", err.Error())
		}
	}
	if idx < 0 {
		idx = 0
	}
	if idx > len(elems) {
		idx = len(elems)
	}
	out := make([]*value.Value, 0, len(elems)+len(args)-3)
	out = append(out, elems[:idx]...)
	out = append(out, args[3:]...)
	out = append(out, elems[idx:]...)
	in.SetResult(value.NewList(out...))
	return OK
}

// replaceRange rebuilds a list with [first,last] replaced by repl.
func replaceRange(elems []*value.Value, first, last int, repl []*value.Value) []*value.Value {
	if first < 0 {
		first = 0
	}
	if first > len(elems) {
		first = len(elems)
	}
	if last < first-1 {
		last = first - 1
	}
	if last >= len(elems) {
		last = len(elems) - 1
	}
	out := make([]*value.Value, 0, len(elems))
	out = append(out, elems[:first]...)
	out = append(out, repl...)
	if last+1 <= len(elems) {
		out = append(out, elems[last+1:]...)
	}
	return out
}

func builtinLreplace(in *Interp, args []*value.Value) Code {
	if len(args) < 4 {
		return in.wrongArgs("lreplace list first last ?element ...?")
	}
	elems, err := args[1].List()
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	first, err := parseIndex(args[2].String(), len(elems))
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	last, err := parseIndex(args[3].String(), len(elems))
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	in.SetResult(value.NewList(replaceRange(elems, first, last, args[4:])...))
	return OK
}

func builtinLremove(in *Interp, args []*value.Value) Code {
	if len(args) < 2 {
		return in.wrongArgs("lremove list ?index ...?")
	}
	elems, err := args[1].List()
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	drop := make(map[int]bool, len(args)-2)
	for _, a := range args[2:] {
		i, err := parseIndex(a.String(), len(elems))
		if err != nil {
			return in.errorf("%s", err.Error())
		}
		if i >= 0 && i < len(elems) {
			drop[i] = true
		}
	}
	out := make([]*value.Value, 0, len(elems))
	for i, e := range elems {
		if !drop[i] {
			out = append(out, e)
		}
	}
	in.SetResult(value.NewList(out...))
	return OK
}

func builtinLrepeat(in *Interp, args []*value.Value) Code {
	if len(args) < 2 {
		return in.wrongArgs("lrepeat count ?value ...?")
	}
	count, err := args[1].Int()
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	if count < 0 {
		return in.errorf("bad count %q: must be integer >= 0", args[1].String())
	}
	out := make([]*value.Value, 0, int(count)*(len(args)-2))
	for i := int64(0); i < count; i++ {
		out = append(out, args[2:]...)
	}
	in.SetResult(value.NewList(out...))
	return OK
}

func builtinLreverse(in *Interp, args []*value.Value) Code {
	if len(args) != 2 {
		return in.wrongArgs("lreverse list")
	}
	elems, err := args[1].List()
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	out := make([]*value.Value, len(elems))
	for i, e := range elems {
		out[len(elems)-1-i] = e
	}
	in.SetResult(value.NewList(out...))
	return OK
}

func builtinLsort(in *Interp, args []*value.Value) Code {
	integer := false
	decreasing := false
	unique := false
	i := 1
	for ; i < len(args)-1; i++ {
		switch args[i].String() {
		case "-integer":
			integer = true
		case "-decreasing":
			decreasing = true
		case "-increasing":
			decreasing = false
		case "-unique":
			unique = true
		default:
			return in.errorf("bad option %q: must be -integer, -increasing, -decreasing, or -unique", args[i].String())
		}
	}
	if i != len(args)-1 {
		return in.wrongArgs("lsort ?options? list")
	}
	elems, err := args[i].List()
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	out := make([]*value.Value, len(elems))
	copy(out, elems)
	var sortErr error
	sort.SliceStable(out, func(a, b int) bool {
		var cmp int
		if integer {
			ai, err1 := out[a].Int()
			bi, err2 := out[b].Int()
			if err1 != nil && sortErr == nil {
				sortErr = err1
			}
			if err2 != nil && sortErr == nil {
				sortErr = err2
			}
			switch {
			case ai < bi:
				cmp = -1
			case ai > bi:
				cmp = 1
			}
		} else {
			cmp = strings.Compare(out[a].String(), out[b].String())
		}
		if decreasing {
			return cmp > 0
		}
		return cmp < 0
	})
	if sortErr != nil {
		return in.errorf("%s", sortErr.Error())
	}
	if unique {
		var dedup []*value.Value
		for _, e := range out {
			if len(dedup) == 0 || e.String() != dedup[len(dedup)-1].String() {
				dedup = append(dedup, e)
			}
		}
		out = dedup
	}
	in.SetResult(value.NewList(out...))
	return OK
}

func builtinLsearch(in *Interp, args []*value.Value) Code {
	exact := false
	i := 1
	for ; i < len(args)-2; i++ {
		switch args[i].String() {
		case "-exact":
			exact = true
		case "-glob":
			exact = false
		default:
			return in.errorf("bad option %q: must be -exact or -glob", args[i].String())
		}
	}
	if len(args)-i != 2 {
		return in.wrongArgs("lsearch ?options? list pattern")
	}
	elems, err := args[i].List()
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	pattern := args[i+1].String()
	for j, e := range elems {
		if exact && e.String() == pattern || !exact && globMatch(pattern, e.String()) {
			in.SetResult(value.NewInt(int64(j)))
			return OK
		}
	}
	in.SetResult(value.NewInt(-1))
	return OK
}

// builtinLseq implements the arithmetic-sequence forms: lseq n, lseq a
// b, and lseq a b step.
func builtinLseq(in *Interp, args []*value.Value) Code {
	nums := make([]int64, 0, 3)
	for _, a := range args[1:] {
		n, err := a.Int()
		if err != nil {
			return in.errorf("%s", err.Error())
		}
		nums = append(nums, n)
	}
	var from, to, step int64
	switch len(nums) {
	case 1:
		from, to, step = 0, nums[0]-1, 1
	case 2:
		from, to, step = nums[0], nums[1], 1
		if to < from {
			step = -1
		}
	case 3:
		from, to, step = nums[0], nums[1], nums[2]
		if step == 0 {
			return in.errorf("step can't be 0")
		}
	default:
		return in.wrongArgs("lseq n ??op? n ??by? n??")
	}
	var out []*value.Value
	if step > 0 {
		for v := from; v <= to; v += step {
			out = append(out, value.NewInt(v))
		}
	} else {
		for v := from; v >= to; v += step {
			out = append(out, value.NewInt(v))
		}
	}
	in.SetResult(value.NewList(out...))
	return OK
}

// lsetNested rewrites the element at the index path with newVal.
func lsetNested(list *value.Value, path []*value.Value, newVal *value.Value) (*value.Value, error) {
	if len(path) == 0 {
		return newVal, nil
	}
	elems, err := list.List()
	if err != nil {
		return nil, err
	}
	i, err := parseIndex(path[0].String(), len(elems))
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(elems) {
		return nil, badIndex(path[0].String())
	}
	replaced, err := lsetNested(elems[i], path[1:], newVal)
	if err != nil {
		return nil, err
	}
	out := make([]*value.Value, len(elems))
	copy(out, elems)
	out[i] = replaced
	return value.NewList(out...), nil
}

func builtinLset(in *Interp, args []*value.Value) Code {
	if len(args) < 3 {
		return in.wrongArgs("lset listVar ?index ...? value")
	}
	name := args[1].String()
	cur, code := in.varGet(name)
	if code != OK {
		return code
	}
	result, err := lsetNested(cur, args[2:len(args)-1], args[len(args)-1])
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	in.varSet(name, result)
	in.SetResult(result)
	return OK
}

func builtinLpop(in *Interp, args []*value.Value) Code {
	if len(args) < 2 || len(args) > 3 {
		return in.wrongArgs("lpop listVar ?index?")
	}
	name := args[1].String()
	cur, code := in.varGet(name)
	if code != OK {
		return code
	}
	elems, err := cur.List()
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	idx := len(elems) - 1
	if len(args) == 3 {
		idx, err = parseIndex(args[2].String(), len(elems))
		if err != nil {
			return in.errorf("%s", err.Error())
		}
	}
	if idx < 0 || idx >= len(elems) {
		return in.errorf("index %q out of range", args[len(args)-1].String())
	}
	popped := elems[idx]
	rest := make([]*value.Value, 0, len(elems)-1)
	rest = append(rest, elems[:idx]...)
	rest = append(rest, elems[idx+1:]...)
	in.varSet(name, value.NewList(rest...))
	in.SetResult(popped)
	return OK
}

func builtinLassign(in *Interp, args []*value.Value) Code {
	if len(args) < 2 {
		return in.wrongArgs("lassign list ?varName ...?")
	}
	elems, err := args[1].List()
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	for i, nameArg := range args[2:] {
		if i < len(elems) {
			in.varSet(nameArg.String(), elems[i])
		} else {
			in.varSet(nameArg.String(), value.Empty())
		}
	}
	if len(args)-2 < len(elems) {
		in.SetResult(value.NewList(elems[len(args)-2:]...))
	} else {
		in.SetResult(value.Empty())
	}
	return OK
}

// builtinLedit replaces a range in a list variable, stores the new list
// back, and returns it.
func builtinLedit(in *Interp, args []*value.Value) Code {
	if len(args) < 4 {
		return in.wrongArgs("ledit listVar first last ?value ...?")
	}
	name := args[1].String()
	cur, code := in.varGet(name)
	if code != OK {
		return code
	}
	elems, err := cur.List()
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	first, err := parseIndex(args[2].String(), len(elems))
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	last, err := parseIndex(args[3].String(), len(elems))
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	result := value.NewList(replaceRange(elems, first, last, args[4:])...)
	in.varSet(name, result)
	in.SetResult(result)
	return OK
}

func builtinJoin(in *Interp, args []*value.Value) Code {
	if len(args) < 2 || len(args) > 3 {
		return in.wrongArgs("join list ?joinString?")
	}
	sep := " "
	if len(args) == 3 {
		sep = args[2].String()
	}
	elems, err := args[1].List()
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = e.String()
	}
	in.setResultString(strings.Join(parts, sep))
	return OK
}

func builtinSplit(in *Interp, args []*value.Value) Code {
	if len(args) < 2 || len(args) > 3 {
		return in.wrongArgs("split string ?splitChars?")
	}
	s := args[1].String()
	chars := " \t\n\r"
	if len(args) == 3 {
		chars = args[2].String()
	}
	var out []*value.Value
	if chars == "" {
		for _, r := range s {
			out = append(out, value.NewString(string(r)))
		}
	} else {
		out = splitKeepEmpty(s, chars)
	}
	in.SetResult(value.NewList(out...))
	return OK
}

func splitKeepEmpty(s, chars string) []*value.Value {
	var out []*value.Value
	start := 0
	for i, r := range s {
		if strings.ContainsRune(chars, r) {
			out = append(out, value.NewString(s[start:i]))
			start = i + len(string(r))
		}
	}
	out = append(out, value.NewString(s[start:]))
	return out
}
