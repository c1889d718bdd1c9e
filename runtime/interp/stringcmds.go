package interp

import (
	"fmt"
	"strings"

	"github.com/aledsdavies/quill/runtime/value"
)

func init() {
	registerBuiltin("string", builtinString)
	registerBuiltin("format", builtinFormat)
}

// builtinString dispatches the string ensemble.
func builtinString(in *Interp, args []*value.Value) Code {
	if len(args) < 3 {
		return in.wrongArgs("string subcommand string ?arg ...?")
	}
	sub := args[1].String()
	s := args[2].String()
	rest := args[3:]

	switch sub {
	case "length":
		in.SetResult(value.NewInt(int64(len([]rune(s)))))
		return OK
	case "cat":
		var b strings.Builder
		b.WriteString(s)
		for _, a := range rest {
			b.WriteString(a.String())
		}
		in.setResultString(b.String())
		return OK
	case "index":
		if len(rest) != 1 {
			return in.wrongArgs("string index string charIndex")
		}
		runes := []rune(s)
		i, err := parseIndex(rest[0].String(), len(runes))
		if err != nil {
			return in.errorf("%s", err.Error())
		}
		if i < 0 || i >= len(runes) {
			in.SetResult(value.Empty())
		} else {
			in.setResultString(string(runes[i]))
		}
		return OK
	case "range":
		if len(rest) != 2 {
			return in.wrongArgs("string range string first last")
		}
		runes := []rune(s)
		first, err := parseIndex(rest[0].String(), len(runes))
		if err != nil {
			return in.errorf("%s", err.Error())
		}
		last, err := parseIndex(rest[1].String(), len(runes))
		if err != nil {
			return in.errorf("%s", err.Error())
		}
		if first < 0 {
			first = 0
		}
		if last >= len(runes) {
			last = len(runes) - 1
		}
		if first > last {
			in.SetResult(value.Empty())
		} else {
			in.setResultString(string(runes[first : last+1]))
		}
		return OK
	case "tolower":
		in.setResultString(strings.ToLower(s))
		return OK
	case "toupper":
		in.setResultString(strings.ToUpper(s))
		return OK
	case "trim", "trimleft", "trimright":
		cutset := " \t\n\r\v\f"
		if len(rest) == 1 {
			cutset = rest[0].String()
		}
		switch sub {
		case "trim":
			in.setResultString(strings.Trim(s, cutset))
		case "trimleft":
			in.setResultString(strings.TrimLeft(s, cutset))
		default:
			in.setResultString(strings.TrimRight(s, cutset))
		}
		return OK
	case "equal":
		if len(rest) != 1 {
			return in.wrongArgs("string equal string1 string2")
		}
		in.SetResult(value.NewBool(s == rest[0].String()))
		return OK
	case "compare":
		if len(rest) != 1 {
			return in.wrongArgs("string compare string1 string2")
		}
		in.SetResult(value.NewInt(int64(strings.Compare(s, rest[0].String()))))
		return OK
	case "first":
		if len(rest) < 1 {
			return in.wrongArgs("string first needleString haystackString ?startIndex?")
		}
		// note the argument order: needle, then haystack
		needle, hay := s, rest[0].String()
		in.SetResult(value.NewInt(int64(strings.Index(hay, needle))))
		return OK
	case "last":
		if len(rest) < 1 {
			return in.wrongArgs("string last needleString haystackString ?lastIndex?")
		}
		needle, hay := s, rest[0].String()
		in.SetResult(value.NewInt(int64(strings.LastIndex(hay, needle))))
		return OK
	case "repeat":
		if len(rest) != 1 {
			return in.wrongArgs("string repeat string count")
		}
		n, err := rest[0].Int()
		if err != nil {
			return in.errorf("%s", err.Error())
		}
		if n < 0 {
			n = 0
		}
		in.setResultString(strings.Repeat(s, int(n)))
		return OK
	case "reverse":
		runes := []rune(s)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		in.setResultString(string(runes))
		return OK
	case "map":
		if len(rest) != 1 {
			return in.wrongArgs("string map mapping string")
		}
		// argument order: the mapping comes before the subject string
		mapping, err := args[2].List()
		if err != nil {
			return in.errorf("%s", err.Error())
		}
		if len(mapping)%2 != 0 {
			return in.errorf("char map list unbalanced")
		}
		pairs := make([]string, len(mapping))
		for i, m := range mapping {
			pairs[i] = m.String()
		}
		in.setResultString(strings.NewReplacer(pairs...).Replace(rest[0].String()))
		return OK
	case "match":
		if len(rest) != 1 {
			return in.wrongArgs("string match pattern string")
		}
		in.SetResult(value.NewBool(globMatch(s, rest[0].String())))
		return OK
	default:
		return in.errorf("unknown or ambiguous subcommand %q: must be cat, compare, equal, first, index, last, length, map, match, range, repeat, reverse, tolower, toupper, trim, trimleft, or trimright", sub)
	}
}

// builtinFormat implements a printf-style format with the verbs real
// scripts lean on: %d %i %s %f %g %e %x %X %o %b %c %% with width and
// precision.
func builtinFormat(in *Interp, args []*value.Value) Code {
	if len(args) < 2 {
		return in.wrongArgs("format formatString ?arg ...?")
	}
	format := args[1].String()
	rest := args[2:]

	var b strings.Builder
	argi := 0
	nextArg := func() (*value.Value, bool) {
		if argi >= len(rest) {
			return nil, false
		}
		a := rest[argi]
		argi++
		return a, true
	}

	i := 0
	for i < len(format) {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			i++
			continue
		}
		// scan the specifier: flags, width, precision, verb
		j := i + 1
		for j < len(format) && strings.IndexByte("-+ 0#123456789.", format[j]) >= 0 {
			j++
		}
		if j >= len(format) {
			return in.errorf("format string ended in middle of field specifier")
		}
		spec := format[i : j+1]
		verb := format[j]
		i = j + 1

		if verb == '%' {
			b.WriteByte('%')
			continue
		}
		a, ok := nextArg()
		if !ok {
			return in.errorf("not enough arguments for all format specifiers")
		}
		switch verb {
		case 'd', 'i', 'x', 'X', 'o', 'b':
			n, err := a.Int()
			if err != nil {
				return in.errorf("%s", err.Error())
			}
			goSpec := spec
			if verb == 'i' {
				goSpec = spec[:len(spec)-1] + "d"
			}
			fmt.Fprintf(&b, goSpec, n)
		case 'f', 'g', 'e', 'G', 'E':
			d, err := a.Double()
			if err != nil {
				return in.errorf("%s", err.Error())
			}
			fmt.Fprintf(&b, spec, d)
		case 'c':
			n, err := a.Int()
			if err != nil {
				return in.errorf("%s", err.Error())
			}
			b.WriteRune(rune(n))
		case 's':
			fmt.Fprintf(&b, spec, a.String())
		default:
			return in.errorf("bad field specifier %q", string(verb))
		}
	}
	in.setResultString(b.String())
	return OK
}
