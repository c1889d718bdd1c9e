package interp

import (
	"strings"

	"github.com/aledsdavies/quill/runtime/parser"
	"github.com/aledsdavies/quill/runtime/value"
)

// SubstFlags select which substitution passes run.
type SubstFlags uint

const (
	SubstBackslash SubstFlags = 1 << iota
	SubstVariables
	SubstCommands

	SubstAll = SubstBackslash | SubstVariables | SubstCommands
)

// Subst resolves backslash, variable, and command substitutions in src
// against live interpreter state. A break result from an embedded
// command aborts substitution and returns the text accumulated so far;
// a continue result contributes an empty string; errors propagate.
func (in *Interp) Subst(src string, flags SubstFlags) (*value.Value, Code) {
	var b strings.Builder
	i := 0
	for i < len(src) {
		switch c := src[i]; {
		case c == '\\' && flags&SubstBackslash != 0:
			v, n, _ := parser.ResolveEscape(src, i)
			b.WriteString(v)
			i += n
		case c == '$' && flags&SubstVariables != 0:
			name, n, code := in.substVarName(src, i, flags)
			if code != OK {
				return nil, code
			}
			if n == 0 {
				// a lone $ is emitted literally
				b.WriteByte('$')
				i++
				continue
			}
			v, code := in.varGet(name)
			if code != OK {
				return nil, code
			}
			b.WriteString(v.String())
			i += n
		case c == '[' && flags&SubstCommands != 0:
			end, _, err := parser.MatchBracket(src, i)
			if err != nil {
				return nil, in.errorf("%s", err.Error())
			}
			code := in.evalValue(value.NewString(src[i+1:end]), in.line)
			switch code {
			case OK, Return:
				b.WriteString(in.result.String())
			case Break:
				return value.NewString(b.String()), OK
			case Continue:
				// the substitution contributes nothing
			default:
				return nil, code
			}
			i = end + 1
		default:
			b.WriteByte(c)
			i++
		}
	}
	return value.NewString(b.String()), OK
}

// substVarName scans a variable reference at src[i] and returns the
// complete lookup name, including a substituted array index. A zero
// length means the $ is not a reference.
func (in *Interp) substVarName(src string, i int, flags SubstFlags) (string, int, Code) {
	j := i + 1
	if j < len(src) && src[j] == '{' {
		end := strings.IndexByte(src[j+1:], '}')
		if end < 0 {
			return "", 0, in.errorf("missing close-brace for variable name")
		}
		return src[j+1 : j+1+end], end + 3, OK
	}
	start := j
	for j < len(src) && isVarNameByte(src[j]) {
		j++
	}
	if j == start {
		return "", 0, OK
	}
	name := src[start:j]
	if j < len(src) && src[j] == '(' {
		depth := 0
		k := j
		for ; k < len(src); k++ {
			switch src[k] {
			case '(':
				depth++
			case ')':
				depth--
			case '\\':
				k++
			}
			if depth == 0 && src[k] == ')' {
				break
			}
		}
		if k >= len(src) {
			return "", 0, in.errorf("missing )")
		}
		// the index may itself contain substitutions
		idx, code := in.Subst(src[j+1:k], flags)
		if code != OK {
			return "", 0, code
		}
		return name + "(" + idx.String() + ")", k + 1 - i, OK
	}
	return name, j - i, OK
}

func isVarNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == ':'
}

func init() {
	registerBuiltin("subst", builtinSubst)
}

// builtinSubst implements: subst ?-nobackslashes? ?-nocommands?
// ?-novariables? string
func builtinSubst(in *Interp, args []*value.Value) Code {
	flags := SubstAll
	i := 1
	for ; i < len(args)-1; i++ {
		switch args[i].String() {
		case "-nobackslashes":
			flags &^= SubstBackslash
		case "-nocommands":
			flags &^= SubstCommands
		case "-novariables":
			flags &^= SubstVariables
		default:
			return in.errorf("bad switch %q: must be -nobackslashes, -nocommands, or -novariables", args[i].String())
		}
	}
	if i != len(args)-1 {
		return in.errorf("wrong # args: should be %q", "subst ?-nobackslashes? ?-nocommands? ?-novariables? string")
	}
	v, code := in.Subst(args[i].String(), flags)
	if code != OK {
		return code
	}
	in.SetResult(v)
	return OK
}
