package ast

import (
	"fmt"
	"strings"
)

// Unparse renders a script back to source text. The output is not
// byte-identical to the original input (brace quoting is normalized) but
// reparsing it yields a structurally equal tree, which is the contract
// the parser tests rely on.
func Unparse(s *Script) string {
	var b strings.Builder
	for i, cmd := range s.Commands {
		if i > 0 {
			b.WriteByte('\n')
		}
		unparseCommand(&b, cmd)
	}
	return b.String()
}

func unparseCommand(b *strings.Builder, cmd *Command) {
	for i, w := range cmd.Words {
		if i > 0 {
			b.WriteByte(' ')
		}
		unparseWord(b, w)
	}
}

// unparseWord renders a single command word.
func unparseWord(b *strings.Builder, n Node) {
	switch w := n.(type) {
	case *Literal:
		b.WriteString(quoteLiteral(w.Text))
	case *Backslash:
		b.WriteString(escapeFor(w.Value))
	case *SimpleVar:
		b.WriteString(varRef(w.Name))
	case *ArrayVar:
		b.WriteByte('$')
		b.WriteString(w.Name)
		b.WriteByte('(')
		unparseIndex(b, w.Index)
		b.WriteByte(')')
	case *CmdSubst:
		b.WriteByte('[')
		b.WriteString(unparseInline(w.Script))
		b.WriteByte(']')
	case *Expand:
		b.WriteString("{*}")
		unparseWord(b, w.Word)
	case *Word:
		b.WriteByte('"')
		for _, part := range w.Parts {
			unparsePart(b, part)
		}
		b.WriteByte('"')
	default:
		panic(fmt.Sprintf("ast: unparse of %T word", n))
	}
}

// unparsePart renders a part inside a double-quoted composite.
func unparsePart(b *strings.Builder, n Node) {
	switch p := n.(type) {
	case *Literal:
		b.WriteString(escapeQuoted(p.Text))
	case *Backslash:
		b.WriteString(escapeFor(p.Value))
	case *SimpleVar:
		b.WriteString(varRef(p.Name))
	case *ArrayVar:
		b.WriteByte('$')
		b.WriteString(p.Name)
		b.WriteByte('(')
		unparseIndex(b, p.Index)
		b.WriteByte(')')
	case *CmdSubst:
		b.WriteByte('[')
		b.WriteString(unparseInline(p.Script))
		b.WriteByte(']')
	default:
		panic(fmt.Sprintf("ast: unparse of %T part", n))
	}
}

// unparseIndex renders an array index subtree without surrounding quotes.
func unparseIndex(b *strings.Builder, n Node) {
	switch w := n.(type) {
	case *Literal:
		b.WriteString(w.Text)
	case *Word:
		for _, part := range w.Parts {
			unparsePart(b, part)
		}
	default:
		unparsePart(b, n)
	}
}

// unparseInline renders a script on a single line, commands separated by
// semicolons, for embedding inside brackets.
func unparseInline(s *Script) string {
	var b strings.Builder
	for i, cmd := range s.Commands {
		if i > 0 {
			b.WriteString("; ")
		}
		unparseCommand(&b, cmd)
	}
	return b.String()
}

func varRef(name string) string {
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_') {
			return "${" + name + "}"
		}
	}
	return "$" + name
}

const wordSpecials = " \t\n\\;\"{}[]$"

// quoteLiteral picks the quoting form for a bare literal word.
func quoteLiteral(text string) string {
	if text == "" {
		return "{}"
	}
	if !strings.ContainsAny(text, wordSpecials) {
		return text
	}
	if bracesBalanced(text) && !strings.HasSuffix(text, "\\") {
		return "{" + text + "}"
	}
	return `"` + escapeQuoted(text) + `"`
}

func bracesBalanced(text string) bool {
	depth := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// escapeQuoted escapes a literal run for inclusion inside double quotes.
func escapeQuoted(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch r {
		case '\\', '"', '$', '[', ']':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// escapeFor renders the escape sequence that resolves to value.
func escapeFor(value string) string {
	switch value {
	case "\a":
		return `\a`
	case "\b":
		return `\b`
	case "\f":
		return `\f`
	case "\n":
		return `\n`
	case "\r":
		return `\r`
	case "\t":
		return `\t`
	case "\v":
		return `\v`
	}
	r := []rune(value)
	if len(r) == 1 {
		if r[0] >= 0x20 && r[0] < 0x7f {
			return "\\" + value
		}
		if r[0] <= 0xffff {
			return fmt.Sprintf(`\u%04X`, r[0])
		}
	}
	return value
}
