// Package parser turns Tcl source text into a syntax tree.
//
// Parsing runs two nested loops: one over commands (skipping blank
// lines, whitespace, and comments at command position) and one over
// words. Brace words become plain literals; quoted and bare words are
// parsed into composites whose parts carry the substitution structure
// the evaluator resolves at run time.
package parser

import (
	"fmt"

	"github.com/aledsdavies/quill/core/ast"
	"github.com/aledsdavies/quill/runtime/lexer"
)

// Parse parses a complete script starting at line 1.
func Parse(src string) (*ast.Script, error) {
	return ParseAt(src, 1)
}

// ParseAt parses a script span that begins on the given source line,
// used for bracketed substitutions and cached procedure bodies embedded
// in a larger script.
func ParseAt(src string, line int) (*ast.Script, error) {
	sc := lexer.NewAt(src, line)
	script := &ast.Script{Ln: line}
	for {
		sc.SkipCommandSeparators()
		if sc.EOF() {
			return script, nil
		}
		cmd := &ast.Command{Ln: sc.Line()}
		for {
			sc.SkipSpace()
			if sc.EOF() || sc.AtCommandEnd() {
				break
			}
			w, err := sc.Next()
			if err != nil {
				return nil, err
			}
			if w.Kind == lexer.Expand && w.Text == "" && !sc.EOF() && !sc.AtCommandEnd() {
				// {*} directly followed by a braced or quoted word: the
				// lexer ends the prefix there, and that word is expanded
				inner, err := sc.Next()
				if err != nil {
					return nil, err
				}
				node, err := wordNode(inner)
				if err != nil {
					return nil, err
				}
				cmd.Words = append(cmd.Words, &ast.Expand{Word: node, Ln: w.Line})
				continue
			}
			node, err := wordNode(w)
			if err != nil {
				return nil, err
			}
			cmd.Words = append(cmd.Words, node)
		}
		// empty commands are dropped
		if len(cmd.Words) > 0 {
			script.Commands = append(script.Commands, cmd)
		}
	}
}

func wordNode(w lexer.Word) (ast.Node, error) {
	switch w.Kind {
	case lexer.Braces:
		return &ast.Literal{Text: w.Text, Ln: w.Line}, nil
	case lexer.Quotes, lexer.Bare:
		return parseComposite(w.Text, w.Line)
	case lexer.Expand:
		inner, err := parseComposite(w.Text, w.Line)
		if err != nil {
			return nil, err
		}
		return &ast.Expand{Word: inner, Ln: w.Line}, nil
	default:
		return nil, fmt.Errorf("unknown word kind %v", w.Kind)
	}
}

// parseComposite scans raw word text character by character, producing
// the interleaved literal runs, escapes, variable references, and
// command substitutions. A single-literal result collapses to the
// literal; an empty word becomes an empty literal.
func parseComposite(text string, line int) (ast.Node, error) {
	var parts []ast.Node
	var lit []byte
	litLine := line

	flush := func() {
		if len(lit) > 0 {
			parts = append(parts, &ast.Literal{Text: string(lit), Ln: litLine})
			lit = nil
		}
	}

	i := 0
	for i < len(text) {
		switch c := text[i]; c {
		case '$':
			node, consumed, err := parseVarRef(text, i, line)
			if err != nil {
				return nil, err
			}
			if node == nil {
				// a lone $ is literal
				lit = append(lit, '$')
				i++
				continue
			}
			flush()
			parts = append(parts, node)
			i += consumed
		case '[':
			end, lines, err := matchBracket(text, i)
			if err != nil {
				return nil, err
			}
			inner, err := ParseAt(text[i+1:end], line)
			if err != nil {
				return nil, err
			}
			flush()
			parts = append(parts, &ast.CmdSubst{Script: inner, Ln: line})
			line += lines
			i = end + 1
		case '\\':
			value, consumed, newlines := ResolveEscape(text, i)
			flush()
			parts = append(parts, &ast.Backslash{Value: value, Ln: line})
			line += newlines
			i += consumed
		case '\n':
			lit = append(lit, c)
			line++
			i++
		default:
			if len(lit) == 0 {
				litLine = line
			}
			lit = append(lit, c)
			i++
		}
	}
	flush()

	switch len(parts) {
	case 0:
		return &ast.Literal{Text: "", Ln: line}, nil
	case 1:
		return parts[0], nil
	default:
		return &ast.Word{Parts: parts, Ln: parts[0].Line()}, nil
	}
}

// parseVarRef parses a $ reference at text[i]. It returns (nil, 0, nil)
// when the $ is not followed by a name and should be taken literally.
func parseVarRef(text string, i, line int) (ast.Node, int, error) {
	j := i + 1
	if j < len(text) && text[j] == '{' {
		// ${name}: everything to the closing brace is the name
		end := j + 1
		for end < len(text) && text[end] != '}' {
			end++
		}
		if end >= len(text) {
			return nil, 0, lexer.ErrMissingCloseBrace
		}
		return &ast.SimpleVar{Name: text[j+1 : end], Ln: line}, end + 1 - i, nil
	}
	start := j
	for j < len(text) && isNameByte(text[j]) {
		j++
	}
	if j == start {
		return nil, 0, nil
	}
	name := text[start:j]
	if j < len(text) && text[j] == '(' {
		end, err := matchParen(text, j)
		if err != nil {
			return nil, 0, err
		}
		index, err := parseComposite(text[j+1:end], line)
		if err != nil {
			return nil, 0, err
		}
		return &ast.ArrayVar{Name: name, Index: index, Ln: line}, end + 1 - i, nil
	}
	return &ast.SimpleVar{Name: name, Ln: line}, j - i, nil
}

// MatchBracket finds the ] matching the [ at text[i] for callers
// outside the parser, such as the substitution engine. It returns the
// index of the closing bracket and the number of newlines crossed.
func MatchBracket(text string, i int) (end, newlines int, err error) {
	return matchBracket(text, i)
}

// matchBracket finds the ] matching the [ at text[i], respecting
// balanced braces and double-quoted substrings. It returns the index of
// the closing bracket and the number of newlines crossed.
func matchBracket(text string, i int) (end, newlines int, err error) {
	depth := 0
	for ; i < len(text); i++ {
		switch text[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i, newlines, nil
			}
		case '\\':
			i++
		case '\n':
			newlines++
		case '{':
			d := 0
			for ; i < len(text); i++ {
				switch text[i] {
				case '{':
					d++
				case '}':
					d--
				case '\\':
					i++
				case '\n':
					newlines++
				}
				if d == 0 {
					break
				}
			}
			if d != 0 {
				return 0, 0, lexer.ErrMissingCloseBrace
			}
		case '"':
			i++
			for ; i < len(text); i++ {
				if text[i] == '"' {
					break
				}
				if text[i] == '\\' {
					i++
				} else if text[i] == '\n' {
					newlines++
				}
			}
			if i >= len(text) {
				return 0, 0, lexer.ErrMissingQuote
			}
		}
	}
	return 0, 0, lexer.ErrMissingCloseBrace
}

// matchParen finds the ) matching the ( at text[i], tracking paren depth.
func matchParen(text string, i int) (int, error) {
	depth := 0
	for ; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, nil
			}
		case '\\':
			i++
		}
	}
	return 0, fmt.Errorf("missing close-paren")
}
