package value

import (
	"fmt"
	"strings"
)

// ParseList parses a string as a Tcl list. Elements are separated by
// whitespace; braces group without substitution, double quotes group
// with backslash processing, and backslashes in bare elements are
// resolved.
func ParseList(s string) ([]*Value, error) {
	var elems []*Value
	i := 0
	for {
		for i < len(s) && isListSpace(s[i]) {
			i++
		}
		if i >= len(s) {
			return elems, nil
		}
		var elem string
		var err error
		switch s[i] {
		case '{':
			elem, i, err = parseBracedElement(s, i)
		case '"':
			elem, i, err = parseQuotedElement(s, i)
		default:
			elem, i, err = parseBareElement(s, i)
		}
		if err != nil {
			return nil, err
		}
		elems = append(elems, NewString(elem))
	}
}

// ListLength parses s as a list and reports its element count.
func ListLength(s string) (int, error) {
	elems, err := ParseList(s)
	if err != nil {
		return 0, err
	}
	return len(elems), nil
}

func isListSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func parseBracedElement(s string, i int) (string, int, error) {
	depth := 0
	start := i + 1
	for ; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end := i
				i++
				if i < len(s) && !isListSpace(s[i]) {
					return "", 0, fmt.Errorf("list element in braces followed by %q instead of space", s[i:i+1])
				}
				return s[start:end], i, nil
			}
		case '\\':
			i++
		}
	}
	return "", 0, fmt.Errorf("unmatched open brace in list")
}

func parseQuotedElement(s string, i int) (string, int, error) {
	var b strings.Builder
	i++ // opening quote
	for i < len(s) {
		switch s[i] {
		case '"':
			i++
			if i < len(s) && !isListSpace(s[i]) {
				return "", 0, fmt.Errorf("list element in quotes followed by %q instead of space", s[i:i+1])
			}
			return b.String(), i, nil
		case '\\':
			v, n := listEscape(s, i)
			b.WriteString(v)
			i += n
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return "", 0, fmt.Errorf("unmatched open quote in list")
}

func parseBareElement(s string, i int) (string, int, error) {
	var b strings.Builder
	for i < len(s) && !isListSpace(s[i]) {
		if s[i] == '\\' {
			v, n := listEscape(s, i)
			b.WriteString(v)
			i += n
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String(), i, nil
}

// listEscape resolves a backslash sequence inside a list element. It
// decodes \a \b \f \n \r \t \v, and turns backslash-newline plus the
// spaces and tabs after it into one space. Any other escaped byte,
// including x, u and octal digits, is taken as that character; hex,
// unicode and octal escapes are not decoded.
func listEscape(s string, i int) (string, int) {
	if i+1 >= len(s) {
		return "\\", 1
	}
	switch c := s[i+1]; c {
	case 'a':
		return "\a", 2
	case 'b':
		return "\b", 2
	case 'f':
		return "\f", 2
	case 'n':
		return "\n", 2
	case 'r':
		return "\r", 2
	case 't':
		return "\t", 2
	case 'v':
		return "\v", 2
	case '\n':
		n := 2
		for i+n < len(s) && (s[i+n] == ' ' || s[i+n] == '\t') {
			n++
		}
		return " ", n
	default:
		return string(c), 2
	}
}

// FormatList renders elements as a canonical Tcl list string.
func FormatList(elems []*Value) string {
	var b strings.Builder
	for i, e := range elems {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(QuoteElement(e.String()))
	}
	return b.String()
}

const elementSpecials = " \t\n\r\v\f;{}\"\\[]$"

// QuoteElement quotes one element so that reparsing the list recovers
// the exact bytes.
func QuoteElement(s string) string {
	if s == "" {
		return "{}"
	}
	if !strings.ContainsAny(s, elementSpecials) {
		return s
	}
	if braceQuotable(s) {
		return "{" + s + "}"
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case ' ', '\t', ';', '"', '\\', '{', '}', '[', ']', '$':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\v':
			b.WriteString(`\v`)
		case '\f':
			b.WriteString(`\f`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// braceQuotable reports whether brace quoting preserves the bytes: the
// braces inside must balance and the element must not end in a lone
// backslash.
func braceQuotable(s string) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i == len(s)-1 {
				return false
			}
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
