package parser

import (
	"unicode/utf8"
)

// ResolveEscape resolves the backslash escape starting at src[i] (which
// must be a backslash). It returns the resolved value, the number of
// bytes consumed including the backslash, and the number of newlines
// swallowed. The same rules serve the parser and the substitution
// engine:
//
//	\a \b \f \n \r \t \v  control characters
//	\\ \" \{ \} \[ \] \$  the literal character
//	\<newline>            a single space; following spaces and tabs are
//	                      swallowed with the continuation
//	\xHH                  1-2 hex digits
//	\uHHHH                exactly 4 hex digits, emitted as UTF-8
//	\NNN                  1-3 octal digits
//
// Any other escaped character passes through unchanged.
func ResolveEscape(src string, i int) (value string, consumed int, newlines int) {
	if i+1 >= len(src) {
		return "\\", 1, 0
	}
	c := src[i+1]
	switch c {
	case 'a':
		return "\a", 2, 0
	case 'b':
		return "\b", 2, 0
	case 'f':
		return "\f", 2, 0
	case 'n':
		return "\n", 2, 0
	case 'r':
		return "\r", 2, 0
	case 't':
		return "\t", 2, 0
	case 'v':
		return "\v", 2, 0
	case '\n':
		n := 2
		for i+n < len(src) && (src[i+n] == ' ' || src[i+n] == '\t') {
			n++
		}
		return " ", n, 1
	case 'x':
		val, digits := scanHex(src, i+2, 2)
		if digits == 0 {
			return "x", 2, 0
		}
		return string(rune(val & 0xff)), 2 + digits, 0
	case 'u':
		val, digits := scanHex(src, i+2, 4)
		if digits != 4 {
			return "u", 2, 0
		}
		var buf [utf8.UTFMax]byte
		n := utf8.EncodeRune(buf[:], rune(val))
		return string(buf[:n]), 2 + digits, 0
	case '0', '1', '2', '3', '4', '5', '6', '7':
		val, digits := 0, 0
		for digits < 3 && i+1+digits < len(src) {
			d := src[i+1+digits]
			if d < '0' || d > '7' {
				break
			}
			val = val<<3 | int(d-'0')
			digits++
		}
		return string(rune(val)), 1 + digits, 0
	default:
		// pass the character through, multibyte runes included
		r, size := utf8.DecodeRuneInString(src[i+1:])
		return string(r), 1 + size, 0
	}
}

func scanHex(src string, i, max int) (val, digits int) {
	for digits < max && i+digits < len(src) {
		d := src[i+digits]
		switch {
		case d >= '0' && d <= '9':
			val = val<<4 | int(d-'0')
		case d >= 'a' && d <= 'f':
			val = val<<4 | int(d-'a'+10)
		case d >= 'A' && d <= 'F':
			val = val<<4 | int(d-'A'+10)
		default:
			return val, digits
		}
		digits++
	}
	return val, digits
}

// isNameByte reports whether c may appear in a $name variable
// reference. Colons are accepted so $::name resolves against the
// global namespace.
func isNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == ':'
}
