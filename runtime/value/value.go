// Package value implements the Tcl value model: every value is a string,
// and a value may carry a cached integer, double, or list representation
// produced the first time it is read under that type. Values are
// reference-identified and immutable by convention; code that stores a
// value into a variable duplicates it rather than aliasing.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a Tcl value. The zero Value is the empty string.
type Value struct {
	str    string
	hasStr bool

	i      int64
	hasInt bool

	d         float64
	hasDouble bool

	list    []*Value
	hasList bool
}

// Empty returns a new empty-string value.
func Empty() *Value { return &Value{hasStr: true} }

// NewString creates a value from its string form.
func NewString(s string) *Value { return &Value{str: s, hasStr: true} }

// NewInt creates a value with a native integer representation. The
// string form is generated on demand.
func NewInt(i int64) *Value { return &Value{i: i, hasInt: true} }

// NewDouble creates a value with a native double representation.
func NewDouble(d float64) *Value { return &Value{d: d, hasDouble: true} }

// NewBool creates the canonical boolean value, 1 or 0.
func NewBool(b bool) *Value {
	if b {
		return &Value{str: "1", hasStr: true, i: 1, hasInt: true}
	}
	return &Value{str: "0", hasStr: true, i: 0, hasInt: true}
}

// NewList creates a value whose native representation is a list. The
// string form is generated on demand with canonical quoting.
func NewList(elems ...*Value) *Value {
	return &Value{list: elems, hasList: true}
}

// String returns the authoritative string form, generating it from a
// native representation when the value was built as one.
func (v *Value) String() string {
	if v.hasStr {
		return v.str
	}
	switch {
	case v.hasInt:
		v.str = strconv.FormatInt(v.i, 10)
	case v.hasDouble:
		v.str = FormatDouble(v.d)
	case v.hasList:
		v.str = FormatList(v.list)
	}
	v.hasStr = true
	return v.str
}

// Dup returns a copy sharing the cached representations. Values are
// immutable, so the copy only guards against identity-based aliasing.
func (v *Value) Dup() *Value {
	c := *v
	return &c
}

// IsEmpty reports whether the string form is empty.
func (v *Value) IsEmpty() bool {
	if v.hasStr {
		return v.str == ""
	}
	if v.hasList {
		return len(v.list) == 0
	}
	return v.String() == ""
}

// Int coerces the value to an integer, caching the result.
func (v *Value) Int() (int64, error) {
	if v.hasInt {
		return v.i, nil
	}
	i, err := ParseInt(v.String())
	if err != nil {
		return 0, err
	}
	v.i, v.hasInt = i, true
	return i, nil
}

// Double coerces the value to a double, caching the result. An integer
// representation promotes without reparsing.
func (v *Value) Double() (float64, error) {
	if v.hasDouble {
		return v.d, nil
	}
	if v.hasInt {
		v.d, v.hasDouble = float64(v.i), true
		return v.d, nil
	}
	d, err := ParseDouble(v.String())
	if err != nil {
		return 0, err
	}
	v.d, v.hasDouble = d, true
	return d, nil
}

// Bool coerces the value to a truth value using expression truthiness:
// numeric values are true when nonzero; the boolean literals map
// explicitly; any other non-empty string is true.
func (v *Value) Bool() (bool, error) {
	if v.hasInt {
		return v.i != 0, nil
	}
	if v.hasDouble {
		return v.d != 0, nil
	}
	return Truthy(v.String()), nil
}

// List coerces the value to a list, caching the parsed elements.
func (v *Value) List() ([]*Value, error) {
	if v.hasList {
		return v.list, nil
	}
	elems, err := ParseList(v.String())
	if err != nil {
		return nil, err
	}
	v.list, v.hasList = elems, true
	return elems, nil
}

// Truthy implements string truthiness: true/yes/on, false/no/off, any
// numeric form by its value, any other non-empty string is true.
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "false", "no", "off", "0":
		return false
	case "true", "yes", "on", "1":
		return true
	}
	if i, err := ParseInt(s); err == nil {
		return i != 0
	}
	if d, err := ParseDouble(s); err == nil {
		return d != 0
	}
	return true
}

// ParseInt parses a Tcl integer literal: decimal with optional
// underscore separators, 0x hex, 0b binary, or 0o octal, with optional
// sign and surrounding whitespace. A plain leading 0 is read as decimal.
func ParseInt(s string) (int64, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, fmt.Errorf("expected integer but got %q", s)
	}
	neg := false
	switch t[0] {
	case '+':
		t = t[1:]
	case '-':
		neg = true
		t = t[1:]
	}
	t = strings.ReplaceAll(t, "_", "")
	if t == "" || t[0] == '+' || t[0] == '-' {
		return 0, fmt.Errorf("expected integer but got %q", s)
	}
	base := 10
	if len(t) > 2 && t[0] == '0' {
		switch t[1] {
		case 'x', 'X':
			base, t = 16, t[2:]
		case 'b', 'B':
			base, t = 2, t[2:]
		case 'o', 'O':
			base, t = 8, t[2:]
		}
	}
	u, err := strconv.ParseUint(t, base, 64)
	if err != nil {
		return 0, fmt.Errorf("expected integer but got %q", s)
	}
	if !neg && u > math.MaxInt64 {
		return 0, fmt.Errorf("integer value too large to represent: %q", s)
	}
	if neg {
		// the magnitude of the most negative int64 round-trips
		return -int64(u), nil
	}
	return int64(u), nil
}

// ParseDouble parses a Tcl double literal, including Inf and NaN.
func ParseDouble(s string) (float64, error) {
	t := strings.TrimSpace(s)
	switch strings.ToLower(t) {
	case "inf", "+inf", "infinity":
		return math.Inf(1), nil
	case "-inf", "-infinity":
		return math.Inf(-1), nil
	case "nan":
		return math.NaN(), nil
	}
	t = strings.ReplaceAll(t, "_", "")
	d, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, fmt.Errorf("expected floating-point number but got %q", s)
	}
	return d, nil
}

// FormatDouble renders a double in Tcl's convention: shortest form that
// round-trips, always distinguishable from an integer.
func FormatDouble(d float64) string {
	if math.IsInf(d, 1) {
		return "Inf"
	}
	if math.IsInf(d, -1) {
		return "-Inf"
	}
	if math.IsNaN(d) {
		return "NaN"
	}
	s := strconv.FormatFloat(d, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
