package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strs(vals []*Value) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.String()
	}
	return out
}

func TestParseList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a b c", []string{"a", "b", "c"}},
		{"", nil},
		{"  a   b  ", []string{"a", "b"}},
		{"a {b c} d", []string{"a", "b c", "d"}},
		{`a "b c" d`, []string{"a", "b c", "d"}},
		{`a\ b c`, []string{"a b", "c"}},
		{"{a {b} c}", []string{"a {b} c"}},
		{"{}", []string{""}},
		{"1 2 {3 4}", []string{"1", "2", "3 4"}},
	}
	for _, tt := range tests {
		got, err := ParseList(tt.in)
		require.NoError(t, err, "ParseList(%q)", tt.in)
		assert.Equal(t, tt.want, strsOrNil(got), "ParseList(%q)", tt.in)
	}
}

func strsOrNil(vals []*Value) []string {
	if len(vals) == 0 {
		return nil
	}
	return strs(vals)
}

func TestParseListErrors(t *testing.T) {
	for _, bad := range []string{"{a b", `"a b`, "{a}x y"} {
		_, err := ParseList(bad)
		assert.Error(t, err, "ParseList(%q)", bad)
	}
}

// TestListRoundTrip verifies that formatting and reparsing recovers the
// exact elements, byte for byte.
func TestListRoundTrip(t *testing.T) {
	cases := [][]string{
		{"a", "b", "c"},
		{"a b", "c"},
		{"", "x", ""},
		{"{brace}", "plain"},
		{"has\"quote", "back\\slash"},
		{"multi\nline", "tab\there"},
		{"3 4"},
	}
	for _, elems := range cases {
		vals := make([]*Value, len(elems))
		for i, e := range elems {
			vals[i] = NewString(e)
		}
		formatted := FormatList(vals)
		parsed, err := ParseList(formatted)
		require.NoError(t, err, "reparse of %q", formatted)
		assert.Equal(t, elems, strs(parsed), "round trip through %q", formatted)
	}
}

func TestListValueCaching(t *testing.T) {
	v := NewString("1 2 {3 4}")
	elems, err := v.List()
	require.NoError(t, err)
	require.Len(t, elems, 3)
	assert.Equal(t, "3 4", elems[2].String())

	// a value built as a list renders with canonical quoting
	l := NewList(NewString("a"), NewString("b c"), NewString(""))
	assert.Equal(t, "a {b c} {}", l.String())
}
