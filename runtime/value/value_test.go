package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntForms(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"42", 42},
		{"-7", -7},
		{"+7", 7},
		{" 13 ", 13},
		{"1_000_000", 1000000},
		{"0x1F", 31},
		{"0b1010", 10},
		{"0o17", 15},
		{"-0x10", -16},
	}
	for _, tt := range tests {
		got, err := ParseInt(tt.in)
		require.NoError(t, err, "ParseInt(%q)", tt.in)
		assert.Equal(t, tt.want, got, "ParseInt(%q)", tt.in)
	}

	for _, bad := range []string{"", "abc", "1.5", "0x", "--3"} {
		_, err := ParseInt(bad)
		assert.Error(t, err, "ParseInt(%q)", bad)
	}
}

func TestFormatDouble(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2.0, "2.0"},
		{2.5, "2.5"},
		{0.0015, "0.0015"},
		{math.Inf(1), "Inf"},
		{math.Inf(-1), "-Inf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDouble(tt.in))
	}
}

func TestTruthy(t *testing.T) {
	trueCases := []string{"1", "true", "yes", "on", "42", "-1", "0.5", "hello"}
	falseCases := []string{"", "0", "false", "no", "off", "0.0"}
	for _, s := range trueCases {
		assert.True(t, Truthy(s), "Truthy(%q)", s)
	}
	for _, s := range falseCases {
		assert.False(t, Truthy(s), "Truthy(%q)", s)
	}
}

func TestShimmering(t *testing.T) {
	v := NewInt(42)
	assert.Equal(t, "42", v.String())

	s := NewString("17")
	i, err := s.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(17), i)

	d := NewString("2.5")
	f, err := d.Double()
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)

	// an int rep promotes to double without reparsing
	f2, err := v.Double()
	require.NoError(t, err)
	assert.Equal(t, 42.0, f2)
}

func TestDupIsIndependentIdentity(t *testing.T) {
	v := NewString("abc")
	d := v.Dup()
	assert.Equal(t, v.String(), d.String())
	if v == d {
		t.Fatal("Dup must return a distinct reference")
	}
}
