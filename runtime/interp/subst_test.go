package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstCommand(t *testing.T) {
	in, _ := testInterp(t)
	mustEval(t, in, "set name world")

	tests := []struct {
		script string
		want   string
	}{
		{`subst {hello $name}`, "hello world"},
		{`subst {1 + 1 = [expr 1+1]}`, "1 + 1 = 2"},
		{`subst {tab\there}`, "tab\there"},
		{`subst -novariables {keep $name}`, "keep $name"},
		{`subst -nocommands {keep [list x]}`, "keep [list x]"},
		{`subst -nobackslashes {keep\tthis}`, `keep\tthis`},
		{`subst {$name}`, "world"},
		{`subst {a $ b}`, "a $ b"}, // a lone dollar is literal
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mustEval(t, in, tt.script), tt.script)
	}
}

// TestSubstIdempotent: strings without $, [, or backslash pass through
// unchanged, and substituting again changes nothing.
func TestSubstIdempotent(t *testing.T) {
	in, _ := testInterp(t)
	for _, s := range []string{"plain", "two words", "punct: ,;!", ""} {
		v, code := in.Subst(s, SubstAll)
		assert.Equal(t, OK, code)
		assert.Equal(t, s, v.String())
		again, code := in.Subst(v.String(), SubstAll)
		assert.Equal(t, OK, code)
		assert.Equal(t, s, again.String())
	}
}

func TestSubstEscapes(t *testing.T) {
	in, _ := testInterp(t)
	tests := []struct {
		script string
		want   string
	}{
		{`subst {\x41}`, "A"},
		{`subst {\x413}`, "A3"}, // at most two hex digits
		{`subst {ABC}`, "ABC"},
		{`subst {\101}`, "A"}, // octal
		{`subst {\q}`, "q"},   // unknown escapes pass through
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mustEval(t, in, tt.script), tt.script)
	}
}

func TestSubstLineContinuation(t *testing.T) {
	in, _ := testInterp(t)
	v, code := in.Subst("a\\\n    b", SubstBackslash)
	assert.Equal(t, OK, code)
	assert.Equal(t, "a b", v.String())
}

func TestSubstArrayIndexSubstitution(t *testing.T) {
	in, _ := testInterp(t)
	mustEval(t, in, "set k key; set a(key) found")
	v, code := in.Subst("$a($k)", SubstAll)
	assert.Equal(t, OK, code)
	assert.Equal(t, "found", v.String())
}

func TestSubstVariableError(t *testing.T) {
	in, _ := testInterp(t)
	assert.Equal(t, `can't read "missing": no such variable`, evalErr(t, in, `subst {$missing}`))
}

// TestSubstBreakContinue: break aborts with the text so far, continue
// contributes nothing.
func TestSubstBreakContinue(t *testing.T) {
	in, _ := testInterp(t)
	assert.Equal(t, "before-", mustEval(t, in, `subst {before-[break]after}`))
	assert.Equal(t, "before-after", mustEval(t, in, `subst {before-[continue]after}`))
}
