package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/aledsdavies/quill/core/ast"
)

// structuralOpts compares trees structurally, ignoring source
// positions.
func structuralOpts() cmp.Options {
	return cmp.Options{
		cmpopts.IgnoreFields(ast.Script{}, "Ln"),
		cmpopts.IgnoreFields(ast.Command{}, "Ln"),
		cmpopts.IgnoreFields(ast.Word{}, "Ln"),
		cmpopts.IgnoreFields(ast.Literal{}, "Ln"),
		cmpopts.IgnoreFields(ast.Backslash{}, "Ln"),
		cmpopts.IgnoreFields(ast.SimpleVar{}, "Ln"),
		cmpopts.IgnoreFields(ast.ArrayVar{}, "Ln"),
		cmpopts.IgnoreFields(ast.CmdSubst{}, "Ln"),
		cmpopts.IgnoreFields(ast.Expand{}, "Ln"),
	}
}

func mustParse(t *testing.T, src string) *ast.Script {
	t.Helper()
	s, err := Parse(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return s
}

func lit(s string) *ast.Literal { return &ast.Literal{Text: s} }

func TestParseShapes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want *ast.Script
	}{
		{
			name: "single command of bare literals",
			src:  "set x 5",
			want: &ast.Script{Commands: []*ast.Command{
				{Words: []ast.Node{lit("set"), lit("x"), lit("5")}},
			}},
		},
		{
			name: "brace word is a raw literal",
			src:  `set x {a $b [c]}`,
			want: &ast.Script{Commands: []*ast.Command{
				{Words: []ast.Node{lit("set"), lit("x"), lit("a $b [c]")}},
			}},
		},
		{
			name: "simple variable word collapses",
			src:  "puts $x",
			want: &ast.Script{Commands: []*ast.Command{
				{Words: []ast.Node{lit("puts"), &ast.SimpleVar{Name: "x"}}},
			}},
		},
		{
			name: "braced variable name",
			src:  "puts ${a b}",
			want: &ast.Script{Commands: []*ast.Command{
				{Words: []ast.Node{lit("puts"), &ast.SimpleVar{Name: "a b"}}},
			}},
		},
		{
			name: "array variable with literal index",
			src:  "puts $a(1)",
			want: &ast.Script{Commands: []*ast.Command{
				{Words: []ast.Node{lit("puts"), &ast.ArrayVar{Name: "a", Index: lit("1")}}},
			}},
		},
		{
			name: "array index may contain substitutions",
			src:  "puts $a($i)",
			want: &ast.Script{Commands: []*ast.Command{
				{Words: []ast.Node{lit("puts"), &ast.ArrayVar{Name: "a", Index: &ast.SimpleVar{Name: "i"}}}},
			}},
		},
		{
			name: "command substitution",
			src:  "set y [foo bar]",
			want: &ast.Script{Commands: []*ast.Command{
				{Words: []ast.Node{lit("set"), lit("y"), &ast.CmdSubst{
					Script: &ast.Script{Commands: []*ast.Command{
						{Words: []ast.Node{lit("foo"), lit("bar")}},
					}},
				}}},
			}},
		},
		{
			name: "quoted composite interleaves parts",
			src:  `puts "a $b c"`,
			want: &ast.Script{Commands: []*ast.Command{
				{Words: []ast.Node{lit("puts"), &ast.Word{Parts: []ast.Node{
					lit("a "), &ast.SimpleVar{Name: "b"}, lit(" c"),
				}}}},
			}},
		},
		{
			name: "backslash escape resolves at parse time",
			src:  `puts "a\tb"`,
			want: &ast.Script{Commands: []*ast.Command{
				{Words: []ast.Node{lit("puts"), &ast.Word{Parts: []ast.Node{
					lit("a"), &ast.Backslash{Value: "\t"}, lit("b"),
				}}}},
			}},
		},
		{
			name: "lone dollar stays literal",
			src:  `puts "a$ b"`,
			want: &ast.Script{Commands: []*ast.Command{
				{Words: []ast.Node{lit("puts"), lit("a$ b")}},
			}},
		},
		{
			name: "expand word wraps the inner word",
			src:  "cmd {*}$xs",
			want: &ast.Script{Commands: []*ast.Command{
				{Words: []ast.Node{lit("cmd"), &ast.Expand{Word: &ast.SimpleVar{Name: "xs"}}}},
			}},
		},
		{
			name: "semicolons separate commands",
			src:  "a; b; c",
			want: &ast.Script{Commands: []*ast.Command{
				{Words: []ast.Node{lit("a")}},
				{Words: []ast.Node{lit("b")}},
				{Words: []ast.Node{lit("c")}},
			}},
		},
		{
			name: "blank lines and comments are dropped",
			src:  "\n# comment\n\na\n",
			want: &ast.Script{Commands: []*ast.Command{
				{Words: []ast.Node{lit("a")}},
			}},
		},
		{
			name: "empty script",
			src:  "",
			want: &ast.Script{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustParse(t, tt.src)
			if diff := cmp.Diff(tt.want, got, structuralOpts()); diff != "" {
				t.Errorf("tree mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"set x {a", "missing close-brace"},
		{`set x "a`, `missing "`},
		{"set x [foo", "missing close-brace"},
	}
	for _, tt := range tests {
		if _, err := Parse(tt.src); err == nil || err.Error() != tt.want {
			t.Errorf("Parse(%q) error = %v, want %q", tt.src, err, tt.want)
		}
	}
}

// TestUnparseRoundTrip checks that unparsing a tree and reparsing the
// result yields a structurally equal tree.
func TestUnparseRoundTrip(t *testing.T) {
	scripts := []string{
		"set x 5",
		"set x {a b c}",
		`puts "a $b c"`,
		"set y [expr {1 + 2}]",
		"puts $a($i)",
		"cmd {*}$xs",
		"a; b; c",
		"proc f {a {b 10} args} { return $a }",
		`puts "tab\there"`,
		"puts ${weird name}",
		"foreach v {10 20 30} { yield $v }",
	}
	for _, src := range scripts {
		t.Run(src, func(t *testing.T) {
			first := mustParse(t, src)
			text := ast.Unparse(first)
			second, err := Parse(text)
			if err != nil {
				t.Fatalf("reparse of %q: %v", text, err)
			}
			if diff := cmp.Diff(first, second, structuralOpts()); diff != "" {
				t.Errorf("round trip through %q changed the tree (-first +second):\n%s", text, diff)
			}
		})
	}
}
