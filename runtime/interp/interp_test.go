package interp

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/quill/runtime/value"
)

// testHost captures channel traffic in memory.
type testHost struct {
	in  io.Reader
	out bytes.Buffer
	err bytes.Buffer
}

func newTestHost(input string) *testHost {
	return &testHost{in: strings.NewReader(input)}
}

func (h *testHost) Stdin() io.Reader  { return h.in }
func (h *testHost) Stdout() io.Writer { return &h.out }
func (h *testHost) Stderr() io.Writer { return &h.err }

func (h *testHost) Open(name, mode string) (io.ReadWriteCloser, error) {
	return nil, errors.New("no filesystem in tests")
}

func (h *testHost) LookupExtern(name string) (ExternFunc, bool) { return nil, false }

func testInterp(t *testing.T) (*Interp, *testHost) {
	t.Helper()
	host := newTestHost("")
	return New(WithHost(host)), host
}

func mustEval(t *testing.T, in *Interp, script string) string {
	t.Helper()
	v, err := in.Eval(script)
	require.NoError(t, err, "eval %q", script)
	return v.String()
}

func evalErr(t *testing.T, in *Interp, script string) string {
	t.Helper()
	_, err := in.Eval(script)
	require.Error(t, err, "eval %q should fail", script)
	return err.Error()
}

func TestSubstitutionPipeline(t *testing.T) {
	in, host := testInterp(t)
	result := mustEval(t, in, "set x 5; set y [expr $x+2]; puts $y")
	assert.Equal(t, "", result, "puts leaves an empty result")
	assert.Equal(t, "7\n", host.out.String())
}

func TestSetAndVariables(t *testing.T) {
	in, _ := testInterp(t)

	assert.Equal(t, "10", mustEval(t, in, "set a 10"))
	assert.Equal(t, "10", mustEval(t, in, "set a"))
	assert.Equal(t, "10", mustEval(t, in, "return $a"))

	assert.Equal(t, `can't read "nope": no such variable`, evalErr(t, in, "set nope"))

	mustEval(t, in, "unset a")
	assert.Equal(t, `can't read "nope": no such variable`, evalErr(t, in, "puts $nope"))
	assert.Equal(t, "", mustEval(t, in, "unset -nocomplain ghost"))
}

func TestGlobalFallbackOnRead(t *testing.T) {
	in, _ := testInterp(t)
	mustEval(t, in, "set g 99")
	mustEval(t, in, "proc peek {} { set g }")
	assert.Equal(t, "99", mustEval(t, in, "peek"))

	// writes stay local
	mustEval(t, in, "proc bump {} { set g 1; set g }")
	assert.Equal(t, "1", mustEval(t, in, "bump"))
	assert.Equal(t, "99", mustEval(t, in, "set g"))

	// :: addresses the global frame from anywhere
	mustEval(t, in, "proc qualified {} { return $::g }")
	assert.Equal(t, "99", mustEval(t, in, "qualified"))
}

func TestIncrAndAppend(t *testing.T) {
	in, _ := testInterp(t)
	assert.Equal(t, "1", mustEval(t, in, "incr fresh"))
	assert.Equal(t, "11", mustEval(t, in, "incr fresh 10"))
	assert.Contains(t, evalErr(t, in, "set s abc; incr s"), "expected integer but got")

	assert.Equal(t, "ab", mustEval(t, in, "append acc a b"))
	assert.Equal(t, "abcd", mustEval(t, in, "append acc cd"))
}

func TestProcDefaultsAndVariadic(t *testing.T) {
	in, _ := testInterp(t)
	mustEval(t, in, "proc f {a {b 10} args} { return [list $a $b $args] }")

	assert.Equal(t, "1 2 {3 4}", mustEval(t, in, "f 1 2 3 4"))
	assert.Equal(t, "1 10 {}", mustEval(t, in, "f 1"))
	assert.Equal(t, "1 2 {}", mustEval(t, in, "f 1 2"))
	assert.Equal(t, `wrong # args: should be "f a ?b? ?arg ...?"`, evalErr(t, in, "f"))
}

// TestArityWindow exercises the accept window for procedures with and
// without a variadic tail.
func TestArityWindow(t *testing.T) {
	in, _ := testInterp(t)
	mustEval(t, in, "proc fixed {a {b 1}} { list $a $b }")
	mustEval(t, in, "proc spread {a {b 1} args} { list $a $b $args }")

	for _, tc := range []struct {
		call string
		ok   bool
	}{
		{"fixed", false},
		{"fixed 1", true},
		{"fixed 1 2", true},
		{"fixed 1 2 3", false},
		{"spread", false},
		{"spread 1", true},
		{"spread 1 2 3 4 5", true},
	} {
		_, err := in.Eval(tc.call)
		if tc.ok {
			assert.NoError(t, err, tc.call)
		} else {
			require.Error(t, err, tc.call)
			assert.Contains(t, err.Error(), "wrong # args", tc.call)
		}
	}
}

func TestProcReturnCollapses(t *testing.T) {
	in, _ := testInterp(t)
	mustEval(t, in, "proc five {} { return 5; error unreachable }")
	assert.Equal(t, "5", mustEval(t, in, "five"))
}

func TestUnknownCommand(t *testing.T) {
	in, _ := testInterp(t)
	assert.Equal(t, `invalid command name "frobnicate"`, evalErr(t, in, "frobnicate 1 2"))
}

func TestControlFlow(t *testing.T) {
	in, _ := testInterp(t)

	assert.Equal(t, "", mustEval(t, in, "while 1 {break}"))

	mustEval(t, in, "set n 0; while {$n < 5} { incr n }")
	assert.Equal(t, "5", mustEval(t, in, "set n"))

	mustEval(t, in, "set sum 0; for {set i 0} {$i < 5} {incr i} { incr sum $i }")
	assert.Equal(t, "10", mustEval(t, in, "set sum"))

	mustEval(t, in, `
		set acc {}
		foreach v {a b c} { lappend acc $v $v }
	`)
	assert.Equal(t, "a a b b c c", mustEval(t, in, "set acc"))

	mustEval(t, in, `
		set odd {}
		foreach v {1 2 3 4 5} {
			if {$v % 2 == 0} { continue }
			lappend odd $v
		}
	`)
	assert.Equal(t, "1 3 5", mustEval(t, in, "set odd"))

	// multiple loop variables consume the list in chunks
	mustEval(t, in, "set pairs {}; foreach {k v} {a 1 b 2} { lappend pairs $v $k }")
	assert.Equal(t, "1 a 2 b", mustEval(t, in, "set pairs"))

	assert.Equal(t, "2 4 6", mustEval(t, in, "lmap v {1 2 3} { expr {$v * 2} }"))
}

func TestIfChain(t *testing.T) {
	in, _ := testInterp(t)
	mustEval(t, in, `
		proc grade {n} {
			if {$n >= 90} { return A } elseif {$n >= 80} { return B } else { return C }
		}
	`)
	assert.Equal(t, "A", mustEval(t, in, "grade 95"))
	assert.Equal(t, "B", mustEval(t, in, "grade 85"))
	assert.Equal(t, "C", mustEval(t, in, "grade 10"))
	assert.Equal(t, "yes", mustEval(t, in, "if 1 then {return yes}"))
}

func TestCatch(t *testing.T) {
	in, _ := testInterp(t)

	assert.Equal(t, "1", mustEval(t, in, "catch { expr 1/0 } msg"))
	assert.Equal(t, "divide by zero", strings.SplitN(mustEval(t, in, "set msg"), "\n", 2)[0])
	assert.Equal(t, "1", mustEval(t, in, "info exists ::errorCode"))

	assert.Equal(t, "0", mustEval(t, in, "catch { expr 1+1 } msg"))
	assert.Equal(t, "2", mustEval(t, in, "set msg"))

	assert.Equal(t, "3", mustEval(t, in, "catch { break }"))
	assert.Equal(t, "4", mustEval(t, in, "catch { continue }"))
	assert.Equal(t, "2", mustEval(t, in, "catch { return x }"))

	mustEval(t, in, "catch { error boom } msg opts")
	assert.Equal(t, "boom", mustEval(t, in, "set msg"))
	assert.Contains(t, mustEval(t, in, "set opts"), "-code 1")
}

func TestErrorAndThrow(t *testing.T) {
	in, _ := testInterp(t)

	assert.Equal(t, "boom", evalErr(t, in, "error boom"))

	mustEval(t, in, "catch { throw {POSIX ENOENT} {no such file} } msg")
	assert.Equal(t, "no such file", mustEval(t, in, "set msg"))
	assert.Equal(t, "POSIX ENOENT", in.ErrorCode().String())

	mustEval(t, in, "catch { error msg info {CODE 42} }")
	assert.Equal(t, "CODE 42", in.ErrorCode().String())
	assert.Equal(t, "info", in.ErrorInfo())
}

func TestTry(t *testing.T) {
	in, _ := testInterp(t)

	assert.Equal(t, "caught", mustEval(t, in, `try { error boom } on error {msg} { set r caught }`))
	assert.Equal(t, "boom", mustEval(t, in, `try { error boom } on error {msg} { set msg }`))
	assert.Equal(t, "fine", mustEval(t, in, `try { set x fine }`))

	mustEval(t, in, "set log {}")
	assert.Equal(t, "body", mustEval(t, in, `try { set r body } finally { lappend log done }`))
	assert.Equal(t, "done", mustEval(t, in, "set log"))

	// trap matches on errorCode prefix
	assert.Equal(t, "trapped", mustEval(t, in, `
		try { throw {POSIX ENOENT} gone } trap {POSIX} {msg} { set r trapped }
	`))

	// a failing finally supersedes
	assert.Equal(t, "late", evalErr(t, in, `try { set x 1 } finally { error late }`))
}

func TestSwitch(t *testing.T) {
	in, _ := testInterp(t)
	mustEval(t, in, `
		proc classify {x} {
			switch -glob $x {
				"" { return empty }
				[0-9]* { return number }
				default { return word }
			}
		}
	`)
	assert.Equal(t, "number", mustEval(t, in, "classify 42x"))
	assert.Equal(t, "word", mustEval(t, in, "classify hello"))

	assert.Equal(t, "two", mustEval(t, in, "switch b { a - b { return two } c { return three } }"))
	assert.Equal(t, "", mustEval(t, in, "switch zz { a { return one } }"))
}

func TestUplevelUpvarGlobal(t *testing.T) {
	in, _ := testInterp(t)

	mustEval(t, in, `
		proc incrVar {name} {
			upvar 1 $name local
			incr local
		}
	`)
	mustEval(t, in, "set counter 5; incrVar counter")
	assert.Equal(t, "6", mustEval(t, in, "set counter"))

	mustEval(t, in, `
		proc setGlobal {} {
			global gv
			set gv written
		}
	`)
	mustEval(t, in, "setGlobal")
	assert.Equal(t, "written", mustEval(t, in, "set gv"))

	mustEval(t, in, `
		proc outer {} { set here outer-scope; inner }
		proc inner {} { uplevel 1 {set here} }
	`)
	assert.Equal(t, "outer-scope", mustEval(t, in, "outer"))

	// #0 addresses the global frame absolutely
	mustEval(t, in, "proc deep {} { uplevel #0 {set topvar absolute} }")
	mustEval(t, in, "deep")
	assert.Equal(t, "absolute", mustEval(t, in, "set topvar"))
}

func TestExpand(t *testing.T) {
	in, _ := testInterp(t)
	assert.Equal(t, "a b c", mustEval(t, in, "list {*}{a b} c"))
	mustEval(t, in, "set xs {1 2 3}")
	assert.Equal(t, "3", mustEval(t, in, "llength [list {*}$xs]"))
	assert.Equal(t, "1 2 3 4", mustEval(t, in, "list {*}$xs 4"))
	assert.Equal(t, "6", mustEval(t, in, "expr [join [list {*}$xs] +]"))
}

func TestEvalAndConcat(t *testing.T) {
	in, _ := testInterp(t)
	assert.Equal(t, "3", mustEval(t, in, "eval set q 3"))
	assert.Equal(t, "3", mustEval(t, in, `eval {set q 3}`))
	assert.Equal(t, "a b c d", mustEval(t, in, "concat {a b} {c d}"))
	assert.Equal(t, "a b", mustEval(t, in, "concat {  a b  }"))
}

func TestRename(t *testing.T) {
	in, _ := testInterp(t)
	mustEval(t, in, "proc hello {} { return hi }")
	mustEval(t, in, "rename hello greet")
	assert.Equal(t, "hi", mustEval(t, in, "greet"))
	assert.Contains(t, evalErr(t, in, "hello"), "invalid command name")
	mustEval(t, in, "rename greet {}")
	assert.Contains(t, evalErr(t, in, "greet"), "invalid command name")
	assert.Contains(t, evalErr(t, in, "rename set foo"), "built-in")
}

func TestArrays(t *testing.T) {
	in, _ := testInterp(t)
	mustEval(t, in, "set a(one) 1; set a(two) 2")
	assert.Equal(t, "1", mustEval(t, in, "set a(one)"))
	assert.Equal(t, "one two", mustEval(t, in, "lsort [array names a]"))
	assert.Equal(t, "2", mustEval(t, in, "array size a"))
	assert.Equal(t, "1", mustEval(t, in, "array exists a"))
	assert.Equal(t, "0", mustEval(t, in, "array exists missing"))

	mustEval(t, in, "array set b {x 10 y 20}")
	assert.Equal(t, "10", mustEval(t, in, "set b(x)"))
	assert.Equal(t, "x 10 y 20", mustEval(t, in, "array get b"))

	mustEval(t, in, "array unset b")
	assert.Equal(t, "0", mustEval(t, in, "array exists b"))

	// array element through a computed index
	mustEval(t, in, "set i two")
	assert.Equal(t, "2", mustEval(t, in, "set a($i)"))
}

func TestInfo(t *testing.T) {
	in, _ := testInterp(t)
	mustEval(t, in, "proc f {a {b 10}} { return $a }")

	assert.Equal(t, "a b", mustEval(t, in, "info args f"))
	assert.Equal(t, " return $a ", mustEval(t, in, "info body f"))
	assert.Equal(t, "1", mustEval(t, in, "info default f b dv"))
	assert.Equal(t, "10", mustEval(t, in, "set dv"))
	assert.Equal(t, "f", mustEval(t, in, "info procs f*"))

	mustEval(t, in, "set v 1")
	assert.Equal(t, "1", mustEval(t, in, "info exists v"))
	assert.Equal(t, "0", mustEval(t, in, "info exists missing"))

	assert.Equal(t, "0", mustEval(t, in, "info level"))
	mustEval(t, in, "proc lvl {} { info level }")
	assert.Equal(t, "1", mustEval(t, in, "lvl"))

	mustEval(t, in, "proc who {a b} { info level 0 }")
	assert.Equal(t, "who x y", mustEval(t, in, "who x y"))

	assert.Equal(t, "1", mustEval(t, in, `info complete "set a 1"`))
	assert.Equal(t, "0", mustEval(t, in, `info complete "set a \{"`))
}

func TestStringCommands(t *testing.T) {
	in, _ := testInterp(t)
	assert.Equal(t, "5", mustEval(t, in, "string length hello"))
	assert.Equal(t, "e", mustEval(t, in, "string index hello 1"))
	assert.Equal(t, "o", mustEval(t, in, "string index hello end"))
	assert.Equal(t, "ell", mustEval(t, in, "string range hello 1 3"))
	assert.Equal(t, "HELLO", mustEval(t, in, "string toupper hello"))
	assert.Equal(t, "hello", mustEval(t, in, "string trim {  hello  }"))
	assert.Equal(t, "1", mustEval(t, in, "string equal abc abc"))
	assert.Equal(t, "olleh", mustEval(t, in, "string reverse hello"))
	assert.Equal(t, "ababab", mustEval(t, in, "string repeat ab 3"))
	assert.Equal(t, "1", mustEval(t, in, "string match {h*o} hello"))
	assert.Equal(t, "0", mustEval(t, in, "string match {h?o} hello"))
	assert.Equal(t, "2", mustEval(t, in, "string first l hello"))
}

func TestFormat(t *testing.T) {
	in, _ := testInterp(t)
	assert.Equal(t, "x=  7", mustEval(t, in, "format {x=%3d} 7"))
	assert.Equal(t, "3.14", mustEval(t, in, "format %.2f 3.14159"))
	assert.Equal(t, "ff", mustEval(t, in, "format %x 255"))
	assert.Equal(t, "A", mustEval(t, in, "format %c 65"))
	assert.Equal(t, "100%", mustEval(t, in, "format {100%%}"))
	assert.Equal(t, "pad   |", mustEval(t, in, "format {%-6s|} pad"))
}

func TestListCommands(t *testing.T) {
	in, _ := testInterp(t)

	assert.Equal(t, "3", mustEval(t, in, "llength [list a b c]"))
	assert.Equal(t, "b", mustEval(t, in, "lindex {a b c} 1"))
	assert.Equal(t, "c", mustEval(t, in, "lindex {a b c} end"))
	assert.Equal(t, "b c", mustEval(t, in, "lrange {a b c d} 1 2"))
	assert.Equal(t, "a x b", mustEval(t, in, "linsert {a b} 1 x"))
	assert.Equal(t, "a X c", mustEval(t, in, "lreplace {a b c} 1 1 X"))
	assert.Equal(t, "c b a", mustEval(t, in, "lreverse {a b c}"))
	assert.Equal(t, "a b c", mustEval(t, in, "lsort {c a b}"))
	assert.Equal(t, "10 9 2", mustEval(t, in, "lsort -integer -decreasing {9 10 2}"))
	assert.Equal(t, "a b", mustEval(t, in, "lsort -unique {b a b}"))
	assert.Equal(t, "1", mustEval(t, in, "lsearch {a b c} b"))
	assert.Equal(t, "-1", mustEval(t, in, "lsearch -exact {a b c} z"))
	assert.Equal(t, "0 1 2", mustEval(t, in, "lseq 3"))
	assert.Equal(t, "2 4 6", mustEval(t, in, "lseq 2 6 2"))
	assert.Equal(t, "x x x", mustEval(t, in, "lrepeat 3 x"))
	assert.Equal(t, "a c", mustEval(t, in, "lremove {a b c} 1"))

	mustEval(t, in, "set l {a b c}")
	assert.Equal(t, "a X c", mustEval(t, in, "lset l 1 X"))
	assert.Equal(t, "c", mustEval(t, in, "lpop l"))
	assert.Equal(t, "a X", mustEval(t, in, "set l"))

	assert.Equal(t, "rest", mustEval(t, in, "lassign {1 2 rest} p q"))
	assert.Equal(t, "1", mustEval(t, in, "set p"))

	mustEval(t, in, "set e {a b c d}")
	assert.Equal(t, "a Y d", mustEval(t, in, "ledit e 1 2 Y"))

	assert.Equal(t, "a-b-c", mustEval(t, in, "join {a b c} -"))
	assert.Equal(t, "a b c", mustEval(t, in, "split a-b-c -"))
	assert.Equal(t, "3", mustEval(t, in, "llength [split {a b c}]"))

	// byte-for-byte recovery through list and lindex
	mustEval(t, in, "set built [list {a b} c]")
	assert.Equal(t, "a b", mustEval(t, in, "lindex $built 0"))
	assert.Equal(t, "c", mustEval(t, in, "lindex $built 1"))
}

func TestApply(t *testing.T) {
	in, _ := testInterp(t)
	assert.Equal(t, "9", mustEval(t, in, "apply {{x} { expr {$x * 3} }} 3"))
	assert.Equal(t, "a-b", mustEval(t, in, "apply {{x y} { return $x-$y }} a b"))
}

func TestChannels(t *testing.T) {
	host := newTestHost("line one\nline two\n")
	in := New(WithHost(host))

	mustEval(t, in, "puts hello")
	mustEval(t, in, "puts -nonewline world")
	assert.Equal(t, "hello\nworld", host.out.String())

	mustEval(t, in, "puts stderr oops")
	assert.Equal(t, "oops\n", host.err.String())

	assert.Equal(t, "line one", mustEval(t, in, "gets stdin"))
	assert.Equal(t, "8", mustEval(t, in, "gets stdin rest"))
	assert.Equal(t, "line two", mustEval(t, in, "set rest"))

	assert.Contains(t, evalErr(t, in, "puts nosuch x"), "can not find channel named")
	assert.Contains(t, mustEval(t, in, "chan names"), "stdout")
	assert.Contains(t, evalErr(t, in, "close stdout"), "may not close standard channel")
}

func TestEvalWords(t *testing.T) {
	in, _ := testInterp(t)
	v, err := in.EvalWords([]*value.Value{
		value.NewString("list"), value.NewString("a"), value.NewString("b c"),
	})
	require.NoError(t, err)
	assert.Equal(t, "a {b c}", v.String())
}

func TestTopLevelBreakRejected(t *testing.T) {
	in, _ := testInterp(t)
	assert.Equal(t, `invoked "break" outside of a loop`, evalErr(t, in, "break"))
	assert.Equal(t, `invoked "continue" outside of a loop`, evalErr(t, in, "continue"))
}

func TestErrorInfoAccumulates(t *testing.T) {
	in, _ := testInterp(t)
	mustEval(t, in, "proc inner {} { error deep }")
	mustEval(t, in, "proc outer {} { inner }")
	_, err := in.Eval("outer")
	require.Error(t, err)
	ee := err.(*EvalError)
	assert.Equal(t, "deep", ee.Msg)
	assert.Contains(t, ee.Info, "while executing")
	assert.Contains(t, ee.Info, "inner")
}

func TestEmptyScript(t *testing.T) {
	in, _ := testInterp(t)
	assert.Equal(t, "", mustEval(t, in, ""))
	assert.Equal(t, "", mustEval(t, in, "   \n  ; ;\n # just a comment\n"))
}

func TestStackDepthBalanced(t *testing.T) {
	in, _ := testInterp(t)
	// deep nesting exercises the explicit stack, not Go recursion
	mustEval(t, in, "set v [list [list [list [list deep]]]]")
	assert.Equal(t, "deep", mustEval(t, in, "lindex [lindex [lindex [lindex $v 0] 0] 0] 0"))
}
