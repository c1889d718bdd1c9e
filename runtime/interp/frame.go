package interp

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aledsdavies/quill/core/invariant"
	"github.com/aledsdavies/quill/runtime/value"
)

// FrameFlag marks what kind of scope a frame is.
type FrameFlag uint8

const (
	FrameGlobal FrameFlag = 1 << iota
	FrameProc
	FrameCoroutine
)

// Frame is one lexical scope: the global scope, or one per active
// procedure call. Its level equals the length of the parent chain to
// the global frame.
type Frame struct {
	parent     *Frame
	level      int
	flags      FrameFlag
	procName   string
	invocation []*value.Value // objv of the call that created the frame
	vars       map[string]*variable
}

// variable is a slot in a frame: a scalar, an array, or an upvar-style
// link into another frame.
type variable struct {
	val *value.Value
	arr map[string]*value.Value

	link     *Frame
	linkName string
}

func newFrame(parent *Frame, flags FrameFlag) *Frame {
	level := 0
	if parent != nil {
		level = parent.level + 1
	}
	return &Frame{
		parent: parent,
		level:  level,
		flags:  flags,
		vars:   make(map[string]*variable),
	}
}

// Level reports the frame's depth, 0 for the global frame.
func (f *Frame) Level() int { return f.level }

// splitArrayName splits "arr(key)" into its base name and key. The
// trailing parenthesis must close the one that opens the index.
func splitArrayName(name string) (base, key string, isArray bool) {
	if !strings.HasSuffix(name, ")") {
		return name, "", false
	}
	open := strings.IndexByte(name, '(')
	if open <= 0 {
		return name, "", false
	}
	return name[:open], name[open+1 : len(name)-1], true
}

// resolve follows a link chain to the owning frame and slot name.
func (f *Frame) resolve(name string) (*Frame, string, *variable) {
	cur, n := f, name
	for {
		v, ok := cur.vars[n]
		if !ok {
			return cur, n, nil
		}
		if v.link == nil {
			return cur, n, v
		}
		cur, n = v.link, v.linkName
	}
}

// getVar reads a scalar or array element from this frame only.
func (f *Frame) getVar(name string) (*value.Value, bool) {
	base, key, isArray := splitArrayName(name)
	_, _, v := f.resolve(base)
	if v == nil {
		return nil, false
	}
	if isArray {
		if v.arr == nil {
			return nil, false
		}
		e, ok := v.arr[key]
		return e, ok
	}
	if v.val == nil {
		return nil, false
	}
	return v.val, true
}

// setVar writes a scalar or array element in this frame. Stored values
// are duplicated: the frame never aliases a value the script still
// holds.
func (f *Frame) setVar(name string, val *value.Value) {
	invariant.NotNil(val, "val")
	base, key, isArray := splitArrayName(name)
	owner, n, v := f.resolve(base)
	if v == nil {
		v = &variable{}
		owner.vars[n] = v
	}
	if isArray {
		if v.arr == nil {
			v.arr = make(map[string]*value.Value)
		}
		v.arr[key] = val.Dup()
		return
	}
	v.val = val.Dup()
}

// unsetVar removes a variable or array element from this frame.
func (f *Frame) unsetVar(name string) bool {
	base, key, isArray := splitArrayName(name)
	owner, n, v := f.resolve(base)
	if v == nil {
		return false
	}
	if isArray {
		if v.arr == nil {
			return false
		}
		if _, ok := v.arr[key]; !ok {
			return false
		}
		delete(v.arr, key)
		return true
	}
	delete(owner.vars, n)
	return true
}

// linkVar installs name in this frame as a link to otherName in target.
func (f *Frame) linkVar(name string, target *Frame, otherName string) {
	f.vars[name] = &variable{link: target, linkName: otherName}
}

// varNames lists the variables visible in this frame, sorted.
func (f *Frame) varNames() []string {
	names := make([]string, 0, len(f.vars))
	for n, v := range f.vars {
		if v.val != nil || v.arr != nil || v.link != nil {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// array returns the array slot for base, if it exists as an array.
func (f *Frame) array(base string) (map[string]*value.Value, bool) {
	_, _, v := f.resolve(base)
	if v == nil || v.arr == nil {
		return nil, false
	}
	return v.arr, true
}

// resolveVarFrame maps a possibly ::-qualified name to the frame that
// owns it. Only the global namespace exists; a :: prefix addresses the
// global frame directly.
func (in *Interp) resolveVarFrame(name string) (*Frame, string) {
	if strings.HasPrefix(name, "::") {
		return in.global, strings.TrimPrefix(name, "::")
	}
	return in.frame, name
}

// varGet resolves a variable for reading: the owning frame first, then
// the global frame. A miss in both is the canonical name error.
func (in *Interp) varGet(name string) (*value.Value, Code) {
	f, n := in.resolveVarFrame(name)
	if v, ok := f.getVar(n); ok {
		return v, OK
	}
	if f != in.global {
		if v, ok := in.global.getVar(n); ok {
			return v, OK
		}
	}
	return nil, in.errorf("can't read %q: no such variable", name)
}

// varRead reads without the global fallback or an error, for commands
// like append and incr that treat a missing variable as empty.
func (in *Interp) varRead(name string) (*value.Value, bool) {
	f, n := in.resolveVarFrame(name)
	return f.getVar(n)
}

// varSet writes a variable in its owning frame.
func (in *Interp) varSet(name string, v *value.Value) {
	f, n := in.resolveVarFrame(name)
	f.setVar(n, v)
}

// varUnset removes a variable from its owning frame.
func (in *Interp) varUnset(name string) bool {
	f, n := in.resolveVarFrame(name)
	return f.unsetVar(n)
}

// arrayFor resolves an array by name, with the global fallback reads
// get.
func (in *Interp) arrayFor(name string) (map[string]*value.Value, bool) {
	f, n := in.resolveVarFrame(name)
	if m, ok := f.array(n); ok {
		return m, true
	}
	if f != in.global {
		return in.global.array(n)
	}
	return nil, false
}

// varExists reports whether a read of name would succeed.
func (in *Interp) varExists(name string) bool {
	f, n := in.resolveVarFrame(name)
	if _, ok := f.getVar(n); ok {
		return true
	}
	if f != in.global {
		if _, ok := in.global.getVar(n); ok {
			return true
		}
	}
	return false
}

// frameAtLevel resolves a level argument for uplevel and upvar: "#N" is
// absolute, a bare integer is relative to the current frame, the
// default distance is 1.
func (in *Interp) frameAtLevel(spec string) (*Frame, error) {
	var target int
	if strings.HasPrefix(spec, "#") {
		n, err := strconv.Atoi(spec[1:])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("bad level %q", spec)
		}
		target = n
	} else {
		n, err := strconv.Atoi(spec)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("bad level %q", spec)
		}
		target = in.frame.level - n
	}
	if target < 0 || target > in.frame.level {
		return nil, fmt.Errorf("bad level %q", spec)
	}
	f := in.frame
	for f != nil && f.level != target {
		f = f.parent
	}
	if f == nil {
		return nil, fmt.Errorf("bad level %q", spec)
	}
	return f, nil
}

// looksLikeLevel reports whether a word should be treated as a level
// argument: #N or a plain integer.
func looksLikeLevel(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '#' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
