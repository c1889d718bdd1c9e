package interp

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aledsdavies/quill/runtime/value"
)

func init() {
	registerBuiltin("puts", builtinPuts)
	registerBuiltin("gets", builtinGets)
	registerBuiltin("read", builtinRead)
	registerBuiltin("open", builtinOpen)
	registerBuiltin("close", builtinClose)
	registerBuiltin("flush", builtinFlush)
	registerBuiltin("eof", builtinEof)
	registerBuiltin("seek", builtinSeek)
	registerBuiltin("tell", builtinTell)
	registerBuiltin("chan", builtinChan)
}

// Channel is one registered I/O endpoint. The host supplies the
// underlying reader/writer; everything above - line buffering, eof
// tracking, option storage - is core state.
type Channel struct {
	name string

	r      *bufio.Reader
	w      io.Writer
	seeker io.Seeker
	closer io.Closer

	std bool // standard channels cannot be closed
	eof bool

	blocking    bool
	buffering   string
	translation string
}

// wireStdChannels registers stdin, stdout, and stderr from the host.
func (in *Interp) wireStdChannels() {
	in.channels["stdin"] = &Channel{
		name: "stdin", r: bufio.NewReader(in.host.Stdin()), std: true,
		blocking: true, buffering: "line", translation: "auto",
	}
	in.channels["stdout"] = &Channel{
		name: "stdout", w: in.host.Stdout(), std: true,
		blocking: true, buffering: "line", translation: "auto",
	}
	in.channels["stderr"] = &Channel{
		name: "stderr", w: in.host.Stderr(), std: true,
		blocking: true, buffering: "none", translation: "auto",
	}
}

func (in *Interp) channel(name string) (*Channel, Code) {
	ch, ok := in.channels[name]
	if !ok {
		return nil, in.errorf("can not find channel named %q", name)
	}
	return ch, OK
}

// builtinPuts implements: puts ?-nonewline? ?channelId? string
func builtinPuts(in *Interp, args []*value.Value) Code {
	newline := true
	i := 1
	if i < len(args) && args[i].String() == "-nonewline" {
		newline = false
		i++
	}
	chName := "stdout"
	switch len(args) - i {
	case 1:
	case 2:
		chName = args[i].String()
		i++
	default:
		return in.wrongArgs("puts ?-nonewline? ?channelId? string")
	}
	ch, code := in.channel(chName)
	if code != OK {
		return code
	}
	if ch.w == nil {
		return in.errorf("channel %q wasn't opened for writing", chName)
	}
	s := args[i].String()
	if newline {
		s += "\n"
	}
	if _, err := io.WriteString(ch.w, s); err != nil {
		return in.errorf("error writing %q: %s", chName, err.Error())
	}
	in.SetResult(value.Empty())
	return OK
}

// builtinGets implements: gets channelId ?varName?
func builtinGets(in *Interp, args []*value.Value) Code {
	if len(args) < 2 || len(args) > 3 {
		return in.wrongArgs("gets channelId ?varName?")
	}
	ch, code := in.channel(args[1].String())
	if code != OK {
		return code
	}
	if ch.r == nil {
		return in.errorf("channel %q wasn't opened for reading", args[1].String())
	}
	line, err := ch.r.ReadString('\n')
	if err == io.EOF {
		ch.eof = true
	} else if err != nil {
		return in.errorf("error reading %q: %s", args[1].String(), err.Error())
	}
	line = strings.TrimRight(line, "\r\n")
	if len(args) == 3 {
		in.varSet(args[2].String(), value.NewString(line))
		if ch.eof && line == "" {
			in.SetResult(value.NewInt(-1))
		} else {
			in.SetResult(value.NewInt(int64(len(line))))
		}
		return OK
	}
	in.setResultString(line)
	return OK
}

// builtinRead implements: read ?-nonewline? channelId ?numChars?
func builtinRead(in *Interp, args []*value.Value) Code {
	trimNewline := false
	i := 1
	if i < len(args) && args[i].String() == "-nonewline" {
		trimNewline = true
		i++
	}
	if i >= len(args) || len(args)-i > 2 {
		return in.wrongArgs("read ?-nonewline? channelId ?numChars?")
	}
	ch, code := in.channel(args[i].String())
	if code != OK {
		return code
	}
	if ch.r == nil {
		return in.errorf("channel %q wasn't opened for reading", args[i].String())
	}
	var data []byte
	var err error
	if len(args)-i == 2 {
		n, cerr := args[i+1].Int()
		if cerr != nil {
			return in.errorf("%s", cerr.Error())
		}
		data = make([]byte, n)
		var got int
		got, err = io.ReadFull(ch.r, data)
		data = data[:got]
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
	} else {
		data, err = io.ReadAll(ch.r)
		if err == nil {
			ch.eof = true
		}
	}
	if err == io.EOF {
		ch.eof = true
	} else if err != nil {
		return in.errorf("error reading %q: %s", ch.name, err.Error())
	}
	s := string(data)
	if trimNewline {
		s = strings.TrimSuffix(s, "\n")
	}
	in.setResultString(s)
	return OK
}

// builtinOpen implements: open fileName ?access?
func builtinOpen(in *Interp, args []*value.Value) Code {
	if len(args) < 2 || len(args) > 3 {
		return in.wrongArgs("open fileName ?access? ?permissions?")
	}
	if in.safe {
		return in.errorf("permission denied: safe interpreter cannot open files")
	}
	mode := "r"
	if len(args) == 3 {
		mode = args[2].String()
	}
	f, err := in.host.Open(args[1].String(), mode)
	if err != nil {
		return in.errorf("couldn't open %q: %s", args[1].String(), err.Error())
	}
	in.chanSeq++
	name := fmt.Sprintf("file%d", in.chanSeq)
	ch := &Channel{
		name: name, w: f, closer: f,
		blocking: true, buffering: "full", translation: "auto",
	}
	if mode == "r" || mode == "r+" || mode == "w+" || mode == "a+" || mode == "" {
		ch.r = bufio.NewReader(f)
	}
	if mode == "r" {
		ch.w = nil
	}
	if s, ok := f.(io.Seeker); ok {
		ch.seeker = s
	}
	in.channels[name] = ch
	in.setResultString(name)
	return OK
}

func (in *Interp) closeChannel(name string) Code {
	ch, code := in.channel(name)
	if code != OK {
		return code
	}
	if ch.std {
		return in.errorf("may not close standard channel %q", name)
	}
	delete(in.channels, name)
	if ch.closer != nil {
		if err := ch.closer.Close(); err != nil {
			return in.errorf("error closing %q: %s", name, err.Error())
		}
	}
	in.SetResult(value.Empty())
	return OK
}

func builtinClose(in *Interp, args []*value.Value) Code {
	if len(args) != 2 {
		return in.wrongArgs("close channelId")
	}
	return in.closeChannel(args[1].String())
}

func builtinFlush(in *Interp, args []*value.Value) Code {
	if len(args) != 2 {
		return in.wrongArgs("flush channelId")
	}
	ch, code := in.channel(args[1].String())
	if code != OK {
		return code
	}
	type flusher interface{ Flush() error }
	if f, ok := ch.w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return in.errorf("error flushing %q: %s", ch.name, err.Error())
		}
	}
	in.SetResult(value.Empty())
	return OK
}

func builtinEof(in *Interp, args []*value.Value) Code {
	if len(args) != 2 {
		return in.wrongArgs("eof channelId")
	}
	ch, code := in.channel(args[1].String())
	if code != OK {
		return code
	}
	in.SetResult(value.NewBool(ch.eof))
	return OK
}

func builtinSeek(in *Interp, args []*value.Value) Code {
	if len(args) < 3 || len(args) > 4 {
		return in.wrongArgs("seek channelId offset ?origin?")
	}
	ch, code := in.channel(args[1].String())
	if code != OK {
		return code
	}
	if ch.seeker == nil {
		return in.errorf("error during seek on %q: invalid argument", ch.name)
	}
	offset, err := args[2].Int()
	if err != nil {
		return in.errorf("%s", err.Error())
	}
	whence := io.SeekStart
	if len(args) == 4 {
		switch args[3].String() {
		case "start":
			whence = io.SeekStart
		case "current":
			whence = io.SeekCurrent
		case "end":
			whence = io.SeekEnd
		default:
			return in.errorf("bad origin %q: must be start, current, or end", args[3].String())
		}
	}
	if _, err := ch.seeker.Seek(offset, whence); err != nil {
		return in.errorf("error during seek on %q: %s", ch.name, err.Error())
	}
	if ch.r != nil {
		ch.r.Reset(ch.seeker.(io.Reader))
		ch.eof = false
	}
	in.SetResult(value.Empty())
	return OK
}

func builtinTell(in *Interp, args []*value.Value) Code {
	if len(args) != 2 {
		return in.wrongArgs("tell channelId")
	}
	ch, code := in.channel(args[1].String())
	if code != OK {
		return code
	}
	if ch.seeker == nil {
		in.SetResult(value.NewInt(-1))
		return OK
	}
	pos, err := ch.seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return in.errorf("error during tell on %q: %s", ch.name, err.Error())
	}
	if ch.r != nil {
		pos -= int64(ch.r.Buffered())
	}
	in.SetResult(value.NewInt(pos))
	return OK
}

// builtinChan dispatches the chan ensemble onto the plain channel
// commands plus names/pending/blocked/configure/cget/copy.
func builtinChan(in *Interp, args []*value.Value) Code {
	if len(args) < 2 {
		return in.wrongArgs("chan subcommand ?arg ...?")
	}
	sub := args[1].String()
	rest := append([]*value.Value{value.NewString("chan " + sub)}, args[2:]...)
	switch sub {
	case "puts":
		return builtinPuts(in, rest)
	case "gets":
		return builtinGets(in, rest)
	case "read":
		return builtinRead(in, rest)
	case "close":
		return builtinClose(in, rest)
	case "flush":
		return builtinFlush(in, rest)
	case "eof":
		return builtinEof(in, rest)
	case "seek":
		return builtinSeek(in, rest)
	case "tell":
		return builtinTell(in, rest)

	case "names":
		pattern := ""
		if len(args) == 3 {
			pattern = args[2].String()
		}
		names := make([]string, 0, len(in.channels))
		for n := range in.channels {
			names = append(names, n)
		}
		sort.Strings(names)
		in.SetResult(value.NewList(matchNames(names, pattern)...))
		return OK

	case "pending":
		if len(args) != 4 {
			return in.wrongArgs("chan pending mode channelId")
		}
		ch, code := in.channel(args[3].String())
		if code != OK {
			return code
		}
		switch args[2].String() {
		case "input":
			if ch.r == nil {
				in.SetResult(value.NewInt(-1))
			} else {
				in.SetResult(value.NewInt(int64(ch.r.Buffered())))
			}
		case "output":
			in.SetResult(value.NewInt(0))
		default:
			return in.errorf("bad mode %q: must be input or output", args[2].String())
		}
		return OK

	case "blocked":
		if len(args) != 3 {
			return in.wrongArgs("chan blocked channelId")
		}
		if _, code := in.channel(args[2].String()); code != OK {
			return code
		}
		in.SetResult(value.NewBool(false))
		return OK

	case "configure":
		if len(args) < 3 {
			return in.wrongArgs("chan configure channelId ?-option value ...?")
		}
		ch, code := in.channel(args[2].String())
		if code != OK {
			return code
		}
		if len(args) == 3 {
			in.SetResult(value.NewList(
				value.NewString("-blocking"), value.NewBool(ch.blocking),
				value.NewString("-buffering"), value.NewString(ch.buffering),
				value.NewString("-translation"), value.NewString(ch.translation),
			))
			return OK
		}
		if (len(args)-3)%2 != 0 {
			return in.wrongArgs("chan configure channelId ?-option value ...?")
		}
		for i := 3; i < len(args); i += 2 {
			switch args[i].String() {
			case "-blocking":
				b, err := args[i+1].Bool()
				if err != nil {
					return in.errorf("%s", err.Error())
				}
				ch.blocking = b
			case "-buffering":
				ch.buffering = args[i+1].String()
			case "-translation":
				ch.translation = args[i+1].String()
			default:
				return in.errorf("bad option %q: must be -blocking, -buffering, or -translation", args[i].String())
			}
		}
		in.SetResult(value.Empty())
		return OK

	case "cget":
		if len(args) != 4 {
			return in.wrongArgs("chan cget channelId option")
		}
		ch, code := in.channel(args[2].String())
		if code != OK {
			return code
		}
		switch args[3].String() {
		case "-blocking":
			in.SetResult(value.NewBool(ch.blocking))
		case "-buffering":
			in.setResultString(ch.buffering)
		case "-translation":
			in.setResultString(ch.translation)
		default:
			return in.errorf("bad option %q: must be -blocking, -buffering, or -translation", args[3].String())
		}
		return OK

	case "copy":
		if len(args) != 4 {
			return in.wrongArgs("chan copy inputChan outputChan")
		}
		src, code := in.channel(args[2].String())
		if code != OK {
			return code
		}
		dst, code := in.channel(args[3].String())
		if code != OK {
			return code
		}
		if src.r == nil {
			return in.errorf("channel %q wasn't opened for reading", src.name)
		}
		if dst.w == nil {
			return in.errorf("channel %q wasn't opened for writing", dst.name)
		}
		n, err := io.Copy(dst.w, src.r)
		if err != nil {
			return in.errorf("error copying: %s", err.Error())
		}
		src.eof = true
		in.SetResult(value.NewInt(n))
		return OK

	default:
		return in.errorf("unknown or ambiguous subcommand %q: must be blocked, cget, close, configure, copy, eof, flush, gets, names, pending, puts, read, seek, or tell", sub)
	}
}
