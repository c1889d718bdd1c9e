// Command quill runs Tcl scripts on the quill interpreter: a file, a
// -c one-liner, or an interactive REPL when no script is given.
package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/cobra"

	"github.com/aledsdavies/quill/runtime/interp"
	"github.com/aledsdavies/quill/runtime/value"
)

const version = "0.3.0"

func main() {
	var command string
	var watch bool
	var safe bool

	rootCmd := &cobra.Command{
		Use:     "quill ?script ?arg ...??",
		Short:   "A Tcl-compatible scripting interpreter",
		Version: version,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if command != "" {
				return runOnce(command, safe)
			}
			if len(args) == 0 {
				return repl(safe)
			}
			if watch {
				return watchFile(args[0], args[1:], safe)
			}
			return runFile(args[0], args[1:], safe)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.Flags().StringVarP(&command, "command", "c", "", "evaluate the given script and exit")
	rootCmd.Flags().BoolVar(&watch, "watch", false, "re-run the script whenever the file changes")
	rootCmd.Flags().BoolVar(&safe, "safe", false, "run without filesystem access")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newInterp(safe bool) *interp.Interp {
	if safe {
		return interp.New(interp.WithSafe())
	}
	return interp.New()
}

func runOnce(script string, safe bool) error {
	in := newInterp(safe)
	result, err := in.Eval(script)
	if err != nil {
		return reportError(in, err)
	}
	if !result.IsEmpty() {
		fmt.Println(result.String())
	}
	return nil
}

func runFile(name string, scriptArgs []string, safe bool) error {
	src, err := os.ReadFile(name)
	if err != nil {
		return err
	}
	in := newInterp(safe)
	setScriptArgs(in, name, scriptArgs)
	if _, err := in.EvalFile(name, string(src)); err != nil {
		return reportError(in, err)
	}
	return nil
}

// setScriptArgs wires the conventional argv globals.
func setScriptArgs(in *interp.Interp, name string, args []string) {
	vals := make([]*value.Value, len(args))
	for i, a := range args {
		vals[i] = value.NewString(a)
	}
	in.Eval(fmt.Sprintf("set argv0 %s", value.QuoteElement(name)))
	in.Eval("set argc " + fmt.Sprint(len(args)))
	in.Eval("set argv " + value.QuoteElement(value.FormatList(vals)))
}

// watchFile re-runs the script on every write, each time in a fresh
// interpreter so state never leaks between runs.
func watchFile(name string, scriptArgs []string, safe bool) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(name); err != nil {
		return err
	}

	run := func() {
		if err := runFile(name, scriptArgs, safe); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	run()
	fmt.Fprintf(os.Stderr, "watching %s\n", name)

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				run()
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stderr, werr)
		}
	}
}

// repl reads commands from stdin, prompting for continuation lines
// until the input is a complete script.
func repl(safe bool) error {
	in := newInterp(safe)
	scanner := bufio.NewScanner(os.Stdin)
	var pending strings.Builder

	fmt.Print("% ")
	for scanner.Scan() {
		pending.WriteString(scanner.Text())
		src := pending.String()
		if !interp.ScriptComplete(src) {
			pending.WriteByte('\n')
			fmt.Print("> ")
			continue
		}
		pending.Reset()
		result, err := in.Eval(src)
		if err != nil {
			fmt.Println(err.Error())
			suggest(in, err)
		} else if !result.IsEmpty() {
			fmt.Println(result.String())
		}
		fmt.Print("% ")
	}
	fmt.Println()
	return scanner.Err()
}

// suggest prints near-miss command names after an unknown-command
// error.
func suggest(in *interp.Interp, err error) {
	msg := err.Error()
	const prefix = `invalid command name "`
	if !strings.HasPrefix(msg, prefix) {
		return
	}
	name := strings.TrimSuffix(strings.TrimPrefix(msg, prefix), `"`)
	ranked := fuzzy.RankFindFold(name, in.CommandNames())
	if len(ranked) == 0 {
		return
	}
	sort.Sort(ranked)
	fmt.Printf("    did you mean %q?\n", ranked[0].Target)
}

func reportError(in *interp.Interp, err error) error {
	if ee, ok := err.(*interp.EvalError); ok && ee.Info != "" && ee.Info != ee.Msg {
		return fmt.Errorf("%s\n%s", ee.Msg, ee.Info)
	}
	return err
}
