package shell

import (
	"fmt"
	"os"
	"strings"
)

// Builtin identifies a command implemented inside the shell process. The set
// is closed: dispatch switches over it exhaustively.
type Builtin int

const (
	BuiltinNone Builtin = iota
	BuiltinEcho
	BuiltinExit
	BuiltinHelp
	BuiltinHistory
	BuiltinJobs
	BuiltinSet
)

// builtinNames lists the builtins in match priority order.
var builtinNames = []struct {
	name string
	b    Builtin
}{
	{"echo", BuiltinEcho},
	{"exit", BuiltinExit},
	{"help", BuiltinHelp},
	{"history", BuiltinHistory},
	{"jobs", BuiltinJobs},
	{"set", BuiltinSet},
}

// Name returns the command name of the builtin, or "" for BuiltinNone.
func (b Builtin) Name() string {
	for _, c := range builtinNames {
		if c.b == b {
			return c.name
		}
	}
	return ""
}

// BuiltinByName maps a command name back to its builtin.
func BuiltinByName(name string) Builtin {
	for _, c := range builtinNames {
		if c.name == name {
			return c.b
		}
	}
	return BuiltinNone
}

// matchBuiltin detects a builtin by case-sensitive line prefix. The name must
// be followed by whitespace or the end of the line, so `echoXYZ` is an
// external command. Matching only happens at the start of the line; a leading
// space defeats it.
func matchBuiltin(line string) Builtin {
	for _, c := range builtinNames {
		if !strings.HasPrefix(line, c.name) {
			continue
		}
		rest := line[len(c.name):]
		if rest == "" || isSpace(rest[0]) {
			return c.b
		}
	}
	return BuiltinNone
}

// Environ is the opaque environment-variable store the `set` builtin talks
// to. The process environment backs it by default; tests inject a map.
type Environ interface {
	Set(name, value string) error
	List() []string
}

type processEnviron struct{}

func (processEnviron) Set(name, value string) error { return os.Setenv(name, value) }
func (processEnviron) List() []string               { return os.Environ() }

// runBuiltin executes a builtin synchronously against the given argument
// text: the command line for fresh commands, the recorded first token for
// history replays. It reports whether the shell should exit.
func (s *Shell) runBuiltin(b Builtin, line string) bool {
	switch b {
	case BuiltinEcho:
		s.builtinEcho(line)
	case BuiltinExit:
		return s.builtinExit(line)
	case BuiltinHelp:
		s.builtinHelp()
	case BuiltinHistory:
		s.builtinHistory()
	case BuiltinJobs:
		s.builtinJobs()
	case BuiltinSet:
		s.builtinSet(line)
	case BuiltinNone:
	}
	return false
}

// builtinEcho prints everything after the first whitespace of the line.
func (s *Shell) builtinEcho(line string) {
	if i := strings.IndexAny(line, " \t"); i >= 0 && line[i+1:] != "" {
		fmt.Fprintln(s.stdout, line[i+1:])
		return
	}
	fmt.Fprintln(s.stdout)
}

// builtinExit requests shell termination, but only when nothing follows the
// command name.
func (s *Shell) builtinExit(line string) bool {
	return line == "exit"
}

func (s *Shell) builtinHelp() {
	w := s.stdout
	fmt.Fprintln(w)
	fmt.Fprintln(w, "supersh")
	fmt.Fprintln(w, "^^^^^^^")
	fmt.Fprintln(w, "echo    - output messages to terminal standard output")
	fmt.Fprintln(w, "exit    - terminate shell process")
	fmt.Fprintln(w, "help    - print this message")
	fmt.Fprintln(w, "history - view previously executed commands")
	fmt.Fprintln(w, "jobs    - list background commands")
	fmt.Fprintln(w, "set     - assign environment variable values")
	fmt.Fprintln(w)
}

func (s *Shell) builtinHistory() {
	s.history.Each(func(n int, e *HistoryEntry) {
		if e.Background {
			fmt.Fprintf(s.stdout, "%d %s &\n", n, e.Tokens[0])
			return
		}
		fmt.Fprintf(s.stdout, "%d %s\n", n, e.Tokens[0])
	})
}

func (s *Shell) builtinJobs() {
	s.jobs.Each(func(n int, j *Job) {
		fmt.Fprintf(s.stdout, "Running\tpid: %d job: %d argv: %s\n", j.PID, n, j.Line)
	})
}

// builtinSet displays the environment when called bare, otherwise binds
// `name=value`, or `name` to the empty string when no `=` is present.
func (s *Shell) builtinSet(line string) {
	rest := strings.TrimLeft(line[len("set"):], " \t\r\n\v\f")
	if rest == "" {
		for _, kv := range s.env.List() {
			fmt.Fprintln(s.stdout, kv)
		}
		return
	}
	if rest[0] == '=' {
		s.faultf("syntax error near: '='")
		return
	}
	name, value := rest, ""
	if eq := strings.IndexByte(rest, '='); eq >= 0 {
		name, value = rest[:eq], rest[eq+1:]
	}
	if err := s.env.Set(name, value); err != nil {
		s.faultf("set: %v", err)
	}
}
