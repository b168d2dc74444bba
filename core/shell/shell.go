// Package shell implements the supersh core: line parsing, bounded command
// history, background job supervision, and the REPL that ties them together.
package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"

	"github.com/supersh-sh/supersh/core/logger"
)

var promptColor = color.New(color.FgCyan, color.Bold)

// childWaitDelay bounds how long a child's Wait may linger on its stdio
// copies after the process has exited. Without it a non-file stdin (an SSH
// session) keeps Wait blocked until the session's next read completes, so a
// finished job would never poll as done and a foreground wait would outlive
// its child.
const childWaitDelay = 100 * time.Millisecond

// Options configures a Shell. Stdin/Stdout/Stderr may be any stream: the
// process stdio, an SSH session, or test buffers.
type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// IsTerminal enables line editing and the colored prompt.
	IsTerminal bool
	// TermWidth reports the terminal width; defaults to 80.
	TermWidth func() int

	// History is the backing store; a fresh one of DefaultHistorySize is
	// created when nil. Callers preload it to make history survive restarts.
	History *History
	// Env backs the `set` builtin; defaults to the process environment.
	Env Environ
	// Log receives structured events; nil disables logging.
	Log *logger.SessionLogger
	// Motd is printed once before the first prompt.
	Motd string
	// OnAppend is invoked for every command recorded in history, after the
	// append. Used to mirror history into persistent storage.
	OnAppend func(*ParsedCommand)
}

// Shell owns the REPL state: history, jobs, environment, and stdio. All state
// is touched only from the Run loop; builtins run synchronously inside it.
type Shell struct {
	history *History
	jobs    *Jobs
	env     Environ

	rl      *readline.Instance
	childIn io.Reader
	stdout  io.Writer
	stderr  io.Writer
	isTerm  bool

	count    uint64
	motd     string
	log      *logger.SessionLogger
	onAppend func(*ParsedCommand)
}

// NewShell builds a Shell over the given stdio.
func NewShell(opts Options) (*Shell, error) {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.History == nil {
		opts.History = NewHistory(DefaultHistorySize)
	}
	if opts.Env == nil {
		opts.Env = processEnviron{}
	}

	cfg := &readline.Config{
		Stdin:          readline.NewCancelableStdin(opts.Stdin),
		Stdout:         opts.Stdout,
		Stderr:         opts.Stderr,
		FuncIsTerminal: func() bool { return opts.IsTerminal },
	}
	if opts.TermWidth != nil {
		cfg.FuncGetWidth = opts.TermWidth
	}
	if err := cfg.Init(); err != nil {
		return nil, err
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}

	return &Shell{
		history:  opts.History,
		jobs:     NewJobs(),
		env:      opts.Env,
		rl:       rl,
		childIn:  opts.Stdin,
		stdout:   opts.Stdout,
		stderr:   opts.Stderr,
		isTerm:   opts.IsTerminal,
		motd:     opts.Motd,
		log:      opts.Log,
		onAppend: opts.OnAppend,
	}, nil
}

// History exposes the history store, e.g. for preloading persisted entries.
func (s *Shell) History() *History { return s.history }

// Jobs exposes the background job table.
func (s *Shell) Jobs() *Jobs { return s.jobs }

// Close releases the line reader.
func (s *Shell) Close() error { return s.rl.Close() }

// Run is the supervisor loop. Each iteration reaps finished background jobs,
// reads one line, parses it, and dispatches. It returns nil on end of input
// or a bare `exit`.
func (s *Shell) Run() error {
	if s.motd != "" {
		fmt.Fprintf(s.stdout, "%s\n\n", s.motd)
	}
	for {
		s.reapJobs()

		s.rl.SetPrompt(s.prompt())
		line, err := s.rl.Readline()
		switch {
		case err == io.EOF:
			return nil
		case err == readline.ErrInterrupt:
			// The shell itself survives interrupts.
			continue
		case err != nil:
			return err
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		pc, perr := Parse(line, s.history)
		if perr != nil {
			s.faultf("%v", perr)
			s.log.Record(logger.Event{Type: "parse_error", ParseError: &logger.ParseError{
				Line:  line,
				Error: perr.Error(),
			}})
			continue
		}
		if pc == nil {
			continue
		}

		s.count++
		s.history.Append(pc)
		if s.onAppend != nil {
			s.onAppend(pc)
		}
		s.log.Record(logger.Event{Type: "command", Command: &logger.Command{
			Ordinal:    s.count,
			Line:       pc.Line,
			Tokens:     pc.Tokens,
			Builtin:    pc.Builtin.Name(),
			Background: pc.Background,
			Replayed:   pc.Replayed,
		}})

		if s.dispatch(pc) {
			return nil
		}
	}
}

// prompt renders `[<ordinal>]$ `, with `#` for a privileged shell. The
// ordinal counts accepted commands and starts at 1.
func (s *Shell) prompt() string {
	mark := "$"
	if os.Geteuid() == 0 {
		mark = "#"
	}
	p := fmt.Sprintf("[%d]%s ", s.count+1, mark)
	if s.isTerm {
		return promptColor.Sprint(p)
	}
	return p
}

// faultf reports a recoverable condition: one diagnostic line on the error
// stream, prefixed with the shell's name, then control returns to the loop.
func (s *Shell) faultf(format string, args ...interface{}) {
	fmt.Fprintf(s.stderr, "supersh: "+format+"\n", args...)
}

// reapJobs polls the job table and prints one completion line per finished
// job. Completion is only ever observed here, at the top of an iteration.
func (s *Shell) reapJobs() {
	for i, f := range s.jobs.Poll() {
		fmt.Fprintf(s.stdout, "End\tpid: %d job: %d argv: %s %s\n",
			f.Job.PID, i+1, f.Job.Line, f.Outcome.Describe())
		s.log.Record(logger.Event{Type: "job_end", JobEnd: &logger.JobEnd{
			PID:     f.Job.PID,
			Line:    f.Job.Line,
			Outcome: f.Outcome.Describe(),
		}})
	}
}

// dispatch runs a parsed command and reports whether the shell should exit.
// Foreground builtins run inline; everything else spawns a child process.
func (s *Shell) dispatch(pc *ParsedCommand) bool {
	if pc.Builtin != BuiltinNone && !pc.Background {
		arg := pc.Line
		if pc.Replayed {
			arg = pc.Tokens[0]
		}
		return s.runBuiltin(pc.Builtin, arg)
	}

	cmd, err := s.buildCommand(pc)
	if err != nil {
		s.faultf("%v", err)
		return false
	}
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr

	if pc.Background {
		s.spawnBackground(cmd, pc)
		return false
	}
	s.runForeground(cmd, pc)
	return false
}

// buildCommand prepares the child process: the named external program, or the
// shell binary re-executed to run a builtin (the fork-a-builtin analog).
func (s *Shell) buildCommand(pc *ParsedCommand) (*exec.Cmd, error) {
	var cmd *exec.Cmd
	if pc.Builtin == BuiltinNone {
		cmd = exec.Command(pc.Tokens[0], pc.Tokens[1:]...)
		cmd.Stdin = s.childIn
	} else {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("%s: %v", pc.Builtin.Name(), err)
		}
		snap, err := s.snapshotJSON()
		if err != nil {
			return nil, fmt.Errorf("%s: %v", pc.Builtin.Name(), err)
		}
		cmd = exec.Command(exe, "builtin", pc.Line)
		cmd.Stdin = strings.NewReader(snap)
	}
	cmd.WaitDelay = childWaitDelay
	return cmd, nil
}

// runForeground starts the child and blocks until it changes state, then
// reports the outcome: nothing for a clean exit, the exact code for a nonzero
// one, the signal description otherwise.
func (s *Shell) runForeground(cmd *exec.Cmd, pc *ParsedCommand) {
	if err := cmd.Start(); err != nil {
		s.reportStartFailure(pc.Tokens[0], err)
		return
	}
	_ = cmd.Wait()

	switch o := outcomeOf(cmd.ProcessState); {
	case o.Signaled:
		fmt.Fprintln(s.stderr, o.SignalName())
	case o.Code != 0:
		fmt.Fprintf(s.stderr, "exit: %d\n", o.Code)
	}
}

// spawnBackground starts the child, registers the job, and returns to the
// prompt immediately.
func (s *Shell) spawnBackground(cmd *exec.Cmd, pc *ParsedCommand) {
	if err := cmd.Start(); err != nil {
		s.reportStartFailure(pc.Tokens[0], err)
		return
	}
	job := s.jobs.Add(cmd, pc.Line)
	fmt.Fprintf(s.stdout, "Begin\tpid: %d job: %d argv: %s\n", job.PID, s.jobs.Len(), job.Line)
	s.log.Record(logger.Event{Type: "job_start", JobStart: &logger.JobStart{
		PID:  job.PID,
		Line: job.Line,
	}})
}

// reportStartFailure covers both fork and exec failure: the command name and
// the underlying OS error.
func (s *Shell) reportStartFailure(name string, err error) {
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		s.faultf("%s: %v", execErr.Name, execErr.Err)
		return
	}
	s.faultf("%s: %v", name, err)
}
