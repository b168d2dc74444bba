package shell

import (
	"encoding/json"
	"fmt"
	"io"
)

// Go cannot fork, so a backgrounded builtin re-executes the shell binary with
// the hidden `builtin` command and receives a snapshot of the parent's
// history and job table on stdin. That preserves the observable behavior of
// the fork memory snapshot: `history &` and `jobs &` report the parent state.

type snapshot struct {
	History []snapshotEntry `json:"history"`
	Jobs    []snapshotJob   `json:"jobs"`
}

type snapshotEntry struct {
	Tokens     []string `json:"tokens"`
	Builtin    string   `json:"builtin,omitempty"`
	Background bool     `json:"background,omitempty"`
	Line       string   `json:"line"`
}

type snapshotJob struct {
	PID  int    `json:"pid"`
	Line string `json:"line"`
}

func (s *Shell) snapshotJSON() (string, error) {
	var snap snapshot
	s.history.Each(func(_ int, e *HistoryEntry) {
		snap.History = append(snap.History, snapshotEntry{
			Tokens:     e.Tokens,
			Builtin:    e.Builtin.Name(),
			Background: e.Background,
			Line:       e.Line,
		})
	})
	s.jobs.Each(func(_ int, j *Job) {
		snap.Jobs = append(snap.Jobs, snapshotJob{PID: j.PID, Line: j.Line})
	})
	data, err := json.Marshal(&snap)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// RunBuiltinLine is the body of the hidden `builtin` command: it restores the
// parent shell state from the snapshot on state, runs the builtin named by the
// line, and returns the process exit code.
func RunBuiltinLine(line string, state io.Reader, stdout, stderr io.Writer) int {
	b := matchBuiltin(line)
	if b == BuiltinNone {
		fmt.Fprintf(stderr, "supersh: not a builtin: %s\n", line)
		return 1
	}

	hist := NewHistory(DefaultHistorySize)
	jobs := NewJobs()
	if state != nil {
		var snap snapshot
		// An unreadable snapshot just leaves the child with empty state.
		if err := json.NewDecoder(state).Decode(&snap); err == nil {
			for _, e := range snap.History {
				hist.Append(&ParsedCommand{
					Tokens:     e.Tokens,
					Builtin:    BuiltinByName(e.Builtin),
					Background: e.Background,
					Line:       e.Line,
				})
			}
			for _, j := range snap.Jobs {
				jobs.restore(j.PID, j.Line)
			}
		}
	}

	child := &Shell{
		history: hist,
		jobs:    jobs,
		env:     processEnviron{},
		stdout:  stdout,
		stderr:  stderr,
	}
	child.runBuiltin(b, line)
	return 0
}
