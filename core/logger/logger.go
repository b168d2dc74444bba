// Package logger captures shell interaction events as newline delimited JSON
// so sessions can be audited and replayed offline.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Event is one log line. Exactly one payload field is set, named by Type.
type Event struct {
	TimestampMicros int64  `json:"timestamp_micros"`
	SessionID       string `json:"session_id,omitempty"`
	Type            string `json:"type"`

	SessionStart *SessionStart `json:"session_start,omitempty"`
	LoginAttempt *LoginAttempt `json:"login_attempt,omitempty"`
	Command      *Command      `json:"command,omitempty"`
	ParseError   *ParseError   `json:"parse_error,omitempty"`
	JobStart     *JobStart     `json:"job_start,omitempty"`
	JobEnd       *JobEnd       `json:"job_end,omitempty"`
}

// SessionStart marks a new interactive or SSH session.
type SessionStart struct {
	User       string `json:"user,omitempty"`
	RemoteAddr string `json:"remote_addr,omitempty"`
}

// LoginAttempt records one SSH authentication attempt.
type LoginAttempt struct {
	Success    bool   `json:"success"`
	Username   string `json:"username"`
	Password   string `json:"password,omitempty"`
	RemoteAddr string `json:"remote_addr,omitempty"`
}

// Command records one accepted command line.
type Command struct {
	Ordinal    uint64   `json:"ordinal"`
	Line       string   `json:"line"`
	Tokens     []string `json:"tokens,omitempty"`
	Builtin    string   `json:"builtin,omitempty"`
	Background bool     `json:"background,omitempty"`
	Replayed   bool     `json:"replayed,omitempty"`
}

// ParseError records a rejected command line.
type ParseError struct {
	Line  string `json:"line"`
	Error string `json:"error"`
}

// JobStart records a registered background job.
type JobStart struct {
	PID  int    `json:"pid"`
	Line string `json:"line"`
}

// JobEnd records a reaped background job.
type JobEnd struct {
	PID     int    `json:"pid"`
	Line    string `json:"line"`
	Outcome string `json:"outcome"`
}

// Recorder stores events in an external datastore.
type Recorder func(ev *Event) error

// Logger fans events out to a Recorder.
type Logger struct {
	Record Recorder
}

// NewJSONLinesLogger creates a Logger that writes one JSON object per line.
func NewJSONLinesLogger(w io.Writer) *Logger {
	return &Logger{
		Record: func(ev *Event) error {
			entry, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(entry))
			return err
		},
	}
}

// NewNopLogger creates a Logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{Record: func(*Event) error { return nil }}
}

// NewSession creates a logger with a fresh session ID attached to every event.
func (l *Logger) NewSession() *SessionLogger {
	return &SessionLogger{logger: l, sessionID: uuid.NewString()}
}

// Sessionless creates a logger without a session ID.
func (l *Logger) Sessionless() *SessionLogger {
	return &SessionLogger{logger: l}
}

// SessionLogger stamps events with a shared session ID. A nil SessionLogger
// discards events, so callers never need to guard.
type SessionLogger struct {
	logger    *Logger
	sessionID string
}

// Record fills in the timestamp and session ID and stores the event.
func (sl *SessionLogger) Record(ev Event) error {
	if sl == nil || sl.logger == nil {
		return nil
	}
	ev.TimestampMicros = time.Now().UnixMicro()
	ev.SessionID = sl.sessionID
	return sl.logger.Record(&ev)
}

// SessionID returns the attached session ID.
func (sl *SessionLogger) SessionID() string {
	if sl == nil {
		return ""
	}
	return sl.sessionID
}

// ReadJSONLinesLog parses a newline delimited JSON event log.
func ReadJSONLinesLog(r io.Reader, handler func(ev *Event)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var ev Event
		if err := decoder.Decode(&ev); err != nil {
			return err
		}
		handler(&ev)
	}
	return nil
}
