package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLinesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	session := NewJSONLinesLogger(&buf).NewSession()

	require.NoError(t, session.Record(Event{Type: "command", Command: &Command{
		Ordinal: 1,
		Line:    "ls -la",
		Tokens:  []string{"ls", "-la"},
	}}))
	require.NoError(t, session.Record(Event{Type: "job_end", JobEnd: &JobEnd{
		PID:     4242,
		Line:    "sleep 5",
		Outcome: "exit: 0",
	}}))

	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))

	var events []*Event
	require.NoError(t, ReadJSONLinesLog(&buf, func(ev *Event) {
		events = append(events, ev)
	}))
	require.Len(t, events, 2)

	assert.Equal(t, "command", events[0].Type)
	require.NotNil(t, events[0].Command)
	assert.Equal(t, "ls -la", events[0].Command.Line)
	assert.NotZero(t, events[0].TimestampMicros)
	assert.Equal(t, session.SessionID(), events[0].SessionID)

	assert.Equal(t, "job_end", events[1].Type)
	require.NotNil(t, events[1].JobEnd)
	assert.Equal(t, 4242, events[1].JobEnd.PID)
}

func TestSessionIDs(t *testing.T) {
	lg := NewNopLogger()

	a := lg.NewSession()
	b := lg.NewSession()
	assert.NotEqual(t, a.SessionID(), b.SessionID())

	_, err := uuid.Parse(a.SessionID())
	assert.NoError(t, err)

	assert.Empty(t, lg.Sessionless().SessionID())
}

func TestNilSessionLoggerDiscards(t *testing.T) {
	var sl *SessionLogger
	assert.NoError(t, sl.Record(Event{Type: "command"}))
	assert.Empty(t, sl.SessionID())
}
