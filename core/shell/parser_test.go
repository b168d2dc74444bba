package shell

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, line string, hist *History) *ParsedCommand {
	t.Helper()
	pc, err := Parse(line, hist)
	require.NoError(t, err)
	require.NotNil(t, pc)
	return pc
}

func TestParseExternal(t *testing.T) {
	cases := map[string]struct {
		line       string
		tokens     []string
		background bool
		display    string
	}{
		"simple": {
			line:    "ls -la /tmp",
			tokens:  []string{"ls", "-la", "/tmp"},
			display: "ls -la /tmp",
		},
		"detached operator": {
			line:       "ls -la /tmp &",
			tokens:     []string{"ls", "-la", "/tmp"},
			background: true,
			display:    "ls -la /tmp",
		},
		"fused operator keeps token": {
			line:       "ls -la&",
			tokens:     []string{"ls", "-la&"},
			background: true,
			display:    "ls -la&",
		},
		"operator leading final token drops it": {
			line:       "ls &bg",
			tokens:     []string{"ls"},
			background: true,
			display:    "ls",
		},
		"builtin name with suffix is external": {
			line:    "echoXYZ",
			tokens:  []string{"echoXYZ"},
			display: "echoXYZ",
		},
		"leading space defeats builtin match": {
			line:    " echo hi",
			tokens:  []string{"echo", "hi"},
			display: " echo hi",
		},
		"collapses whitespace runs": {
			line:    "  cat \t /etc/hosts  ",
			tokens:  []string{"cat", "/etc/hosts"},
			display: "  cat \t /etc/hosts",
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			pc := mustParse(t, tc.line, NewHistory(8))
			assert.Equal(t, tc.tokens, pc.Tokens)
			assert.Equal(t, BuiltinNone, pc.Builtin)
			assert.Equal(t, tc.background, pc.Background)
			assert.Equal(t, tc.display, pc.Line)
			assert.False(t, pc.Replayed)
		})
	}
}

func TestParseBuiltin(t *testing.T) {
	cases := map[string]struct {
		line       string
		builtin    Builtin
		background bool
		display    string
	}{
		"bare":             {line: "echo", builtin: BuiltinEcho, display: "echo"},
		"with args":        {line: "echo hi there", builtin: BuiltinEcho, display: "echo hi there"},
		"history":          {line: "history", builtin: BuiltinHistory, display: "history"},
		"set assignment":   {line: "set FOO=bar", builtin: BuiltinSet, display: "set FOO=bar"},
		"background":       {line: "jobs &", builtin: BuiltinJobs, background: true, display: "jobs &"},
		"operator in args": {line: "echo a & b", builtin: BuiltinEcho, background: true, display: "echo a & b"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			pc := mustParse(t, tc.line, NewHistory(8))
			assert.Equal(t, tc.builtin, pc.Builtin)
			assert.Equal(t, tc.background, pc.Background)
			assert.Equal(t, tc.display, pc.Line)
			// Builtins keep the whole line as a single token.
			assert.Equal(t, []string{tc.display}, pc.Tokens)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	for _, line := range []string{"", "   ", "\t \t", "&", "  &  "} {
		pc, err := Parse(line, NewHistory(8))
		assert.NoError(t, err, "line %q", line)
		assert.Nil(t, pc, "line %q", line)
	}
}

func TestParseHistoryExpansion(t *testing.T) {
	hist := NewHistory(8)
	first := hist.Append(mustParse(t, "ls -la", hist))
	hist.Append(mustParse(t, "sleep 5 &", hist))

	t.Run("replay shares tokens", func(t *testing.T) {
		pc := mustParse(t, "!1", hist)
		assert.True(t, pc.Replayed)
		assert.Equal(t, []string{"ls", "-la"}, pc.Tokens)
		assert.Same(t, &first.Tokens[0], &pc.Tokens[0])
	})

	t.Run("replay keeps background flag", func(t *testing.T) {
		pc := mustParse(t, "!2", hist)
		assert.True(t, pc.Background)
		assert.Equal(t, "sleep 5", pc.Line)
	})

	t.Run("digits stop at first non-digit", func(t *testing.T) {
		pc := mustParse(t, "!2x", hist)
		assert.Equal(t, "sleep 5", pc.Line)
	})

	t.Run("reference anywhere wins over tokens", func(t *testing.T) {
		pc := mustParse(t, "rm -f !1 trailing junk", hist)
		assert.True(t, pc.Replayed)
		assert.Equal(t, "ls -la", pc.Line)
	})

	t.Run("rest of line after reference is ignored", func(t *testing.T) {
		pc := mustParse(t, "!1 && echo gotcha", hist)
		assert.Equal(t, "ls -la", pc.Line)
		assert.False(t, pc.Background)
	})
}

func TestParseHistoryExpansionErrors(t *testing.T) {
	hist := NewHistory(8)
	hist.Append(mustParse(t, "ls", hist))

	cases := map[string]struct {
		line string
		want error
	}{
		"bare bang":      {line: "!", want: ErrMalformedHistoryRef},
		"zero":           {line: "!0", want: ErrMalformedHistoryRef},
		"non-numeric":    {line: "!abc", want: ErrMalformedHistoryRef},
		"leading letter": {line: "!x3", want: ErrMalformedHistoryRef},
		"out of range":   {line: "!99", want: ErrEventNotFound},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			pc, err := Parse(tc.line, hist)
			assert.Nil(t, pc)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParseTooManyTokens(t *testing.T) {
	line := strings.Repeat("a ", MaxTokens+1)
	pc, err := Parse(line, NewHistory(8))
	assert.Nil(t, pc)
	assert.ErrorIs(t, err, ErrTooManyTokens)
}
