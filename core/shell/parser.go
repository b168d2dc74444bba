package shell

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxTokens bounds the number of tokens a single line may produce.
const MaxTokens = 1024

var (
	// ErrMalformedHistoryRef reports a `!N` reference whose N is missing,
	// non-numeric, or zero.
	ErrMalformedHistoryRef = errors.New("malformed history reference")
	// ErrEventNotFound reports a `!N` reference past the end of history.
	ErrEventNotFound = errors.New("event not found")
	// ErrTooManyTokens reports a line exceeding MaxTokens.
	ErrTooManyTokens = errors.New("too many tokens")
)

// ParsedCommand is the result of tokenizing one input line.
type ParsedCommand struct {
	// Tokens is the argv-style token sequence. Builtin lines are kept as a
	// single token; the builtin parses its own argument text.
	Tokens []string
	// Builtin names the matched builtin, or BuiltinNone for external commands.
	Builtin Builtin
	// Background is set when the line requested asynchronous execution.
	Background bool
	// Replayed is set when the command was materialized by a `!N` expansion.
	// Replayed commands share their token slice with the history entry they
	// came from.
	Replayed bool
	// Line is the display form of the command: the input with the trailing
	// background operator and trailing whitespace removed.
	Line string
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	}
	return false
}

// Parse tokenizes one raw input line against the current history. A line that
// holds no command (only whitespace, or a lone background operator) yields a
// nil command and no error.
//
// The grammar quirks here are contractual, not accidental: builtin names only
// match at the very start of the line, a `!` anywhere in a non-builtin line
// triggers history expansion and the rest of the line is ignored, and a `&`
// fused to the last token sets the background flag without being removed.
func Parse(line string, hist *History) (*ParsedCommand, error) {
	if b := matchBuiltin(line); b != BuiltinNone {
		return parseBuiltinLine(line, b), nil
	}
	if i := strings.IndexByte(line, '!'); i >= 0 {
		return expandHistoryRef(line[i+1:], hist)
	}

	tokens, lastStart, err := splitTokens(line)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	pc := &ParsedCommand{Tokens: tokens}
	end := len(line)
	last := tokens[len(tokens)-1]
	if amp := strings.IndexByte(last, '&'); amp >= 0 {
		pc.Background = true
		if amp == 0 {
			// The operator stands alone (or starts the final token): the
			// token is dropped. A fused trailing `&` stays in the token.
			pc.Tokens = tokens[:len(tokens)-1]
			end = lastStart
		}
	}
	if len(pc.Tokens) == 0 {
		return nil, nil
	}
	pc.Line = strings.TrimRight(line[:end], " \t\r\n\v\f")
	return pc, nil
}

// parseBuiltinLine keeps the whole line as a single token. The background
// check mirrors the external-command path, where the "last token" is the
// entire line.
func parseBuiltinLine(line string, b Builtin) *ParsedCommand {
	pc := &ParsedCommand{
		Builtin: b,
		Line:    strings.TrimRight(line, " \t\r\n\v\f"),
	}
	pc.Background = strings.IndexByte(line, '&') >= 0
	pc.Tokens = []string{pc.Line}
	return pc
}

// expandHistoryRef resolves the text following a `!`. Only the leading run of
// decimal digits in the next word counts; everything else on the line is
// ignored.
func expandHistoryRef(ref string, hist *History) (*ParsedCommand, error) {
	word := ref
	for i := 0; i < len(word); i++ {
		if isSpace(word[i]) {
			word = word[:i]
			break
		}
	}
	digits := word
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			digits = digits[:i]
			break
		}
	}
	if digits == "" {
		return nil, fmt.Errorf("%w: !%s", ErrMalformedHistoryRef, word)
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n == 0 {
		return nil, fmt.Errorf("%w: !%s", ErrMalformedHistoryRef, word)
	}

	entry := hist.Lookup(n)
	if entry == nil {
		return nil, fmt.Errorf("!%d: %w", n, ErrEventNotFound)
	}
	return &ParsedCommand{
		Tokens:     entry.Tokens,
		Builtin:    entry.Builtin,
		Background: entry.Background,
		Replayed:   true,
		Line:       entry.Line,
	}, nil
}

// splitTokens breaks the line on whitespace. It returns the byte offset of the
// final token so the caller can trim the display line when the background
// operator is dropped.
func splitTokens(line string) (tokens []string, lastStart int, err error) {
	i := 0
	for i < len(line) {
		for i < len(line) && isSpace(line[i]) {
			i++
		}
		if i >= len(line) {
			break
		}
		start := i
		for i < len(line) && !isSpace(line[i]) {
			i++
		}
		if len(tokens) == MaxTokens {
			return nil, 0, ErrTooManyTokens
		}
		tokens = append(tokens, line[start:i])
		lastStart = start
	}
	return tokens, lastStart, nil
}
