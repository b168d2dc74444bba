package shell

// DefaultHistorySize is the capacity used when none is configured.
const DefaultHistorySize = 8192

// HistoryEntry records one parsed command. Replayed commands alias the token
// slice of the entry they expanded, so a token sequence may be shared by
// several entries.
type HistoryEntry struct {
	Tokens     []string
	Builtin    Builtin
	Background bool
	Line       string
}

// History is a bounded FIFO of past commands backed by a ring buffer. Once at
// capacity each append evicts the oldest entry. Entries are numbered 1..Len()
// counted from the oldest surviving entry.
type History struct {
	buf   []*HistoryEntry
	head  int
	count int
}

// NewHistory returns a history bounded to the given capacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{buf: make([]*HistoryEntry, capacity)}
}

// Len returns the number of surviving entries.
func (h *History) Len() int { return h.count }

// Cap returns the capacity bound.
func (h *History) Cap() int { return len(h.buf) }

// Append records a parsed command, evicting the oldest entry at capacity. The
// entry shares the command's token slice.
func (h *History) Append(pc *ParsedCommand) *HistoryEntry {
	e := &HistoryEntry{
		Tokens:     pc.Tokens,
		Builtin:    pc.Builtin,
		Background: pc.Background,
		Line:       pc.Line,
	}
	if h.count == len(h.buf) {
		h.buf[h.head] = e
		h.head = (h.head + 1) % len(h.buf)
		return e
	}
	h.buf[(h.head+h.count)%len(h.buf)] = e
	h.count++
	return e
}

// Lookup returns the n-th entry, 1-based from the oldest surviving entry, or
// nil when n is out of range.
func (h *History) Lookup(n int) *HistoryEntry {
	if n < 1 || n > h.count {
		return nil
	}
	return h.buf[(h.head+n-1)%len(h.buf)]
}

// Each visits entries oldest-first with their 1-based position.
func (h *History) Each(fn func(n int, e *HistoryEntry)) {
	for i := 0; i < h.count; i++ {
		fn(i+1, h.buf[(h.head+i)%len(h.buf)])
	}
}
