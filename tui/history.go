package tui

// History keeps submitted console lines for Up/Down recall. Re-entering a
// line moves it to the newest position.
type History struct {
	entries []string
	max     int
	cursor  int // len(entries) when not navigating
}

// NewHistory creates a history holding at most max lines.
func NewHistory(max int) *History {
	return &History{max: max}
}

// Push records line as the newest entry and stops navigation.
func (h *History) Push(line string) {
	for i, e := range h.entries {
		if e == line {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			break
		}
	}
	h.entries = append(h.entries, line)
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
	h.cursor = len(h.entries)
}

// Prev steps to the older entry. It stays on the oldest one.
func (h *History) Prev() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if h.cursor > 0 {
		h.cursor--
	}
	return h.entries[h.cursor], true
}

// Next steps to the newer entry, or reports false past the newest one.
func (h *History) Next() (string, bool) {
	if h.cursor >= len(h.entries)-1 {
		h.cursor = len(h.entries)
		return "", false
	}
	h.cursor++
	return h.entries[h.cursor], true
}

// Len is the number of entries.
func (h *History) Len() int { return len(h.entries) }
