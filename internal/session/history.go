// Package session holds the append-only conversation history shared by all
// chat turns of a running assistant process.
//
// The history starts with exactly one system turn and only ever grows: no
// truncation, no reordering, no summarisation. The device restarts daily, so
// unbounded growth within one process is acceptable and keeps the model's
// view of the conversation complete.
package session

import "sync"

// Role values for Turn.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single entry in the conversation history.
type Turn struct {
	// Role is one of RoleSystem, RoleUser, or RoleAssistant.
	Role string

	// Content is the text of the turn.
	Content string
}

// History is an append-only conversation log. The zero value is not usable;
// construct with NewHistory. Safe for concurrent use.
type History struct {
	mu    sync.Mutex
	turns []Turn
}

// NewHistory creates a History seeded with the given system prompt as its
// first and only initial turn.
func NewHistory(systemPrompt string) *History {
	return &History{
		turns: []Turn{{Role: RoleSystem, Content: systemPrompt}},
	}
}

// AppendUser appends a user turn.
func (h *History) AppendUser(content string) {
	h.append(Turn{Role: RoleUser, Content: content})
}

// AppendAssistant appends an assistant turn.
func (h *History) AppendAssistant(content string) {
	h.append(Turn{Role: RoleAssistant, Content: content})
}

func (h *History) append(t Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, t)
}

// Snapshot returns a copy of all turns in append order. The caller may hold
// on to the slice; later appends do not modify it.
func (h *History) Snapshot() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len returns the current number of turns, including the system turn.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}
