package session

import (
	"fmt"
	"sync"
	"testing"
)

// TestNewHistory_SystemTurnFirst checks the history starts with exactly one
// system turn carrying the prompt.
func TestNewHistory_SystemTurnFirst(t *testing.T) {
	h := NewHistory("You are a helpful assistant.")
	if h.Len() != 1 {
		t.Fatalf("expected 1 initial turn, got %d", h.Len())
	}
	turns := h.Snapshot()
	if turns[0].Role != RoleSystem {
		t.Errorf("expected first role %q, got %q", RoleSystem, turns[0].Role)
	}
	if turns[0].Content != "You are a helpful assistant." {
		t.Errorf("unexpected system content %q", turns[0].Content)
	}
}

// TestHistory_AppendOrdering checks turns come back in exact append order
// with roles preserved.
func TestHistory_AppendOrdering(t *testing.T) {
	h := NewHistory("sys")
	h.AppendUser("question one")
	h.AppendAssistant("answer one")
	h.AppendUser("question two")
	h.AppendAssistant("answer two")

	want := []Turn{
		{RoleSystem, "sys"},
		{RoleUser, "question one"},
		{RoleAssistant, "answer one"},
		{RoleUser, "question two"},
		{RoleAssistant, "answer two"},
	}
	got := h.Snapshot()
	if len(got) != len(want) {
		t.Fatalf("expected %d turns, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("turn %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

// TestHistory_SnapshotIsCopy checks later appends do not leak into an
// earlier snapshot.
func TestHistory_SnapshotIsCopy(t *testing.T) {
	h := NewHistory("sys")
	h.AppendUser("first")

	snap := h.Snapshot()
	h.AppendAssistant("later")

	if len(snap) != 2 {
		t.Fatalf("expected snapshot to stay at 2 turns, got %d", len(snap))
	}

	// Mutating the snapshot must not corrupt the history either.
	snap[0].Content = "tampered"
	if h.Snapshot()[0].Content != "sys" {
		t.Error("mutating a snapshot changed the history")
	}
}

// TestHistory_MonotonicGrowth checks Len only ever increases under
// concurrent appends and no turn is lost.
func TestHistory_MonotonicGrowth(t *testing.T) {
	h := NewHistory("sys")

	const writers = 8
	const perWriter = 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				h.AppendUser(fmt.Sprintf("w%d-%d", w, i))
			}
		}(w)
	}
	wg.Wait()

	if got, want := h.Len(), 1+writers*perWriter; got != want {
		t.Errorf("expected %d turns after concurrent appends, got %d", want, got)
	}
}
