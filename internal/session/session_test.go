package session

import (
	"fmt"
	"testing"

	"github.com/lark-ai/lark/internal/llm"
)

func TestNewSeedsSystemMessage(t *testing.T) {
	s := New("you are a test", 21)

	hist := s.History()
	if len(hist) != 1 {
		t.Fatalf("history = %d, want 1", len(hist))
	}
	if hist[0].Role != llm.RoleSystem {
		t.Errorf("role = %q, want system", hist[0].Role)
	}
	if hist[0].Content != "you are a test" {
		t.Errorf("content = %q", hist[0].Content)
	}
	if s.ID == "" {
		t.Error("session has empty ID")
	}
}

func TestHistorySnapshotIsIndependent(t *testing.T) {
	s := New("sys", 21)
	s.Append(llm.UserMessage("hello"))

	snap := s.History()
	snap = append(snap, llm.UserMessage("extra"))
	_ = snap

	if s.Len() != 2 {
		t.Errorf("len = %d after extending snapshot, want 2", s.Len())
	}
}

func TestAppendTruncatesAtBound(t *testing.T) {
	s := New("sys", 21)

	for i := range 30 {
		s.Append(llm.UserMessage(fmt.Sprintf("u%d", i)))
		s.Append(llm.Message{Role: llm.RoleAssistant, Content: fmt.Sprintf("a%d", i)})
	}

	hist := s.History()
	if len(hist) != 21 {
		t.Fatalf("len = %d, want 21", len(hist))
	}
	if hist[0].Role != llm.RoleSystem {
		t.Errorf("first role = %q, want system", hist[0].Role)
	}
	// Tail must be the 20 most recent messages.
	if hist[len(hist)-1].Content != "a29" {
		t.Errorf("last = %q, want a29", hist[len(hist)-1].Content)
	}
	if hist[1].Content != "u20" {
		t.Errorf("tail start = %q, want u20", hist[1].Content)
	}
}

func TestLengthStabilizesAcrossManyExchanges(t *testing.T) {
	s := New("the original system prompt", 21)

	// 25 consecutive successful exchanges: user turn plus assistant turn.
	for i := range 25 {
		s.Append(llm.UserMessage(fmt.Sprintf("question %d", i)))
		s.Append(llm.Message{Role: llm.RoleAssistant, Content: fmt.Sprintf("answer %d", i)})

		if s.Len() > 21 {
			t.Fatalf("exchange %d: len = %d, exceeds 21", i, s.Len())
		}
	}

	if s.Len() != 21 {
		t.Errorf("final len = %d, want 21", s.Len())
	}
	if got := s.History()[0]; got.Role != llm.RoleSystem || got.Content != "the original system prompt" {
		t.Errorf("system message not retained at index 0: %+v", got)
	}
}

func TestAppendOfDeltaBatches(t *testing.T) {
	s := New("sys", 21)

	// A tool round appends several messages at once; the bound applies
	// after the whole batch.
	for range 10 {
		s.Append(
			llm.UserMessage("do it"),
			llm.Message{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "c", Name: "get_current_time", Arguments: "{}"}}},
			llm.ToolMessage(`{"success":true}`, "c"),
			llm.Message{Role: llm.RoleAssistant, Content: "done"},
		)
	}

	if s.Len() != 21 {
		t.Errorf("len = %d, want 21", s.Len())
	}
	if s.History()[0].Role != llm.RoleSystem {
		t.Error("system message evicted")
	}
}

func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker()
	s1 := New("sys", 21)
	s2 := New("sys", 21)

	tr.Add(s1)
	tr.Add(s2)
	if tr.Count() != 2 {
		t.Fatalf("count = %d, want 2", tr.Count())
	}

	infos := tr.List()
	if len(infos) != 2 {
		t.Fatalf("list = %d, want 2", len(infos))
	}

	tr.Remove(s1.ID)
	if tr.Count() != 1 {
		t.Errorf("count after remove = %d, want 1", tr.Count())
	}
}
