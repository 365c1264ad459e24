// Package session holds per-connection conversation state.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lark-ai/lark/internal/llm"
)

// DefaultMaxHistory caps persisted history length: one system message
// plus the twenty most recent exchanges' messages.
const DefaultMaxHistory = 21

// Session is the server-side state for one live connection. History is
// seeded with a single system message at creation and never loses it:
// truncation keeps the first entry plus the most recent tail.
type Session struct {
	ID      string
	Started time.Time

	mu         sync.Mutex
	history    []llm.Message
	maxHistory int
}

// New creates a session seeded with the given system prompt.
func New(systemPrompt string, maxHistory int) *Session {
	if maxHistory <= 1 {
		maxHistory = DefaultMaxHistory
	}
	return &Session{
		ID:         uuid.NewString(),
		Started:    time.Now(),
		history:    []llm.Message{llm.SystemMessage(systemPrompt)},
		maxHistory: maxHistory,
	}
}

// History returns a snapshot of the conversation history. The snapshot
// is safe to extend as a working copy without affecting the session.
func (s *Session) History() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]llm.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Append adds messages to the persisted history and applies the bound:
// when the history exceeds the cap it is truncated to the system
// message plus the most recent maxHistory-1 entries.
func (s *Session) Append(msgs ...llm.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, msgs...)
	if len(s.history) > s.maxHistory {
		tail := s.history[len(s.history)-(s.maxHistory-1):]
		trimmed := make([]llm.Message, 0, s.maxHistory)
		trimmed = append(trimmed, s.history[0])
		trimmed = append(trimmed, tail...)
		s.history = trimmed
	}
}

// Len returns the current history length.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}
