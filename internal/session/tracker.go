package session

import (
	"sync"
	"time"
)

// Info is a read-only snapshot of one session for the status surface.
type Info struct {
	ID       string    `json:"id"`
	Started  time.Time `json:"started"`
	Messages int       `json:"messages"`
}

// Tracker registers live sessions so the status endpoints can report
// them. Sessions register on connect and deregister on disconnect.
type Tracker struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{sessions: make(map[string]*Session)}
}

// Add registers a session.
func (t *Tracker) Add(s *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[s.ID] = s
}

// Remove deregisters a session by ID.
func (t *Tracker) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, id)
}

// Count returns the number of live sessions.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// List returns snapshots of all live sessions.
func (t *Tracker) List() []Info {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Info, 0, len(t.sessions))
	for _, s := range t.sessions {
		out = append(out, Info{ID: s.ID, Started: s.Started, Messages: s.Len()})
	}
	return out
}
