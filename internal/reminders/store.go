// Package reminders provides the shared reminder store and the
// per-session scanner that fires due reminders.
package reminders

import (
	"sync"
	"time"
)

// Reminder is a single scheduled reminder. Reminders are soft-deleted:
// firing or deleting one flips Active, the record itself is kept so IDs
// are never reused.
type Reminder struct {
	ID      int64     `json:"id"`
	Text    string    `json:"text"`
	Due     time.Time `json:"time"`
	Created time.Time `json:"created"`
	Active  bool      `json:"active"`
}

// Store holds all reminders for the process. It is shared by every
// session's tool dispatches and scanners; all access goes through one
// mutex so concurrent sessions cannot produce duplicate IDs or lost
// flag updates.
type Store struct {
	mu        sync.Mutex
	reminders []Reminder
}

// NewStore creates an empty reminder store.
func NewStore() *Store {
	return &Store{}
}

// Add creates a reminder due after d and returns it. IDs are assigned
// as count+1 at creation time; records are never removed, so IDs are
// strictly increasing and never reused.
func (s *Store) Add(text string, d time.Duration) Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	r := Reminder{
		ID:      int64(len(s.reminders)) + 1,
		Text:    text,
		Due:     now.Add(d),
		Created: now,
		Active:  true,
	}
	s.reminders = append(s.reminders, r)
	return r
}

// Active returns a snapshot of all active reminders.
func (s *Store) Active() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Reminder
	for _, r := range s.reminders {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}

// Deactivate flips the active flag for the given reminder ID and
// returns the updated record. ok is false when no such reminder exists.
// Deactivating an already-inactive reminder is a no-op that still
// returns the record.
func (s *Store) Deactivate(id int64) (Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.reminders {
		if s.reminders[i].ID == id {
			s.reminders[i].Active = false
			return s.reminders[i], true
		}
	}
	return Reminder{}, false
}

// ClaimDue deactivates every active reminder whose due time is at or
// before now, and returns the claimed records. The flag flip and the
// claim happen under one lock acquisition, so a reminder is claimed at
// most once no matter how many scanners tick concurrently.
func (s *Store) ClaimDue(now time.Time) []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	var claimed []Reminder
	for i := range s.reminders {
		if s.reminders[i].Active && !s.reminders[i].Due.After(now) {
			s.reminders[i].Active = false
			claimed = append(claimed, s.reminders[i])
		}
	}
	return claimed
}

// ActiveCount returns the number of active reminders.
func (s *Store) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range s.reminders {
		if r.Active {
			n++
		}
	}
	return n
}
