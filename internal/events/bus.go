// Package events provides a publish/subscribe bus for operational
// events. Events flow from components (connection handler, orchestrator,
// reminder scanners) to subscribers (the MQTT publisher, status
// counters). The bus is nil-safe: Publish on a nil *Bus is a no-op, so
// components do not need guard checks.
package events

import (
	"sync"
	"time"
)

// Source constants identify which component published an event.
const (
	// SourceServer identifies events from the connection handler.
	SourceServer = "server"
	// SourceOrchestrator identifies events from the respond engine.
	SourceOrchestrator = "orchestrator"
	// SourceScanner identifies events from reminder scanners.
	SourceScanner = "scanner"
)

// Kind constants describe the type of event within a source.
const (
	// KindSessionStart signals a new connection.
	// Data: session_id, remote_addr.
	KindSessionStart = "session_start"
	// KindSessionEnd signals a disconnect.
	// Data: session_id, duration_ms.
	KindSessionEnd = "session_end"
	// KindRequestComplete signals one finished respond round.
	// Data: session_id, tool_called, status, elapsed_ms.
	KindRequestComplete = "request_complete"
	// KindToolCall signals one tool dispatch.
	// Data: session_id, tool, success.
	KindToolCall = "tool_call"
	// KindReminderFired signals a reminder notification was emitted.
	// Data: session_id, reminder_id, text.
	KindReminderFired = "reminder_fired"
	// KindNoteRecorded signals a send_message tool wrote a note.
	// Data: session_id, recipient.
	KindNoteRecorded = "note_recorded"
)

// Event is a single operational event.
type Event struct {
	Timestamp time.Time      `json:"ts"`
	Source    string         `json:"source"`
	Kind      string         `json:"kind"`
	Data      map[string]any `json:"data,omitempty"`
}

// Bus is a non-blocking broadcast bus. Subscribers receive events on
// buffered channels; a slow subscriber misses events rather than
// blocking publishers.
type Bus struct {
	mu         sync.RWMutex
	subs       map[chan Event]struct{}
	recvToSend map[<-chan Event]chan Event
}

// New creates an event bus.
func New() *Bus {
	return &Bus{
		subs:       make(map[chan Event]struct{}),
		recvToSend: make(map[<-chan Event]chan Event),
	}
}

// Publish sends an event to all subscribers without blocking. Safe to
// call on a nil receiver.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Subscriber is full; drop rather than block.
		}
	}
}

// Subscribe returns a channel receiving published events. Callers must
// Unsubscribe when done.
func (b *Bus) Subscribe(bufSize int) <-chan Event {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}
	b.recvToSend[ch] = ch
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	send, ok := b.recvToSend[ch]
	if !ok {
		return
	}
	delete(b.subs, send)
	delete(b.recvToSend, ch)
	close(send)
}
