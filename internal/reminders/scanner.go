package reminders

import (
	"context"
	"log/slog"
	"time"

	"github.com/lark-ai/lark/internal/speech"
)

// Event is a fired-reminder notification delivered to the session's
// outbound stream. Audio is nil when synthesis failed or was skipped;
// the notification itself is still delivered.
type Event struct {
	Message  string
	Reminder Reminder
	Audio    []byte
}

// Scanner polls the store and fires due reminders for one session.
// Its lifetime is bound to the session: Run returns once ctx is
// cancelled and emits nothing afterward.
type Scanner struct {
	store         *Store
	synth         speech.Synthesizer
	emit          func(Event)
	interval      time.Duration
	speechTimeout time.Duration
	logger        *slog.Logger
}

// NewScanner creates a scanner. synth may be nil to disable audio.
// emit is called from the scanner goroutine and must not block
// indefinitely.
func NewScanner(store *Store, synth speech.Synthesizer, emit func(Event), interval, speechTimeout time.Duration, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Scanner{
		store:         store,
		synth:         synth,
		emit:          emit,
		interval:      interval,
		speechTimeout: speechTimeout,
		logger:        logger,
	}
}

// Run polls until ctx is cancelled. Each tick claims all due reminders
// (each is claimed exactly once, even with scanners in other sessions
// ticking concurrently) and emits one event per claim. Errors within a
// tick are logged and the loop re-arms for the next interval.
func (s *Scanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("reminder scanner stopped")
			return
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

func (s *Scanner) tick(ctx context.Context, now time.Time) {
	for _, r := range s.store.ClaimDue(now) {
		if ctx.Err() != nil {
			// Session is gone; the claim stands (another session's
			// scanner would have claimed it otherwise), but nothing
			// is emitted on a dead connection.
			return
		}

		ev := Event{
			Message:  "⏰ Reminder: " + r.Text,
			Reminder: r,
		}

		if s.synth != nil {
			audio, err := s.synthesize(ctx, "Reminder: "+r.Text)
			if err != nil {
				s.logger.Warn("reminder synthesis failed", "reminder_id", r.ID, "error", err)
			} else {
				ev.Audio = audio
			}
		}

		s.logger.Info("reminder fired", "reminder_id", r.ID, "text", r.Text)
		s.emit(ev)
	}
}

func (s *Scanner) synthesize(ctx context.Context, text string) ([]byte, error) {
	if s.speechTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.speechTimeout)
		defer cancel()
	}
	return s.synth.Speak(ctx, text)
}
