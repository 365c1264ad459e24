package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/lark-ai/lark/internal/events"
	"github.com/lark-ai/lark/internal/llm"
	"github.com/lark-ai/lark/internal/orchestrator"
	"github.com/lark-ai/lark/internal/reminders"
	"github.com/lark-ai/lark/internal/session"
)

const writeTimeout = 30 * time.Second

// handleWS runs one session: a reader (this goroutine, strict arrival
// order), a single writer draining the outbound queue, and a reminder
// scanner. All three share the connection context; when the socket
// drops, the scanner is cancelled before the session is discarded.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxInboundBytes)

	sess := session.New(s.cfg.SystemPrompt, s.cfg.MaxHistory)
	s.tracker.Add(sess)
	defer s.tracker.Remove(sess.ID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s.logger.Info("client connected", "session", sess.ID, "remote", r.RemoteAddr)
	s.bus.Publish(events.Event{
		Source: events.SourceServer,
		Kind:   events.KindSessionStart,
		Data:   map[string]any{"session_id": sess.ID, "remote_addr": r.RemoteAddr},
	})

	// Single writer: the responder and the scanner both emit into
	// outbound, so cross-source ordering on the wire is unspecified.
	outbound := make(chan any, 32)
	var writerWG sync.WaitGroup
	writerWG.Add(1)
	go func() {
		defer writerWG.Done()
		for msg := range outbound {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Debug("write failed", "session", sess.ID, "error", err)
				// Unblock the reader so the session tears down.
				conn.Close()
				for range outbound {
				}
				return
			}
		}
	}()

	var scannerWG sync.WaitGroup
	scannerWG.Add(1)
	go func() {
		defer scannerWG.Done()
		scanner := reminders.NewScanner(s.remStore, s.synth, func(ev reminders.Event) {
			s.emitReminder(ctx, outbound, sess.ID, ev)
		}, s.cfg.PollInterval, s.cfg.SpeechTimeout, s.logger)
		scanner.Run(ctx)
	}()

	// Reader loop: inbound messages for this session are handled
	// strictly in arrival order.
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.logger.Info("client disconnected", "session", sess.ID, "error", err)
			break
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.send(ctx, outbound, errorMessage{Type: typeError, Message: "Invalid JSON format"})
			continue
		}

		switch msg.Type {
		case typeText:
			s.handleText(ctx, sess, outbound, msg.Text)
		case typeAudio:
			s.handleAudio(ctx, sess, outbound, msg.Audio)
		default:
			s.send(ctx, outbound, errorMessage{Type: typeError, Message: "Unknown message type"})
		}
	}

	// Teardown order matters: stop the scanner before closing the
	// queue it emits into, then drain the writer.
	cancel()
	scannerWG.Wait()
	close(outbound)
	writerWG.Wait()

	s.bus.Publish(events.Event{
		Source: events.SourceServer,
		Kind:   events.KindSessionEnd,
		Data: map[string]any{
			"session_id":  sess.ID,
			"duration_ms": time.Since(sess.Started).Milliseconds(),
		},
	})
}

// handleText runs one respond round and emits the response plus
// best-effort synthesized audio.
func (s *Server) handleText(ctx context.Context, sess *session.Session, outbound chan any, text string) {
	if text == "" {
		s.send(ctx, outbound, errorMessage{Type: typeError, Message: "Empty message"})
		return
	}

	res, err := s.orch.Respond(ctx, sess.ID, text, sess.History())
	if err != nil {
		s.logger.Error("respond failed", "session", sess.ID, "error", err)
		s.send(ctx, outbound, responseMessage{Type: typeResponse, Data: orchestrator.ErrorResult(err)})
		return
	}

	// History is updated only from an accepted result: the user turn
	// first, then everything the round produced.
	sess.Append(llm.UserMessage(text))
	sess.Append(res.HistoryDelta...)

	s.send(ctx, outbound, responseMessage{Type: typeResponse, Data: res})

	if res.Message != "" && s.synth != nil {
		speechCtx := ctx
		if s.cfg.SpeechTimeout > 0 {
			var cancel context.CancelFunc
			speechCtx, cancel = context.WithTimeout(ctx, s.cfg.SpeechTimeout)
			defer cancel()
		}
		audio, err := s.synth.Speak(speechCtx, res.Message)
		if err != nil {
			s.logger.Warn("synthesis failed", "session", sess.ID, "error", err)
			return
		}
		s.send(ctx, outbound, audioResponseMessage{
			Type:  typeAudioResponse,
			Audio: base64.StdEncoding.EncodeToString(audio),
		})
	}
}

// handleAudio transcribes the payload, reports the transcription, and
// then runs the text flow.
func (s *Server) handleAudio(ctx context.Context, sess *session.Session, outbound chan any, audioB64 string) {
	if s.transcriber == nil {
		s.send(ctx, outbound, errorMessage{Type: typeError, Message: "Audio input is not enabled"})
		return
	}

	audio, err := base64.StdEncoding.DecodeString(audioB64)
	if err != nil {
		s.send(ctx, outbound, errorMessage{Type: typeError, Message: "Invalid audio payload"})
		return
	}

	transcribeCtx := ctx
	if s.cfg.SpeechTimeout > 0 {
		var cancel context.CancelFunc
		transcribeCtx, cancel = context.WithTimeout(ctx, s.cfg.SpeechTimeout)
		defer cancel()
	}
	text, err := s.transcriber.Transcribe(transcribeCtx, audio)
	if err != nil || text == "" {
		s.logger.Warn("transcription failed", "session", sess.ID, "error", err)
		s.send(ctx, outbound, errorMessage{Type: typeError, Message: "Could not process audio. Please try again."})
		return
	}

	s.logger.Info("transcription", "session", sess.ID, "chars", len(text))
	s.send(ctx, outbound, transcriptionMessage{Type: typeTranscription, Text: text})

	s.handleText(ctx, sess, outbound, text)
}

// emitReminder forwards a fired reminder (and its audio, when present)
// to the outbound queue.
func (s *Server) emitReminder(ctx context.Context, outbound chan any, sessionID string, ev reminders.Event) {
	s.send(ctx, outbound, reminderMessage{
		Type: typeReminder,
		Data: reminderPayload{Message: ev.Message, Reminder: ev.Reminder},
	})
	if len(ev.Audio) > 0 {
		s.send(ctx, outbound, audioResponseMessage{
			Type:  typeAudioResponse,
			Audio: base64.StdEncoding.EncodeToString(ev.Audio),
		})
	}
	s.bus.Publish(events.Event{
		Source: events.SourceScanner,
		Kind:   events.KindReminderFired,
		Data: map[string]any{
			"session_id":  sessionID,
			"reminder_id": ev.Reminder.ID,
			"text":        ev.Reminder.Text,
		},
	})
}

// send enqueues an outbound message, giving up if the session context
// ends first. The queue is closed only after the scanner and reader
// have stopped, so no send can race the close.
func (s *Server) send(ctx context.Context, outbound chan any, msg any) {
	select {
	case outbound <- msg:
	case <-ctx.Done():
	}
}
