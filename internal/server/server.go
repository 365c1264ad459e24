// Package server implements the WebSocket transport and the JSON
// status surface.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lark-ai/lark/internal/buildinfo"
	"github.com/lark-ai/lark/internal/events"
	"github.com/lark-ai/lark/internal/notes"
	"github.com/lark-ai/lark/internal/orchestrator"
	"github.com/lark-ai/lark/internal/reminders"
	"github.com/lark-ai/lark/internal/session"
	"github.com/lark-ai/lark/internal/speech"
)

// maxInboundBytes bounds one inbound frame. Recorded audio clips are
// large; 10 MB accommodates them with headroom.
const maxInboundBytes = 10 << 20

// Config carries the server's tunables.
type Config struct {
	Address       string
	SystemPrompt  string
	MaxHistory    int
	PollInterval  time.Duration
	SpeechTimeout time.Duration
}

// Server accepts WebSocket connections and runs one session per
// connection.
type Server struct {
	cfg         Config
	orch        *orchestrator.Orchestrator
	transcriber speech.Transcriber
	synth       speech.Synthesizer
	remStore    *reminders.Store
	noteLog     *notes.Store
	tracker     *session.Tracker
	bus         *events.Bus
	logger      *slog.Logger

	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// New creates the server. transcriber and synth may be nil; the
// corresponding features degrade (audio input rejected, text-only
// responses).
func New(cfg Config, orch *orchestrator.Orchestrator, transcriber speech.Transcriber, synth speech.Synthesizer,
	remStore *reminders.Store, noteLog *notes.Store, bus *events.Bus, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:         cfg,
		orch:        orch,
		transcriber: transcriber,
		synth:       synth,
		remStore:    remStore,
		noteLog:     noteLog,
		tracker:     session.NewTracker(),
		bus:         bus,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/sessions", s.handleSessions)
	mux.HandleFunc("GET /v1/reminders", s.handleReminders)
	mux.HandleFunc("GET /v1/messages", s.handleMessages)
	return mux
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:    s.cfg.Address,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "address", s.cfg.Address)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

// writeJSON encodes v to w. Errors usually mean the client went away.
func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write json response", "error", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	noteCount, err := s.noteLog.Count()
	if err != nil {
		s.logger.Warn("count notes", "error", err)
	}
	s.writeJSON(w, map[string]any{
		"sessions":         s.tracker.Count(),
		"active_reminders": s.remStore.ActiveCount(),
		"messages":         noteCount,
		"build":            buildinfo.Info(),
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]any{"sessions": s.tracker.List()})
}

func (s *Server) handleReminders(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]any{"reminders": s.remStore.Active()})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.noteLog.List()
	if err != nil {
		http.Error(w, "list messages: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, map[string]any{"messages": msgs})
}
