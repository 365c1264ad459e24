// Package tools defines the fixed tool catalogue available to the model.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/lark-ai/lark/internal/llm"
	"github.com/lark-ai/lark/internal/notes"
	"github.com/lark-ai/lark/internal/reminders"
)

// Result is the outcome of one tool invocation. It is serialized as-is
// into the tool-role message content and into the response payload.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Tool represents a callable tool. Parameters is the JSON schema
// advertised to the model; Handler receives the parsed and coerced
// argument map.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     func(ctx context.Context, args map[string]any) Result
}

// Registry holds the tool catalogue. The catalogue is fixed at startup;
// the stores it mutates are shared across all sessions.
type Registry struct {
	tools     map[string]*Tool
	order     []string
	reminders *reminders.Store
	notes     *notes.Store
	logger    *slog.Logger
}

// NewRegistry creates the registry with the built-in catalogue.
func NewRegistry(rem *reminders.Store, noteLog *notes.Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		tools:     make(map[string]*Tool),
		reminders: rem,
		notes:     noteLog,
		logger:    logger,
	}
	r.registerBuiltins()
	return r
}

// Register adds a tool to the catalogue.
func (r *Registry) Register(t *Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Get returns the named tool, or nil.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Schema returns the catalogue as tool definitions for the completion
// gateway, in registration order. The schema is derived from the same
// Tool records that dispatch uses, so the two cannot drift.
func (r *Registry) Schema() []llm.ToolDef {
	out := make([]llm.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, llm.ToolDef{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return out
}

func (r *Registry) registerBuiltins() {
	r.Register(&Tool{
		Name:        "set_reminder",
		Description: "Set a reminder",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"reminder_text":    map[string]any{"type": "string"},
				"duration_minutes": map[string]any{"type": "integer", "default": 5},
			},
			"required": []string{"reminder_text"},
		},
		Handler: r.handleSetReminder,
	})

	r.Register(&Tool{
		Name:        "send_message",
		Description: "Send message",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"recipient": map[string]any{"type": "string"},
				"content":   map[string]any{"type": "string"},
			},
			"required": []string{"content"},
		},
		Handler: r.handleSendMessage,
	})

	r.Register(&Tool{
		Name:        "play_music",
		Description: "Play music",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":   map[string]any{"type": "string"},
				"shuffle": map[string]any{"type": "boolean", "default": false},
			},
			"required": []string{"query"},
		},
		Handler: r.handlePlayMusic,
	})

	r.Register(&Tool{
		Name:        "get_reminders",
		Description: "Get reminders",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: r.handleGetReminders,
	})

	r.Register(&Tool{
		Name:        "get_messages",
		Description: "Get messages",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: r.handleGetMessages,
	})

	r.Register(&Tool{
		Name:        "delete_reminder",
		Description: "Delete reminder",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"reminder_id": map[string]any{"type": "integer"},
			},
			"required": []string{"reminder_id"},
		},
		Handler: r.handleDeleteReminder,
	})

	r.Register(&Tool{
		Name:        "get_current_time",
		Description: "Get current time",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: handleGetCurrentTime,
	})

	r.Register(&Tool{
		Name:        "get_current_date",
		Description: "Get current date",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: handleGetCurrentDate,
	})
}

func (r *Registry) handleSetReminder(_ context.Context, args map[string]any) Result {
	text := argString(args, "reminder_text", "")
	minutes := argInt(args, "duration_minutes", 5)

	rem := r.reminders.Add(text, time.Duration(minutes)*time.Minute)

	return Result{
		Success: true,
		Message: fmt.Sprintf("Reminder set for %s", rem.Due.Format("03:04 PM")),
		Data:    rem,
	}
}

func (r *Registry) handleSendMessage(_ context.Context, args map[string]any) Result {
	content := argString(args, "content", "")
	recipient := argString(args, "recipient", "default")

	note, err := r.notes.Append(recipient, content)
	if err != nil {
		r.logger.Error("send_message failed", "error", err)
		return Result{Success: false, Message: "Could not send message"}
	}

	return Result{
		Success: true,
		Message: fmt.Sprintf("Message sent to %s", recipient),
		Data:    note,
	}
}

func (r *Registry) handlePlayMusic(_ context.Context, args map[string]any) Result {
	query := argString(args, "query", "")
	shuffle := argBool(args, "shuffle", false)

	link := "https://www.youtube.com/results?search_query=" + url.QueryEscape(query)

	return Result{
		Success: true,
		Message: fmt.Sprintf("Opening YouTube for %s", query),
		Data: map[string]any{
			"platform": "YouTube",
			"query":    query,
			"url":      link,
			"shuffle":  shuffle,
		},
	}
}

func (r *Registry) handleGetReminders(_ context.Context, _ map[string]any) Result {
	active := r.reminders.Active()
	return Result{
		Success: true,
		Message: fmt.Sprintf("You have %d active reminder(s)", len(active)),
		Data:    active,
	}
}

func (r *Registry) handleGetMessages(_ context.Context, _ map[string]any) Result {
	msgs, err := r.notes.List()
	if err != nil {
		r.logger.Error("get_messages failed", "error", err)
		return Result{Success: false, Message: "Could not read messages"}
	}
	return Result{
		Success: true,
		Message: fmt.Sprintf("You have %d message(s)", len(msgs)),
		Data:    msgs,
	}
}

func (r *Registry) handleDeleteReminder(_ context.Context, args map[string]any) Result {
	id := argInt(args, "reminder_id", 0)

	rem, ok := r.reminders.Deactivate(int64(id))
	if !ok {
		return Result{Success: false, Message: fmt.Sprintf("Reminder %d not found", id)}
	}

	return Result{
		Success: true,
		Message: fmt.Sprintf("Reminder %d deleted", id),
		Data:    rem,
	}
}

func handleGetCurrentTime(_ context.Context, _ map[string]any) Result {
	now := time.Now().Format("03:04 PM")
	return Result{
		Success: true,
		Message: fmt.Sprintf("The current time is %s", now),
		Data:    map[string]any{"time": now},
	}
}

func handleGetCurrentDate(_ context.Context, _ map[string]any) Result {
	today := time.Now().Format("Monday, January 2, 2006")
	return Result{
		Success: true,
		Message: fmt.Sprintf("Today is %s", today),
		Data:    map[string]any{"date": today},
	}
}
