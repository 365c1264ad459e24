// Package orchestrator implements the two-phase tool-calling protocol
// that turns one user utterance into a final response.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lark-ai/lark/internal/events"
	"github.com/lark-ai/lark/internal/llm"
	"github.com/lark-ai/lark/internal/tools"
)

// Statuses for a respond round.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the outcome of one respond round. The JSON field names
// mirror the wire payload consumed by clients.
type Result struct {
	Status      string             `json:"status"`
	Message     string             `json:"message"`
	ToolCalled  string             `json:"function_called,omitempty"`
	ToolResults []tools.CallResult `json:"function_results,omitempty"`

	// HistoryDelta is what the caller appends to the session's
	// persisted history after the user message. Never populated on
	// error: a failed round leaves history untouched.
	HistoryDelta []llm.Message `json:"-"`
}

// ErrorResult wraps a gateway failure as a wire-level result.
func ErrorResult(err error) *Result {
	return &Result{Status: StatusError, Message: err.Error()}
}

// Orchestrator drives the protocol: one completion round with the full
// tool schema, dispatch of any requested tools, then a second round for
// the natural-language wrap-up.
type Orchestrator struct {
	client   llm.Client
	registry *tools.Registry
	timeout  time.Duration
	bus      *events.Bus
	logger   *slog.Logger
}

// New creates an orchestrator. timeout bounds each individual gateway
// call; zero disables the bound.
func New(client llm.Client, registry *tools.Registry, timeout time.Duration, bus *events.Bus, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		client:   client,
		registry: registry,
		timeout:  timeout,
		bus:      bus,
		logger:   logger,
	}
}

// Respond runs one round for the given user text against a snapshot of
// the session's history. The snapshot is used as a working copy; the
// caller appends the user message plus Result.HistoryDelta to the
// persisted history only on success.
//
// Any gateway failure (including timeout) returns a non-nil error and
// no history delta.
func (o *Orchestrator) Respond(ctx context.Context, sessionID, userText string, history []llm.Message) (*Result, error) {
	start := time.Now()

	working := make([]llm.Message, 0, len(history)+1)
	working = append(working, history...)
	working = append(working, llm.UserMessage(userText))

	schema := o.registry.Schema()

	o.logger.Info("respond started",
		"session", sessionID,
		"history", len(history),
		"text_len", len(userText),
	)

	resp, err := o.chat(ctx, working, schema)
	if err != nil {
		o.publishComplete(sessionID, StatusError, "", start)
		return nil, fmt.Errorf("completion round one: %w", err)
	}

	// No tool calls: the first round's text is the final answer.
	if len(resp.Message.ToolCalls) == 0 {
		o.publishComplete(sessionID, StatusSuccess, "", start)
		return &Result{
			Status:       StatusSuccess,
			Message:      resp.Message.Content,
			HistoryDelta: []llm.Message{{Role: llm.RoleAssistant, Content: resp.Message.Content}},
		}, nil
	}

	// Dispatch in the order received. Unknown tools are skipped
	// silently; malformed argument payloads run with an empty map.
	results, toolMsgs := o.registry.Dispatch(ctx, resp.Message.ToolCalls)
	for _, cr := range results {
		o.bus.Publish(events.Event{
			Source: events.SourceOrchestrator,
			Kind:   events.KindToolCall,
			Data: map[string]any{
				"session_id": sessionID,
				"tool":       cr.Tool,
				"success":    cr.Result.Success,
			},
		})
	}

	// The assistant turn that requested the tools carries only the
	// call list (names and raw arguments), never results.
	assistantCall := llm.Message{Role: llm.RoleAssistant, ToolCalls: resp.Message.ToolCalls}
	working = append(working, assistantCall)
	working = append(working, toolMsgs...)

	// Second round: wrap the tool results into natural language. The
	// same schema is offered, but only this round's text is reported;
	// further tool requests are out of scope for a single round.
	final, err := o.chat(ctx, working, schema)
	if err != nil {
		o.publishComplete(sessionID, StatusError, firstTool(results), start)
		return nil, fmt.Errorf("completion round two: %w", err)
	}

	delta := make([]llm.Message, 0, len(toolMsgs)+2)
	delta = append(delta, assistantCall)
	delta = append(delta, toolMsgs...)
	delta = append(delta, llm.Message{Role: llm.RoleAssistant, Content: final.Message.Content})

	o.publishComplete(sessionID, StatusSuccess, firstTool(results), start)

	o.logger.Info("respond completed",
		"session", sessionID,
		"tool_called", firstTool(results),
		"tools_run", len(results),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return &Result{
		Status:       StatusSuccess,
		Message:      final.Message.Content,
		ToolCalled:   firstTool(results),
		ToolResults:  results,
		HistoryDelta: delta,
	}, nil
}

func (o *Orchestrator) chat(ctx context.Context, messages []llm.Message, schema []llm.ToolDef) (*llm.ChatResponse, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	return o.client.Chat(ctx, messages, schema)
}

func (o *Orchestrator) publishComplete(sessionID, status, tool string, start time.Time) {
	o.bus.Publish(events.Event{
		Source: events.SourceOrchestrator,
		Kind:   events.KindRequestComplete,
		Data: map[string]any{
			"session_id":  sessionID,
			"status":      status,
			"tool_called": tool,
			"elapsed_ms":  time.Since(start).Milliseconds(),
		},
	})
}

func firstTool(results []tools.CallResult) string {
	if len(results) == 0 {
		return ""
	}
	return results[0].Tool
}
