package tools

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/lark-ai/lark/internal/llm"
)

// CallResult pairs one tool invocation with its outcome.
type CallResult struct {
	CallID string `json:"tool_call_id"`
	Tool   string `json:"function_name"`
	Result Result `json:"result"`
}

// Dispatch executes the given tool calls in order and returns the
// results alongside the tool-role messages to append to history.
//
// Containment rules: a call whose arguments fail to parse runs with an
// empty argument map rather than aborting the round, and a call naming
// an unknown tool is skipped silently, with no result and no tool
// message.
func (r *Registry) Dispatch(ctx context.Context, calls []llm.ToolCall) ([]CallResult, []llm.Message) {
	var results []CallResult
	var msgs []llm.Message

	for _, call := range calls {
		tool := r.tools[call.Name]
		if tool == nil {
			r.logger.Debug("skipping unknown tool", "tool", call.Name)
			continue
		}

		args := ParseArgs(call.Arguments)

		res := tool.Handler(ctx, args)
		r.logger.Info("tool dispatched",
			"tool", call.Name,
			"success", res.Success,
		)

		results = append(results, CallResult{
			CallID: call.ID,
			Tool:   call.Name,
			Result: res,
		})

		content, err := json.Marshal(res)
		if err != nil {
			// Result values are plain data; this only fires if a
			// handler smuggles in something unmarshalable.
			r.logger.Error("marshal tool result", "tool", call.Name, "error", err)
			content = []byte(`{"success":false,"message":"internal error"}`)
		}
		msgs = append(msgs, llm.ToolMessage(string(content), call.ID))
	}

	return results, msgs
}

// ParseArgs parses a raw tool-call argument payload into a coerced
// argument map. Malformed or empty payloads yield an empty map.
func ParseArgs(raw string) map[string]any {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{}
	}
	return Coerce(args)
}

// Coerce normalizes argument values in place and returns the map.
// String values equal to "true" or "false" (case-insensitive) become
// booleans; everything else passes through unchanged. Numeric-looking
// strings are left alone so they cannot collide with integer
// parameters like duration_minutes and reminder_id.
func Coerce(args map[string]any) map[string]any {
	for k, v := range args {
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch strings.ToLower(s) {
		case "true":
			args[k] = true
		case "false":
			args[k] = false
		}
	}
	return args
}

// argString extracts a string argument with a default.
func argString(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return def
}

// argBool extracts a boolean argument with a default.
func argBool(args map[string]any, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

// argInt extracts an integer argument with a default. JSON numbers
// arrive as float64; some providers also send numerics as strings.
func argInt(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}
