// Package llm defines the chat-completion gateway and its message types.
package llm

// Roles for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents a chat message. Content may be empty when the
// message instead carries tool calls (assistant role) and ToolCallID is
// set only for tool-role messages.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall represents a tool invocation requested by the model.
// Arguments is the raw JSON text exactly as the provider returned it;
// parsing and coercion happen at dispatch time.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDef is a tool schema advertised to the model, in the
// OpenAI-function shape: {"type":"function","function":{...}}.
type ToolDef map[string]any

// ChatResponse is the unified response from a chat-completion call.
// A response carries either final text content or one or more tool
// calls to execute.
type ChatResponse struct {
	Message      Message
	Model        string
	InputTokens  int
	OutputTokens int
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// ToolMessage builds a tool-role message carrying a tool result keyed
// to the originating call.
func ToolMessage(content, toolCallID string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}
