package llm

import "context"

// Client is the chat-completion gateway. Given a message list and a
// tool schema it returns either final text or tool calls. Implementations
// must honor ctx cancellation and deadlines; a deadline expiry is
// reported as an ordinary error.
type Client interface {
	Chat(ctx context.Context, messages []Message, tools []ToolDef) (*ChatResponse, error)
}
