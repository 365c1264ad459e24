package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint
// (OpenAI, Groq, a local gateway). The wire format conversion between
// our neutral types and the SDK's param unions happens entirely here.
type OpenAIClient struct {
	client      openai.Client
	model       string
	temperature float64
	logger      *slog.Logger
}

// NewOpenAIClient creates a client for the given endpoint. baseURL may
// be empty for the default OpenAI endpoint.
func NewOpenAIClient(baseURL, apiKey, model string, temperature float64, logger *slog.Logger) *OpenAIClient {
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	return &OpenAIClient{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: temperature,
		logger:      logger,
	}
}

// Chat sends a chat completion request with automatic tool selection.
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, tools []ToolDef) (*ChatResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: toParamMessages(messages),
	}
	if c.temperature > 0 {
		params.Temperature = openai.Float(c.temperature)
	}
	if len(tools) > 0 {
		params.Tools = toParamTools(tools)
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String("auto"),
		}
	}

	start := time.Now()
	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: empty choices in response")
	}

	msg := completion.Choices[0].Message

	resp := &ChatResponse{
		Model:        completion.Model,
		InputTokens:  int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
		Message: Message{
			Role:    RoleAssistant,
			Content: msg.Content,
		},
	}
	for _, tc := range msg.ToolCalls {
		resp.Message.ToolCalls = append(resp.Message.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	c.logger.Debug("chat completion",
		"model", completion.Model,
		"messages", len(messages),
		"tool_calls", len(resp.Message.ToolCalls),
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return resp, nil
}

// toParamMessages converts neutral messages to SDK param unions.
func toParamMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			for _, tc := range m.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: tc.Arguments,
						},
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		}
	}
	return out
}

// toParamTools converts registry tool schemas to SDK tool params. The
// maps follow the {"type":"function","function":{...}} shape that the
// registry advertises.
func toParamTools(tools []ToolDef) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		fn, _ := t["function"].(map[string]any)
		if fn == nil {
			continue
		}
		name, _ := fn["name"].(string)
		desc, _ := fn["description"].(string)
		params, _ := fn["parameters"].(map[string]any)

		def := openai.FunctionDefinitionParam{Name: name}
		if desc != "" {
			def.Description = openai.String(desc)
		}
		if params != nil {
			def.Parameters = openai.FunctionParameters(params)
		}
		out = append(out, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{Function: def},
		})
	}
	return out
}
