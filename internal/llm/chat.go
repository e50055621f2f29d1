package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// ToolDef describes one callable tool advertised to the model: a name, a
// human-readable description, and a JSON-schema parameter object.
type ToolDef struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Dispatcher resolves and invokes tools requested by the model.
// Implementations must not panic and must not return Go errors across the
// boundary; a failing tool reports through an "error" key in its result map.
type Dispatcher interface {
	// Tools returns the advertised tool definitions in a stable order.
	Tools() []ToolDef

	// Dispatch invokes the named tool. ok is false when the name is unknown.
	Dispatch(ctx context.Context, name string, args map[string]any) (result map[string]any, ok bool)
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// ToolCall records one model-issued tool invocation and its outcome.
// Exactly one of Result or Error is populated.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Result    map[string]any `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Result is the outcome of a chat completion: the assistant text plus any
// dispatched tool calls.
type Result struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls"`
}

// Client is a chat-completion adapter with function calling support.
// It performs a single upstream call per ChatCompletion invocation; there is
// no retry or backoff, and upstream failures propagate to the caller.
type Client struct {
	api         openai.Client
	model       string
	temperature float64
	dispatcher  Dispatcher
	logger      *slog.Logger
}

// NewClient creates a chat client. baseURL may be empty to use the default
// OpenAI endpoint. dispatcher may be nil, in which case no tools are
// advertised.
func NewClient(apiKey, baseURL, model string, temperature float64, dispatcher Dispatcher, logger *slog.Logger) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{
		api:         openai.NewClient(opts...),
		model:       model,
		temperature: temperature,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// ChatCompletion sends the conversation to the model, advertising the
// dispatcher's tools when useTools is set. Tool calls requested by the model
// are dispatched synchronously, one at a time, in the order the model issued
// them. A failing call is captured in its own ToolCall entry and does not
// affect sibling calls; unknown tool names are logged and skipped.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message, useTools bool) (Result, error) {
	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: openai.Float(c.temperature),
	}

	if useTools && c.dispatcher != nil {
		if defs := c.dispatcher.Tools(); len(defs) > 0 {
			params.Tools = toOpenAITools(defs)
			params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
				OfAuto: openai.String("auto"),
			}
		}
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return Result{}, fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("llm: chat completion returned no choices")
	}

	msg := resp.Choices[0].Message
	result := Result{
		Role:      "assistant",
		Content:   msg.Content,
		ToolCalls: []ToolCall{},
	}

	for _, tc := range msg.ToolCalls {
		name := tc.Function.Name

		var args map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			c.logger.Error("tool call arguments unparseable", "tool", name, "error", err)
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:    tc.ID,
				Name:  name,
				Error: fmt.Sprintf("invalid arguments: %v", err),
			})
			continue
		}

		toolResult, ok := c.dispatcher.Dispatch(ctx, name, args)
		if !ok {
			c.logger.Warn("unknown tool requested by model", "tool", name)
			continue
		}

		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      name,
			Arguments: args,
			Result:    toolResult,
		})
	}

	return result, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func toOpenAITools(defs []ToolDef) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, d := range defs {
		out = append(out, openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        d.Name,
				Description: openai.String(d.Description),
				Parameters:  shared.FunctionParameters(d.Parameters),
			},
		})
	}
	return out
}
