// Package anthropic implements the completion gateway on the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/sweetpotato0/pharmacy-assistant/message"
	"github.com/sweetpotato0/pharmacy-assistant/pkg/logging"
	"github.com/sweetpotato0/pharmacy-assistant/provider"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-3-5-sonnet-20241022"

	// defaultMaxTokens bounds answers when the request does not set one.
	// The Messages API requires an explicit limit.
	defaultMaxTokens = 4096
)

// Gateway is an Anthropic-backed provider.Gateway.
type Gateway struct {
	client anthropic.Client
	apiKey string
	model  string
	logger *slog.Logger
}

var _ provider.Gateway = (*Gateway)(nil)

// New creates the gateway. An empty model selects DefaultModel.
func New(apiKey, model string) *Gateway {
	if model == "" {
		model = DefaultModel
	}
	return &Gateway{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		apiKey: apiKey,
		model:  model,
		logger: logging.WithComponent("anthropic"),
	}
}

func (g *Gateway) Name() string { return "anthropic" }

func (g *Gateway) Configured() bool {
	return strings.TrimSpace(g.apiKey) != ""
}

func (g *Gateway) params(req *provider.CompletionRequest) anthropic.MessageNewParams {
	var systemParts []string
	conversation := make([]anthropic.MessageParam, 0, len(req.Messages))

	for _, msg := range message.Compact(req.Messages) {
		switch msg.Role {
		case message.RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case message.RoleUser:
			conversation = append(conversation,
				anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case message.RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(msg.ToolCalls))
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    call.ID,
						Name:  call.Name,
						Input: json.RawMessage(call.RawArguments),
					},
				})
			}
			conversation = append(conversation, anthropic.NewAssistantMessage(blocks...))
		case message.RoleTool:
			// Tool results travel as user-role content blocks.
			conversation = append(conversation, anthropic.NewUserMessage(
				anthropic.ContentBlockParamUnion{
					OfToolResult: &anthropic.ToolResultBlockParam{
						ToolUseID: msg.ToolCallID,
						Content: []anthropic.ToolResultBlockParamContentUnion{
							{OfText: &anthropic.TextBlockParam{Text: msg.Content}},
						},
					},
				}))
		}
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		Messages:  conversation,
		MaxTokens: maxTokens,
	}
	if len(systemParts) > 0 {
		params.System = []anthropic.TextBlockParam{
			{Text: strings.Join(systemParts, "\n")},
		}
	}
	if req.Temperature > 0 {
		params.Temperature = param.NewOpt(req.Temperature)
	}
	if req.ToolChoice != provider.ToolChoiceNone && len(req.Tools) > 0 {
		params.Tools = toTools(req.Tools)
	}
	return params
}

// Complete performs one blocking message creation.
func (g *Gateway) Complete(ctx context.Context, req *provider.CompletionRequest) (*provider.CompletionResponse, error) {
	if !g.Configured() {
		return nil, provider.ErrNotConfigured
	}

	resp, err := g.client.Messages.New(ctx, g.params(req))
	if err != nil {
		return nil, fmt.Errorf("anthropic completion: %w", err)
	}

	msg := &message.Message{Role: message.RoleAssistant}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			msg.Content += block.Text
		case "tool_use":
			msg.ToolCalls = append(msg.ToolCalls, message.ToolCall{
				ID:           block.ID,
				Name:         block.Name,
				RawArguments: string(block.Input),
			})
		}
	}

	finishReason := "stop"
	if string(resp.StopReason) == "tool_use" {
		finishReason = "tool_calls"
	}

	return &provider.CompletionResponse{
		Model: string(resp.Model),
		Choices: []*provider.Choice{
			{Message: msg, FinishReason: finishReason},
		},
		Usage: provider.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

// StreamText performs a streaming message creation and yields text deltas.
func (g *Gateway) StreamText(ctx context.Context, req *provider.CompletionRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !g.Configured() {
			yield("", provider.ErrNotConfigured)
			return
		}

		stream := g.client.Messages.NewStreaming(ctx, g.params(req))
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()
			if event.Type != "content_block_delta" {
				continue
			}
			delta := event.AsContentBlockDelta()
			if delta.Delta.Type != "text_delta" || delta.Delta.Text == "" {
				continue
			}
			if !yield(delta.Delta.Text, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield("", fmt.Errorf("anthropic stream: %w", err))
		}
	}
}

// toTools converts registry schemas from the function-call shape into
// Messages API tool definitions.
func toTools(schemas []map[string]any) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(schemas))
	for _, schema := range schemas {
		fnMap, ok := schema["function"].(map[string]any)
		if !ok {
			continue
		}
		name, _ := fnMap["name"].(string)
		if name == "" {
			continue
		}

		tp := anthropic.ToolParam{Name: name}
		if desc, ok := fnMap["description"].(string); ok && desc != "" {
			tp.Description = param.NewOpt(desc)
		}
		if params, ok := fnMap["parameters"].(map[string]any); ok {
			tp.InputSchema = anthropic.ToolInputSchemaParam{
				Properties: params["properties"],
			}
			if required, ok := params["required"].([]string); ok {
				tp.InputSchema.Required = required
			}
		}
		tools = append(tools, anthropic.ToolUnionParam{OfTool: &tp})
	}
	return tools
}
