// Package openai implements the completion gateway on the OpenAI chat API.
package openai

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"

	"github.com/sweetpotato0/pharmacy-assistant/message"
	"github.com/sweetpotato0/pharmacy-assistant/pkg/logging"
	"github.com/sweetpotato0/pharmacy-assistant/provider"
	"github.com/sweetpotato0/pharmacy-assistant/tokenizer"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// Gateway is an OpenAI-backed provider.Gateway.
type Gateway struct {
	client    openai.Client
	apiKey    string
	model     string
	estimator *tokenizer.Estimator
	logger    *slog.Logger
}

var _ provider.Gateway = (*Gateway)(nil)

// Option customizes the gateway.
type Option func(*Gateway)

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(g *Gateway) {
		g.client = openai.NewClient(
			option.WithAPIKey(g.apiKey),
			option.WithBaseURL(strings.TrimRight(baseURL, "/")),
		)
	}
}

// New creates the gateway. An empty model selects DefaultModel. The gateway
// is constructed even without an API key so health checks can report the
// missing configuration; Complete and StreamText then fail with
// ErrNotConfigured.
func New(apiKey, model string, opts ...Option) *Gateway {
	if model == "" {
		model = DefaultModel
	}
	g := &Gateway{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		apiKey: apiKey,
		model:  model,
		logger: logging.WithComponent("openai"),
	}
	if est, err := tokenizer.New(model); err == nil {
		g.estimator = est
	} else {
		g.logger.Warn("token estimator unavailable", "model", model, "error", err)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) Name() string { return "openai" }

// Configured requires a key that at least looks like an OpenAI key.
func (g *Gateway) Configured() bool {
	return g.apiKey != "" && strings.HasPrefix(g.apiKey, "sk-")
}

func (g *Gateway) params(req *provider.CompletionRequest) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(g.model),
		Messages: toChatMessages(message.Compact(req.Messages)),
	}
	if len(req.Tools) > 0 {
		params.Tools = toChatTools(req.Tools)
	}
	if req.ToolChoice != "" {
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(req.ToolChoice),
		}
	}
	if req.Temperature > 0 {
		params.Temperature = param.NewOpt(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}
	return params
}

// Complete performs one blocking chat completion.
func (g *Gateway) Complete(ctx context.Context, req *provider.CompletionRequest) (*provider.CompletionResponse, error) {
	if !g.Configured() {
		return nil, provider.ErrNotConfigured
	}

	if g.estimator != nil {
		g.logger.Debug("sending completion",
			"model", g.model,
			"messages", len(req.Messages),
			"tools", len(req.Tools),
			"prompt_tokens_estimate", g.estimator.CountMessages(req.Messages))
	}

	resp, err := g.client.Chat.Completions.New(ctx, g.params(req))
	if err != nil {
		return nil, fmt.Errorf("openai completion: %w", err)
	}

	out := &provider.CompletionResponse{
		Model: resp.Model,
		Usage: provider.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	for _, choice := range resp.Choices {
		msg := &message.Message{
			Role:    message.RoleAssistant,
			Content: choice.Message.Content,
		}
		for _, call := range choice.Message.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, message.ToolCall{
				ID:           call.ID,
				Name:         call.Function.Name,
				RawArguments: call.Function.Arguments,
			})
		}
		out.Choices = append(out.Choices, &provider.Choice{
			Message:      msg,
			FinishReason: string(choice.FinishReason),
		})
	}
	return out, nil
}

// StreamText performs a streaming completion and yields content deltas.
func (g *Gateway) StreamText(ctx context.Context, req *provider.CompletionRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !g.Configured() {
			yield("", provider.ErrNotConfigured)
			return
		}

		stream := g.client.Chat.Completions.NewStreaming(ctx, g.params(req))
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			for _, choice := range chunk.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				if !yield(choice.Delta.Content, nil) {
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			yield("", fmt.Errorf("openai stream: %w", err))
		}
	}
}

func toChatMessages(msgs []*message.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case message.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case message.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(msg.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{
				ToolCalls: toToolCallParams(msg.ToolCalls),
			}
			if msg.Content != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: param.NewOpt(msg.Content),
				}
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case message.RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func toToolCallParams(calls []message.ToolCall) []openai.ChatCompletionMessageToolCallUnionParam {
	out := make([]openai.ChatCompletionMessageToolCallUnionParam, 0, len(calls))
	for _, call := range calls {
		out = append(out, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: call.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      call.Name,
					Arguments: call.RawArguments,
				},
			},
		})
	}
	return out
}

// toChatTools converts registry schemas, which are already in the
// {"type":"function","function":{...}} shape, into typed tool params.
func toChatTools(schemas []map[string]any) []openai.ChatCompletionToolUnionParam {
	tools := make([]openai.ChatCompletionToolUnionParam, 0, len(schemas))
	for _, schema := range schemas {
		fnMap, ok := schema["function"].(map[string]any)
		if !ok {
			continue
		}
		name, _ := fnMap["name"].(string)
		if name == "" {
			continue
		}
		fn := shared.FunctionDefinitionParam{Name: name}
		if desc, ok := fnMap["description"].(string); ok && desc != "" {
			fn.Description = openai.String(desc)
		}
		if params, ok := fnMap["parameters"].(map[string]any); ok {
			fn.Parameters = shared.FunctionParameters(params)
		}
		tools = append(tools, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{Function: fn},
		})
	}
	return tools
}
