// Package agent drives the tool-calling conversation loop: ask the model
// for a decision, execute the tools it requests, feed the results back, and
// repeat until it answers in plain text or the iteration ceiling is hit.
package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sweetpotato0/pharmacy-assistant/audit"
	"github.com/sweetpotato0/pharmacy-assistant/message"
	"github.com/sweetpotato0/pharmacy-assistant/middleware"
	"github.com/sweetpotato0/pharmacy-assistant/pkg/logging"
	"github.com/sweetpotato0/pharmacy-assistant/pkg/telemetry"
	"github.com/sweetpotato0/pharmacy-assistant/provider"
	"github.com/sweetpotato0/pharmacy-assistant/tool"
)

const (
	// DefaultMaxIterations bounds the decide-act-observe loop.
	DefaultMaxIterations = 10

	// noResponseContent is returned when the provider answers with zero
	// choices.
	noResponseContent = "No response from AI model"

	// maxIterationsContent is returned when the loop hits its ceiling
	// without the model producing a plain answer.
	maxIterationsContent = "I apologize, but I'm having trouble completing this request. Please try again."
)

// Agent orchestrates completions and tool execution.
type Agent struct {
	gateway       provider.Gateway
	registry      *tool.Registry
	systemPrompt  string
	maxIterations int
	temperature   float64
	middlewares   *middleware.Chain
	recorder      audit.Recorder
	logger        *slog.Logger
	tracer        trace.Tracer
}

// Option configures an Agent.
type Option func(*Agent)

// WithGateway sets the completion backend.
func WithGateway(g provider.Gateway) Option {
	return func(a *Agent) { a.gateway = g }
}

// WithRegistry sets the tool registry.
func WithRegistry(r *tool.Registry) Option {
	return func(a *Agent) { a.registry = r }
}

// WithSystemPrompt sets the system prompt prepended to histories that do
// not already carry one.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) { a.systemPrompt = prompt }
}

// WithMaxIterations sets the loop ceiling.
func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) Option {
	return func(a *Agent) { a.temperature = temp }
}

// WithMiddlewares sets the middleware chain wrapped around synchronous runs.
func WithMiddlewares(middlewares ...middleware.Middleware) Option {
	return func(a *Agent) { a.middlewares = middleware.NewChain(middlewares...) }
}

// WithRecorder archives completed runs.
func WithRecorder(r audit.Recorder) Option {
	return func(a *Agent) {
		if r != nil {
			a.recorder = r
		}
	}
}

// New creates an agent with the given options.
func New(opts ...Option) *Agent {
	a := &Agent{
		registry:      tool.NewRegistry(),
		maxIterations: DefaultMaxIterations,
		middlewares:   middleware.NewChain(),
		recorder:      audit.NopRecorder{},
		logger:        logging.WithComponent("agent"),
		tracer:        telemetry.Tracer("agent"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RunResult is the outcome of one synchronous run.
type RunResult struct {
	Final      *message.Message `json:"final"`
	Trace      *Trace           `json:"trace"`
	Iterations int              `json:"iterations"`
	Usage      provider.Usage   `json:"usage"`
}

// Run executes the loop over the supplied history and returns the final
// assistant message with the accumulated tool trace. The caller owns the
// history; it is not mutated.
func (a *Agent) Run(ctx context.Context, msgs []*message.Message) (*RunResult, error) {
	if a.middlewares.Len() == 0 {
		return a.run(ctx, msgs)
	}

	mctx := middleware.NewContext(ctx)
	mctx.Messages = msgs
	mctx.Input = latestUserContent(msgs)

	var result *RunResult
	err := a.middlewares.Execute(mctx, func(mc *middleware.Context) error {
		r, runErr := a.run(mc.Context(), mc.Messages)
		if runErr != nil {
			return runErr
		}
		result = r
		mc.Response = r.Final
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil && mctx.Response != nil {
		// A middleware substituted a fallback response.
		result = &RunResult{Final: mctx.Response, Trace: NewTrace()}
	}
	return result, nil
}

func (a *Agent) run(ctx context.Context, msgs []*message.Message) (_ *RunResult, err error) {
	ctx, span := a.tracer.Start(ctx, "agent.run")
	defer func() { telemetry.End(span, err) }()

	history := a.prepareHistory(msgs)
	runTrace := NewTrace()
	var usage provider.Usage
	schemas := a.registry.ToJSONSchemas()

	for iteration := 1; iteration <= a.maxIterations; iteration++ {
		resp, err := a.gateway.Complete(ctx, &provider.CompletionRequest{
			Messages:    history,
			Tools:       schemas,
			ToolChoice:  provider.ToolChoiceAuto,
			Temperature: a.temperature,
		})
		if err != nil {
			return nil, err
		}
		usage.PromptTokens += resp.Usage.PromptTokens
		usage.CompletionTokens += resp.Usage.CompletionTokens
		usage.TotalTokens += resp.Usage.TotalTokens

		if len(resp.Choices) == 0 {
			result := &RunResult{
				Final:      message.New(message.RoleAssistant, noResponseContent),
				Trace:      runTrace,
				Iterations: iteration,
				Usage:      usage,
			}
			a.record(ctx, msgs, result, false)
			return result, nil
		}

		decision := resp.Choices[0].Message
		if len(decision.ToolCalls) == 0 {
			span.SetAttributes(
				attribute.Int("iterations", iteration),
				attribute.Int("tool_calls", len(runTrace.ToolCalls)),
			)
			result := &RunResult{
				Final:      decision,
				Trace:      runTrace,
				Iterations: iteration,
				Usage:      usage,
			}
			a.record(ctx, msgs, result, false)
			return result, nil
		}

		history = append(history, decision)
		for _, call := range decision.ToolCalls {
			result := a.executeCall(ctx, call, runTrace)
			history = append(history, message.NewToolResponse(call.ID, result.JSON()))
		}
	}

	a.logger.Warn("iteration ceiling reached", "max_iterations", a.maxIterations)
	result := &RunResult{
		Final:      message.New(message.RoleAssistant, maxIterationsContent),
		Trace:      runTrace,
		Iterations: a.maxIterations,
		Usage:      usage,
	}
	a.record(ctx, msgs, result, false)
	return result, nil
}

// executeCall dispatches one tool call and records both sides in the trace.
func (a *Agent) executeCall(ctx context.Context, call message.ToolCall, runTrace *Trace) tool.Result {
	args := parseArguments(call.RawArguments)
	runTrace.addCall(ToolCallTrace{ID: call.ID, Name: call.Name, Arguments: args})

	ctx, span := a.tracer.Start(ctx, "tool."+call.Name)
	a.logger.Info("executing tool", "tool", call.Name, "tool_call_id", call.ID)
	result := a.registry.Dispatch(ctx, call.Name, args)
	span.SetAttributes(attribute.Bool("tool.success", result.Success))
	telemetry.End(span, nil)
	runTrace.addResult(call.ID, call.Name, result)
	if !result.Success {
		a.logger.Info("tool returned failure",
			"tool", call.Name, "code", result.Error.Code, "message", result.Error.Message)
	}
	return result
}

// prepareHistory clones the caller's messages and prepends the system
// prompt unless the history already carries one.
func (a *Agent) prepareHistory(msgs []*message.Message) []*message.Message {
	history := message.CloneMessages(msgs)
	if a.systemPrompt != "" && !message.HasSystem(history) {
		history = append(
			[]*message.Message{message.New(message.RoleSystem, a.systemPrompt)},
			history...)
	}
	return history
}

func (a *Agent) record(ctx context.Context, msgs []*message.Message, result *RunResult, streamed bool) {
	entry := &audit.Entry{
		Provider: a.gateway.Name(),
		Input:    latestUserContent(msgs),
		Final:    result.Final.Content,
		Trace:    result.Trace,
		Usage: map[string]int{
			"prompt_tokens":     result.Usage.PromptTokens,
			"completion_tokens": result.Usage.CompletionTokens,
			"total_tokens":      result.Usage.TotalTokens,
		},
		Streamed: streamed,
	}
	if err := a.recorder.Record(ctx, entry); err != nil {
		a.logger.Warn("run archive failed", "error", err)
	}
}

// parseArguments decodes a raw tool argument payload. Malformed payloads
// fall back to an empty argument set so a single bad call does not abort
// the turn; required-parameter validation then fails it cleanly.
func parseArguments(raw string) map[string]any {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{}
	}
	return args
}

func latestUserContent(msgs []*message.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i] != nil && msgs[i].Role == message.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}
