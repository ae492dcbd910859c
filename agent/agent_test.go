package agent

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"testing"

	"github.com/sweetpotato0/pharmacy-assistant/message"
	"github.com/sweetpotato0/pharmacy-assistant/middleware"
	"github.com/sweetpotato0/pharmacy-assistant/provider"
	"github.com/sweetpotato0/pharmacy-assistant/tool"
)

// scriptedGateway replays canned completions and records the requests it
// receives.
type scriptedGateway struct {
	configured   bool
	responses    []*provider.CompletionResponse
	completeErr  error
	streamChunks []string
	streamErr    error

	completeCalls   int
	requests        []*provider.CompletionRequest
	streamRequests  []*provider.CompletionRequest
	streamCallCount int
}

func (g *scriptedGateway) Name() string     { return "scripted" }
func (g *scriptedGateway) Configured() bool { return g.configured }

func (g *scriptedGateway) Complete(_ context.Context, req *provider.CompletionRequest) (*provider.CompletionResponse, error) {
	g.requests = append(g.requests, req)
	if g.completeErr != nil {
		return nil, g.completeErr
	}
	idx := g.completeCalls
	if idx >= len(g.responses) {
		idx = len(g.responses) - 1
	}
	g.completeCalls++
	return g.responses[idx], nil
}

func (g *scriptedGateway) StreamText(_ context.Context, req *provider.CompletionRequest) iter.Seq2[string, error] {
	g.streamRequests = append(g.streamRequests, req)
	g.streamCallCount++
	return func(yield func(string, error) bool) {
		for _, chunk := range g.streamChunks {
			if !yield(chunk, nil) {
				return
			}
		}
		if g.streamErr != nil {
			yield("", g.streamErr)
		}
	}
}

func contentResponse(content string) *provider.CompletionResponse {
	return &provider.CompletionResponse{
		Choices: []*provider.Choice{
			{Message: message.New(message.RoleAssistant, content), FinishReason: "stop"},
		},
	}
}

func toolCallResponse(calls ...message.ToolCall) *provider.CompletionResponse {
	msg := &message.Message{Role: message.RoleAssistant, ToolCalls: calls}
	return &provider.CompletionResponse{
		Choices: []*provider.Choice{{Message: msg, FinishReason: "tool_calls"}},
	}
}

func echoRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	r := tool.NewRegistry()
	err := r.Register(&tool.Tool{
		Name:        "echo",
		Description: "echoes its input",
		Parameters: []tool.Parameter{
			{Name: "text", Type: "string", Description: "text to echo", Required: true},
		},
		Handler: func(_ context.Context, args map[string]any) tool.Result {
			return tool.OK(map[string]any{"echo": args["text"]})
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func userMsgs(content string) []*message.Message {
	return []*message.Message{message.New(message.RoleUser, content)}
}

func TestRunContentOnly(t *testing.T) {
	gw := &scriptedGateway{configured: true, responses: []*provider.CompletionResponse{
		contentResponse("Hello!"),
	}}
	a := New(WithGateway(gw), WithRegistry(echoRegistry(t)), WithSystemPrompt("be helpful"))

	res, err := a.Run(context.Background(), userMsgs("hi"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Final.Content != "Hello!" {
		t.Errorf("final = %q", res.Final.Content)
	}
	if res.Iterations != 1 {
		t.Errorf("iterations = %d, want 1", res.Iterations)
	}
	if len(res.Trace.ToolCalls) != 0 || len(res.Trace.ToolResults) != 0 {
		t.Errorf("trace should be empty: %+v", res.Trace)
	}
	if res.Trace.ToolCalls == nil || res.Trace.ToolResults == nil {
		t.Error("trace slices must be non-nil")
	}

	// System prompt is prepended exactly once.
	first := gw.requests[0].Messages[0]
	if first.Role != message.RoleSystem || first.Content != "be helpful" {
		t.Errorf("first message = %+v, want system prompt", first)
	}
}

func TestRunPreservesExistingSystemPrompt(t *testing.T) {
	gw := &scriptedGateway{configured: true, responses: []*provider.CompletionResponse{
		contentResponse("ok"),
	}}
	a := New(WithGateway(gw), WithRegistry(echoRegistry(t)), WithSystemPrompt("default"))

	msgs := []*message.Message{
		message.New(message.RoleSystem, "custom"),
		message.New(message.RoleUser, "hi"),
	}
	if _, err := a.Run(context.Background(), msgs); err != nil {
		t.Fatal(err)
	}

	sent := gw.requests[0].Messages
	if len(sent) != 2 || sent[0].Content != "custom" {
		t.Errorf("history = %+v, system prompt should not be duplicated", sent)
	}
}

func TestRunToolCallFlow(t *testing.T) {
	gw := &scriptedGateway{configured: true, responses: []*provider.CompletionResponse{
		toolCallResponse(message.ToolCall{ID: "call_1", Name: "echo", RawArguments: `{"text":"ping"}`}),
		contentResponse("pong"),
	}}
	a := New(WithGateway(gw), WithRegistry(echoRegistry(t)))

	res, err := a.Run(context.Background(), userMsgs("echo ping"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Final.Content != "pong" {
		t.Errorf("final = %q", res.Final.Content)
	}
	if res.Iterations != 2 {
		t.Errorf("iterations = %d, want 2", res.Iterations)
	}

	// Trace completeness: every call has a result, matched by id.
	if len(res.Trace.ToolCalls) != 1 || len(res.Trace.ToolResults) != 1 {
		t.Fatalf("trace = %+v", res.Trace)
	}
	if res.Trace.ToolCalls[0].ID != res.Trace.ToolResults[0].ToolCallID {
		t.Error("trace ids do not match")
	}
	if !res.Trace.ToolResults[0].Success {
		t.Errorf("tool result = %+v", res.Trace.ToolResults[0])
	}
	if res.Trace.ToolCalls[0].Arguments["text"] != "ping" {
		t.Errorf("arguments = %v", res.Trace.ToolCalls[0].Arguments)
	}

	// The second request replays the tool call and its result.
	second := gw.requests[1].Messages
	assistant := second[len(second)-2]
	toolMsg := second[len(second)-1]
	if len(assistant.ToolCalls) != 1 || assistant.ToolCalls[0].ID != "call_1" {
		t.Errorf("assistant message = %+v", assistant)
	}
	if toolMsg.Role != message.RoleTool || toolMsg.ToolCallID != "call_1" {
		t.Errorf("tool message = %+v", toolMsg)
	}
	if toolMsg.Content == "" {
		t.Error("tool message content should carry the serialized result")
	}
}

func TestRunMalformedArguments(t *testing.T) {
	gw := &scriptedGateway{configured: true, responses: []*provider.CompletionResponse{
		toolCallResponse(message.ToolCall{ID: "call_1", Name: "echo", RawArguments: `{broken`}),
		contentResponse("done"),
	}}
	a := New(WithGateway(gw), WithRegistry(echoRegistry(t)))

	res, err := a.Run(context.Background(), userMsgs("go"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Malformed arguments degrade to an empty set; the dispatcher then
	// rejects the call for the missing required parameter, as data.
	if len(res.Trace.ToolResults) != 1 {
		t.Fatalf("trace = %+v", res.Trace)
	}
	tr := res.Trace.ToolResults[0]
	if tr.Success || tr.Error.Code != tool.CodeInvalidArguments {
		t.Errorf("tool result = %+v, want INVALID_ARGUMENTS", tr)
	}
	if res.Final.Content != "done" {
		t.Errorf("final = %q, turn should continue after a bad call", res.Final.Content)
	}
}

func TestRunNoChoices(t *testing.T) {
	gw := &scriptedGateway{configured: true, responses: []*provider.CompletionResponse{
		{Choices: nil},
	}}
	a := New(WithGateway(gw), WithRegistry(echoRegistry(t)))

	res, err := a.Run(context.Background(), userMsgs("hi"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Final.Content != "No response from AI model" {
		t.Errorf("final = %q", res.Final.Content)
	}
}

func TestRunIterationCeiling(t *testing.T) {
	gw := &scriptedGateway{configured: true, responses: []*provider.CompletionResponse{
		toolCallResponse(message.ToolCall{ID: "call_x", Name: "echo", RawArguments: `{"text":"again"}`}),
	}}
	a := New(WithGateway(gw), WithRegistry(echoRegistry(t)), WithMaxIterations(3))

	res, err := a.Run(context.Background(), userMsgs("loop"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Final.Content != maxIterationsContent {
		t.Errorf("final = %q", res.Final.Content)
	}
	if res.Iterations != 3 {
		t.Errorf("iterations = %d, want 3", res.Iterations)
	}
	// The trace keeps every attempt made before the ceiling.
	if len(res.Trace.ToolCalls) != 3 || len(res.Trace.ToolResults) != 3 {
		t.Errorf("trace lengths = %d/%d, want 3/3",
			len(res.Trace.ToolCalls), len(res.Trace.ToolResults))
	}
}

func TestRunGatewayError(t *testing.T) {
	wantErr := fmt.Errorf("connection refused")
	gw := &scriptedGateway{configured: true, completeErr: wantErr}
	a := New(WithGateway(gw), WithRegistry(echoRegistry(t)))

	_, err := a.Run(context.Background(), userMsgs("hi"))
	if !errors.Is(err, wantErr) {
		t.Errorf("Run() error = %v, want %v", err, wantErr)
	}
}

func TestRunWithMiddlewareChainPropagatesError(t *testing.T) {
	wantErr := fmt.Errorf("connection refused")
	gw := &scriptedGateway{configured: true, completeErr: wantErr}
	a := New(
		WithGateway(gw),
		WithRegistry(echoRegistry(t)),
		WithMiddlewares(middleware.NewRequestLogger(), middleware.NewErrorHandler("")),
	)

	_, err := a.Run(context.Background(), userMsgs("hi"))
	if !errors.Is(err, wantErr) {
		t.Errorf("Run() error = %v, want %v", err, wantErr)
	}
}

func TestRunWithFallbackMiddleware(t *testing.T) {
	gw := &scriptedGateway{configured: true, completeErr: fmt.Errorf("boom")}
	a := New(
		WithGateway(gw),
		WithRegistry(echoRegistry(t)),
		WithMiddlewares(middleware.NewErrorHandler("Sorry, something went wrong. Please try again.")),
	)

	res, err := a.Run(context.Background(), userMsgs("hi"))
	if err != nil {
		t.Fatalf("fallback should swallow the error, got %v", err)
	}
	if res.Final.Content != "Sorry, something went wrong. Please try again." {
		t.Errorf("final = %q", res.Final.Content)
	}
	if res.Trace == nil || res.Trace.ToolCalls == nil {
		t.Error("fallback result still carries an empty trace")
	}
}

func TestRunMultipleToolCallsInOneTurn(t *testing.T) {
	gw := &scriptedGateway{configured: true, responses: []*provider.CompletionResponse{
		toolCallResponse(
			message.ToolCall{ID: "call_1", Name: "echo", RawArguments: `{"text":"a"}`},
			message.ToolCall{ID: "call_2", Name: "echo", RawArguments: `{"text":"b"}`},
		),
		contentResponse("both done"),
	}}
	a := New(WithGateway(gw), WithRegistry(echoRegistry(t)))

	res, err := a.Run(context.Background(), userMsgs("do both"))
	if err != nil {
		t.Fatal(err)
	}

	// Calls run in emission order, one result each.
	if len(res.Trace.ToolCalls) != 2 || len(res.Trace.ToolResults) != 2 {
		t.Fatalf("trace = %+v", res.Trace)
	}
	for i, id := range []string{"call_1", "call_2"} {
		if res.Trace.ToolCalls[i].ID != id || res.Trace.ToolResults[i].ToolCallID != id {
			t.Errorf("trace[%d] ids = %s/%s, want %s",
				i, res.Trace.ToolCalls[i].ID, res.Trace.ToolResults[i].ToolCallID, id)
		}
	}
}
