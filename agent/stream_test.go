package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sweetpotato0/pharmacy-assistant/message"
	"github.com/sweetpotato0/pharmacy-assistant/provider"
)

func collect(t *testing.T, a *Agent, msgs []*message.Message) []Event {
	t.Helper()
	var events []Event
	for ev := range a.RunStream(context.Background(), msgs) {
		events = append(events, ev)
	}
	return events
}

// checkTerminal asserts the terminal invariant: exactly one final_message
// xor error event, and it comes last.
func checkTerminal(t *testing.T, events []Event) Event {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("no events emitted")
	}
	terminals := 0
	for _, ev := range events {
		if ev.Type == EventFinalMessage || ev.Type == EventError {
			terminals++
		}
	}
	if terminals != 1 {
		t.Fatalf("terminal events = %d, want exactly 1", terminals)
	}
	last := events[len(events)-1]
	if last.Type != EventFinalMessage && last.Type != EventError {
		t.Fatalf("last event = %s, want terminal", last.Type)
	}
	return last
}

func TestRunStreamUnconfigured(t *testing.T) {
	gw := &scriptedGateway{configured: false}
	a := New(WithGateway(gw), WithRegistry(echoRegistry(t)))

	events := collect(t, a, userMsgs("hi"))
	last := checkTerminal(t, events)
	if len(events) != 1 || last.Type != EventError || last.Code != StreamCodeAPIKeyMissing {
		t.Errorf("events = %+v, want single API_KEY_MISSING error", events)
	}
}

func TestRunStreamToolFlow(t *testing.T) {
	gw := &scriptedGateway{
		configured: true,
		responses: []*provider.CompletionResponse{
			toolCallResponse(message.ToolCall{ID: "call_1", Name: "echo", RawArguments: `{"text":"hi"}`}),
			contentResponse("decision content is discarded"),
		},
		streamChunks: []string{"Hel", "lo", "!"},
	}
	a := New(WithGateway(gw), WithRegistry(echoRegistry(t)), WithSystemPrompt("sys"))

	events := collect(t, a, userMsgs("say hello"))
	last := checkTerminal(t, events)

	if last.Type != EventFinalMessage {
		t.Fatalf("terminal = %+v", last)
	}
	if last.Content != "Hello!" {
		t.Errorf("final content = %q, want Hello!", last.Content)
	}
	if last.Trace == nil || len(last.Trace.ToolCalls) != 1 || len(last.Trace.ToolResults) != 1 {
		t.Errorf("final trace = %+v", last.Trace)
	}

	// Event ordering: tool events first, then tokens, then the terminal.
	var order []EventType
	var tokens strings.Builder
	for _, ev := range events {
		order = append(order, ev.Type)
		if ev.Type == EventAssistantToken {
			tokens.WriteString(ev.Token)
		}
	}
	want := []EventType{EventToolCall, EventToolResult, EventAssistantToken, EventAssistantToken, EventAssistantToken, EventFinalMessage}
	if len(order) != len(want) {
		t.Fatalf("event order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("event order = %v, want %v", order, want)
		}
	}

	// Tokens concatenate to exactly the final content.
	if tokens.String() != last.Content {
		t.Errorf("tokens = %q, final = %q", tokens.String(), last.Content)
	}

	// The answer stream forces tools off and does not carry the decision
	// message.
	if len(gw.streamRequests) != 1 {
		t.Fatalf("stream calls = %d, want 1", len(gw.streamRequests))
	}
	streamReq := gw.streamRequests[0]
	if streamReq.ToolChoice != provider.ToolChoiceNone {
		t.Errorf("stream tool choice = %q, want none", streamReq.ToolChoice)
	}
	lastMsg := streamReq.Messages[len(streamReq.Messages)-1]
	if lastMsg.Role != message.RoleTool {
		t.Errorf("last streamed message role = %s, decision content must not be appended", lastMsg.Role)
	}
}

func TestRunStreamDirectAnswer(t *testing.T) {
	gw := &scriptedGateway{
		configured:   true,
		responses:    []*provider.CompletionResponse{contentResponse("ignored")},
		streamChunks: []string{"Hi"},
	}
	a := New(WithGateway(gw), WithRegistry(echoRegistry(t)))

	events := collect(t, a, userMsgs("hi"))
	last := checkTerminal(t, events)
	if last.Type != EventFinalMessage || last.Content != "Hi" {
		t.Errorf("terminal = %+v", last)
	}
	if len(last.Trace.ToolCalls) != 0 {
		t.Errorf("trace should be empty: %+v", last.Trace)
	}
}

func TestRunStreamProviderError(t *testing.T) {
	gw := &scriptedGateway{configured: true, completeErr: fmt.Errorf("boom")}
	a := New(WithGateway(gw), WithRegistry(echoRegistry(t)))

	events := collect(t, a, userMsgs("hi"))
	last := checkTerminal(t, events)
	if last.Type != EventError || last.Code != StreamCodeProviderError {
		t.Errorf("terminal = %+v, want OPENAI_ERROR", last)
	}
}

func TestRunStreamNoChoices(t *testing.T) {
	gw := &scriptedGateway{configured: true, responses: []*provider.CompletionResponse{
		{Choices: nil},
	}}
	a := New(WithGateway(gw), WithRegistry(echoRegistry(t)))

	events := collect(t, a, userMsgs("hi"))
	last := checkTerminal(t, events)
	if last.Type != EventError || last.Code != StreamCodeNoResponse {
		t.Errorf("terminal = %+v, want NO_RESPONSE", last)
	}
}

func TestRunStreamTokenStreamError(t *testing.T) {
	gw := &scriptedGateway{
		configured:   true,
		responses:    []*provider.CompletionResponse{contentResponse("ok")},
		streamChunks: []string{"par", "tial"},
		streamErr:    fmt.Errorf("connection reset"),
	}
	a := New(WithGateway(gw), WithRegistry(echoRegistry(t)))

	events := collect(t, a, userMsgs("hi"))
	last := checkTerminal(t, events)
	if last.Type != EventError || last.Code != StreamCodeStreamingError {
		t.Errorf("terminal = %+v, want STREAMING_ERROR", last)
	}

	// Partial tokens were still delivered before the failure.
	tokens := 0
	for _, ev := range events {
		if ev.Type == EventAssistantToken {
			tokens++
		}
	}
	if tokens != 2 {
		t.Errorf("token events = %d, want 2", tokens)
	}
}

func TestRunStreamIterationCeiling(t *testing.T) {
	gw := &scriptedGateway{configured: true, responses: []*provider.CompletionResponse{
		toolCallResponse(message.ToolCall{ID: "c", Name: "echo", RawArguments: `{"text":"x"}`}),
	}}
	a := New(WithGateway(gw), WithRegistry(echoRegistry(t)), WithMaxIterations(2))

	events := collect(t, a, userMsgs("loop"))
	last := checkTerminal(t, events)
	if last.Type != EventError || last.Code != StreamCodeMaxIterations {
		t.Errorf("terminal = %+v, want MAX_ITERATIONS", last)
	}

	// Two full tool turns were emitted before the ceiling fired.
	pairs := 0
	for _, ev := range events {
		if ev.Type == EventToolCall {
			pairs++
		}
	}
	if pairs != 2 {
		t.Errorf("tool_call events = %d, want 2", pairs)
	}
}
