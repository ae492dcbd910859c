package agent

import "github.com/sweetpotato0/pharmacy-assistant/tool"

// ToolCallTrace records one tool invocation request as the model emitted it.
type ToolCallTrace struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResultTrace records the outcome of one tool invocation, matched to
// its request by ToolCallID.
type ToolResultTrace struct {
	ToolCallID string      `json:"tool_call_id"`
	Name       string      `json:"name"`
	Success    bool        `json:"success"`
	Result     any         `json:"result,omitempty"`
	Error      *tool.Error `json:"error,omitempty"`
}

// Trace is the complete tool activity of one run. ToolCalls and ToolResults
// always have equal length, pairwise matched in emission order.
type Trace struct {
	ToolCalls   []ToolCallTrace   `json:"tool_calls"`
	ToolResults []ToolResultTrace `json:"tool_results"`
}

// NewTrace creates an empty trace with non-nil slices so it serializes as
// empty arrays rather than null.
func NewTrace() *Trace {
	return &Trace{
		ToolCalls:   []ToolCallTrace{},
		ToolResults: []ToolResultTrace{},
	}
}

func (t *Trace) addCall(call ToolCallTrace) {
	t.ToolCalls = append(t.ToolCalls, call)
}

func (t *Trace) addResult(callID, name string, result tool.Result) {
	t.ToolResults = append(t.ToolResults, ToolResultTrace{
		ToolCallID: callID,
		Name:       name,
		Success:    result.Success,
		Result:     result.Data,
		Error:      result.Error,
	})
}

// EventType discriminates streamed agent events.
type EventType string

const (
	EventToolCall       EventType = "tool_call"
	EventToolResult     EventType = "tool_result"
	EventAssistantToken EventType = "assistant_token"
	EventFinalMessage   EventType = "final_message"
	EventError          EventType = "error"
)

// Stream error codes.
const (
	StreamCodeAPIKeyMissing  = "API_KEY_MISSING"
	StreamCodeNoResponse     = "NO_RESPONSE"
	StreamCodeProviderError  = "OPENAI_ERROR"
	StreamCodeStreamingError = "STREAMING_ERROR"
	StreamCodeMaxIterations  = "MAX_ITERATIONS"
)

// Event is one streamed progress item. The Type field decides which of the
// remaining fields are populated:
//
//	tool_call       ToolCall
//	tool_result     ToolResult
//	assistant_token Token
//	final_message   Content, Trace
//	error           Code, Message
type Event struct {
	Type       EventType        `json:"type"`
	ToolCall   *ToolCallTrace   `json:"tool_call,omitempty"`
	ToolResult *ToolResultTrace `json:"tool_result,omitempty"`
	Token      string           `json:"token,omitempty"`
	Content    string           `json:"content,omitempty"`
	Trace      *Trace           `json:"trace,omitempty"`
	Code       string           `json:"code,omitempty"`
	Message    string           `json:"message,omitempty"`
}
