package agent

import (
	"context"
	"iter"
	"strings"

	"github.com/sweetpotato0/pharmacy-assistant/message"
	"github.com/sweetpotato0/pharmacy-assistant/provider"
)

// RunStream executes the loop in streaming mode. Tool activity is emitted
// as it happens; the final answer is then re-requested as a token stream
// with tool use forced off and emitted token by token. Every sequence ends
// with exactly one final_message or error event.
func (a *Agent) RunStream(ctx context.Context, msgs []*message.Message) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		if !a.gateway.Configured() {
			yield(Event{
				Type:    EventError,
				Code:    StreamCodeAPIKeyMissing,
				Message: "AI provider API key is not configured",
			})
			return
		}

		history := a.prepareHistory(msgs)
		runTrace := NewTrace()
		var usage provider.Usage
		schemas := a.registry.ToJSONSchemas()

		decided := false
		for iteration := 1; iteration <= a.maxIterations && !decided; iteration++ {
			resp, err := a.gateway.Complete(ctx, &provider.CompletionRequest{
				Messages:    history,
				Tools:       schemas,
				ToolChoice:  provider.ToolChoiceAuto,
				Temperature: a.temperature,
			})
			if err != nil {
				a.logger.Error("decision call failed", "error", err)
				yield(Event{Type: EventError, Code: StreamCodeProviderError, Message: err.Error()})
				return
			}
			usage.PromptTokens += resp.Usage.PromptTokens
			usage.CompletionTokens += resp.Usage.CompletionTokens
			usage.TotalTokens += resp.Usage.TotalTokens

			if len(resp.Choices) == 0 {
				yield(Event{Type: EventError, Code: StreamCodeNoResponse, Message: noResponseContent})
				return
			}

			decision := resp.Choices[0].Message
			if len(decision.ToolCalls) == 0 {
				// The model is ready to answer. The answer itself is
				// re-requested as a token stream below; the decision
				// content is discarded.
				decided = true
				break
			}

			history = append(history, decision)
			for _, call := range decision.ToolCalls {
				args := parseArguments(call.RawArguments)
				callTrace := ToolCallTrace{ID: call.ID, Name: call.Name, Arguments: args}
				runTrace.addCall(callTrace)
				if !yield(Event{Type: EventToolCall, ToolCall: &callTrace}) {
					return
				}

				result := a.registry.Dispatch(ctx, call.Name, args)
				runTrace.addResult(call.ID, call.Name, result)
				last := runTrace.ToolResults[len(runTrace.ToolResults)-1]
				if !yield(Event{Type: EventToolResult, ToolResult: &last}) {
					return
				}

				history = append(history, message.NewToolResponse(call.ID, result.JSON()))
			}
		}

		if !decided {
			a.logger.Warn("iteration ceiling reached", "max_iterations", a.maxIterations)
			yield(Event{
				Type:    EventError,
				Code:    StreamCodeMaxIterations,
				Message: maxIterationsContent,
			})
			return
		}

		// Stream the final answer. Tools stay in the request so the prompt
		// is unchanged, but tool choice "none" forces plain text.
		var answer strings.Builder
		for chunk, err := range a.gateway.StreamText(ctx, &provider.CompletionRequest{
			Messages:    history,
			Tools:       schemas,
			ToolChoice:  provider.ToolChoiceNone,
			Temperature: a.temperature,
		}) {
			if err != nil {
				a.logger.Error("token stream failed", "error", err)
				yield(Event{Type: EventError, Code: StreamCodeStreamingError, Message: err.Error()})
				return
			}
			answer.WriteString(chunk)
			if !yield(Event{Type: EventAssistantToken, Token: chunk}) {
				return
			}
		}

		final := answer.String()
		result := &RunResult{
			Final: message.New(message.RoleAssistant, final),
			Trace: runTrace,
			Usage: usage,
		}
		a.record(ctx, msgs, result, true)
		yield(Event{Type: EventFinalMessage, Content: final, Trace: runTrace})
	}
}
