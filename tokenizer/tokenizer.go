// Package tokenizer estimates prompt sizes with tiktoken encodings.
package tokenizer

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/sweetpotato0/pharmacy-assistant/message"
)

// Estimator counts tokens for a fixed encoding.
type Estimator struct {
	enc *tiktoken.Tiktoken
}

// New resolves the encoding for a model name, falling back to cl100k_base
// for models tiktoken does not know.
func New(model string) (*Estimator, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	return &Estimator{enc: enc}, nil
}

// Count returns the token count of a single text.
func (e *Estimator) Count(text string) int {
	return len(e.enc.Encode(text, nil, nil))
}

// CountMessages estimates the prompt size of a conversation. Each message
// carries a small framing overhead on top of its content tokens.
func (e *Estimator) CountMessages(msgs []*message.Message) int {
	const perMessageOverhead = 4

	total := 0
	for _, msg := range msgs {
		total += perMessageOverhead
		total += e.Count(msg.Content)
		for _, call := range msg.ToolCalls {
			total += e.Count(call.Name)
			total += e.Count(call.RawArguments)
		}
	}
	return total
}
