package message

// Role represents the role of the message sender
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is a single entry in a conversation. The caller resends the full
// history on every request; nothing is retained between requests.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is a structured request from the model to invoke a registered
// tool. RawArguments is the argument payload exactly as the provider emitted
// it; it is untrusted text and must be parsed with a fallback.
type ToolCall struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	RawArguments string `json:"arguments"`
}

// New creates a message with the given role and content.
func New(role Role, content string) *Message {
	return &Message{Role: role, Content: content}
}

// NewToolResponse creates a tool message answering the tool call with the
// given id. Content is the JSON-serialized tool result.
func NewToolResponse(toolCallID, content string) *Message {
	return &Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// Clone creates a deep copy of the message.
func Clone(msg *Message) *Message {
	if msg == nil {
		return nil
	}
	cloned := *msg
	if len(msg.ToolCalls) > 0 {
		cloned.ToolCalls = make([]ToolCall, len(msg.ToolCalls))
		copy(cloned.ToolCalls, msg.ToolCalls)
	}
	return &cloned
}

// CloneMessages copies a slice of messages.
func CloneMessages(msgs []*Message) []*Message {
	if len(msgs) == 0 {
		return nil
	}
	clones := make([]*Message, 0, len(msgs))
	for _, msg := range msgs {
		clones = append(clones, Clone(msg))
	}
	return clones
}

// HasSystem reports whether the history already carries a system message.
func HasSystem(msgs []*Message) bool {
	for _, msg := range msgs {
		if msg != nil && msg.Role == RoleSystem {
			return true
		}
	}
	return false
}

// Compact drops messages that carry neither content nor tool calls; the
// providers reject empty entries.
func Compact(msgs []*Message) []*Message {
	out := make([]*Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		if msg.Content == "" && len(msg.ToolCalls) == 0 {
			continue
		}
		out = append(out, msg)
	}
	return out
}
