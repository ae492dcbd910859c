package tool

import "encoding/json"

// ErrorCode identifies why a tool invocation failed.
type ErrorCode string

const (
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeExpired      ErrorCode = "EXPIRED"
	CodeNoRefills    ErrorCode = "NO_REFILLS"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeInternal     ErrorCode = "INTERNAL_ERROR"

	// Reserved codes. Declared for forward compatibility with multi-match
	// resolution and stock failures; no tool currently emits them
	// (zero stock is reported as available:false data).
	CodeAmbiguous  ErrorCode = "AMBIGUOUS"
	CodeOutOfStock ErrorCode = "OUT_OF_STOCK"

	// Dispatcher-level codes.
	CodeUnknownTool      ErrorCode = "UNKNOWN_TOOL"
	CodeInvalidArguments ErrorCode = "INVALID_ARGUMENTS"
	CodeExecutionError   ErrorCode = "EXECUTION_ERROR"
)

// Error carries a failure code and a human-readable message. It is data, not
// a Go error: failures travel back to the model as tool message content.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Result is the outcome of one tool invocation. Exactly one of Data or Error
// is populated.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// OK creates a successful tool result.
func OK(data any) Result {
	return Result{Success: true, Data: data}
}

// Fail creates a failed tool result.
func Fail(code ErrorCode, message string) Result {
	return Result{Success: false, Error: &Error{Code: code, Message: message}}
}

// JSON serializes the result for replay into the conversation as a tool
// message. Serialization of these shapes cannot fail; the fallback covers
// handler payloads containing unmarshalable values.
func (r Result) JSON() string {
	raw, err := json.Marshal(r)
	if err != nil {
		raw, _ = json.Marshal(Fail(CodeInternal, "failed to encode tool result"))
	}
	return string(raw)
}
