// Package pharmacy implements the assistant's tool catalogue on top of the
// store layer. Handlers translate store rows and sentinel errors into the
// structured results the model consumes.
package pharmacy

import (
	"fmt"
	"log/slog"

	"github.com/sweetpotato0/pharmacy-assistant/pkg/logging"
	"github.com/sweetpotato0/pharmacy-assistant/store"
	"github.com/sweetpotato0/pharmacy-assistant/tool"
)

// Tools exposes the pharmacy capabilities as registry handlers.
type Tools struct {
	store  store.Store
	logger *slog.Logger
}

// NewTools creates the pharmacy tool set backed by st.
func NewTools(st store.Store) *Tools {
	return &Tools{
		store:  st,
		logger: logging.WithComponent("pharmacy"),
	}
}

// invalidArgs fails a call whose argument payload does not fit the tool's
// typed signature. Unknown keys and mismatched types both land here, so a
// model hallucinating parameters gets a correctable failure instead of a
// silently narrowed call.
func invalidArgs(name string, err error) tool.Result {
	return tool.Fail(tool.CodeInvalidArguments,
		fmt.Sprintf("Invalid arguments for %s: %v", name, err))
}

// internal logs an unexpected store failure and returns a generic error so
// backend details never reach the conversation.
func (t *Tools) internal(op string, err error) tool.Result {
	t.logger.Error("tool failed", "op", op, "error", err)
	return tool.Fail(tool.CodeInternal, "An internal error occurred. Please try again.")
}
