package middleware

import (
	"log/slog"

	"github.com/sweetpotato0/pharmacy-assistant/message"
	"github.com/sweetpotato0/pharmacy-assistant/pkg/logging"
)

// ErrorHandler records run errors into the middleware context so later
// middlewares observe them, and optionally swallows them when a fallback
// response is configured.
type ErrorHandler struct {
	logger   *slog.Logger
	fallback string
}

// NewErrorHandler creates an error handling middleware. An empty fallback
// leaves errors propagating unchanged.
func NewErrorHandler(fallback string) *ErrorHandler {
	return &ErrorHandler{
		logger:   logging.WithComponent("agent"),
		fallback: fallback,
	}
}

// Name returns the middleware name
func (m *ErrorHandler) Name() string {
	return "ErrorHandler"
}

// Execute captures downstream errors
func (m *ErrorHandler) Execute(ctx *Context, next Handler) error {
	err := next(ctx)
	if err == nil {
		return nil
	}

	ctx.Error = err
	m.logger.Error("run error", "error", err)
	if m.fallback == "" {
		return err
	}
	if ctx.Response == nil {
		ctx.Response = message.New(message.RoleAssistant, m.fallback)
	}
	return nil
}
