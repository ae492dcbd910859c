package middleware

import (
	"log/slog"
	"time"

	"github.com/sweetpotato0/pharmacy-assistant/pkg/logging"
)

// RequestLogger logs the run input and duration.
type RequestLogger struct {
	logger *slog.Logger
}

// NewRequestLogger creates a request logging middleware.
func NewRequestLogger() *RequestLogger {
	return &RequestLogger{logger: logging.WithComponent("agent")}
}

// Name returns the middleware name
func (m *RequestLogger) Name() string {
	return "RequestLogger"
}

// Execute logs the request before and after the run
func (m *RequestLogger) Execute(ctx *Context, next Handler) error {
	start := time.Now()
	m.logger.Info("run started", "messages", len(ctx.Messages))

	err := next(ctx)

	attrs := []any{"duration", time.Since(start)}
	if ctx.Response != nil {
		attrs = append(attrs, "response_chars", len(ctx.Response.Content))
	}
	if err != nil {
		attrs = append(attrs, "error", err)
		m.logger.Error("run failed", attrs...)
		return err
	}
	m.logger.Info("run finished", attrs...)
	return nil
}
