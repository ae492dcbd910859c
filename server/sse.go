package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// sseHeaders prepares a response for Server-Sent Events delivery. The
// X-Accel-Buffering header disables proxy buffering so tokens reach the
// client as they are produced.
func sseHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// writeSSE writes one event as a "data: {json}" frame and flushes it.
func writeSSE(w io.Writer, flusher http.Flusher, event any) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode sse event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", raw); err != nil {
		return err
	}
	if flusher != nil {
		flusher.Flush()
	}
	return nil
}
