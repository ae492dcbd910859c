// Package audit archives completed conversation runs for offline review.
package audit

import (
	"context"
	"time"
)

// Entry is one archived run: the conversation that came in, the answer that
// went out, and the tool activity between them.
type Entry struct {
	ID        string         `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time      `bson:"created_at" json:"created_at"`
	Provider  string         `bson:"provider" json:"provider"`
	Model     string         `bson:"model,omitempty" json:"model,omitempty"`
	Input     string         `bson:"input" json:"input"`
	Final     string         `bson:"final" json:"final"`
	Trace     any            `bson:"trace" json:"trace"`
	Usage     map[string]int `bson:"usage,omitempty" json:"usage,omitempty"`
	Streamed  bool           `bson:"streamed" json:"streamed"`
}

// Recorder archives run entries. Recording is best-effort; failures must
// not affect the request that produced the entry.
type Recorder interface {
	Record(ctx context.Context, entry *Entry) error
}

// NopRecorder discards entries. Used when no archive is configured.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, *Entry) error { return nil }
