package server

import (
	"github.com/sweetpotato0/pharmacy-assistant/agent"
	"github.com/sweetpotato0/pharmacy-assistant/audit"
	"github.com/sweetpotato0/pharmacy-assistant/message"
	"github.com/sweetpotato0/pharmacy-assistant/store"
)

// ChatRequest is the body of both chat endpoints. The conversation is
// stateless; the client resends the full history every time.
type ChatRequest struct {
	Messages []*message.Message `json:"messages"`
	UserID   *int64             `json:"user_id,omitempty"`
}

// FinalMessage is the assistant's answer in the synchronous response.
type FinalMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatDebugResponse is the synchronous chat result with the full tool trace.
type ChatDebugResponse struct {
	Final FinalMessage `json:"final"`
	Trace *agent.Trace `json:"trace"`
}

// HealthResponse reports readiness of the collaborators.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Provider string `json:"provider"`
	AI       string `json:"ai"`
}

// MedicationListResponse lists the full catalogue.
type MedicationListResponse struct {
	Medications []*store.Medication `json:"medications"`
}

// RefillListResponse lists a user's refill requests.
type RefillListResponse struct {
	UserID  int64                  `json:"user_id"`
	Refills []*store.RefillRequest `json:"refills"`
	Count   int                    `json:"count"`
}

// RunListResponse lists recently archived conversation runs.
type RunListResponse struct {
	Runs  []*audit.Entry `json:"runs"`
	Count int            `json:"count"`
}

// ErrorResponse carries a human-readable failure detail.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// RootResponse is the service banner.
type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Health  string `json:"health"`
}
