// Package server exposes the assistant over HTTP: a synchronous chat
// endpoint with the full tool trace, a streaming chat endpoint over
// Server-Sent Events, and read-only catalogue and health routes.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sweetpotato0/pharmacy-assistant/agent"
	"github.com/sweetpotato0/pharmacy-assistant/audit"
	"github.com/sweetpotato0/pharmacy-assistant/config"
	"github.com/sweetpotato0/pharmacy-assistant/message"
	"github.com/sweetpotato0/pharmacy-assistant/pkg/logging"
	"github.com/sweetpotato0/pharmacy-assistant/provider"
	"github.com/sweetpotato0/pharmacy-assistant/store"
)

// Version is the service version reported on the root route.
const Version = "0.1.0"

// Runner is the slice of the agent the server needs.
type Runner interface {
	Run(ctx context.Context, msgs []*message.Message) (*agent.RunResult, error)
	RunStream(ctx context.Context, msgs []*message.Message) iter.Seq[agent.Event]
}

// RunArchive lists archived conversation runs, newest first.
type RunArchive interface {
	Recent(ctx context.Context, limit int64) ([]*audit.Entry, error)
}

// Server wires the HTTP routes to the agent and its collaborators.
type Server struct {
	cfg     *config.Config
	store   store.Store
	gateway provider.Gateway
	runner  Runner
	archive RunArchive
	logger  *slog.Logger
	mux     *http.ServeMux
}

// New builds a Server with all routes registered.
func New(cfg *config.Config, st store.Store, gw provider.Gateway, runner Runner) *Server {
	s := &Server{
		cfg:     cfg,
		store:   st,
		gateway: gw,
		runner:  runner,
		logger:  logging.WithComponent("server"),
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/medications", s.handleMedications)
	s.mux.HandleFunc("GET /api/refills", s.handleRefills)
	s.mux.HandleFunc("GET /api/runs", s.handleRuns)
	s.mux.HandleFunc("POST /api/chat", s.handleChatStream)
	s.mux.HandleFunc("POST /api/chat/debug", s.handleChatDebug)
}

// WithRunArchive enables the archived-runs debug listing.
func (s *Server) WithRunArchive(a RunArchive) *Server {
	s.archive = a
	return s
}

// Handler returns the routed handler wrapped with CORS.
func (s *Server) Handler() http.Handler {
	return s.cors(s.mux)
}

// cors allows the configured browser origins. Preflight requests are
// answered without reaching the mux.
func (s *Server) cors(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(s.cfg.CORSOrigins))
	for _, o := range s.cfg.CORSOrigins {
		allowed[o] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && allowed[origin] {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("write response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, &ErrorResponse{Detail: detail})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, &RootResponse{
		Name:    s.cfg.AppName,
		Version: Version,
		Health:  "/api/health",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := &HealthResponse{
		Status:   "ok",
		Database: "connected",
		Provider: s.gateway.Name(),
		AI:       "configured",
	}
	if _, err := s.store.Medications(r.Context()); err != nil {
		resp.Database = "unavailable"
	}
	if !s.gateway.Configured() {
		resp.AI = "missing_key"
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMedications(w http.ResponseWriter, r *http.Request) {
	meds, err := s.store.Medications(r.Context())
	if err != nil {
		s.logger.Error("list medications failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load medications")
		return
	}
	s.writeJSON(w, http.StatusOK, &MedicationListResponse{Medications: meds})
}

func (s *Server) handleRefills(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		s.writeError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}
	refills, err := s.store.RefillRequestsByUser(r.Context(), userID)
	if err != nil {
		s.logger.Error("list refills failed", "user_id", userID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load refill requests")
		return
	}
	s.writeJSON(w, http.StatusOK, &RefillListResponse{
		UserID:  userID,
		Refills: refills,
		Count:   len(refills),
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		s.writeError(w, http.StatusNotFound, "run archive is not configured")
		return
	}
	limit := int64(20)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 || n > 200 {
			s.writeError(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = n
	}
	runs, err := s.archive.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("list archived runs failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load archived runs")
		return
	}
	if runs == nil {
		runs = []*audit.Entry{}
	}
	s.writeJSON(w, http.StatusOK, &RunListResponse{Runs: runs, Count: len(runs)})
}

func (s *Server) decodeChatRequest(w http.ResponseWriter, r *http.Request) (*ChatRequest, bool) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if len(req.Messages) == 0 {
		s.writeError(w, http.StatusBadRequest, "messages must not be empty")
		return nil, false
	}
	return &req, true
}

func (s *Server) handleChatDebug(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}
	if !s.gateway.Configured() {
		s.writeError(w, http.StatusServiceUnavailable,
			"OpenAI API key is not configured. Set OPENAI_API_KEY environment variable.")
		return
	}
	if req.UserID != nil {
		s.logger.Info("chat request", "user_id", *req.UserID, "messages", len(req.Messages))
	}

	res, err := s.runner.Run(r.Context(), req.Messages)
	if err != nil {
		s.logger.Error("chat run failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Chat processing failed: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, &ChatDebugResponse{
		Final: FinalMessage{
			Role:    string(res.Final.Role),
			Content: res.Final.Content,
		},
		Trace: res.Trace,
	})
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	if req.UserID != nil {
		s.logger.Info("chat stream request", "user_id", *req.UserID, "messages", len(req.Messages))
	}

	sseHeaders(w)
	w.WriteHeader(http.StatusOK)

	// A panic mid-stream cannot become an HTTP status anymore; surface it
	// as a terminal error event instead.
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("chat stream panicked", "panic", rec)
			_ = writeSSE(w, flusher, &agent.Event{
				Type:    agent.EventError,
				Code:    "INTERNAL_ERROR",
				Message: fmt.Sprintf("Internal server error: %v", rec),
			})
		}
	}()

	for ev := range s.runner.RunStream(r.Context(), req.Messages) {
		if err := writeSSE(w, flusher, &ev); err != nil {
			// Client gone; the range stops on the next yield.
			s.logger.Debug("sse write failed", "error", err)
			return
		}
	}
}
