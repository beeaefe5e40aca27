// Package server exposes a compiled pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/randalmurphal/designflow/pkg/llm"
	"github.com/randalmurphal/designflow/pkg/session"
	"github.com/randalmurphal/designflow/pkg/workflow"
)

// Info is reported by the metadata and health endpoints.
type Info struct {
	Version           string
	BedrockConfigured bool
	MCPConfigured     bool
}

// Server serves queries against one pipeline.
type Server struct {
	pipeline *workflow.Pipeline
	sessions session.Store
	info     Info
	logger   *slog.Logger

	router   *mux.Router
	handler  http.Handler
	validate *validator.Validate
}

// Option configures the Server.
type Option func(*Server)

// WithPipeline sets the pipeline queries run through. Without one, queries
// are answered with 503.
func WithPipeline(p *workflow.Pipeline) Option {
	return func(s *Server) { s.pipeline = p }
}

// WithSessions sets the transcript store.
// Default: an in-memory store.
func WithSessions(store session.Store) Option {
	return func(s *Server) {
		if store != nil {
			s.sessions = store
		}
	}
}

// WithInfo sets the version and configuration flags reported by / and /health.
func WithInfo(info Info) Option {
	return func(s *Server) { s.info = info }
}

// WithLogger sets the request logger.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Server. All origins are allowed.
func New(opts ...Option) *Server {
	s := &Server{
		sessions: session.NewMemoryStore(),
		info:     Info{Version: "1.0.0"},
		logger:   slog.Default(),
		router:   mux.NewRouter(),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerRoutes()
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
	})
	s.handler = c.Handler(s.router)
	return s
}

// Handler returns the HTTP handler, CORS included.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/query", s.handleQuery).Methods(http.MethodPost)
	s.router.HandleFunc("/sessions/{session_id}", s.handleSession).Methods(http.MethodGet)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Message   string `json:"message"              validate:"required"`
	SessionID string `json:"session_id,omitempty"`
}

// QueryResponse is the body of a successful query.
type QueryResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status            string `json:"status"`
	Version           string `json:"version"`
	BedrockConfigured bool   `json:"bedrock_configured"`
	MCPConfigured     bool   `json:"mcp_configured"`
}

// SessionResponse is the body of GET /sessions/{session_id}.
type SessionResponse struct {
	SessionID string        `json:"session_id"`
	Messages  []llm.Message `json:"messages"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Agent Development Kit API",
		"version": s.info.Version,
		"endpoints": map[string]string{
			"health":   "/health",
			"query":    "/query (POST)",
			"sessions": "/sessions/{session_id}",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:            "healthy",
		Version:           s.info.Version,
		BedrockConfigured: s.info.BedrockConfigured,
		MCPConfigured:     s.info.MCPConfigured,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Workflow not initialized")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	ctx := r.Context()
	history, err := s.sessions.History(ctx, req.SessionID)
	if err != nil {
		s.logger.Error("load session history failed", slog.String("session_id", req.SessionID), slog.String("error", err.Error()))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	state := workflow.NewState(req.SessionID, req.Message)
	state.Messages = append(history, state.Messages...)

	result, err := s.pipeline.Invoke(ctx, state, workflow.WithInvokeLogger(s.logger))
	if err != nil {
		s.logger.Error("query execution failed", slog.String("session_id", req.SessionID), slog.String("error", err.Error()))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result.Error != "" {
		s.logger.Error("query execution failed", slog.String("session_id", req.SessionID), slog.String("error", result.Error))
		s.writeError(w, http.StatusInternalServerError, result.Error)
		return
	}

	response := result.ResponseOrDefault()
	if err := s.sessions.Append(ctx, req.SessionID, llm.UserMessage(req.Message), llm.AssistantMessage(response)); err != nil {
		s.logger.Warn("record transcript failed", slog.String("session_id", req.SessionID), slog.String("error", err.Error()))
	}

	s.writeJSON(w, http.StatusOK, QueryResponse{
		Response:  response,
		SessionID: req.SessionID,
		Status:    "success",
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["session_id"]
	msgs, err := s.sessions.History(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, SessionResponse{SessionID: id, Messages: msgs})
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, errorResponse{Detail: detail})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("write response failed", slog.String("error", err.Error()))
	}
}
