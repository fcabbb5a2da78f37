// Package httpapi exposes the engine over HTTP: process instantiation,
// response submission, manual trigger invocation and scenario inspection.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowdhq/flowd"
	"github.com/flowdhq/flowd/internal/logging"
	"github.com/flowdhq/flowd/pkg/domain"
)

// Engine is the surface the server needs from the flowd engine.
type Engine interface {
	Start(ctx context.Context, scenarioID string, opts flowd.StartOptions) (*domain.Process, error)
	Submit(ctx context.Context, processID string, response *domain.Response) (*domain.Process, error)
	Invoke(ctx context.Context, processID, actionKey string) (*domain.Process, error)
	GetProcess(ctx context.Context, processID string) (*domain.Process, error)
	GetScenario(ctx context.Context, scenarioID string) (*domain.Scenario, error)
}

// Server handles the HTTP API.
type Server struct {
	engine Engine
	logger *slog.Logger
}

// ServerOption configures the Server.
type ServerOption func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler builds the API router. When gatherer is non-nil a Prometheus
// metrics endpoint is mounted at /metrics.
func NewHandler(engine Engine, gatherer prometheus.Gatherer, opts ...ServerOption) http.Handler {
	server := &Server{
		engine: engine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/processes", server.startProcess)
	r.Get("/processes/{id}", server.getProcess)
	r.Post("/processes/{id}/responses", server.submitResponse)
	r.Post("/processes/{id}/invoke", server.invokeAction)
	r.Get("/scenarios/{id}", server.getScenario)
	r.Get("/healthz", server.health)

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// startRequest is the body of POST /processes.
type startRequest struct {
	Scenario string            `json:"scenario"`
	ID       string            `json:"id,omitempty"`
	Chain    string            `json:"chain,omitempty"`
	Actors   map[string]string `json:"actors,omitempty"`
}

// invokeRequest is the body of POST /processes/{id}/invoke. An omitted
// action invokes the current state's default action.
type invokeRequest struct {
	Action string `json:"action"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func (s *Server) startProcess(w http.ResponseWriter, r *http.Request) {
	var body startRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if body.Scenario == "" {
		s.writeError(w, http.StatusBadRequest, "scenario is required", nil)
		return
	}

	process, err := s.engine.Start(r.Context(), body.Scenario, flowd.StartOptions{
		ID:     body.ID,
		Chain:  body.Chain,
		Actors: body.Actors,
	})
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, process)
}

func (s *Server) getProcess(w http.ResponseWriter, r *http.Request) {
	process, err := s.engine.GetProcess(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, process)
}

func (s *Server) submitResponse(w http.ResponseWriter, r *http.Request) {
	var response domain.Response
	if err := json.NewDecoder(r.Body).Decode(&response); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	process, err := s.engine.Submit(r.Context(), chi.URLParam(r, "id"), &response)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, process)
}

func (s *Server) invokeAction(w http.ResponseWriter, r *http.Request) {
	var body invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	process, err := s.engine.Invoke(r.Context(), chi.URLParam(r, "id"), body.Action)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, process)
}

func (s *Server) getScenario(w http.ResponseWriter, r *http.Request) {
	scenario, err := s.engine.GetScenario(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, scenario)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeEngineError maps engine errors to HTTP status codes.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	var transition *domain.InvalidTransitionError

	switch {
	case errors.Is(err, domain.ErrProcessNotFound),
		errors.Is(err, domain.ErrScenarioNotFound):
		s.writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.As(err, &validation):
		s.writeError(w, http.StatusBadRequest, "validation failed", validation.Messages)
	case errors.As(err, &transition):
		s.writeError(w, http.StatusConflict, transition.Error(), nil)
	default:
		s.logger.Error("request failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string, details []string) {
	s.writeJSON(w, status, errorResponse{Error: message, Details: details})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
