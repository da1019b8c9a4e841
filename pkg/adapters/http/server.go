// Package http exposes the dialogue over a small JSON API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/formbot/internal/logging"
	"github.com/aretw0/formbot/pkg/domain"
	"github.com/aretw0/formbot/pkg/runner"
)

// maxBodyBytes bounds an event payload; the runner applies the finer text limit.
const maxBodyBytes = 64 << 10

// Dispatcher applies one event and waits for the reply. *runner.Runner implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, participantID string, ev domain.Event) (domain.Reply, error)
}

// Backend reads and resets participant data. *formbot.Engine implements it.
type Backend interface {
	Session(ctx context.Context, participantID string) (*domain.Session, error)
	Reset(ctx context.Context, participantID string) error
	Profile(ctx context.Context, participantID string) (*domain.Profile, error)
}

// Server serves the participant API.
type Server struct {
	Dispatcher Dispatcher
	Backend    Backend
	Streams    *StreamManager

	logger   *slog.Logger
	gatherer prometheus.Gatherer
	version  string
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStreams serves /participants/{id}/stream from the given manager.
// Its Hooks must be registered on the engine for anything to arrive.
func WithStreams(streams *StreamManager) Option {
	return func(s *Server) {
		s.Streams = streams
	}
}

// WithGatherer serves /metrics from the given gatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithVersion is reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewHandler creates the HTTP handler.
func NewHandler(dispatcher Dispatcher, backend Backend, opts ...Option) http.Handler {
	s := &Server{Dispatcher: dispatcher, Backend: backend, version: "dev"}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/participants/{id}", func(r chi.Router) {
		r.Post("/events", s.PostEvent)
		r.Get("/session", s.GetSession)
		r.Delete("/session", s.DeleteSession)
		r.Get("/profile", s.GetProfile)
		r.Get("/stream", s.SubscribeEvents)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
	// Reply is what a chat transport would have shown, when there is one.
	Reply *domain.Reply `json:"reply,omitempty"`
}

// PostEvent handles POST /participants/{id}/events.
func (s *Server) PostEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var ev domain.Event
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ev); err != nil {
		s.logger.Warn("PostEvent: Invalid request body", "error", err)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	switch ev.Kind {
	case domain.EventText, domain.EventButton, domain.EventImage:
	default:
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("unknown event kind %q", ev.Kind)})
		return
	}

	reply, err := s.Dispatcher.Dispatch(r.Context(), id, ev)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrInvalidParticipant):
			status = http.StatusBadRequest
		case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, domain.ErrClosed):
			status = http.StatusServiceUnavailable
		}
		if errors.Is(err, runner.ErrPanic) {
			s.logger.Error("PostEvent: Dialogue panicked", "participant_id", id)
		}
		resp := ErrorResponse{Error: err.Error()}
		if reply.Text != "" {
			resp.Reply = &reply
		}
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// GetSession handles GET /participants/{id}/session.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Backend.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, "GetSession", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// DeleteSession handles DELETE /participants/{id}/session.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Backend.Reset(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.storeError(w, "DeleteSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetProfile handles GET /participants/{id}/profile.
func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.Backend.Profile(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrProfileNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		s.storeError(w, "GetProfile", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// GetHealth handles the GET /healthz request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "formbot-http",
		"version": s.version,
	})
}

func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, domain.ErrInvalidParticipant) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	s.logger.Error(op+" failed", "error", err)
	writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
