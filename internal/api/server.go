// Package api provides the HTTP server for readgarden.
// It exposes progression, goals and garden operations as a JSON API.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/readgarden/readgarden/internal/app/garden"
	"github.com/readgarden/readgarden/internal/app/goals"
	"github.com/readgarden/readgarden/internal/app/library"
	"github.com/readgarden/readgarden/internal/app/progression"
	"github.com/readgarden/readgarden/internal/domain"
	"github.com/readgarden/readgarden/internal/health"
)

// Services groups the application services the server exposes.
type Services struct {
	Engine  *progression.Engine
	Goals   *goals.Service
	Garden  *garden.Service
	Library *library.Service
	Health  *health.Checker
}

// Server is the readgarden HTTP API server.
type Server struct {
	svc            Services
	log            *zap.Logger
	timeout        time.Duration
	metricsEnabled bool
}

// NewServer creates a new API server. log may be nil.
func NewServer(svc Services, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{svc: svc, log: log.Named("api"), timeout: 30 * time.Second}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetTimeout sets the per-request timeout.
func (s *Server) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/progress", s.handleProgress)
		r.Get("/streak", s.handleStreak)

		r.Get("/books", s.handleListBooks)
		r.Post("/books", s.handleAddBook)
		r.Post("/books/{id}/complete", s.handleCompleteBook)
		r.Get("/genres", s.handleListGenres)

		r.Get("/sessions", s.handleListSessions)
		r.Post("/sessions", s.handleStartSession)
		r.Post("/sessions/{id}/finish", s.handleFinishSession)

		r.Get("/goals", s.handleListGoals)
		r.Post("/goals", s.handleCreateGoal)
		r.Get("/goals/{id}", s.handleGetGoal)
		r.Delete("/goals/{id}", s.handleDeleteGoal)
		r.Post("/goals/{id}/exclusions/{bookID}", s.handleExcludeBook)
		r.Delete("/goals/{id}/exclusions/{bookID}", s.handleIncludeBook)
		r.Post("/goals/{id}/genres/{genreID}", s.handleAddGenreFilter)
		r.Delete("/goals/{id}/genres/{genreID}", s.handleRemoveGenreFilter)

		r.Get("/species", s.handleListSpecies)
		r.Get("/plants", s.handleListPlants)
		r.Post("/plants", s.handlePurchasePlant)
		r.Get("/plants/{id}", s.handleGetPlant)
		r.Delete("/plants/{id}", s.handleDeletePlant)
		r.Post("/plants/{id}/water", s.handleWaterPlant)
		r.Post("/plants/{id}/activate", s.handleActivatePlant)
	})

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.svc.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	status, code := "ok", http.StatusOK
	if !s.svc.Health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": s.svc.Health.Statuses(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    errorType(status),
		},
	})
}

// fail maps a service error onto an HTTP status and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidGoal):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPlantDead),
		errors.Is(err, domain.ErrInsufficientCoins),
		errors.Is(err, domain.ErrSessionFinalized),
		errors.Is(err, domain.ErrBookAlreadyCompleted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func errorType(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusConflict:
		return "conflict"
	default:
		return "error"
	}
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errors.Join(domain.ErrInvalidInput, err)
	}
	return nil
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
