// Package server exposes the training log and its derived metrics over a
// JSON REST API.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/claude/replift/internal/metrics"
	"github.com/claude/replift/internal/tracker"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	tracker *tracker.Service
	metrics *metrics.Manager
	log     *slog.Logger
	apiKey  string
	router  chi.Router
	now     func() time.Time
}

// New creates a new Server with all routes configured. Collectors registered
// with gatherer are served on /metrics.
func New(svc *tracker.Service, m *metrics.Manager, gatherer prometheus.Gatherer, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		tracker: svc,
		metrics: m,
		log:     log,
		apiKey:  apiKey,
		router:  chi.NewRouter(),
		now:     time.Now,
	}
	s.routes(gatherer)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes(gatherer prometheus.Gatherer) {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(RequestMetrics(s.metrics))
	s.router.Use(CORS)

	s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.router.Route("/api/v1", func(r chi.Router) {
		// Reads (no auth, tsnet handles access)
		r.Get("/overview", s.handleOverview)
		r.Get("/summary", s.handleSummary)
		r.Get("/calendar", s.handleCalendar)
		r.Get("/records", s.handleRecords)
		r.Get("/achievements", s.handleAchievements)
		r.Get("/exercises/evolution", s.handleEvolutions)
		r.Get("/exercises/evolution/{name}", s.handleEvolution)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Get("/programs", s.handleListPrograms)
		r.Get("/programs/{id}", s.handleGetProgram)
		r.Get("/programs/{id}/last-session", s.handleLastSession)
		r.Get("/active-session", s.handleGetActiveSession)
		r.Get("/export", s.handleExport)

		// Mutations (API key required)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/sessions", s.handleAddSession)
			r.Delete("/sessions/{id}", s.handleDeleteSession)
			r.Post("/programs", s.handleAddProgram)
			r.Put("/programs/{id}", s.handleUpdateProgram)
			r.Delete("/programs/{id}", s.handleDeleteProgram)
			r.Post("/active-session", s.handleStartSession)
			r.Put("/active-session", s.handleUpdateActiveSession)
			r.Post("/active-session/finish", s.handleFinishSession)
			r.Delete("/active-session", s.handleDiscardSession)
			r.Post("/import", s.handleImport)
			r.Post("/import/alpha", s.handleImportAlpha)
			r.Post("/reset", s.handleReset)
		})
	})
}
