package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gigwork-engine/internal/config"
	"gigwork-engine/internal/engine"
	"gigwork-engine/internal/ratelimit"
	"gigwork-engine/internal/telemetry"
)

// Server wires HTTP handlers over the lifecycle engine.
type Server struct {
	cfg     config.Config
	engine  *engine.Engine
	store   engine.Store
	limiter *ratelimit.Limiter
}

// New constructs the API server. limiter may be nil to disable throttling.
func New(cfg config.Config, eng *engine.Engine, st engine.Store, limiter *ratelimit.Limiter) *Server {
	return &Server{cfg: cfg, engine: eng, store: st, limiter: limiter}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Mount("/metrics", telemetry.Handler())
	r.Get("/reviews/summary/{revieweeId}", s.handleRatingSummary)

	r.Group(func(r chi.Router) {
		r.Use(s.withIdentity, s.withRateLimit)

		r.Post("/applications", s.handleApply)
		r.Post("/invitations", s.handleInvite)
		r.Get("/negotiations/{id}", s.handleGetNegotiation)
		r.Post("/negotiations/{id}/respond", s.handleRespond)
		r.Post("/negotiations/{id}/discussion", s.handleStartDiscussion)
		r.Post("/negotiations/{id}/agreement", s.handleMarkAgreement)

		r.Get("/contracts/{id}", s.handleGetContract)
		r.Post("/contracts/{id}/start", s.handleStartWork)
		r.Post("/contracts/{id}/complete", s.handleCompleteWork)
		r.Post("/contracts/{id}/confirm", s.handleConfirmCompletion)
		r.Post("/contracts/{id}/cancel", s.handleCancelContract)
		r.Post("/contracts/{id}/reviews", s.handleSubmitFeedback)

		r.Put("/workers/availability", s.handleSetAvailability)
	})

	return r
}
