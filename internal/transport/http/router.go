package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

type RouterConfig struct {
	Service schedulingService
	DB      *bun.DB
	Log     *slog.Logger
}

// NewRouter wires the scheduling endpoints. The request layer passes
// already-authenticated actor IDs through; it owns no scheduling rules.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	h := &handlers{svc: cfg.Service, log: log.With(slog.String("component", "http.scheduling"))}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))

	health := newHealthHandler(cfg.DB)
	r.Get("/health/live", health.liveness)
	r.Get("/health/ready", health.readiness)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/appointments", h.book)
		r.Post("/appointments/reschedule", h.reschedule)
		r.Post("/appointments/cancel", h.cancel)
		r.Post("/appointments/{id}/outcome", h.markOutcome)

		r.Get("/schedule/{role}/{actorID}", h.listByDay)
		r.Get("/schedule/{role}/{actorID}/slot", h.getBySlot)
	})

	return r
}
