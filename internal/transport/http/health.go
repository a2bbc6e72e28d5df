package http

import (
	"context"
	"net/http"
	"time"

	"github.com/uptrace/bun"
)

type healthHandler struct {
	db *bun.DB
}

func newHealthHandler(db *bun.DB) *healthHandler {
	return &healthHandler{db: db}
}

func (h *healthHandler) liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *healthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := map[string]string{"postgres": "ok"}
	status := http.StatusOK

	if h.db == nil || h.db.PingContext(ctx) != nil {
		deps["postgres"] = "down"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status":       statusWord(status),
		"dependencies": deps,
	})
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "ok"
	}
	return "error"
}
