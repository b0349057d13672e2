package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/templui/gatekeeper/internal/ui"
)

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	err := h.db.PingContext(ctx)
	if err != nil {
		slog.Error("health check failed", "error", err)
		ui.Render(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}

	ui.Render(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	ui.RenderError(w, r, http.StatusNotFound, "not found")
}
