package handler

import (
	"net/http"

	"github.com/notifyhub/garage-controller/internal/domain"
)

// StatusProvider reports the controller's runtime snapshot.
type StatusProvider interface {
	Status() domain.Status
}

// StatusHandler serves connection state, queue occupancy and counters.
// Raw Prometheus metrics are served separately at /metrics.
type StatusHandler struct {
	svc StatusProvider
}

func NewStatusHandler(svc StatusProvider) *StatusHandler {
	return &StatusHandler{svc: svc}
}

// GetStatus handles GET /api/v1/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Status())
}
