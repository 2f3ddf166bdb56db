package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/notifyhub/garage-controller/internal/api/middleware"
)

// DoorTrigger runs one relay sequence.
type DoorTrigger interface {
	TriggerDoor(ctx context.Context) error
}

// MotionSimulator injects a motion edge through the capture path.
type MotionSimulator interface {
	Simulate() error
}

// ControlHandler exposes the local bench controls.
type ControlHandler struct {
	door   DoorTrigger
	motion MotionSimulator
	logger *zap.Logger
}

func NewControlHandler(door DoorTrigger, motion MotionSimulator, logger *zap.Logger) *ControlHandler {
	return &ControlHandler{door: door, motion: motion, logger: logger}
}

// ActuateDoor handles POST /api/v1/door/actuate. It returns after the relay
// sequence completes.
func (h *ControlHandler) ActuateDoor(w http.ResponseWriter, r *http.Request) {
	if err := h.door.TriggerDoor(r.Context()); err != nil {
		h.logger.Warn("door actuation request failed",
			zap.String("request_id", apimw.GetRequestID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "actuated"})
}

// SimulateMotion handles POST /api/v1/motion/simulate. A full queue drops
// the notification and answers 503.
func (h *ControlHandler) SimulateMotion(w http.ResponseWriter, r *http.Request) {
	if err := h.motion.Simulate(); err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
