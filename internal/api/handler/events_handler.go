package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	apimw "github.com/notifyhub/garage-controller/internal/api/middleware"
	"github.com/notifyhub/garage-controller/internal/domain"
	"github.com/notifyhub/garage-controller/internal/repository"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// EventsHandler serves the event journal.
type EventsHandler struct {
	repo   repository.EventRepository
	logger *zap.Logger
}

func NewEventsHandler(repo repository.EventRepository, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{repo: repo, logger: logger}
}

// List handles GET /api/v1/events?kind=&since=&limit=
//
// kind is one of the journal entry kinds, since is RFC3339, limit defaults
// to 50 and is capped at 500. Entries are returned newest first.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseEventFilter(r)
	if err != nil {
		mapError(w, err)
		return
	}

	entries, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Warn("list events failed",
			zap.String("request_id", apimw.GetRequestID(r.Context())),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if entries == nil {
		entries = []*domain.Entry{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":  entries,
		"count": len(entries),
		"limit": filter.Limit,
	})
}

func parseEventFilter(r *http.Request) (domain.ListFilter, error) {
	q := r.URL.Query()
	filter := domain.ListFilter{Limit: defaultEventLimit}

	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 {
		filter.Limit = min(l, maxEventLimit)
	}
	if k := q.Get("kind"); k != "" {
		kind := domain.EntryKind(k)
		if !kind.IsValid() {
			return filter, fmt.Errorf("%w: %q", domain.ErrInvalidEventKind, k)
		}
		filter.Kind = &kind
	}
	if s := q.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return filter, fmt.Errorf("%w: %q", domain.ErrInvalidSince, s)
		}
		filter.Since = &t
	}
	return filter, nil
}
