package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/garage-controller/internal/domain"
	"github.com/notifyhub/garage-controller/internal/events"
	"github.com/notifyhub/garage-controller/internal/repository"
)

const appendTimeout = 2 * time.Second

// Recorder turns bus events into journal entries.
type Recorder struct {
	repo   repository.EventRepository
	logger *zap.Logger
	unsubs []func()
}

func NewRecorder(repo repository.EventRepository, logger *zap.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Attach subscribes the recorder to every journaled event type.
func (r *Recorder) Attach(bus *events.Bus) {
	r.unsubs = append(r.unsubs,
		bus.Subscribe(func(e events.MotionReported) {
			id := e.MessageID
			detail := "published"
			if e.Err != "" {
				detail = "rejected: " + e.Err
			}
			r.record(domain.EntryMotionReported, detail, &id, e.At)
		}),
		bus.Subscribe(func(e events.MotionDropped) {
			r.record(domain.EntryMotionDropped, "queue full", nil, e.At)
		}),
		bus.Subscribe(func(e events.DoorActuated) {
			detail := fmt.Sprintf("source=%s", e.Source)
			if e.Err != "" {
				detail += " error=" + e.Err
			}
			r.record(domain.EntryDoorActuated, detail, nil, e.At)
		}),
		bus.Subscribe(func(e events.ConnectionChanged) {
			r.record(domain.EntryConnectionChanged, string(e.State), nil, e.At)
		}),
	)
}

// Close unsubscribes from the bus.
func (r *Recorder) Close() {
	for _, unsub := range r.unsubs {
		unsub()
	}
	r.unsubs = nil
}

func (r *Recorder) record(kind domain.EntryKind, detail string, msgID *int, at time.Time) {
	if at.IsZero() {
		at = time.Now()
	}
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()

	err := r.repo.Append(ctx, &domain.Entry{
		ID:        uuid.NewString(),
		Kind:      kind,
		Detail:    detail,
		MessageID: msgID,
		CreatedAt: at.UTC(),
	})
	if err != nil {
		r.logger.Warn("journal append failed", zap.String("kind", string(kind)), zap.Error(err))
	}
}
