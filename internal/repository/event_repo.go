package repository

import (
	"context"
	"time"

	"github.com/notifyhub/garage-controller/internal/domain"
)

// EventRepository persists the controller's event journal.
// The pgx implementation is in pg_event_repo.go; memory_event_repo.go holds
// the bounded in-memory ring used when no database is configured and in tests.
type EventRepository interface {
	Append(ctx context.Context, e *domain.Entry) error
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.Entry, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
