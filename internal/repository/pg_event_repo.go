package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/garage-controller/internal/domain"
)

type pgEventRepository struct {
	pool *pgxpool.Pool
}

// NewPgEventRepository returns an EventRepository backed by PostgreSQL.
func NewPgEventRepository(pool *pgxpool.Pool) EventRepository {
	return &pgEventRepository{pool: pool}
}

func (r *pgEventRepository) Append(ctx context.Context, e *domain.Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO garage_events (id, kind, detail, message_id, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		e.ID, e.Kind, e.Detail, e.MessageID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (r *pgEventRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Entry, error) {
	where, args := buildListWhere(f)

	query := `
		SELECT id, kind, detail, message_id, created_at
		FROM garage_events` + where + `
		ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *pgEventRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM garage_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ---- helpers ----

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var e domain.Entry
	if err := row.Scan(&e.ID, &e.Kind, &e.Detail, &e.MessageID, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanEntries(rows pgx.Rows) ([]*domain.Entry, error) {
	var result []*domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// buildListWhere builds a parameterised WHERE clause from a ListFilter.
func buildListWhere(f domain.ListFilter) (string, []any) {
	var conditions []string
	var args []any

	add := func(condition string, val any) {
		args = append(args, val)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if f.Kind != nil {
		add("kind = $%d", *f.Kind)
	}
	if f.Since != nil {
		add("created_at >= $%d", *f.Since)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
