package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyhub/garage-controller/internal/domain"
	"github.com/notifyhub/garage-controller/internal/repository"
)

var base = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func entry(i int, kind domain.EntryKind) *domain.Entry {
	return &domain.Entry{
		ID:        fmt.Sprintf("e-%d", i),
		Kind:      kind,
		CreatedAt: base.Add(time.Duration(i) * time.Second),
	}
}

func ids(entries []*domain.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestMemoryRepo_ListNewestFirst(t *testing.T) {
	repo := repository.NewMemoryEventRepository(10)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Append(ctx, entry(i, domain.EntryMotionReported)))
	}

	got, err := repo.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"e-2", "e-1", "e-0"}, ids(got))
}

func TestMemoryRepo_RingOverwritesOldest(t *testing.T) {
	repo := repository.NewMemoryEventRepository(3)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Append(ctx, entry(i, domain.EntryMotionReported)))
	}

	got, err := repo.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"e-4", "e-3", "e-2"}, ids(got))
}

func TestMemoryRepo_Filter(t *testing.T) {
	repo := repository.NewMemoryEventRepository(10)
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, entry(0, domain.EntryMotionReported)))
	require.NoError(t, repo.Append(ctx, entry(1, domain.EntryDoorActuated)))
	require.NoError(t, repo.Append(ctx, entry(2, domain.EntryMotionReported)))
	require.NoError(t, repo.Append(ctx, entry(3, domain.EntryMotionReported)))

	kind := domain.EntryMotionReported
	got, err := repo.List(ctx, domain.ListFilter{Kind: &kind, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"e-3", "e-2"}, ids(got))

	since := base.Add(2 * time.Second)
	got, err = repo.List(ctx, domain.ListFilter{Since: &since})
	require.NoError(t, err)
	assert.Equal(t, []string{"e-3", "e-2"}, ids(got))
}

func TestMemoryRepo_ListReturnsCopies(t *testing.T) {
	repo := repository.NewMemoryEventRepository(10)
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, entry(0, domain.EntryMotionReported)))

	got, err := repo.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	got[0].Detail = "mutated"

	again, err := repo.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, again[0].Detail)
}

func TestMemoryRepo_PruneBefore(t *testing.T) {
	repo := repository.NewMemoryEventRepository(4)
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		require.NoError(t, repo.Append(ctx, entry(i, domain.EntryMotionReported)))
	}

	n, err := repo.PruneBefore(ctx, base.Add(4*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := repo.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"e-5", "e-4"}, ids(got))

	// Appending after a prune continues the ring in order.
	require.NoError(t, repo.Append(ctx, entry(6, domain.EntryMotionReported)))
	got, err = repo.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"e-6", "e-5", "e-4"}, ids(got))
}

func TestMemoryRepo_ErrorOverrides(t *testing.T) {
	repo := repository.NewMemoryEventRepository(4)
	repo.AppendErr = errors.New("disk full")
	repo.ListErr = errors.New("unavailable")

	assert.Error(t, repo.Append(context.Background(), entry(0, domain.EntryMotionReported)))
	_, err := repo.List(context.Background(), domain.ListFilter{})
	assert.Error(t, err)
}
