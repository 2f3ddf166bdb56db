package repository

import (
	"context"
	"sync"
	"time"

	"github.com/notifyhub/garage-controller/internal/domain"
)

// DefaultMemoryCapacity bounds the in-memory journal.
const DefaultMemoryCapacity = 1000

// MemoryEventRepository keeps the most recent entries in a ring. When full,
// the oldest entry is overwritten.
type MemoryEventRepository struct {
	mu      sync.RWMutex
	entries []*domain.Entry
	next    int
	size    int

	// Optional error overrides, set in tests to simulate failure paths.
	AppendErr error
	ListErr   error
}

func NewMemoryEventRepository(capacity int) *MemoryEventRepository {
	if capacity < 1 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryEventRepository{entries: make([]*domain.Entry, capacity)}
}

func (m *MemoryEventRepository) Append(_ context.Context, e *domain.Entry) error {
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *e
	m.entries[m.next] = &clone
	m.next = (m.next + 1) % len(m.entries)
	if m.size < len(m.entries) {
		m.size++
	}
	return nil
}

// List returns matching entries newest first.
func (m *MemoryEventRepository) List(_ context.Context, f domain.ListFilter) ([]*domain.Entry, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*domain.Entry, 0, m.size)
	for i := 0; i < m.size; i++ {
		idx := (m.next - 1 - i + len(m.entries)) % len(m.entries)
		e := m.entries[idx]
		if f.Kind != nil && e.Kind != *f.Kind {
			continue
		}
		if f.Since != nil && e.CreatedAt.Before(*f.Since) {
			continue
		}
		clone := *e
		result = append(result, &clone)
		if f.Limit > 0 && len(result) == f.Limit {
			break
		}
	}
	return result, nil
}

func (m *MemoryEventRepository) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := make([]*domain.Entry, 0, m.size)
	for i := m.size - 1; i >= 0; i-- {
		idx := (m.next - 1 - i + len(m.entries)) % len(m.entries)
		if e := m.entries[idx]; !e.CreatedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	removed := int64(m.size - len(kept))

	for i := range m.entries {
		m.entries[i] = nil
	}
	copy(m.entries, kept)
	m.size = len(kept)
	m.next = len(kept) % len(m.entries)
	return removed, nil
}
