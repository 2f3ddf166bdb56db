package queue

import (
	"context"

	"github.com/notifyhub/garage-controller/internal/domain"
)

// DefaultCapacity is the number of notification slots between the interrupt
// path and the consumer task.
const DefaultCapacity = 10

// Queue is a bounded FIFO backed by a buffered channel.
//
// The producer side never blocks: TryEnqueue either places the value or
// reports ErrQueueFull and the value is dropped. This makes it safe to call
// from an edge callback. The consumer side blocks in Dequeue until a value
// arrives or the context is cancelled.
type Queue[T any] struct {
	ch chan T
}

// New creates a queue with the given capacity. Capacities below 1 fall back
// to DefaultCapacity.
func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Queue[T]{ch: make(chan T, capacity)}
}

// TryEnqueue places v at the tail of the queue without blocking.
// If the queue is full, ErrQueueFull is returned and v is discarded.
func (q *Queue[T]) TryEnqueue(v T) error {
	select {
	case q.ch <- v:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Dequeue blocks until an item is available or ctx is cancelled.
// Returns (zero, false) when ctx is cancelled.
func (q *Queue[T]) Dequeue(ctx context.Context) (T, bool) {
	select {
	case v := <-q.ch:
		return v, true
	case <-ctx.Done():
		var zero T
		return zero, false
	}
}

// Len returns the number of items currently waiting.
func (q *Queue[T]) Len() int { return len(q.ch) }

// Cap returns the fixed capacity.
func (q *Queue[T]) Cap() int { return cap(q.ch) }
