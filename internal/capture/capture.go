// Package capture turns rising edges on the motion input into notification
// tokens on the bounded queue.
//
// The edge handler runs on the driver's watcher goroutine and must never
// block. While it runs the line is disarmed, so an edge that arrives during
// the check-and-enqueue is ignored instead of flooding the queue, and a
// simulated edge racing a real one is refused. A full queue drops the
// notification.
package capture

import (
	"context"

	"go.uber.org/zap"

	"github.com/notifyhub/garage-controller/internal/domain"
	"github.com/notifyhub/garage-controller/internal/gpio"
	"github.com/notifyhub/garage-controller/internal/queue"
)

// Hooks are optional callbacks; they must be non-blocking.
type Hooks struct {
	OnAccepted func()
	OnDropped  func()
}

// Unit is the interrupt capture unit. T is the token type carried through
// the queue; the same token value is enqueued on every accepted edge.
type Unit[T any] struct {
	line   gpio.Input
	q      *queue.Queue[T]
	token  T
	hooks  Hooks
	logger *zap.Logger

	armed chan struct{}
}

func New[T any](line gpio.Input, q *queue.Queue[T], token T, hooks Hooks, logger *zap.Logger) *Unit[T] {
	if hooks.OnAccepted == nil {
		hooks.OnAccepted = func() {}
	}
	if hooks.OnDropped == nil {
		hooks.OnDropped = func() {}
	}
	u := &Unit[T]{
		line:   line,
		q:      q,
		token:  token,
		hooks:  hooks,
		logger: logger,
		armed:  make(chan struct{}, 1),
	}
	u.armed <- struct{}{}
	return u
}

// OnRisingEdge is the edge handler: disarm, sample the level, enqueue the
// token if the line is High, re-arm. Edges that arrive while disarmed are
// discarded.
func (u *Unit[T]) OnRisingEdge() {
	select {
	case <-u.armed:
	default:
		return
	}
	defer func() { u.armed <- struct{}{} }()

	lvl, err := u.line.Read()
	if err != nil || lvl != gpio.High {
		return
	}
	_ = u.offer()
}

// Simulate enqueues a notification as if a qualifying edge had fired,
// without sampling the line. It returns ErrQueueFull when dropped and
// ErrCaptureBusy while a real edge is being handled.
func (u *Unit[T]) Simulate() error {
	select {
	case <-u.armed:
	default:
		return domain.ErrCaptureBusy
	}
	defer func() { u.armed <- struct{}{} }()

	return u.offer()
}

func (u *Unit[T]) offer() error {
	if err := u.q.TryEnqueue(u.token); err != nil {
		u.hooks.OnDropped()
		return err
	}
	u.hooks.OnAccepted()
	return nil
}

// Run watches the input line until ctx is cancelled.
func (u *Unit[T]) Run(ctx context.Context) error {
	u.logger.Info("motion capture armed", zap.String("line", u.line.Name()))
	err := u.line.Watch(ctx, u.OnRisingEdge)
	u.logger.Info("motion capture stopped")
	return err
}
