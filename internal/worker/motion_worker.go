package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/notifyhub/garage-controller/internal/domain"
	"github.com/notifyhub/garage-controller/internal/queue"
	"github.com/notifyhub/garage-controller/internal/ratelimiter"
)

// Publisher is the outbound side of the client handle.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) (int, error)
}

// Pulser drives an output through one actuation sequence.
type Pulser interface {
	Pulse(ctx context.Context) error
}

// MotionHooks carries the callbacks injected by main so the worker stays
// metrics- and journal-agnostic. All are optional.
type MotionHooks struct {
	OnPublished     func(msgID int)
	OnPublishFailed func(err error)
	OnIndicator     func(err error)
}

// MotionWorker is the consumer task: it blocks on the notification queue
// and, for every token, publishes one motion event through that token and
// then blinks the indicator.
type MotionWorker struct {
	q         *queue.Queue[Publisher]
	indicator Pulser
	limiter   *ratelimiter.Limiter
	logger    *zap.Logger
	hooks     MotionHooks
}

// NewMotionWorker constructs the consumer. limiter may be nil.
func NewMotionWorker(
	q *queue.Queue[Publisher],
	indicator Pulser,
	limiter *ratelimiter.Limiter,
	logger *zap.Logger,
	hooks MotionHooks,
) *MotionWorker {
	if hooks.OnPublished == nil {
		hooks.OnPublished = func(int) {}
	}
	if hooks.OnPublishFailed == nil {
		hooks.OnPublishFailed = func(error) {}
	}
	if hooks.OnIndicator == nil {
		hooks.OnIndicator = func(error) {}
	}
	return &MotionWorker{q: q, indicator: indicator, limiter: limiter, logger: logger, hooks: hooks}
}

// Run blocks until ctx is cancelled, handling one token per iteration.
func (w *MotionWorker) Run(ctx context.Context) error {
	w.logger.Info("motion worker started", zap.Int("queue_capacity", w.q.Cap()))
	for {
		pub, ok := w.q.Dequeue(ctx)
		if !ok {
			w.logger.Info("motion worker stopping")
			return nil
		}
		w.process(ctx, pub)
	}
}

func (w *MotionWorker) process(ctx context.Context, pub Publisher) {
	if err := w.limiter.Wait(ctx); err != nil {
		// ctx cancelled while waiting: shutting down.
		return
	}

	msgID, err := pub.Publish(domain.TopicMotion, domain.QoSAtMostOnce, false, []byte(domain.MotionPayload))
	if err != nil {
		w.logger.Info("publish not accepted", zap.Int("msg_id", msgID), zap.Error(err))
		w.hooks.OnPublishFailed(err)
	} else {
		w.logger.Info("sent publish successful", zap.Int("msg_id", msgID), zap.String("topic", domain.TopicMotion))
		w.hooks.OnPublished(msgID)
	}

	err = w.indicator.Pulse(ctx)
	if err != nil {
		w.logger.Warn("indicator pulse failed", zap.Error(err))
	}
	w.hooks.OnIndicator(err)
}
