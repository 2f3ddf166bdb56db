package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/garage-controller/internal/clock"
	"github.com/notifyhub/garage-controller/internal/domain"
	"github.com/notifyhub/garage-controller/internal/events"
)

const sendTimeout = 5 * time.Second

// Watcher turns bus events into alerts. Each alert kind is sent at most
// once per cooldown window; suppressed occurrences are folded into the
// next alert's detail. Nothing is retried.
type Watcher struct {
	notifier Notifier
	device   string
	cooldown time.Duration
	clock    clock.Clock
	logger   *zap.Logger

	mu         sync.Mutex
	lastSent   map[string]time.Time
	suppressed map[string]int
	unsubs     []func()
}

func NewWatcher(notifier Notifier, device string, cooldown time.Duration, c clock.Clock, logger *zap.Logger) *Watcher {
	return &Watcher{
		notifier:   notifier,
		device:     device,
		cooldown:   cooldown,
		clock:      c,
		logger:     logger,
		lastSent:   make(map[string]time.Time),
		suppressed: make(map[string]int),
	}
}

// Attach subscribes to dropped notifications and connection loss.
func (w *Watcher) Attach(bus *events.Bus) {
	w.unsubs = append(w.unsubs,
		bus.Subscribe(func(events.MotionDropped) {
			w.raise(KindMotionDropped, "motion notification dropped: queue full")
		}),
		bus.Subscribe(func(e events.ConnectionChanged) {
			if e.State == domain.ConnDisconnected {
				w.raise(KindConnectionLost, "broker connection lost")
			}
		}),
	)
}

// Close unsubscribes from the bus.
func (w *Watcher) Close() {
	for _, unsub := range w.unsubs {
		unsub()
	}
	w.unsubs = nil
}

func (w *Watcher) raise(kind, detail string) {
	now := w.clock.Now()

	w.mu.Lock()
	if last, ok := w.lastSent[kind]; ok && now.Sub(last) < w.cooldown {
		w.suppressed[kind]++
		w.mu.Unlock()
		return
	}
	w.lastSent[kind] = now
	n := w.suppressed[kind]
	w.suppressed[kind] = 0
	w.mu.Unlock()

	if n > 0 {
		detail = fmt.Sprintf("%s (%d more suppressed)", detail, n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	err := w.notifier.Send(ctx, Alert{Kind: kind, Device: w.device, Detail: detail, Timestamp: now.UTC()})
	if err != nil {
		w.logger.Warn("alert delivery failed", zap.String("kind", kind), zap.Error(err))
	}
}
