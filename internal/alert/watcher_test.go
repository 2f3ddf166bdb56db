package alert_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notifyhub/garage-controller/internal/alert"
	"github.com/notifyhub/garage-controller/internal/clock"
	"github.com/notifyhub/garage-controller/internal/domain"
	"github.com/notifyhub/garage-controller/internal/events"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []alert.Alert
	err    error
}

func (r *recordingNotifier) Send(_ context.Context, a alert.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return r.err
}

func (r *recordingNotifier) sent() []alert.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]alert.Alert(nil), r.alerts...)
}

func TestWatcher_CooldownSuppressesRepeats(t *testing.T) {
	rec := &recordingNotifier{}
	clk := clock.Fake(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	bus := events.New()
	w := alert.NewWatcher(rec, "garage-1", time.Minute, clk, zap.NewNop())
	w.Attach(bus)
	defer w.Close()

	bus.Publish(events.MotionDropped{})
	require.Eventually(t, func() bool { return len(rec.sent()) == 1 }, time.Second, 5*time.Millisecond)

	// Within the cooldown: folded into the next alert.
	bus.Publish(events.MotionDropped{})
	bus.Publish(events.MotionDropped{})
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, rec.sent(), 1)

	clk.Advance(time.Minute)
	bus.Publish(events.MotionDropped{})
	require.Eventually(t, func() bool { return len(rec.sent()) == 2 }, time.Second, 5*time.Millisecond)

	second := rec.sent()[1]
	assert.Equal(t, alert.KindMotionDropped, second.Kind)
	assert.Contains(t, second.Detail, "2 more suppressed")
	assert.Equal(t, "garage-1", second.Device)
}

func TestWatcher_ConnectionLostOnly(t *testing.T) {
	rec := &recordingNotifier{}
	bus := events.New()
	w := alert.NewWatcher(rec, "garage-1", time.Minute, clock.Real(), zap.NewNop())
	w.Attach(bus)
	defer w.Close()

	bus.Publish(events.ConnectionChanged{State: domain.ConnConnected})
	bus.Publish(events.ConnectionChanged{State: domain.ConnSubscribed})
	bus.Publish(events.ConnectionChanged{State: domain.ConnDisconnected})

	require.Eventually(t, func() bool { return len(rec.sent()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, alert.KindConnectionLost, rec.sent()[0].Kind)
}

func TestWatcher_DeliveryFailureNotRetried(t *testing.T) {
	rec := &recordingNotifier{err: errors.New("unreachable")}
	bus := events.New()
	w := alert.NewWatcher(rec, "garage-1", 0, clock.Real(), zap.NewNop())
	w.Attach(bus)
	defer w.Close()

	bus.Publish(events.MotionDropped{})
	require.Eventually(t, func() bool { return len(rec.sent()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, rec.sent(), 1)
}
