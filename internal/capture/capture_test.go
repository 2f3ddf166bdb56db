package capture_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/notifyhub/garage-controller/internal/capture"
	"github.com/notifyhub/garage-controller/internal/domain"
	"github.com/notifyhub/garage-controller/internal/gpio"
	"github.com/notifyhub/garage-controller/internal/queue"
)

type token struct{ name string }

type counts struct {
	accepted atomic.Int32
	dropped  atomic.Int32
}

func (c *counts) hooks() capture.Hooks {
	return capture.Hooks{
		OnAccepted: func() { c.accepted.Add(1) },
		OnDropped:  func() { c.dropped.Add(1) },
	}
}

func setup(t *testing.T) (*capture.Unit[*token], *gpio.FakeInput, *queue.Queue[*token], *counts, *token) {
	t.Helper()
	in := gpio.NewFake().FakeInput("GPIO4")
	q := queue.New[*token](queue.DefaultCapacity)
	c := &counts{}
	tok := &token{name: "client"}
	return capture.New(in, q, tok, c.hooks(), zap.NewNop()), in, q, c, tok
}

func TestOnRisingEdge_HighLevelEnqueuesToken(t *testing.T) {
	u, in, q, c, tok := setup(t)

	in.SetLevel(gpio.High)
	u.OnRisingEdge()

	require.Equal(t, 1, q.Len())
	got, ok := q.Dequeue(context.Background())
	require.True(t, ok)
	assert.Same(t, tok, got)
	assert.EqualValues(t, 1, c.accepted.Load())
}

func TestOnRisingEdge_LowLevelIgnored(t *testing.T) {
	u, in, q, c, _ := setup(t)

	in.SetLevel(gpio.Low)
	u.OnRisingEdge()

	assert.Equal(t, 0, q.Len())
	assert.EqualValues(t, 0, c.accepted.Load())
	assert.EqualValues(t, 0, c.dropped.Load())
}

// TestOnRisingEdge_BurstBeyondCapacity verifies that excess edges are
// dropped silently and every retained token is the same client handle.
func TestOnRisingEdge_BurstBeyondCapacity(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	in := gpio.NewFake().FakeInput("GPIO4")
	q := queue.New[*token](queue.DefaultCapacity)
	c := &counts{}
	tok := &token{name: "client"}
	u := capture.New(in, q, tok, c.hooks(), zap.New(core))

	in.SetLevel(gpio.High)
	for i := 0; i < 25; i++ {
		u.OnRisingEdge()
	}

	assert.Equal(t, 10, q.Len())
	assert.EqualValues(t, 10, c.accepted.Load())
	assert.EqualValues(t, 15, c.dropped.Load())
	assert.Zero(t, logs.Len(), "overflow must not log")

	for q.Len() > 0 {
		got, _ := q.Dequeue(context.Background())
		assert.Same(t, tok, got)
	}
}

// reentrantInput fires a nested edge from inside Read, the way a bouncing
// contact would if the line were not disarmed.
type reentrantInput struct {
	gpio.Input
	nested func()
	calls  int
}

func (r *reentrantInput) Read() (gpio.Level, error) {
	r.calls++
	if r.calls == 1 {
		r.nested()
	}
	return gpio.High, nil
}

func TestOnRisingEdge_DisarmedDuringHandler(t *testing.T) {
	in := &reentrantInput{}
	q := queue.New[*token](queue.DefaultCapacity)
	u := capture.New[*token](in, q, &token{}, capture.Hooks{}, zap.NewNop())
	in.nested = u.OnRisingEdge

	u.OnRisingEdge()

	assert.Equal(t, 1, in.calls, "nested edge must not sample the line")
	assert.Equal(t, 1, q.Len())

	// Re-armed after returning.
	u.OnRisingEdge()
	assert.Equal(t, 2, q.Len())
}

func TestSimulate(t *testing.T) {
	u, _, q, c, _ := setup(t)

	for i := 0; i < queue.DefaultCapacity; i++ {
		require.NoError(t, u.Simulate())
	}
	require.ErrorIs(t, u.Simulate(), domain.ErrQueueFull)
	assert.Equal(t, queue.DefaultCapacity, q.Len())
	assert.EqualValues(t, 1, c.dropped.Load())
}

func TestSimulate_RefusedWhileEdgeInFlight(t *testing.T) {
	in := &reentrantInput{}
	q := queue.New[*token](queue.DefaultCapacity)
	u := capture.New[*token](in, q, &token{}, capture.Hooks{}, zap.NewNop())

	var simErr error
	in.nested = func() { simErr = u.Simulate() }

	u.OnRisingEdge()

	require.ErrorIs(t, simErr, domain.ErrCaptureBusy)
	assert.Equal(t, 1, q.Len(), "only the real edge is queued")

	require.NoError(t, u.Simulate())
	assert.Equal(t, 2, q.Len())
}

func TestRun_WatchesLine(t *testing.T) {
	u, in, q, _, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- u.Run(ctx) }()

	require.Eventually(t, in.Watched, time.Second, time.Millisecond)
	in.Rise()
	assert.Equal(t, 1, q.Len())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
