package metrics_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/notifyhub/garage-controller/internal/domain"
	"github.com/notifyhub/garage-controller/internal/metrics"
)

func TestCaptureHooks(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	onAccepted, onDropped := m.CaptureHooks(func() int { return 4 })

	onAccepted()
	onAccepted()
	onDropped()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MotionEdges.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MotionEdges.WithLabelValues("dropped")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.QueueDepth))
}

func TestPublishAndActuationResults(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.PublishResult(nil)
	m.PublishResult(errors.New("not connected"))
	m.ActuationResult("relay", nil)
	m.ActuationResult("relay", errors.New("line busy"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.MotionPublishes.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MotionPublishes.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Actuations.WithLabelValues("relay", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Actuations.WithLabelValues("relay", "error")))
}

func TestObserveEventTracksConnection(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.ObserveEvent(domain.EventConnected)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BrokerConnection))

	m.ObserveEvent(domain.EventDisconnected)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BrokerConnection))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MQTTEvents.WithLabelValues("connected")))
}
