package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/notifyhub/garage-controller/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	MotionEdges      *prometheus.CounterVec
	MotionPublishes  *prometheus.CounterVec
	Actuations       *prometheus.CounterVec
	MQTTEvents       *prometheus.CounterVec
	QueueDepth       prometheus.Gauge
	BrokerConnection prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// A custom registry (instead of prometheus.DefaultRegisterer) keeps tests
// isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MotionEdges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "garage_motion_edges_total",
			Help: "Rising edges seen on the motion input, by queue outcome.",
		}, []string{"result"}),

		MotionPublishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "garage_motion_publishes_total",
			Help: "Motion publishes handed to the MQTT client, by outcome.",
		}, []string{"result"}),

		Actuations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "garage_actuations_total",
			Help: "Completed actuation sequences per output line.",
		}, []string{"line", "result"}),

		MQTTEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "garage_mqtt_events_total",
			Help: "MQTT client events delivered to the event handler.",
		}, []string{"kind"}),

		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "garage_queue_depth",
			Help: "Current number of pending motion notifications.",
		}),
		BrokerConnection: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "garage_broker_connected",
			Help: "1 while the MQTT session is up, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		m.MotionEdges,
		m.MotionPublishes,
		m.Actuations,
		m.MQTTEvents,
		m.QueueDepth,
		m.BrokerConnection,
	)

	return m
}

// CaptureHooks returns the callbacks expected by capture.Hooks.
// depth reports the current queue length after the edge was handled.
func (m *Metrics) CaptureHooks(depth func() int) (onAccepted, onDropped func()) {
	onAccepted = func() {
		m.MotionEdges.WithLabelValues("accepted").Inc()
		m.QueueDepth.Set(float64(depth()))
	}
	onDropped = func() {
		m.MotionEdges.WithLabelValues("dropped").Inc()
	}
	return
}

// PublishResult counts one motion publish outcome.
func (m *Metrics) PublishResult(err error) {
	if err != nil {
		m.MotionPublishes.WithLabelValues("rejected").Inc()
		return
	}
	m.MotionPublishes.WithLabelValues("sent").Inc()
}

// ActuationResult counts one completed sequence on line.
func (m *Metrics) ActuationResult(line string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Actuations.WithLabelValues(line, result).Inc()
}

// ObserveEvent counts a client event and tracks the connection gauge.
func (m *Metrics) ObserveEvent(kind domain.EventKind) {
	m.MQTTEvents.WithLabelValues(string(kind)).Inc()
	switch kind {
	case domain.EventConnected:
		m.BrokerConnection.Set(1)
	case domain.EventDisconnected:
		m.BrokerConnection.Set(0)
	}
}
