package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notifyhub/garage-controller/internal/actuator"
	"github.com/notifyhub/garage-controller/internal/api"
	"github.com/notifyhub/garage-controller/internal/api/middleware"
	"github.com/notifyhub/garage-controller/internal/capture"
	"github.com/notifyhub/garage-controller/internal/clock"
	"github.com/notifyhub/garage-controller/internal/events"
	"github.com/notifyhub/garage-controller/internal/gpio"
	"github.com/notifyhub/garage-controller/internal/metrics"
	"github.com/notifyhub/garage-controller/internal/queue"
	"github.com/notifyhub/garage-controller/internal/repository"
	"github.com/notifyhub/garage-controller/internal/service"
)

type nopSubscriber struct{}

func (nopSubscriber) Subscribe(string, byte) (int, error) { return 1, nil }

type fixture struct {
	router http.Handler
	relay  *gpio.FakeOutput
	q      *queue.Queue[int]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := gpio.NewFake()
	relay := fake.FakeOutput("GPIO17")
	motion := fake.FakeInput("GPIO27")
	motion.SetLevel(gpio.High)

	q := queue.New[int](2)
	unit := capture.New[int](motion, q, 1, capture.Hooks{}, zap.NewNop())
	seq := actuator.New(relay, actuator.Timing{}, clock.Real(), zap.NewNop())

	reg := prometheus.NewRegistry()
	metrics.New(reg)
	svc := service.NewGarageService(nopSubscriber{}, seq, q, events.New(), zap.NewNop(), service.Hooks{})

	return &fixture{
		router: api.NewRouter(svc, unit, repository.NewMemoryEventRepository(10), reg, zap.NewNop()),
		relay:  relay,
		q:      q,
	}
}

func do(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRouter_Routes(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/v1/status", http.StatusOK},
		{http.MethodGet, "/api/v1/events", http.StatusOK},
		{http.MethodGet, "/api/v1/door/actuate", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := do(f.router, tt.method, tt.path)
		assert.Equal(t, tt.want, rec.Code, "%s %s", tt.method, tt.path)
	}
}

func TestRouter_RequestIDEchoed(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "bench-42")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, "bench-42", rec.Header().Get(middleware.RequestIDHeader))

	rec = do(f.router, http.MethodGet, "/health")
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_DoorActuateDrivesRelay(t *testing.T) {
	f := newFixture(t)

	rec := do(f.router, http.MethodPost, "/api/v1/door/actuate")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []gpio.Level{gpio.Low, gpio.High, gpio.Low}, f.relay.Levels())
}

func TestRouter_SimulateMotionUntilFull(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusAccepted, do(f.router, http.MethodPost, "/api/v1/motion/simulate").Code)
	assert.Equal(t, http.StatusAccepted, do(f.router, http.MethodPost, "/api/v1/motion/simulate").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(f.router, http.MethodPost, "/api/v1/motion/simulate").Code)
	assert.Equal(t, 2, f.q.Len())
}

func TestRouter_StatusReflectsQueue(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusAccepted, do(f.router, http.MethodPost, "/api/v1/motion/simulate").Code)

	rec := do(f.router, http.MethodGet, "/api/v1/status")
	assert.Contains(t, rec.Body.String(), `"queue_depth":1`)
	assert.Contains(t, rec.Body.String(), `"queue_capacity":2`)
}
