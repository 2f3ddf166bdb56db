package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notifyhub/garage-controller/internal/api/handler"
	"github.com/notifyhub/garage-controller/internal/domain"
	"github.com/notifyhub/garage-controller/internal/repository"
)

type fakeStatus struct{ st domain.Status }

func (f fakeStatus) Status() domain.Status { return f.st }

type fakeDoor struct {
	calls int
	err   error
}

func (f *fakeDoor) TriggerDoor(context.Context) error {
	f.calls++
	return f.err
}

type fakeMotion struct{ err error }

func (f fakeMotion) Simulate() error { return f.err }

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	handler.NewHealthHandler().Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetStatus(t *testing.T) {
	h := handler.NewStatusHandler(fakeStatus{st: domain.Status{
		Connection:    domain.ConnSubscribed,
		QueueDepth:    2,
		QueueCapacity: 10,
		MotionSent:    5,
	}})
	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Status
	decode(t, rec, &got)
	assert.Equal(t, domain.ConnSubscribed, got.Connection)
	assert.Equal(t, 2, got.QueueDepth)
	assert.Equal(t, uint64(5), got.MotionSent)
}

func TestEventsList(t *testing.T) {
	repo := repository.NewMemoryEventRepository(10)
	ctx := context.Background()
	base := time.Now().UTC()
	require.NoError(t, repo.Append(ctx, &domain.Entry{ID: "1", Kind: domain.EntryMotionReported, CreatedAt: base}))
	require.NoError(t, repo.Append(ctx, &domain.Entry{ID: "2", Kind: domain.EntryDoorActuated, CreatedAt: base.Add(time.Second)}))
	require.NoError(t, repo.Append(ctx, &domain.Entry{ID: "3", Kind: domain.EntryMotionReported, CreatedAt: base.Add(2 * time.Second)}))

	h := handler.NewEventsHandler(repo, zap.NewNop())

	t.Run("filter by kind", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events?kind=motion_reported&limit=1", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Data  []domain.Entry `json:"data"`
			Count int            `json:"count"`
			Limit int            `json:"limit"`
		}
		decode(t, rec, &body)
		require.Len(t, body.Data, 1)
		assert.Equal(t, "3", body.Data[0].ID)
		assert.Equal(t, 1, body.Limit)
	})

	t.Run("invalid kind", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events?kind=bogus", nil))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("since filters older entries", func(t *testing.T) {
		rec := httptest.NewRecorder()
		since := base.Add(time.Second).Format(time.RFC3339Nano)
		h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events?since="+since, nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Count int `json:"count"`
		}
		decode(t, rec, &body)
		assert.Equal(t, 2, body.Count)
	})

	t.Run("malformed since", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events?since=yesterday", nil))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("limit capped", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events?limit=100000", nil))
		var body struct {
			Count int `json:"count"`
			Limit int `json:"limit"`
		}
		decode(t, rec, &body)
		assert.Equal(t, 500, body.Limit)
		assert.Equal(t, 3, body.Count)
	})

	t.Run("repository failure", func(t *testing.T) {
		broken := repository.NewMemoryEventRepository(1)
		broken.ListErr = errors.New("unavailable")
		rec := httptest.NewRecorder()
		handler.NewEventsHandler(broken, zap.NewNop()).List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestActuateDoor(t *testing.T) {
	door := &fakeDoor{}
	h := handler.NewControlHandler(door, fakeMotion{}, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ActuateDoor(rec, httptest.NewRequest(http.MethodPost, "/api/v1/door/actuate", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, door.calls)

	door.err = domain.ErrActuationCanceled
	rec = httptest.NewRecorder()
	h.ActuateDoor(rec, httptest.NewRequest(http.MethodPost, "/api/v1/door/actuate", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	door.err = errors.New("gpio write failed")
	rec = httptest.NewRecorder()
	h.ActuateDoor(rec, httptest.NewRequest(http.MethodPost, "/api/v1/door/actuate", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSimulateMotion(t *testing.T) {
	rec := httptest.NewRecorder()
	handler.NewControlHandler(&fakeDoor{}, fakeMotion{}, zap.NewNop()).
		SimulateMotion(rec, httptest.NewRequest(http.MethodPost, "/api/v1/motion/simulate", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	handler.NewControlHandler(&fakeDoor{}, fakeMotion{err: domain.ErrQueueFull}, zap.NewNop()).
		SimulateMotion(rec, httptest.NewRequest(http.MethodPost, "/api/v1/motion/simulate", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	handler.NewControlHandler(&fakeDoor{}, fakeMotion{err: domain.ErrCaptureBusy}, zap.NewNop()).
		SimulateMotion(rec, httptest.NewRequest(http.MethodPost, "/api/v1/motion/simulate", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
