package alert_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyhub/garage-controller/internal/alert"
)

func TestWebhookNotifier_Send(t *testing.T) {
	var got alert.Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := alert.NewWebhookNotifier(srv.URL, time.Second)
	err := n.Send(context.Background(), alert.Alert{Kind: alert.KindConnectionLost, Device: "garage-1", Detail: "lost"})
	require.NoError(t, err)
	assert.Equal(t, alert.KindConnectionLost, got.Kind)
	assert.Equal(t, "garage-1", got.Device)
}

func TestWebhookNotifier_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := alert.NewWebhookNotifier(srv.URL, time.Second)
	err := n.Send(context.Background(), alert.Alert{Kind: alert.KindMotionDropped})
	assert.ErrorContains(t, err, "502")
}
