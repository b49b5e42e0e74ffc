package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/minoots/engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timerWithWebhook(url string) models.Timer {
	return models.Timer{
		ID: uuid.New(),
		Events: models.TimerEvents{
			OnExpire: &models.OnExpireEvent{WebhookURL: url, Message: "hi"},
		},
	}
}

func TestDispatch_NoWebhookConfigured(t *testing.T) {
	d := New(0)
	res := d.Dispatch(context.Background(), models.Timer{ID: uuid.New()})
	assert.True(t, res.Success)
	assert.Zero(t, res.StatusCode)
}

func TestDispatch_Success(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		buf := make([]byte, 4096)
		n, _ := r.Body.Read(buf)
		gotBody = buf[:n]
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := New(0)
	res := d.Dispatch(context.Background(), timerWithWebhook(srv.URL))
	require.True(t, res.Success)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(gotBody), "timer_expired")
}

func TestDispatch_NonTwoXXIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := New(0)
	res := d.Dispatch(context.Background(), timerWithWebhook(srv.URL))
	assert.False(t, res.Success)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Contains(t, res.Err, "500")
}

func TestDispatch_204IsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := New(0)
	res := d.Dispatch(context.Background(), timerWithWebhook(srv.URL))
	assert.True(t, res.Success)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
}

func TestDispatch_TransportErrorIsFailure(t *testing.T) {
	d := New(0)
	res := d.Dispatch(context.Background(), timerWithWebhook("http://127.0.0.1:1"))
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Err)
}
