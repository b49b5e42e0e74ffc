// Package webhook fires a timer's on_expire webhook and reports the
// outcome the sweeper needs to drive retry/replay decisions. Adapted
// from the executor this engine replaces: build a request, run it
// through an *http.Client, cap the response body, classify status.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minoots/engine/internal/models"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout is used when a Dispatcher is constructed with a zero
// Timeout.
const DefaultTimeout = 10 * time.Second

// maxResponseBytes caps how much of a webhook response body is read.
const maxResponseBytes = 1 << 20

// Result describes a single webhook delivery attempt.
type Result struct {
	Success    bool
	StatusCode int
	LatencyMs  int64
	Err        string
}

// Dispatcher fires on_expire webhooks over HTTP.
type Dispatcher struct {
	client *http.Client
}

// New returns a Dispatcher. A zero timeout selects DefaultTimeout.
func New(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{client: &http.Client{Timeout: timeout}}
}

// payload is the JSON body posted to a timer's webhook.
type payload struct {
	Event   string       `json:"event"`
	Timer   models.Timer `json:"timer"`
	Message string       `json:"message,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
}

// Dispatch fires t's configured on_expire webhook, if any. A timer
// with no webhook configured is reported as a no-op success so callers
// don't special-case it.
func (d *Dispatcher) Dispatch(ctx context.Context, t models.Timer) Result {
	event := t.Events.OnExpire
	if event == nil || event.WebhookURL == "" {
		return Result{Success: true}
	}

	start := time.Now()
	body, err := json.Marshal(payload{
		Event:   "timer_expired",
		Timer:   t,
		Message: event.Message,
		Data:    event.Data,
	})
	if err != nil {
		return Result{Success: false, Err: fmt.Sprintf("failed to encode webhook payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, event.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return Result{Success: false, Err: fmt.Sprintf("failed to build webhook request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Minoots-Engine/1.0")
	req.Header.Set("X-Timer-ID", t.ID.String())

	resp, err := d.client.Do(req)
	if err != nil {
		return Result{Success: false, LatencyMs: time.Since(start).Milliseconds(), Err: err.Error()}
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes)); err != nil {
		log.Warn().Err(err).Str("timerId", t.ID.String()).Msg("failed to drain webhook response body")
	}

	latency := time.Since(start).Milliseconds()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{
			Success:    false,
			StatusCode: resp.StatusCode,
			LatencyMs:  latency,
			Err:        fmt.Sprintf("Webhook HTTP %d", resp.StatusCode),
		}
	}
	return Result{Success: true, StatusCode: resp.StatusCode, LatencyMs: latency}
}
