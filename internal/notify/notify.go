// Package notify delivers new match records to their sinks.
//
// Delivery is fire-and-forget from the engine's perspective: a sink that
// fails logs the failure and the engine never retries. The dedup store
// is durable before Notify is called, so at worst a crash costs a
// notification, never duplicates one.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rvashist/mailwatch/internal/display"
	"github.com/rvashist/mailwatch/internal/types"
)

// Notifier receives each new match record exactly once.
type Notifier interface {
	Notify(ctx context.Context, rec types.MatchRecord) error
}

// Terminal prints new matches to stdout.
type Terminal struct{}

// Notify renders the match for terminal display.
func (Terminal) Notify(_ context.Context, rec types.MatchRecord) error {
	display.MatchLine(rec)
	return nil
}

// Webhook POSTs each match record as JSON to a fixed URL.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook returns a webhook notifier for the given URL.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify posts the record. Non-2xx responses are failures.
func (w *Webhook) Notify(ctx context.Context, rec types.MatchRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode match record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}

// Multi fans a match out to several sinks, logging each failure and
// never aborting on one.
type Multi struct {
	sinks []Notifier
	log   *zap.Logger
}

// NewMulti combines sinks into one Notifier.
func NewMulti(log *zap.Logger, sinks ...Notifier) *Multi {
	return &Multi{sinks: sinks, log: log}
}

// Notify delivers to every sink. The returned error is always nil;
// failures are the sinks' concern and only get logged.
func (m *Multi) Notify(ctx context.Context, rec types.MatchRecord) error {
	for _, sink := range m.sinks {
		if err := sink.Notify(ctx, rec); err != nil {
			m.log.Warn("notification delivery failed",
				zap.String("message_id", rec.MessageID),
				zap.Error(err))
		}
	}
	return nil
}
