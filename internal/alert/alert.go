package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nanosprinkle/tipbot/pkg/logger"
)

// Type categorizes the kind of alert.
type Type string

const (
	// TypeReconcileGap means a transfer was broadcast but never recorded.
	// These need an operator to reconcile the ledger by hand.
	TypeReconcileGap Type = "RECONCILE_GAP"
	TypeRefundFail   Type = "REFUND_FAILURE"
	TypeWalletDown   Type = "WALLET_DOWN"
)

// Alert represents a single operator alert.
type Alert struct {
	Type    Type
	Title   string
	Message string
	Fields  map[string]string
}

// Alerter is the interface for sending operator alerts.
type Alerter interface {
	Send(ctx context.Context, alert Alert) error
}

// NewAlerter returns a webhook alerter when a URL is configured and a
// no-op alerter otherwise.
func NewAlerter(webhookURL string) Alerter {
	if webhookURL == "" {
		logger.Warn("No alert webhook configured, operator alerts will only be logged")
		return &NoopAlerter{}
	}
	return NewWebhookAlerter(webhookURL)
}

// WebhookAlerter sends alerts to a generic HTTP webhook.
type WebhookAlerter struct {
	url    string
	client *http.Client
}

// NewWebhookAlerter creates a generic webhook alerter.
func NewWebhookAlerter(url string) *WebhookAlerter {
	return &WebhookAlerter{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the alert as JSON to the webhook endpoint.
func (w *WebhookAlerter) Send(ctx context.Context, alert Alert) error {
	payload := map[string]any{
		"type":    string(alert.Type),
		"title":   alert.Title,
		"message": alert.Message,
		"fields":  alert.Fields,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// NoopAlerter does nothing. Used when no alert webhook is configured.
type NoopAlerter struct{}

func (n *NoopAlerter) Send(_ context.Context, _ Alert) error { return nil }
