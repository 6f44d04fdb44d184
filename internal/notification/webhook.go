package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookChannel sends alert notifications via HTTP POST.
type WebhookChannel struct {
	URL    string
	client *http.Client
}

// NewWebhookChannel creates a webhook notification channel.
func NewWebhookChannel(url string, timeout time.Duration) *WebhookChannel {
	return &WebhookChannel{
		URL: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (w *WebhookChannel) Type() string {
	return "webhook"
}

func (w *WebhookChannel) Send(ctx context.Context, alert *Alert) error {
	payload := map[string]interface{}{
		"event_id":           alert.EventID,
		"fingerprint":        alert.Fingerprint,
		"source_ip":          alert.SourceIP,
		"dest_ip":            alert.DestIP,
		"attack_type":        alert.AttackType,
		"access_decision":    alert.Decision,
		"risk_score":         alert.RiskScore,
		"automated_response": alert.Response,
		"occurrence_count":   alert.Occurrence,
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
	}
	if alert.Rationale != "" {
		payload["rationale"] = alert.Rationale
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Sentra/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
