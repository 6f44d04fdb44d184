package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sentra-systems/sentra/internal/models"
)

// SlackChannel sends alert notifications to Slack via an incoming webhook.
type SlackChannel struct {
	WebhookURL string
	client     *http.Client
}

// NewSlackChannel creates a Slack notification channel.
func NewSlackChannel(webhookURL string, timeout time.Duration) *SlackChannel {
	return &SlackChannel{
		WebhookURL: webhookURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *SlackChannel) Type() string {
	return "slack"
}

func (s *SlackChannel) Send(ctx context.Context, alert *Alert) error {
	payload := map[string]interface{}{
		"text": fmt.Sprintf("🚨 %s: %s from %s", alert.Decision, alert.AttackType, alert.SourceIP),
		"attachments": []map[string]interface{}{
			{
				"color": s.decisionColor(alert.Decision),
				"fields": []map[string]interface{}{
					{"title": "Source", "value": alert.SourceIP, "short": true},
					{"title": "Attack Type", "value": string(alert.AttackType), "short": true},
					{"title": "Risk Score", "value": fmt.Sprintf("%.1f", alert.RiskScore), "short": true},
					{"title": "Occurrences", "value": fmt.Sprintf("%d", alert.Occurrence), "short": true},
					{"title": "Automated Response", "value": alert.Response, "short": false},
				},
				"footer": "Sentra SOC",
				"ts":     time.Now().Unix(),
			},
		},
	}

	if alert.Rationale != "" {
		payload["attachments"].([]map[string]interface{})[0]["text"] = alert.Rationale
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}

	return nil
}

func (s *SlackChannel) decisionColor(d models.AccessDecision) string {
	switch d {
	case models.AccessBlock:
		return "#8B0000"
	case models.AccessRestrict:
		return "#FFA500"
	default:
		return "#808080"
	}
}
