// Package notification defines the alert delivery channels. Every channel
// implements one capability, Send; the dispatcher treats them polymorphically
// and owns retry, timeout, and isolation.
package notification

import (
	"context"

	"github.com/sentra-systems/sentra/internal/models"
)

// Alert is the rendered notification payload handed to channels.
type Alert struct {
	EventID     string                `json:"event_id"`
	Fingerprint string                `json:"fingerprint"`
	SourceIP    string                `json:"source_ip"`
	DestIP      string                `json:"dest_ip,omitempty"`
	AttackType  models.AttackType     `json:"attack_type"`
	Decision    models.AccessDecision `json:"access_decision"`
	RiskScore   float64               `json:"risk_score"`
	Response    string                `json:"automated_response"`
	Rationale   string                `json:"rationale,omitempty"`
	Occurrence  int64                 `json:"occurrence_count"`
}

// Channel delivers one alert. Implementations must honor ctx cancellation;
// the dispatcher bounds every call with a timeout.
type Channel interface {
	Send(ctx context.Context, alert *Alert) error
	Type() string
}
