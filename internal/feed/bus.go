package feed

import (
	"context"
	"time"

	"github.com/sentra-systems/sentra/internal/messaging"
	"github.com/sentra-systems/sentra/internal/models"
)

// DecisionEnvelope is the JSON shape published on the message bus for
// each finished decision.
type DecisionEnvelope struct {
	EventID           string    `json:"event_id"`
	Timestamp         time.Time `json:"timestamp"`
	SourceIP          string    `json:"source_ip"`
	DestIP            string    `json:"dest_ip,omitempty"`
	Port              int       `json:"port"`
	Protocol          string    `json:"protocol"`
	RiskScore         float64   `json:"risk_score"`
	AttackType        string    `json:"attack_type"`
	AccessDecision    string    `json:"access_decision"`
	AutomatedResponse string    `json:"automated_response"`
	Confidence        float64   `json:"confidence"`
}

// BusFeed publishes decisions on the message bus so enforcement points
// and audit consumers receive them without polling the feed file.
type BusFeed struct {
	pub     messaging.Publisher
	subject string
}

// NewBusFeed wraps a publisher. An empty subject uses the default
// decisions subject.
func NewBusFeed(pub messaging.Publisher, subject string) *BusFeed {
	if subject == "" {
		subject = messaging.SubjectDecisionsCreated
	}
	return &BusFeed{pub: pub, subject: subject}
}

// Publish serializes the decision and publishes it.
func (b *BusFeed) Publish(ctx context.Context, scored models.ScoredEvent, dec models.Decision) error {
	env := DecisionEnvelope{
		EventID:           dec.EventID,
		Timestamp:         scored.Timestamp.UTC(),
		SourceIP:          scored.SourceIP,
		DestIP:            scored.DestIP,
		Port:              scored.Port,
		Protocol:          scored.Protocol,
		RiskScore:         dec.RiskScore,
		AttackType:        string(dec.AttackType),
		AccessDecision:    string(dec.AccessDecision),
		AutomatedResponse: dec.AutomatedResponse,
		Confidence:        scored.Confidence,
	}
	return b.pub.PublishJSON(ctx, b.subject, env)
}

// Close is a no-op; the underlying publisher is owned by the caller.
func (b *BusFeed) Close() error { return nil }

// AlertEnvelope is the JSON shape published on the alerts subject for each
// dispatch outcome, suppressed repeats included.
type AlertEnvelope struct {
	EventID         string                 `json:"event_id"`
	Fingerprint     string                 `json:"fingerprint"`
	SourceIP        string                 `json:"source_ip"`
	AttackType      string                 `json:"attack_type"`
	AccessDecision  string                 `json:"access_decision"`
	RiskScore       float64                `json:"risk_score"`
	Suppressed      bool                   `json:"suppressed"`
	OccurrenceCount int64                  `json:"occurrence_count"`
	Channels        []models.ChannelResult `json:"channels,omitempty"`
}

// NewAlertEnvelope flattens one dispatch outcome for audit consumers.
func NewAlertEnvelope(scored models.ScoredEvent, dec models.Decision, result *models.DispatchResult) AlertEnvelope {
	return AlertEnvelope{
		EventID:         dec.EventID,
		Fingerprint:     result.Fingerprint,
		SourceIP:        scored.SourceIP,
		AttackType:      string(dec.AttackType),
		AccessDecision:  string(dec.AccessDecision),
		RiskScore:       dec.RiskScore,
		Suppressed:      result.Suppressed,
		OccurrenceCount: result.OccurrenceCount,
		Channels:        result.Channels,
	}
}
