// Package repository persists access decisions and alert history for
// audit and analyst review.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sentra-systems/sentra/internal/models"
)

var ErrDecisionNotFound = errors.New("decision not found")

// ListDecisionsRequest filters the decision archive.
type ListDecisionsRequest struct {
	AccessDecision models.AccessDecision
	AttackType     models.AttackType
	SourceIP       string
	Since          time.Time
	Page           int
	Limit          int
}

// DecisionRecord is one archived decision joined with its event context.
type DecisionRecord struct {
	EventID           string                `json:"event_id"`
	Timestamp         time.Time             `json:"timestamp"`
	SourceIP          string                `json:"source_ip"`
	DestIP            string                `json:"dest_ip,omitempty"`
	Port              int                   `json:"port"`
	Protocol          string                `json:"protocol"`
	RiskScore         float64               `json:"risk_score"`
	AttackType        models.AttackType     `json:"attack_type"`
	AccessDecision    models.AccessDecision `json:"access_decision"`
	AutomatedResponse string                `json:"automated_response"`
	DecidedAt         time.Time             `json:"decided_at"`
	CreatedAt         time.Time             `json:"created_at"`
}

// Repository defines the persistence interface for the decision archive.
type Repository interface {
	// SaveDecision archives one decision. Saving the same event ID twice
	// overwrites the previous row; decisions are idempotent per event.
	SaveDecision(ctx context.Context, scored models.ScoredEvent, dec models.Decision) error

	// GetDecision returns the archived decision for an event ID.
	GetDecision(ctx context.Context, eventID string) (*DecisionRecord, error)

	// ListDecisions returns a filtered, paginated page of the archive and
	// the total match count.
	ListDecisions(ctx context.Context, req *ListDecisionsRequest) ([]*DecisionRecord, int, error)

	// SaveAlert upserts dispatch history for an alert fingerprint.
	SaveAlert(ctx context.Context, rec *models.AlertRecord) error

	// DecisionCounts returns how many archived decisions exist per
	// access decision outcome.
	DecisionCounts(ctx context.Context) (map[models.AccessDecision]int, error)

	// Close releases the underlying connections.
	Close() error
}
