package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// AccessDecision is the Zero-Trust outcome for a single event.
type AccessDecision string

const (
	AccessAllow    AccessDecision = "ALLOW"
	AccessRestrict AccessDecision = "RESTRICT"
	AccessBlock    AccessDecision = "BLOCK"
)

// Decision is the access outcome plus the automated response derived for one
// ScoredEvent. References the originating event by ID.
type Decision struct {
	EventID           string         `json:"event_id"`
	AccessDecision    AccessDecision `json:"access_decision"`
	AutomatedResponse string         `json:"automated_response"`
	RiskScore         float64        `json:"risk_score"`
	AttackType        AttackType     `json:"attack_type"`
	DecidedAt         time.Time      `json:"decided_at"`
}

// Fingerprint derives the dedup key grouping repeated alerts from the same
// source, attack type, and decision. Stable across processes.
func Fingerprint(sourceIP string, attackType AttackType, decision AccessDecision) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s", sourceIP, attackType, decision)))
	return hex.EncodeToString(sum[:16])
}

// AlertRecord tracks dedup state for one fingerprint.
type AlertRecord struct {
	Fingerprint      string         `json:"fingerprint"`
	SourceIP         string         `json:"source_ip"`
	AttackType       AttackType     `json:"attack_type"`
	Decision         AccessDecision `json:"decision"`
	FirstSeen        time.Time      `json:"first_seen"`
	LastSeen         time.Time      `json:"last_seen"`
	OccurrenceCount  int64          `json:"occurrence_count"`
	ChannelsNotified []string       `json:"channels_notified,omitempty"`
	SuppressedUntil  time.Time      `json:"suppressed_until"`
}

// Suppressed reports whether re-notification is still suppressed at now.
func (r *AlertRecord) Suppressed(now time.Time) bool {
	return now.Before(r.SuppressedUntil)
}

// ChannelState tracks one channel delivery through its lifecycle.
type ChannelState string

const (
	ChannelPending ChannelState = "pending"
	ChannelSent    ChannelState = "sent"
	ChannelFailed  ChannelState = "failed"
)

// ChannelResult is the final delivery outcome for one channel.
type ChannelResult struct {
	Channel  string       `json:"channel"`
	State    ChannelState `json:"state"`
	Attempts int          `json:"attempts"`
	Error    string       `json:"error,omitempty"`
}

// DispatchResult is returned by the alert dispatcher for every eligible
// decision, including suppressed repeats.
type DispatchResult struct {
	Fingerprint     string          `json:"fingerprint"`
	Suppressed      bool            `json:"suppressed"`
	OccurrenceCount int64           `json:"occurrence_count"`
	Channels        []ChannelResult `json:"channels,omitempty"`
}

// Delivered reports whether at least one channel accepted the notification.
func (d *DispatchResult) Delivered() bool {
	for _, c := range d.Channels {
		if c.State == ChannelSent {
			return true
		}
	}
	return false
}
