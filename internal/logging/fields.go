package logging

import "log/slog"

// Common field names for consistent logging across the pipeline.
const (
	FieldComponent   = "component"
	FieldEventID     = "event_id"
	FieldSourceIP    = "source_ip"
	FieldDestIP      = "dest_ip"
	FieldAttackType  = "attack_type"
	FieldDecision    = "decision"
	FieldRiskScore   = "risk_score"
	FieldChannel     = "channel"
	FieldFingerprint = "fingerprint"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
)

// Component returns a slog attribute naming the pipeline component.
func Component(name string) slog.Attr {
	return slog.String(FieldComponent, name)
}

// EventID returns a slog attribute for an event ID.
func EventID(id string) slog.Attr {
	return slog.String(FieldEventID, id)
}

// SourceIP returns a slog attribute for the event source address.
func SourceIP(ip string) slog.Attr {
	return slog.String(FieldSourceIP, ip)
}

// AttackType returns a slog attribute for the attack classification.
func AttackType(t string) slog.Attr {
	return slog.String(FieldAttackType, t)
}

// Decision returns a slog attribute for the access decision.
func Decision(d string) slog.Attr {
	return slog.String(FieldDecision, d)
}

// RiskScore returns a slog attribute for the risk score.
func RiskScore(score float64) slog.Attr {
	return slog.Float64(FieldRiskScore, score)
}

// Channel returns a slog attribute for a notification channel name.
func Channel(name string) slog.Attr {
	return slog.String(FieldChannel, name)
}

// Fingerprint returns a slog attribute for an alert fingerprint.
func Fingerprint(fp string) slog.Attr {
	return slog.String(FieldFingerprint, fp)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
