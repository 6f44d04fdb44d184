package models

import "time"

// Canonical feature vector layout. Every SecurityEvent carries exactly
// FeatureVectorLen ordered values; scorers and detectors index by these
// positions and never reorder them.
const (
	FeatDuration = iota
	FeatPacketCount
	FeatByteCount
	FeatSynCount
	FeatDistinctPorts
	FeatFailedLogins
	FeatPayloadEntropy
	FeatRatePPS

	FeatureVectorLen = 8
)

// AttackType classifies an event. The set is closed; anything a scorer
// cannot place lands on AttackUnknown.
type AttackType string

const (
	AttackBenign         AttackType = "BENIGN"
	AttackUnknown        AttackType = "UNKNOWN"
	AttackPortScan       AttackType = "PORT_SCAN"
	AttackDDoS           AttackType = "DDOS"
	AttackBruteForce     AttackType = "BRUTE_FORCE"
	AttackSQLInjection   AttackType = "SQL_INJECTION"
	AttackRansomware     AttackType = "RANSOMWARE"
	AttackMalwareC2      AttackType = "MALWARE_C2"
	AttackExposedService AttackType = "EXPOSED_SERVICE"
)

// SecurityEvent is the canonical event every source normalizes into.
// Immutable once created; stages hand it off by value.
type SecurityEvent struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	SourceIP      string            `json:"source_ip"`
	DestIP        string            `json:"dest_ip"`
	Port          int               `json:"port"`
	Protocol      string            `json:"protocol"`
	FeatureVector []float64         `json:"feature_vector"`
	RawAttributes map[string]string `json:"raw_attributes,omitempty"`
}

// Feature returns the feature at position idx, or 0 when the vector is
// shorter than expected. Scorers rely on this instead of raw indexing so a
// truncated vector degrades instead of panicking.
func (e SecurityEvent) Feature(idx int) float64 {
	if idx < 0 || idx >= len(e.FeatureVector) {
		return 0
	}
	return e.FeatureVector[idx]
}

// ScoredEvent is a SecurityEvent plus the scorer's verdict. Created once by
// the risk scorer and never mutated afterward.
type ScoredEvent struct {
	SecurityEvent

	RiskScore  float64    `json:"risk_score"` // always within [0,100]
	AttackType AttackType `json:"attack_type"`
	Confidence float64    `json:"scorer_confidence"`
}
