package scorer

import (
	"strings"

	"github.com/sentra-systems/sentra/internal/models"
)

// labelFloor keeps attack-labeled events from scoring below the point where
// anyone would look at them. An event classified as an attack never scores
// under its floor regardless of backend.
var labelFloor = map[models.AttackType]float64{
	models.AttackPortScan:       70,
	models.AttackDDoS:           80,
	models.AttackBruteForce:     75,
	models.AttackSQLInjection:   85,
	models.AttackRansomware:     92,
	models.AttackMalwareC2:      88,
	models.AttackExposedService: 70,
}

var sqlInjectionMarkers = []string{
	"union select",
	"or 1=1",
	"'; drop",
	"sleep(",
	"benchmark(",
	"information_schema",
}

// Classify labels an event from its feature vector and raw attributes.
// Deterministic: the same event always gets the same label. Both backends
// share this so a model reload can never flip labels.
func Classify(e models.SecurityEvent) models.AttackType {
	if payload, ok := e.RawAttributes["payload"]; ok {
		lower := strings.ToLower(payload)
		for _, marker := range sqlInjectionMarkers {
			if strings.Contains(lower, marker) {
				return models.AttackSQLInjection
			}
		}
	}

	failedLogins := e.Feature(models.FeatFailedLogins)
	distinctPorts := e.Feature(models.FeatDistinctPorts)
	ratePPS := e.Feature(models.FeatRatePPS)
	synCount := e.Feature(models.FeatSynCount)
	entropy := e.Feature(models.FeatPayloadEntropy)
	byteCount := e.Feature(models.FeatByteCount)
	duration := e.Feature(models.FeatDuration)

	switch {
	case failedLogins >= 6:
		return models.AttackBruteForce
	case ratePPS >= 100 || synCount >= 200:
		return models.AttackDDoS
	case distinctPorts >= 15:
		return models.AttackPortScan
	case entropy >= 7.5 && byteCount >= 1<<20:
		return models.AttackRansomware
	case entropy >= 6.5 && ratePPS > 0 && ratePPS < 1 && duration >= 300:
		return models.AttackMalwareC2
	case e.RawAttributes["exposed_service"] == "true":
		return models.AttackExposedService
	}

	// Low-signal traffic stays benign; anything with mild anomaly but no
	// matching pattern is UNKNOWN so the score alone drives the decision.
	if entropy >= 6 || failedLogins >= 3 || distinctPorts >= 8 {
		return models.AttackUnknown
	}
	return models.AttackBenign
}

// applyFloor lifts the score to the label's floor so labeling and scoring
// stay consistent.
func applyFloor(score float64, label models.AttackType) float64 {
	if floor, ok := labelFloor[label]; ok && score < floor {
		return floor
	}
	return score
}
