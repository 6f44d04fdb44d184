package scorer

import (
	"math"

	"github.com/sentra-systems/sentra/internal/models"
)

// heuristicScorer is the deterministic fallback used when no model artifact
// is available. Rule-based thresholds on the canonical feature vector.
type heuristicScorer struct {
	loadError string
}

func (h *heuristicScorer) Status() Status {
	return Status{Backend: BackendHeuristic, LoadError: h.loadError}
}

func (h *heuristicScorer) Score(e models.SecurityEvent) models.ScoredEvent {
	score := 0.0

	// Each rule contributes a bounded amount; the sum is clamped to [0,100].
	if syn := e.Feature(models.FeatSynCount); syn > 0 {
		score += 25 * sigmoid(syn/100)
	}
	if ports := e.Feature(models.FeatDistinctPorts); ports > 0 {
		score += 25 * sigmoid(ports/10)
	}
	if rate := e.Feature(models.FeatRatePPS); rate > 0 {
		score += 25 * sigmoid(rate/50)
	}
	if logins := e.Feature(models.FeatFailedLogins); logins > 0 {
		score += 20 * sigmoid(logins/3)
	}
	if entropy := e.Feature(models.FeatPayloadEntropy); entropy > 6 {
		score += 5 * (entropy - 6)
	}

	label := Classify(e)
	score = applyFloor(clampScore(score), label)

	return models.ScoredEvent{
		SecurityEvent: e,
		RiskScore:     score,
		AttackType:    label,
		// Fixed modest confidence: rule hits are either-or, there is no
		// learned margin to report.
		Confidence: 0.6,
	}
}

// sigmoid maps a non-negative ratio into (0,1), saturating near 1 once the
// input is a few multiples of its threshold.
func sigmoid(x float64) float64 {
	return 2/(1+math.Exp(-x)) - 1
}
