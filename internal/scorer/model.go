package scorer

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sentra-systems/sentra/internal/models"
)

// ErrModelUnavailable wraps artifact load failures so callers can detect the
// heuristic fallback condition.
var ErrModelUnavailable = errors.New("model artifact unavailable")

// Model is the serialized scoring artifact: a calibrated linear model over
// the canonical feature vector. Exported by the offline training job.
type Model struct {
	Version int       `yaml:"version"`
	Bias    float64   `yaml:"bias"`
	Weights []float64 `yaml:"weights"`
	// Scale normalizes each feature before applying weights. A zero scale
	// entry disables the feature.
	Scale []float64 `yaml:"scale"`
	// Steepness controls how the raw margin maps onto [0,100].
	Steepness float64 `yaml:"steepness"`
}

// LoadModel reads and validates a model artifact.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: decode artifact: %v", ErrModelUnavailable, err)
	}

	if len(m.Weights) != models.FeatureVectorLen {
		return nil, fmt.Errorf("%w: expected %d weights, got %d",
			ErrModelUnavailable, models.FeatureVectorLen, len(m.Weights))
	}
	if len(m.Scale) != 0 && len(m.Scale) != models.FeatureVectorLen {
		return nil, fmt.Errorf("%w: expected %d scale entries, got %d",
			ErrModelUnavailable, models.FeatureVectorLen, len(m.Scale))
	}
	if m.Steepness <= 0 {
		m.Steepness = 1
	}

	return &m, nil
}

// modelScorer scores events with a loaded artifact.
type modelScorer struct {
	model *Model
	path  string
}

func (s *modelScorer) Status() Status {
	return Status{Backend: BackendModel, ModelPath: s.path}
}

func (s *modelScorer) Score(e models.SecurityEvent) models.ScoredEvent {
	margin := s.model.Bias
	for i, w := range s.model.Weights {
		x := e.Feature(i)
		if len(s.model.Scale) == models.FeatureVectorLen {
			if s.model.Scale[i] == 0 {
				continue
			}
			x /= s.model.Scale[i]
		}
		margin += w * x
	}

	score := 100 * sigmoid(margin*s.model.Steepness)
	label := Classify(e)
	score = applyFloor(clampScore(score), label)

	// Confidence grows with distance from the decision surface.
	confidence := sigmoid(abs(margin) * s.model.Steepness)

	return models.ScoredEvent{
		SecurityEvent: e,
		RiskScore:     score,
		AttackType:    label,
		Confidence:    confidence,
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
