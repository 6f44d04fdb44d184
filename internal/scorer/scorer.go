// Package scorer assigns anomaly risk scores and attack-type labels to
// security events. Two backends exist: a model-backed scorer loaded from a
// serialized artifact, and a deterministic heuristic fallback. The backend is
// selected once at startup and fixed for the process lifetime.
package scorer

import (
	"github.com/sentra-systems/sentra/internal/logging"
	"github.com/sentra-systems/sentra/internal/models"
)

// Backend identifies which scoring implementation is active.
type Backend string

const (
	BackendModel     Backend = "model"
	BackendHeuristic Backend = "heuristic"
)

// Status reports the active backend so operators can tell learned scores
// from heuristic ones.
type Status struct {
	Backend   Backend `json:"backend"`
	ModelPath string  `json:"model_path,omitempty"`
	LoadError string  `json:"load_error,omitempty"`
}

// Scorer scores one event. Implementations are pure per event and never
// block beyond bounded local computation.
type Scorer interface {
	Score(event models.SecurityEvent) models.ScoredEvent
	Status() Status
}

// New selects the scoring backend. A loadable model artifact wins; a missing
// or corrupt artifact falls back to the heuristic scorer, logged once here
// rather than on every call site.
func New(modelPath string, log *logging.Logger) Scorer {
	if modelPath == "" {
		log.Info("no model artifact configured, using heuristic scorer")
		return &heuristicScorer{}
	}

	model, err := LoadModel(modelPath)
	if err != nil {
		log.Warn("model artifact unavailable, falling back to heuristic scorer",
			"model_path", modelPath, logging.Error(err))
		return &heuristicScorer{loadError: err.Error()}
	}

	log.Info("model scorer active", "model_path", modelPath, "model_version", model.Version)
	return &modelScorer{model: model, path: modelPath}
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
