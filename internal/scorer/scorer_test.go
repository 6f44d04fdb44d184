package scorer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentra-systems/sentra/internal/logging"
	"github.com/sentra-systems/sentra/internal/models"
)

func eventWithFeatures(f map[int]float64) models.SecurityEvent {
	vec := make([]float64, models.FeatureVectorLen)
	for idx, v := range f {
		vec[idx] = v
	}
	return models.SecurityEvent{
		ID:            "evt-1",
		SourceIP:      "10.0.0.1",
		DestIP:        "10.0.0.2",
		Port:          443,
		Protocol:      "tcp",
		FeatureVector: vec,
	}
}

func TestHeuristicScoreBounds(t *testing.T) {
	s := &heuristicScorer{}

	cases := []models.SecurityEvent{
		eventWithFeatures(nil),
		eventWithFeatures(map[int]float64{models.FeatSynCount: 1e9, models.FeatRatePPS: 1e9}),
		eventWithFeatures(map[int]float64{models.FeatPayloadEntropy: 8}),
		{ID: "short-vector", FeatureVector: []float64{1}},
	}

	for _, e := range cases {
		scored := s.Score(e)
		assert.GreaterOrEqual(t, scored.RiskScore, 0.0)
		assert.LessOrEqual(t, scored.RiskScore, 100.0)
		assert.NotEmpty(t, scored.AttackType)
	}
}

func TestHeuristicDeterministic(t *testing.T) {
	s := &heuristicScorer{}
	e := eventWithFeatures(map[int]float64{models.FeatSynCount: 400, models.FeatRatePPS: 120})

	first := s.Score(e)
	second := s.Score(e)
	assert.Equal(t, first, second)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		event models.SecurityEvent
		want  models.AttackType
	}{
		{
			"brute force",
			eventWithFeatures(map[int]float64{models.FeatFailedLogins: 10}),
			models.AttackBruteForce,
		},
		{
			"port scan",
			eventWithFeatures(map[int]float64{models.FeatDistinctPorts: 30}),
			models.AttackPortScan,
		},
		{
			"ddos by rate",
			eventWithFeatures(map[int]float64{models.FeatRatePPS: 500}),
			models.AttackDDoS,
		},
		{
			"benign",
			eventWithFeatures(nil),
			models.AttackBenign,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.event))
		})
	}
}

func TestClassifySQLInjectionFromPayload(t *testing.T) {
	e := eventWithFeatures(nil)
	e.RawAttributes = map[string]string{"payload": "id=1 UNION SELECT password FROM users"}
	assert.Equal(t, models.AttackSQLInjection, Classify(e))
}

func TestAttackLabelImpliesAlertableScore(t *testing.T) {
	// A labeled attack must never score below the default alert threshold.
	s := &heuristicScorer{}
	e := eventWithFeatures(map[int]float64{models.FeatFailedLogins: 6})

	scored := s.Score(e)
	assert.Equal(t, models.AttackBruteForce, scored.AttackType)
	assert.GreaterOrEqual(t, scored.RiskScore, 70.0)
}

func TestNewFallsBackWithoutArtifact(t *testing.T) {
	log := logging.Default()

	s := New(filepath.Join(t.TempDir(), "missing.yaml"), log)
	status := s.Status()
	assert.Equal(t, BackendHeuristic, status.Backend)
	assert.NotEmpty(t, status.LoadError)

	// Fallback still scores every input without raising.
	scored := s.Score(eventWithFeatures(map[int]float64{models.FeatRatePPS: 10}))
	assert.GreaterOrEqual(t, scored.RiskScore, 0.0)
	assert.LessOrEqual(t, scored.RiskScore, 100.0)
}

func writeModel(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewLoadsModelArtifact(t *testing.T) {
	path := writeModel(t, `
version: 3
bias: -2.0
weights: [0.1, 0.02, 0.001, 0.05, 0.2, 0.5, 0.3, 0.04]
steepness: 0.5
`)
	s := New(path, logging.Default())

	status := s.Status()
	assert.Equal(t, BackendModel, status.Backend)
	assert.Equal(t, path, status.ModelPath)

	scored := s.Score(eventWithFeatures(map[int]float64{models.FeatSynCount: 50}))
	assert.GreaterOrEqual(t, scored.RiskScore, 0.0)
	assert.LessOrEqual(t, scored.RiskScore, 100.0)
}

func TestLoadModelRejectsBadArtifacts(t *testing.T) {
	t.Run("corrupt yaml", func(t *testing.T) {
		path := writeModel(t, "{{{not yaml")
		_, err := LoadModel(path)
		assert.ErrorIs(t, err, ErrModelUnavailable)
	})

	t.Run("wrong weight count", func(t *testing.T) {
		path := writeModel(t, "version: 1\nbias: 0\nweights: [1, 2]\n")
		_, err := LoadModel(path)
		assert.ErrorIs(t, err, ErrModelUnavailable)
	})
}

func TestScoreBatchMatchesSingleScoring(t *testing.T) {
	s := &heuristicScorer{}

	events := make([]models.SecurityEvent, 100)
	for i := range events {
		events[i] = eventWithFeatures(map[int]float64{
			models.FeatSynCount:      float64(i * 7),
			models.FeatDistinctPorts: float64(i % 25),
			models.FeatFailedLogins:  float64(i % 9),
		})
		events[i].ID = events[i].ID + "-" + string(rune('a'+i%26))
	}

	batch := ScoreBatch(context.Background(), s, events, 8)
	require.Len(t, batch, len(events))

	for i, e := range events {
		single := s.Score(e)
		assert.Equal(t, single, batch[i], "row %d must score identically in batch and single mode", i)
		assert.Equal(t, e.ID, batch[i].ID)
	}
}

func TestScoreBatchZeroWorkers(t *testing.T) {
	s := &heuristicScorer{}
	events := []models.SecurityEvent{eventWithFeatures(nil)}

	out := ScoreBatch(context.Background(), s, events, 0)
	require.Len(t, out, 1)
}
