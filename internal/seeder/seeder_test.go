package seeder

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentra-systems/sentra/internal/models"
	"github.com/sentra-systems/sentra/internal/normalizer"
	"github.com/sentra-systems/sentra/internal/scorer"
)

func generate(t *testing.T, opts Options) [][]string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, New(opts).WriteDataset(&buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteDataset_HeaderAndCount(t *testing.T) {
	rows := generate(t, Options{Count: 50, Seed: 1})

	require.Len(t, rows, 51)
	assert.Equal(t, datasetHeader, rows[0])
}

func TestWriteDataset_Reproducible(t *testing.T) {
	opts := Options{Count: 100, AttackRatio: 0.5, Seed: 42, Start: time.Unix(1700000000, 0).UTC()}

	first := generate(t, opts)
	second := generate(t, opts)
	assert.Equal(t, first, second)
}

func TestWriteDataset_LabelsMatchClassifier(t *testing.T) {
	// Every generated attack row must classify back to its ground truth
	// label; the generator and the classifier describe the same traffic.
	rows := generate(t, Options{Count: 400, AttackRatio: 0.6, Seed: 7})

	header := rows[0]
	var norm normalizer.DatasetNormalizer

	labelFor := map[Profile]models.AttackType{
		ProfileBenign:       models.AttackBenign,
		ProfilePortScan:     models.AttackPortScan,
		ProfileDDoS:         models.AttackDDoS,
		ProfileBruteForce:   models.AttackBruteForce,
		ProfileSQLInjection: models.AttackSQLInjection,
		ProfileRansomware:   models.AttackRansomware,
	}

	attackRows := 0
	for _, row := range rows[1:] {
		fields := make(map[string]string, len(header))
		for i, name := range header {
			if row[i] != "" {
				fields[name] = row[i]
			}
		}
		truth := Profile(fields["ground_truth_label"])
		delete(fields, "ground_truth_label")

		event, err := norm.Normalize(normalizer.Record{Source: normalizer.SourceDataset, Fields: fields})
		require.NoError(t, err)

		want, ok := labelFor[truth]
		require.True(t, ok, "unexpected ground truth %q", truth)
		assert.Equal(t, want, scorer.Classify(event), "profile %s", truth)

		if truth != ProfileBenign {
			attackRows++
		}
	}

	// With ratio 0.6 over 400 rows the attack share lands near 240.
	assert.Greater(t, attackRows, 150)
	assert.Less(t, attackRows, 330)
}

func TestWriteDataset_TimestampsInsideWindow(t *testing.T) {
	start := time.Unix(1700000000, 0).UTC()
	rows := generate(t, Options{Count: 50, Seed: 3, Start: start, TimeSpread: time.Hour})

	for _, row := range rows[1:] {
		ts, err := time.Parse(time.RFC3339, row[0])
		require.NoError(t, err)
		assert.False(t, ts.After(start))
		assert.False(t, ts.Before(start.Add(-time.Hour)))
	}
}
