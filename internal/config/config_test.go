package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, float64(70), cfg.Thresholds.AlertThreshold)
	assert.Equal(t, float64(90), cfg.Thresholds.BlockThreshold)
	assert.True(t, cfg.Thresholds.AutoBlock)
	assert.Equal(t, 4, cfg.Analyzer.Workers)
	assert.Equal(t, 3, cfg.Dispatch.MaxAttempts)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentra.yaml")
	content := []byte(`
thresholds:
  alert_threshold: 60
  block_threshold: 85
  auto_block: false
analyzer:
  workers: 2
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, float64(60), cfg.Thresholds.AlertThreshold)
	assert.Equal(t, float64(85), cfg.Thresholds.BlockThreshold)
	assert.False(t, cfg.Thresholds.AutoBlock)
	assert.Equal(t, 2, cfg.Analyzer.Workers)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("SENTRA_THRESHOLDS_ALERT_THRESHOLD", "50")
	t.Setenv("SENTRA_SERVER_PORT", "9100")
	t.Setenv("SENTRA_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, float64(50), cfg.Thresholds.AlertThreshold)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentra.yaml")
	content := []byte(`
thresholds:
  alert_threshold: 60
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	t.Setenv("SENTRA_THRESHOLDS_ALERT_THRESHOLD", "40")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, float64(40), cfg.Thresholds.AlertThreshold)
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentra.yaml")
	content := []byte(`
thresholds:
  alert_threshold: 95
  block_threshold: 80
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidThresholds)
}

func TestThresholdsValidate(t *testing.T) {
	tests := []struct {
		name    string
		t       Thresholds
		wantErr bool
	}{
		{"valid", Thresholds{AlertThreshold: 70, BlockThreshold: 90}, false},
		{"equal", Thresholds{AlertThreshold: 90, BlockThreshold: 90}, false},
		{"inverted", Thresholds{AlertThreshold: 91, BlockThreshold: 90}, true},
		{"alert negative", Thresholds{AlertThreshold: -1, BlockThreshold: 90}, true},
		{"block over 100", Thresholds{AlertThreshold: 70, BlockThreshold: 101}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.t.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestThresholdStoreUpdate(t *testing.T) {
	store, err := NewThresholdStore(Thresholds{AlertThreshold: 70, BlockThreshold: 90, AutoBlock: true})
	require.NoError(t, err)

	// Invalid update keeps the previous snapshot active.
	err = store.Update(Thresholds{AlertThreshold: 95, BlockThreshold: 80})
	require.Error(t, err)
	assert.Equal(t, float64(70), store.Snapshot().AlertThreshold)

	require.NoError(t, store.Update(Thresholds{AlertThreshold: 50, BlockThreshold: 80}))
	assert.Equal(t, float64(50), store.Snapshot().AlertThreshold)
}

func TestThresholdStoreConcurrentReads(t *testing.T) {
	store, err := NewThresholdStore(Thresholds{AlertThreshold: 70, BlockThreshold: 90})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				snap := store.Snapshot()
				// Readers must never observe an inverted pair.
				assert.LessOrEqual(t, snap.AlertThreshold, snap.BlockThreshold)
			}
		}()
	}
	for i := 0; i < 1000; i++ {
		_ = store.Update(Thresholds{AlertThreshold: float64(i % 50), BlockThreshold: float64(50 + i%50)})
	}
	wg.Wait()
}
