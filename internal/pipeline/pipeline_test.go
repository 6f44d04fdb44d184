package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentra-systems/sentra/internal/config"
	"github.com/sentra-systems/sentra/internal/dispatch"
	"github.com/sentra-systems/sentra/internal/logging"
	"github.com/sentra-systems/sentra/internal/models"
	"github.com/sentra-systems/sentra/internal/normalizer"
	"github.com/sentra-systems/sentra/internal/notification"
	"github.com/sentra-systems/sentra/internal/scorer"
)

type recordingChannel struct {
	mu     sync.Mutex
	alerts []*notification.Alert
}

func (c *recordingChannel) Send(_ context.Context, alert *notification.Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, alert)
	return nil
}

func (c *recordingChannel) Type() string { return "recording" }

func (c *recordingChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}

type recordingFeed struct {
	mu        sync.Mutex
	decisions []models.Decision
}

func (f *recordingFeed) Publish(_ context.Context, _ models.ScoredEvent, dec models.Decision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions = append(f.decisions, dec)
	return nil
}

func (f *recordingFeed) Close() error { return nil }

func newTestPipeline(t *testing.T, ch notification.Channel, fd *recordingFeed) *Pipeline {
	t.Helper()

	log := logging.Default()
	store, err := config.NewThresholdStore(config.Thresholds{
		AlertThreshold: 70, BlockThreshold: 90, AutoBlock: true,
	})
	require.NoError(t, err)

	var channels []notification.Channel
	if ch != nil {
		channels = append(channels, ch)
	}
	dispatcher := dispatch.New(
		dispatch.NewMemoryStore(0, time.Hour),
		channels,
		dispatch.Config{
			SuppressionWindow: time.Minute,
			ChannelTimeout:    time.Second,
			MaxAttempts:       1,
			RetryBackoff:      time.Millisecond,
		},
		log,
	)

	opts := Options{
		Registry:   normalizer.Default(),
		Scorer:     scorer.New("", log),
		Thresholds: store,
		Dispatcher: dispatcher,
		Workers:    4,
		Logger:     log,
	}
	if fd != nil {
		opts.Feed = fd
	}

	p, err := New(opts)
	require.NoError(t, err)
	return p
}

func bruteForceRecord() normalizer.Record {
	return normalizer.Record{
		Source: normalizer.SourceDataset,
		Fields: map[string]string{
			"timestamp":     "2026-03-14T09:00:00Z",
			"source_ip":     "10.0.0.66",
			"dest_ip":       "10.0.0.1",
			"port":          "22",
			"protocol":      "tcp",
			"failed_logins": "12",
			"duration":      "120",
		},
	}
}

func benignRecord(src string) normalizer.Record {
	return normalizer.Record{
		Source: normalizer.SourceDataset,
		Fields: map[string]string{
			"timestamp": "2026-03-14T09:00:00Z",
			"source_ip": src,
			"port":      "443",
			"protocol":  "tcp",
			"duration":  "3",
		},
	}
}

func TestProcessRecord_AttackDispatchesAndFeeds(t *testing.T) {
	ch := &recordingChannel{}
	fd := &recordingFeed{}
	p := newTestPipeline(t, ch, fd)

	dec, err := p.ProcessRecord(context.Background(), bruteForceRecord())
	require.NoError(t, err)

	assert.Equal(t, models.AttackBruteForce, dec.AttackType)
	assert.NotEqual(t, models.AccessAllow, dec.AccessDecision)
	assert.Equal(t, 1, ch.count())
	assert.Len(t, fd.decisions, 1)

	s := p.Snapshot()
	assert.Equal(t, int64(1), s.Processed)
	assert.Equal(t, int64(1), s.Dispatched)
}

func TestProcessRecord_BenignNeverDispatches(t *testing.T) {
	ch := &recordingChannel{}
	p := newTestPipeline(t, ch, nil)

	dec, err := p.ProcessRecord(context.Background(), benignRecord("192.168.1.10"))
	require.NoError(t, err)

	assert.Equal(t, models.AccessAllow, dec.AccessDecision)
	assert.Equal(t, 0, ch.count())
	assert.Equal(t, int64(1), p.Snapshot().Allowed)
}

func TestProcessRecord_RepeatAttackSuppressed(t *testing.T) {
	ch := &recordingChannel{}
	p := newTestPipeline(t, ch, nil)

	for i := 0; i < 3; i++ {
		_, err := p.ProcessRecord(context.Background(), bruteForceRecord())
		require.NoError(t, err)
	}

	assert.Equal(t, 1, ch.count())
	s := p.Snapshot()
	assert.Equal(t, int64(1), s.Dispatched)
	assert.Equal(t, int64(2), s.Suppressed)
}

func TestProcessRecord_AuditReceivesDispatchOutcomes(t *testing.T) {
	ch := &recordingChannel{}
	p := newTestPipeline(t, ch, nil)

	var mu sync.Mutex
	var results []*models.DispatchResult
	p.audit = func(_ context.Context, _ models.ScoredEvent, _ models.Decision, result *models.DispatchResult) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, result)
	}

	_, err := p.ProcessRecord(context.Background(), bruteForceRecord())
	require.NoError(t, err)
	_, err = p.ProcessRecord(context.Background(), bruteForceRecord())
	require.NoError(t, err)
	_, err = p.ProcessRecord(context.Background(), benignRecord("192.168.1.10"))
	require.NoError(t, err)

	// ALLOW decisions never reach the audit stream; suppressed repeats do.
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 2)
	assert.False(t, results[0].Suppressed)
	assert.NotEmpty(t, results[0].Fingerprint)
	assert.True(t, results[1].Suppressed)
	assert.Equal(t, results[0].Fingerprint, results[1].Fingerprint)
}

func TestProcessRecord_MalformedCountsFailed(t *testing.T) {
	p := newTestPipeline(t, nil, nil)

	_, err := p.ProcessRecord(context.Background(), normalizer.Record{
		Source: normalizer.SourceDataset,
		Fields: map[string]string{"timestamp": "2026-03-14T09:00:00Z"}, // no source_ip
	})
	require.Error(t, err)
	assert.Equal(t, int64(1), p.Snapshot().Failed)
	assert.Equal(t, int64(0), p.Snapshot().Processed)
}

func TestRun_DrainsChannelAcrossWorkers(t *testing.T) {
	p := newTestPipeline(t, nil, nil)

	in := make(chan normalizer.Record)
	go func() {
		defer close(in)
		for i := 0; i < 40; i++ {
			in <- benignRecord("10.1.0.1")
		}
	}()

	summary := p.Run(context.Background(), in)
	assert.Equal(t, int64(40), summary.Processed)
	assert.Equal(t, int64(40), summary.Allowed)
}
