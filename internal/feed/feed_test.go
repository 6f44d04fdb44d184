package feed

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentra-systems/sentra/internal/models"
)

func sampleDecision() (models.ScoredEvent, models.Decision) {
	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	scored := models.ScoredEvent{
		SecurityEvent: models.SecurityEvent{
			ID:        "evt-1",
			Timestamp: ts,
			SourceIP:  "10.0.0.5",
			DestIP:    "10.0.0.9",
			Port:      22,
			Protocol:  "tcp",
		},
		RiskScore:  91.5,
		AttackType: models.AttackBruteForce,
		Confidence: 0.8,
	}
	dec := models.Decision{
		EventID:           "evt-1",
		AccessDecision:    models.AccessBlock,
		AutomatedResponse: "terminate session and lock source account",
		RiskScore:         91.5,
		AttackType:        models.AttackBruteForce,
		DecidedAt:         ts,
	}
	return scored, dec
}

func TestCSVFeed_WritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.csv")
	f, err := NewCSVFeed(path)
	require.NoError(t, err)

	scored, dec := sampleDecision()
	require.NoError(t, f.Publish(context.Background(), scored, dec))
	require.NoError(t, f.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "evt-1", rows[1][0])
	assert.Equal(t, "10.0.0.5", rows[1][2])
	assert.Equal(t, "91.50", rows[1][6])
	assert.Equal(t, "BRUTE_FORCE", rows[1][7])
	assert.Equal(t, "BLOCK", rows[1][8])
}

func TestCSVFeed_AppendDoesNotRepeatHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.csv")
	scored, dec := sampleDecision()

	for i := 0; i < 2; i++ {
		f, err := NewCSVFeed(path)
		require.NoError(t, err)
		require.NoError(t, f.Publish(context.Background(), scored, dec))
		require.NoError(t, f.Close())
	}

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3) // one header, two data rows
}

func TestCSVFeed_ConcurrentPublish(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.csv")
	f, err := NewCSVFeed(path)
	require.NoError(t, err)

	scored, dec := sampleDecision()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				assert.NoError(t, f.Publish(context.Background(), scored, dec))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, f.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 201)
}

type capturePublisher struct {
	subject string
	payload []byte
	err     error
}

func (p *capturePublisher) Publish(_ context.Context, subject string, data []byte) error {
	p.subject = subject
	p.payload = data
	return p.err
}

func (p *capturePublisher) PublishJSON(ctx context.Context, subject string, data any) error {
	bytes, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return p.Publish(ctx, subject, bytes)
}

func (p *capturePublisher) Close() error { return nil }

func TestBusFeed_PublishesEnvelope(t *testing.T) {
	pub := &capturePublisher{}
	f := NewBusFeed(pub, "")

	scored, dec := sampleDecision()
	require.NoError(t, f.Publish(context.Background(), scored, dec))

	assert.Equal(t, "sentra.decisions.created", pub.subject)

	var env DecisionEnvelope
	require.NoError(t, json.Unmarshal(pub.payload, &env))
	assert.Equal(t, "evt-1", env.EventID)
	assert.Equal(t, "BLOCK", env.AccessDecision)
	assert.Equal(t, "BRUTE_FORCE", env.AttackType)
	assert.InDelta(t, 91.5, env.RiskScore, 0.001)
}

func TestNewAlertEnvelope(t *testing.T) {
	scored, dec := sampleDecision()
	result := &models.DispatchResult{
		Fingerprint:     "fp-abc",
		Suppressed:      true,
		OccurrenceCount: 4,
		Channels: []models.ChannelResult{
			{Channel: "slack", State: models.ChannelSent, Attempts: 1},
		},
	}

	env := NewAlertEnvelope(scored, dec, result)
	assert.Equal(t, dec.EventID, env.EventID)
	assert.Equal(t, "fp-abc", env.Fingerprint)
	assert.Equal(t, scored.SourceIP, env.SourceIP)
	assert.Equal(t, "BLOCK", env.AccessDecision)
	assert.True(t, env.Suppressed)
	assert.Equal(t, int64(4), env.OccurrenceCount)
	require.Len(t, env.Channels, 1)
	assert.Equal(t, "slack", env.Channels[0].Channel)
}

type stubFeed struct {
	calls int
	err   error
}

func (s *stubFeed) Publish(context.Context, models.ScoredEvent, models.Decision) error {
	s.calls++
	return s.err
}

func (s *stubFeed) Close() error { return nil }

func TestMulti_PublishesToAllEvenOnFailure(t *testing.T) {
	bad := &stubFeed{err: errors.New("disk full")}
	good := &stubFeed{}
	m := NewMulti(bad, good, nil)

	scored, dec := sampleDecision()
	err := m.Publish(context.Background(), scored, dec)

	assert.Error(t, err)
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 1, good.calls)
}
