package dispatch

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/sentra-systems/sentra/internal/logging"
	"github.com/sentra-systems/sentra/internal/models"
	"github.com/sentra-systems/sentra/internal/notification"
)

// ErrAllChannelsFailed is returned when every configured channel exhausted
// its retries. The DispatchResult still carries the per-channel outcomes.
var ErrAllChannelsFailed = errors.New("all notification channels failed")

// Config tunes suppression and delivery.
type Config struct {
	SuppressionWindow time.Duration
	ChannelTimeout    time.Duration
	MaxAttempts       int
	RetryBackoff      time.Duration
}

// Archiver persists alert history outside the suppression store, typically
// the decision archive. Archiving is best-effort: a failure is logged and
// never blocks delivery.
type Archiver interface {
	SaveAlert(ctx context.Context, rec *models.AlertRecord) error
}

// Dispatcher deduplicates decided events by fingerprint and fans qualifying
// alerts out to all configured channels concurrently.
type Dispatcher struct {
	store    Store
	channels []notification.Channel
	archive  Archiver
	cfg      Config
	log      *logging.Logger
}

// New creates a dispatcher.
func New(store Store, channels []notification.Channel, cfg Config, log *logging.Logger) *Dispatcher {
	if cfg.SuppressionWindow <= 0 {
		cfg.SuppressionWindow = 5 * time.Minute
	}
	if cfg.ChannelTimeout <= 0 {
		cfg.ChannelTimeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}

	return &Dispatcher{
		store:    store,
		channels: channels,
		cfg:      cfg,
		log:      log.With(logging.Component("dispatch")),
	}
}

// SetArchiver attaches the alert history archive. Call during wiring, before
// the dispatcher receives traffic.
func (d *Dispatcher) SetArchiver(a Archiver) {
	d.archive = a
}

// Notify applies dedup/suppression and, when the suppression window is open,
// delivers the alert to every channel. ALLOW decisions are never eligible.
// Suppression is an expected outcome, not an error.
func (d *Dispatcher) Notify(ctx context.Context, decision models.Decision, event models.ScoredEvent) (*models.DispatchResult, error) {
	if decision.AccessDecision == models.AccessAllow {
		return &models.DispatchResult{}, nil
	}

	fingerprint := models.Fingerprint(event.SourceIP, decision.AttackType, decision.AccessDecision)
	seed := models.AlertRecord{
		Fingerprint: fingerprint,
		SourceIP:    event.SourceIP,
		AttackType:  decision.AttackType,
		Decision:    decision.AccessDecision,
	}

	rec, suppressed, err := d.store.Record(ctx, seed, d.cfg.SuppressionWindow)
	if err != nil {
		return nil, err
	}

	result := &models.DispatchResult{
		Fingerprint:     fingerprint,
		Suppressed:      suppressed,
		OccurrenceCount: rec.OccurrenceCount,
	}

	if suppressed {
		d.log.Debug("alert suppressed",
			logging.Fingerprint(fingerprint),
			"occurrence_count", rec.OccurrenceCount)
		// Keep the archived occurrence count and last-seen time current
		// even when the repeat is not delivered.
		d.archiveRecord(ctx, rec)
		return result, nil
	}

	alert := &notification.Alert{
		EventID:     decision.EventID,
		Fingerprint: fingerprint,
		SourceIP:    event.SourceIP,
		DestIP:      event.DestIP,
		AttackType:  decision.AttackType,
		Decision:    decision.AccessDecision,
		RiskScore:   decision.RiskScore,
		Response:    decision.AutomatedResponse,
		Rationale:   event.RawAttributes["rationale"],
		Occurrence:  rec.OccurrenceCount,
	}

	result.Channels = d.fanOut(ctx, alert)

	var notified []string
	for _, cr := range result.Channels {
		if cr.State == models.ChannelSent {
			notified = append(notified, cr.Channel)
		}
	}
	if len(notified) > 0 {
		if err := d.store.MarkNotified(ctx, fingerprint, notified); err != nil {
			d.log.Warn("failed to persist notified channels", logging.Error(err))
		}
		rec.ChannelsNotified = notified
	}
	d.archiveRecord(ctx, rec)

	if len(d.channels) > 0 && !result.Delivered() {
		return result, ErrAllChannelsFailed
	}
	return result, nil
}

func (d *Dispatcher) archiveRecord(ctx context.Context, rec models.AlertRecord) {
	if d.archive == nil {
		return
	}
	if err := d.archive.SaveAlert(ctx, &rec); err != nil {
		d.log.Warn("alert archive failed",
			logging.Fingerprint(rec.Fingerprint),
			logging.Error(err))
	}
}

// fanOut delivers to every channel concurrently. Channels are isolated: a
// hung or failing channel never blocks its siblings beyond its own timeout.
func (d *Dispatcher) fanOut(ctx context.Context, alert *notification.Alert) []models.ChannelResult {
	results := make([]models.ChannelResult, len(d.channels))

	var wg sync.WaitGroup
	for i, ch := range d.channels {
		wg.Add(1)
		go func(i int, ch notification.Channel) {
			defer wg.Done()
			results[i] = d.deliver(ctx, ch, alert)
		}(i, ch)
	}
	wg.Wait()

	return results
}

// deliver runs one channel through the pending → sent | failed state
// machine: bounded attempts, exponential backoff with jitter, and a fresh
// timeout per attempt.
func (d *Dispatcher) deliver(ctx context.Context, ch notification.Channel, alert *notification.Alert) models.ChannelResult {
	result := models.ChannelResult{Channel: ch.Type(), State: models.ChannelPending}

	backoff := d.cfg.RetryBackoff
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		result.Attempts = attempt

		attemptCtx, cancel := context.WithTimeout(ctx, d.cfg.ChannelTimeout)
		err := ch.Send(attemptCtx, alert)
		cancel()

		if err == nil {
			result.State = models.ChannelSent
			result.Error = ""
			return result
		}
		result.Error = err.Error()

		d.log.Warn("channel delivery failed",
			logging.Channel(ch.Type()),
			"attempt", attempt,
			logging.Error(err))

		if attempt == d.cfg.MaxAttempts {
			break
		}

		var jitter time.Duration
		if half := int64(backoff) / 2; half > 0 {
			jitter = time.Duration(rand.Int63n(half))
		}
		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
			result.State = models.ChannelFailed
			result.Error = ctx.Err().Error()
			return result
		}
		backoff *= 2
	}

	result.State = models.ChannelFailed
	return result
}
