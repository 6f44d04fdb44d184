// Package pipeline wires normalization, scoring, decision, feed output,
// archival, and alert dispatch into one processing path shared by the
// replay, analyze, and serve commands.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sentra-systems/sentra/internal/config"
	"github.com/sentra-systems/sentra/internal/decision"
	"github.com/sentra-systems/sentra/internal/dispatch"
	"github.com/sentra-systems/sentra/internal/feed"
	"github.com/sentra-systems/sentra/internal/logging"
	"github.com/sentra-systems/sentra/internal/metrics"
	"github.com/sentra-systems/sentra/internal/models"
	"github.com/sentra-systems/sentra/internal/normalizer"
	"github.com/sentra-systems/sentra/internal/repository"
	"github.com/sentra-systems/sentra/internal/scorer"
)

// Pipeline runs events through score → decide → feed → archive → dispatch.
// The feed, archive, and sink stages are optional; a nil collaborator is
// skipped.
type Pipeline struct {
	registry   *normalizer.Registry
	scorer     scorer.Scorer
	thresholds *config.ThresholdStore
	feed       feed.Feed
	dispatcher *dispatch.Dispatcher
	repo       repository.Repository
	index      func(ctx context.Context, scored models.ScoredEvent, dec models.Decision)
	audit      func(ctx context.Context, scored models.ScoredEvent, dec models.Decision, result *models.DispatchResult)
	log        *logging.Logger
	workers    int

	stats Stats
}

// Stats counts pipeline outcomes. Safe for concurrent use.
type Stats struct {
	Processed  atomic.Int64
	Failed     atomic.Int64
	Allowed    atomic.Int64
	Restricted atomic.Int64
	Blocked    atomic.Int64
	Dispatched atomic.Int64
	Suppressed atomic.Int64
}

// Summary is a point-in-time copy of the counters.
type Summary struct {
	Processed  int64
	Failed     int64
	Allowed    int64
	Restricted int64
	Blocked    int64
	Dispatched int64
	Suppressed int64
}

// Options configures a Pipeline. Registry, Scorer, and Thresholds are
// required; everything else is optional.
type Options struct {
	Registry   *normalizer.Registry
	Scorer     scorer.Scorer
	Thresholds *config.ThresholdStore
	Feed       feed.Feed
	Dispatcher *dispatch.Dispatcher
	Repository repository.Repository

	// Index receives every decided event for search indexing.
	Index func(ctx context.Context, scored models.ScoredEvent, dec models.Decision)

	// Audit receives every alert-eligible dispatch outcome, suppressed
	// repeats included.
	Audit func(ctx context.Context, scored models.ScoredEvent, dec models.Decision, result *models.DispatchResult)

	Workers int
	Logger  *logging.Logger
}

// New builds a Pipeline from options.
func New(opts Options) (*Pipeline, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("pipeline requires a normalizer registry")
	}
	if opts.Scorer == nil {
		return nil, fmt.Errorf("pipeline requires a scorer")
	}
	if opts.Thresholds == nil {
		return nil, fmt.Errorf("pipeline requires a threshold store")
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}

	return &Pipeline{
		registry:   opts.Registry,
		scorer:     opts.Scorer,
		thresholds: opts.Thresholds,
		feed:       opts.Feed,
		dispatcher: opts.Dispatcher,
		repo:       opts.Repository,
		index:      opts.Index,
		audit:      opts.Audit,
		log:        opts.Logger.With(logging.Component("pipeline")),
		workers:    opts.Workers,
	}, nil
}

// ProcessRecord normalizes one raw record and runs it through the
// pipeline. Normalization failures count as Failed and return the error.
func (p *Pipeline) ProcessRecord(ctx context.Context, rec normalizer.Record) (models.Decision, error) {
	event, err := p.registry.Normalize(rec)
	if err != nil {
		p.stats.Failed.Add(1)
		return models.Decision{}, fmt.Errorf("normalize record: %w", err)
	}
	return p.ProcessEvent(ctx, event)
}

// ProcessEvent scores and decides one normalized event, then routes the
// decision to the feed, archive, index, and dispatcher.
func (p *Pipeline) ProcessEvent(ctx context.Context, event models.SecurityEvent) (models.Decision, error) {
	start := time.Now()
	scored := p.scorer.Score(event)
	metrics.ScoringDuration.Observe(time.Since(start).Seconds())
	metrics.EventsScored.WithLabelValues(string(p.scorer.Status().Backend), string(scored.AttackType)).Inc()

	dec := decision.Decide(scored, p.thresholds.Snapshot())
	metrics.Decisions.WithLabelValues(string(dec.AccessDecision)).Inc()

	p.stats.Processed.Add(1)
	switch dec.AccessDecision {
	case models.AccessAllow:
		p.stats.Allowed.Add(1)
	case models.AccessRestrict:
		p.stats.Restricted.Add(1)
	case models.AccessBlock:
		p.stats.Blocked.Add(1)
	}

	if p.feed != nil {
		if err := p.feed.Publish(ctx, scored, dec); err != nil {
			p.log.Error("feed publish failed", logging.EventID(dec.EventID), logging.Error(err))
		}
	}

	if p.repo != nil {
		if err := p.repo.SaveDecision(ctx, scored, dec); err != nil {
			p.log.Error("decision archive failed", logging.EventID(dec.EventID), logging.Error(err))
		}
	}

	if p.index != nil {
		p.index(ctx, scored, dec)
	}

	if p.dispatcher != nil {
		result, err := p.dispatcher.Notify(ctx, dec, scored)
		if err != nil {
			p.log.Error("alert dispatch failed", logging.EventID(dec.EventID), logging.Error(err))
		}
		if result != nil {
			if result.Suppressed {
				p.stats.Suppressed.Add(1)
				metrics.AlertsSuppressed.Inc()
			} else if len(result.Channels) > 0 {
				p.stats.Dispatched.Add(1)
				metrics.AlertsDispatched.Inc()
			}
			for _, cr := range result.Channels {
				if cr.State == models.ChannelFailed {
					metrics.ChannelFailures.WithLabelValues(cr.Channel).Inc()
				}
			}
			// An empty fingerprint marks an ALLOW decision, which never
			// reaches the dedup store and has nothing to audit.
			if p.audit != nil && result.Fingerprint != "" {
				p.audit(ctx, scored, dec, result)
			}
		}
	}

	return dec, nil
}

// Run consumes records from in across the worker pool until the channel
// closes or ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, in <-chan normalizer.Record) Summary {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case rec, ok := <-in:
					if !ok {
						return
					}
					if _, err := p.ProcessRecord(ctx, rec); err != nil {
						p.log.Warn("record dropped", logging.Error(err))
					}
				}
			}
		}()
	}
	wg.Wait()
	return p.Snapshot()
}

// Snapshot copies the current counters.
func (p *Pipeline) Snapshot() Summary {
	return Summary{
		Processed:  p.stats.Processed.Load(),
		Failed:     p.stats.Failed.Load(),
		Allowed:    p.stats.Allowed.Load(),
		Restricted: p.stats.Restricted.Load(),
		Blocked:    p.stats.Blocked.Load(),
		Dispatched: p.stats.Dispatched.Load(),
		Suppressed: p.stats.Suppressed.Load(),
	}
}
