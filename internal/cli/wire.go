package cli

import (
	"context"
	"fmt"

	"github.com/sentra-systems/sentra/internal/config"
	"github.com/sentra-systems/sentra/internal/dispatch"
	"github.com/sentra-systems/sentra/internal/feed"
	"github.com/sentra-systems/sentra/internal/logging"
	"github.com/sentra-systems/sentra/internal/messaging"
	natsclient "github.com/sentra-systems/sentra/internal/messaging/nats"
	"github.com/sentra-systems/sentra/internal/models"
	"github.com/sentra-systems/sentra/internal/normalizer"
	"github.com/sentra-systems/sentra/internal/notification"
	"github.com/sentra-systems/sentra/internal/pipeline"
	"github.com/sentra-systems/sentra/internal/repository"
	"github.com/sentra-systems/sentra/internal/scorer"
	"github.com/sentra-systems/sentra/internal/storage"
)

// runtime holds the wired pipeline plus everything that needs closing.
type runtime struct {
	pipeline   *pipeline.Pipeline
	thresholds *config.ThresholdStore
	bus        messaging.Client
	closers    []func() error
}

func (r *runtime) close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			log.Warn("close failed", logging.Error(err))
		}
	}
}

// buildRuntime wires the pipeline from config. Optional collaborators
// (bus, archive, search sink, feed file) activate only when configured.
func buildRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	rt := &runtime{}

	thresholds, err := config.NewThresholdStore(cfg.Thresholds)
	if err != nil {
		return nil, err
	}
	rt.thresholds = thresholds

	var store dispatch.Store
	if cfg.Redis.Enabled {
		store, err = dispatch.NewRedisStore(cfg.Redis.URL, cfg.Dispatch.RecordIdleExpiry)
		if err != nil {
			return nil, fmt.Errorf("redis suppression store: %w", err)
		}
	} else {
		store = dispatch.NewMemoryStore(0, cfg.Dispatch.RecordIdleExpiry)
	}
	rt.closers = append(rt.closers, store.Close)

	channels := []notification.Channel{notification.NewLogChannel(log)}
	if cfg.Channels.Email.Host != "" {
		e := cfg.Channels.Email
		channels = append(channels, notification.NewEmailChannel(e.Host, e.Port, e.Username, e.Password, e.From, e.To))
	}
	if cfg.Channels.Slack.WebhookURL != "" {
		channels = append(channels, notification.NewSlackChannel(cfg.Channels.Slack.WebhookURL, cfg.Dispatch.ChannelTimeout))
	}
	if cfg.Channels.Webhook.URL != "" {
		channels = append(channels, notification.NewWebhookChannel(cfg.Channels.Webhook.URL, cfg.Dispatch.ChannelTimeout))
	}

	dispatcher := dispatch.New(store, channels, dispatch.Config{
		SuppressionWindow: cfg.Dispatch.SuppressionWindow,
		ChannelTimeout:    cfg.Dispatch.ChannelTimeout,
		MaxAttempts:       cfg.Dispatch.MaxAttempts,
		RetryBackoff:      cfg.Dispatch.RetryBackoff,
	}, log)

	var feeds []feed.Feed
	if cfg.Feed.CSVPath != "" {
		csvFeed, err := feed.NewCSVFeed(cfg.Feed.CSVPath)
		if err != nil {
			rt.close()
			return nil, err
		}
		feeds = append(feeds, csvFeed)
	}

	var audit func(context.Context, models.ScoredEvent, models.Decision, *models.DispatchResult)
	if cfg.NATS.Enabled {
		natsCfg := natsclient.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		bus, err := natsclient.NewClient(natsCfg, log)
		if err != nil {
			rt.close()
			return nil, err
		}
		rt.bus = bus
		rt.closers = append(rt.closers, bus.Drain)
		feeds = append(feeds, feed.NewBusFeed(bus, ""))
		audit = func(ctx context.Context, scored models.ScoredEvent, dec models.Decision, result *models.DispatchResult) {
			if err := bus.PublishJSON(ctx, messaging.SubjectAlertsDispatched, feed.NewAlertEnvelope(scored, dec, result)); err != nil {
				log.Warn("alert audit publish failed", logging.EventID(dec.EventID), logging.Error(err))
			}
		}
	}

	var pipeFeed feed.Feed
	if len(feeds) > 0 {
		multi := feed.NewMulti(feeds...)
		rt.closers = append(rt.closers, multi.Close)
		pipeFeed = multi
	}

	var repo repository.Repository
	if cfg.Database.DSN != "" {
		if err := repository.Migrate(cfg.Database.MigrationsPath, cfg.Database.DSN); err != nil {
			rt.close()
			return nil, err
		}
		pg, err := repository.NewPostgresRepository(ctx, cfg.Database.DSN)
		if err != nil {
			rt.close()
			return nil, err
		}
		repo = pg
		rt.closers = append(rt.closers, pg.Close)
		dispatcher.SetArchiver(pg)
	}

	var index func(context.Context, models.ScoredEvent, models.Decision)
	if cfg.Storage.URL != "" {
		client, err := storage.NewClient(storage.Config{
			URL:      cfg.Storage.URL,
			Username: cfg.Storage.Username,
			Password: cfg.Storage.Password,
			Insecure: cfg.Storage.Insecure,
		})
		if err != nil {
			rt.close()
			return nil, err
		}
		buffer := storage.NewBuffer(storage.NewEventSink(client, ""), 0, 0, log)
		rt.closers = append(rt.closers, buffer.Close)
		index = func(ctx context.Context, scored models.ScoredEvent, dec models.Decision) {
			buffer.Add(ctx, storage.DocumentFor(scored, dec))
		}
	}

	p, err := pipeline.New(pipeline.Options{
		Registry:   normalizer.Default(),
		Scorer:     scorer.New(cfg.Scorer.ModelPath, log),
		Thresholds: thresholds,
		Feed:       pipeFeed,
		Dispatcher: dispatcher,
		Repository: repo,
		Index:      index,
		Audit:      audit,
		Workers:    cfg.Pipeline.Workers,
		Logger:     log,
	})
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.pipeline = p

	return rt, nil
}
