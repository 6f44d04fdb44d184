// Package feed publishes finished access decisions to downstream
// consumers. A feed is the boundary between the decision pipeline and
// the enforcement points that act on its output.
package feed

import (
	"context"
	"errors"

	"github.com/sentra-systems/sentra/internal/models"
)

// Feed delivers a scored event and its access decision downstream.
type Feed interface {
	// Publish sends one decision. Implementations must be safe for
	// concurrent use by pipeline workers.
	Publish(ctx context.Context, scored models.ScoredEvent, dec models.Decision) error

	// Close flushes buffered output and releases resources.
	Close() error
}

// Multi fans a decision out to several feeds. Each feed is attempted
// even when an earlier one fails; the errors are joined.
type Multi struct {
	feeds []Feed
}

// NewMulti builds a Multi from the given feeds. Nil entries are skipped.
func NewMulti(feeds ...Feed) *Multi {
	m := &Multi{}
	for _, f := range feeds {
		if f != nil {
			m.feeds = append(m.feeds, f)
		}
	}
	return m
}

// Publish sends the decision to every configured feed.
func (m *Multi) Publish(ctx context.Context, scored models.ScoredEvent, dec models.Decision) error {
	var errs []error
	for _, f := range m.feeds {
		if err := f.Publish(ctx, scored, dec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every configured feed.
func (m *Multi) Close() error {
	var errs []error
	for _, f := range m.feeds {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
