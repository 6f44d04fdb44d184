package storage

import (
	"context"
	"sync"
	"time"

	"github.com/sentra-systems/sentra/internal/logging"
)

// Buffer batches documents in front of an EventSink so per-event callers
// do not pay a bulk request each. Flushes on max batch size or interval.
type Buffer struct {
	sink     *EventSink
	maxBatch int
	interval time.Duration
	log      *logging.Logger

	mu      sync.Mutex
	pending []EventDocument

	done chan struct{}
	wg   sync.WaitGroup
}

// NewBuffer starts the background flusher. Close must be called to stop
// it and drain remaining documents.
func NewBuffer(sink *EventSink, maxBatch int, interval time.Duration, log *logging.Logger) *Buffer {
	if maxBatch <= 0 {
		maxBatch = 500
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if log == nil {
		log = logging.Default()
	}

	b := &Buffer{
		sink:     sink,
		maxBatch: maxBatch,
		interval: interval,
		log:      log,
		done:     make(chan struct{}),
	}

	b.wg.Add(1)
	go b.loop()
	return b
}

// Add queues one document, flushing synchronously when the batch is full.
func (b *Buffer) Add(ctx context.Context, doc EventDocument) {
	b.mu.Lock()
	b.pending = append(b.pending, doc)
	full := len(b.pending) >= b.maxBatch
	b.mu.Unlock()

	if full {
		b.flush(ctx)
	}
}

func (b *Buffer) loop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.flush(context.Background())
		case <-b.done:
			return
		}
	}
}

func (b *Buffer) flush(ctx context.Context) {
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	b.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	stats, err := b.sink.IndexBatch(ctx, batch)
	if err != nil {
		b.log.Error("event sink flush failed", logging.Error(err))
		return
	}
	if stats.Failed > 0 {
		b.log.Warn("event sink flush partial",
			"indexed", stats.Indexed,
			"failed", stats.Failed,
		)
	}
}

// Close stops the flusher and drains pending documents.
func (b *Buffer) Close() error {
	close(b.done)
	b.wg.Wait()
	b.flush(context.Background())
	return nil
}
