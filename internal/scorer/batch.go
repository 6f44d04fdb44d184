package scorer

import (
	"context"
	"sync"

	"github.com/sentra-systems/sentra/internal/models"
)

// ScoreBatch scores a slice of events across a bounded worker pool. Each row
// is scored independently with no cross-row state, so the output for any row
// is identical to calling Score on it alone. Results are positionally
// aligned with the input and carry the originating event ID for
// re-association.
func ScoreBatch(ctx context.Context, s Scorer, events []models.SecurityEvent, workers int) []models.ScoredEvent {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(events) {
		workers = len(events)
	}

	out := make([]models.ScoredEvent, len(events))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				out[i] = s.Score(events[i])
			}
		}()
	}

feed:
	for i := range events {
		select {
		case indexes <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	return out
}
