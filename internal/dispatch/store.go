// Package dispatch routes decided events through dedup/suppression and fans
// qualifying alerts out to notification channels.
package dispatch

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/sentra-systems/sentra/internal/models"
)

// Store tracks AlertRecords keyed by fingerprint. Implementations serialize
// access per fingerprint so occurrence counts are never lost.
type Store interface {
	// Record registers one occurrence for the fingerprint. It returns the
	// updated record and whether notification is suppressed for this
	// occurrence. On first sight (or window re-open) suppression is armed
	// for the given window and false is returned.
	Record(ctx context.Context, seed models.AlertRecord, window time.Duration) (models.AlertRecord, bool, error)

	// MarkNotified records which channels were notified for the fingerprint.
	MarkNotified(ctx context.Context, fingerprint string, channels []string) error

	Close() error
}

const memoryShards = 16

type memoryShard struct {
	mu      sync.Mutex
	records *lru.LRU[string, *models.AlertRecord]
}

// MemoryStore is the default in-process suppression table: a fixed shard
// array with per-shard exclusive access, records evicted after the idle
// expiry.
type MemoryStore struct {
	shards [memoryShards]*memoryShard
}

// NewMemoryStore creates a memory store whose records expire after
// idleExpiry without updates.
func NewMemoryStore(maxPerShard int, idleExpiry time.Duration) *MemoryStore {
	if maxPerShard <= 0 {
		maxPerShard = 4096
	}
	s := &MemoryStore{}
	for i := range s.shards {
		s.shards[i] = &memoryShard{
			records: lru.NewLRU[string, *models.AlertRecord](maxPerShard, nil, idleExpiry),
		}
	}
	return s
}

func (s *MemoryStore) shard(fingerprint string) *memoryShard {
	h := fnv.New32a()
	h.Write([]byte(fingerprint))
	return s.shards[h.Sum32()%memoryShards]
}

func (s *MemoryStore) Record(_ context.Context, seed models.AlertRecord, window time.Duration) (models.AlertRecord, bool, error) {
	now := time.Now().UTC()
	shard := s.shard(seed.Fingerprint)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	rec, ok := shard.records.Get(seed.Fingerprint)
	if !ok {
		rec = &seed
		rec.FirstSeen = now
		rec.OccurrenceCount = 0
	}

	rec.OccurrenceCount++
	rec.LastSeen = now

	suppressed := rec.Suppressed(now)
	if !suppressed {
		rec.SuppressedUntil = now.Add(window)
	}

	shard.records.Add(seed.Fingerprint, rec)
	return *rec, suppressed, nil
}

func (s *MemoryStore) MarkNotified(_ context.Context, fingerprint string, channels []string) error {
	shard := s.shard(fingerprint)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if rec, ok := shard.records.Get(fingerprint); ok {
		rec.ChannelsNotified = channels
		shard.records.Add(fingerprint, rec)
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
