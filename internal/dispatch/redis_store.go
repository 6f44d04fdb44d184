package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sentra-systems/sentra/internal/models"
)

// RedisStore keeps suppression state in Redis so multiple pipeline instances
// share one dedup table. Record state lives in a hash per fingerprint with a
// TTL equal to the idle expiry, refreshed on every update; the suppression
// window is a separate SETNX key whose TTL is the window itself. All updates
// run in one MULTI/EXEC transaction: HINCRBY never loses an occurrence and
// SETNX arms notification exactly once per window, so concurrent workers on
// the same fingerprint cannot double-notify.
type RedisStore struct {
	client     *redis.Client
	idleExpiry time.Duration
}

// NewRedisStore connects and verifies the Redis backend.
func NewRedisStore(redisURL string, idleExpiry time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisStore{client: client, idleExpiry: idleExpiry}, nil
}

func alertKey(fingerprint string) string {
	return "sentra:alert:" + fingerprint
}

func suppressKey(fingerprint string) string {
	return "sentra:alert:suppress:" + fingerprint
}

func (s *RedisStore) Record(ctx context.Context, seed models.AlertRecord, window time.Duration) (models.AlertRecord, bool, error) {
	now := time.Now().UTC()
	key := alertKey(seed.Fingerprint)

	pipe := s.client.TxPipeline()
	count := pipe.HIncrBy(ctx, key, "occurrence_count", 1)
	pipe.HSetNX(ctx, key, "source_ip", seed.SourceIP)
	pipe.HSetNX(ctx, key, "attack_type", string(seed.AttackType))
	pipe.HSetNX(ctx, key, "decision", string(seed.Decision))
	pipe.HSetNX(ctx, key, "first_seen", now.Format(time.RFC3339Nano))
	pipe.HSet(ctx, key, "last_seen", now.Format(time.RFC3339Nano))
	pipe.Expire(ctx, key, s.idleExpiry)
	armed := pipe.SetNX(ctx, suppressKey(seed.Fingerprint), "1", window)
	windowLeft := pipe.PTTL(ctx, suppressKey(seed.Fingerprint))
	firstSeen := pipe.HGet(ctx, key, "first_seen")
	channels := pipe.HGet(ctx, key, "channels_notified")
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return models.AlertRecord{}, false, fmt.Errorf("record alert: %w", err)
	}

	rec := seed
	rec.OccurrenceCount = count.Val()
	rec.LastSeen = now
	if ts, err := time.Parse(time.RFC3339Nano, firstSeen.Val()); err == nil {
		rec.FirstSeen = ts
	}
	if data, err := channels.Result(); err == nil {
		if err := json.Unmarshal([]byte(data), &rec.ChannelsNotified); err != nil {
			return models.AlertRecord{}, false, fmt.Errorf("decode notified channels: %w", err)
		}
	}
	if ttl := windowLeft.Val(); ttl > 0 {
		rec.SuppressedUntil = now.Add(ttl)
	}

	// SETNX succeeding means this occurrence armed a fresh window and owns
	// the notification; losing the race means the window is already open.
	suppressed := !armed.Val()
	return rec, suppressed, nil
}

func (s *RedisStore) MarkNotified(ctx context.Context, fingerprint string, channels []string) error {
	key := alertKey(fingerprint)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("check alert record: %w", err)
	}
	if exists == 0 {
		return nil
	}

	data, err := json.Marshal(channels)
	if err != nil {
		return fmt.Errorf("encode notified channels: %w", err)
	}
	if err := s.client.HSet(ctx, key, "channels_notified", string(data)).Err(); err != nil {
		return fmt.Errorf("save notified channels: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
