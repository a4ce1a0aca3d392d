package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lshigami/quizengine/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ScoreCache keeps computed score breakdowns keyed by attempt ID. Entries are
// advisory; callers compare the stored version with the attempt row.
type ScoreCache interface {
	Get(ctx context.Context, attemptID string, dst interface{}) (bool, error)
	Set(ctx context.Context, attemptID string, value interface{}) error
	Invalidate(ctx context.Context, attemptID string) error
}

// NewScoreCache returns a redis cache when REDIS_ADDR is set, otherwise a no-op.
func NewScoreCache(cfg *config.Config) ScoreCache {
	if cfg.Redis.Addr == "" {
		log.Info().Msg("REDIS_ADDR not set, score cache disabled")
		return NoopScoreCache{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return NewRedisScoreCache(client, cfg.Redis.ScoreTTL)
}

type redisScoreCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisScoreCache(client redis.UniversalClient, ttl time.Duration) ScoreCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisScoreCache{client: client, ttl: ttl}
}

func scoreKey(attemptID string) string {
	return "quizengine:score:" + attemptID
}

func (c *redisScoreCache) Get(ctx context.Context, attemptID string, dst interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, scoreKey(attemptID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get score: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cached score: %w", err)
	}
	return true, nil
}

func (c *redisScoreCache) Set(ctx context.Context, attemptID string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode score: %w", err)
	}
	return c.client.Set(ctx, scoreKey(attemptID), raw, c.ttl).Err()
}

func (c *redisScoreCache) Invalidate(ctx context.Context, attemptID string) error {
	return c.client.Del(ctx, scoreKey(attemptID)).Err()
}

type NoopScoreCache struct{}

func (NoopScoreCache) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (NoopScoreCache) Set(context.Context, string, interface{}) error         { return nil }
func (NoopScoreCache) Invalidate(context.Context, string) error               { return nil }
