package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/i474232898/weather-monitoring/internal/weather"
)

// RedisSummaryCache keeps the latest summary per city in Redis.
type RedisSummaryCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisSummaryCache creates a cache whose entries expire after ttl.
func NewRedisSummaryCache(client *redis.Client, ttl time.Duration) *RedisSummaryCache {
	return &RedisSummaryCache{redis: client, ttl: ttl}
}

func summaryKey(city string) string {
	return fmt.Sprintf("weather:summary:latest:%s", city)
}

// GetSummary returns the cached summary for city, if any.
func (c *RedisSummaryCache) GetSummary(ctx context.Context, city string) (weather.Summary, bool, error) {
	data, err := c.redis.Get(ctx, summaryKey(city)).Bytes()
	if err == redis.Nil {
		return weather.Summary{}, false, nil
	}
	if err != nil {
		return weather.Summary{}, false, fmt.Errorf("failed to get summary from Redis: %w", err)
	}

	var s weather.Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return weather.Summary{}, false, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	return s, true, nil
}

// maxSetRetries bounds how often SetSummary retries after losing a race on
// the same key.
const maxSetRetries = 5

// SetSummary stores s unless the cache already holds a newer summary for the
// same city. The check and the write run under WATCH, so a concurrent writer
// forces a retry instead of being overwritten.
func (c *RedisSummaryCache) SetSummary(ctx context.Context, s weather.Summary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	key := summaryKey(s.City)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			var current weather.Summary
			if json.Unmarshal(raw, &current) == nil && current.ComputedAt.After(s.ComputedAt) {
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxSetRetries; i++ {
		err = c.redis.Watch(ctx, txf, key)
		if err != redis.TxFailedErr {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("failed to set summary in Redis: %w", err)
	}
	return nil
}

// Ping checks that Redis is reachable.
func (c *RedisSummaryCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *RedisSummaryCache) Close() error {
	return c.redis.Close()
}
