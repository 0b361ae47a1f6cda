package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisReportCache keeps serialized reports in redis. Keys embed a per-user
// version; Invalidate bumps it so older keys are never read again and expire
// on their own TTL.
type RedisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisReportCache(client *redis.Client, ttl time.Duration) *RedisReportCache {
	return &RedisReportCache{client: client, ttl: ttl}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func versionKey(userID int64) string { return fmt.Sprintf("report:ver:%d", userID) }

func reportKey(userID, version int64, kind, start, end string) string {
	return fmt.Sprintf("report:%d:v%d:%s:%s:%s", userID, version, kind, start, end)
}

func (c *RedisReportCache) version(ctx context.Context, userID int64) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read report version: %w", err)
	}
	return v, nil
}

func (c *RedisReportCache) Load(ctx context.Context, userID int64, kind, start, end string, dst any) (bool, error) {
	v, err := c.version(ctx, userID)
	if err != nil {
		return false, err
	}
	raw, err := c.client.Get(ctx, reportKey(userID, v, kind, start, end)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cached report: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cached report: %w", err)
	}
	return true, nil
}

func (c *RedisReportCache) Store(ctx context.Context, userID int64, kind, start, end string, v any) error {
	ver, err := c.version(ctx, userID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := c.client.Set(ctx, reportKey(userID, ver, kind, start, end), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write cached report: %w", err)
	}
	return nil
}

func (c *RedisReportCache) Invalidate(ctx context.Context, userID int64) error {
	if err := c.client.Incr(ctx, versionKey(userID)).Err(); err != nil {
		return fmt.Errorf("bump report version: %w", err)
	}
	return nil
}
