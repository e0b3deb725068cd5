// Package redis keeps liveness verdicts in Redis so repeated runs skip
// re-probing the same domains.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"leadscout/internal/domain"
)

const keyPrefix = "leadscout:probe:"

type ProbeCache struct {
	rdb *goredis.Client
	ttl time.Duration
}

// Open parses a redis:// URL and verifies the server answers.
func Open(ctx context.Context, url string, ttl time.Duration) (*ProbeCache, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(rdb, ttl), nil
}

func New(rdb *goredis.Client, ttl time.Duration) *ProbeCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ProbeCache{rdb: rdb, ttl: ttl}
}

func (c *ProbeCache) Get(ctx context.Context, host string) (domain.VerificationResult, bool, error) {
	var res domain.VerificationResult
	raw, err := c.rdb.Get(ctx, keyPrefix+host).Bytes()
	if errors.Is(err, goredis.Nil) {
		return res, false, nil
	}
	if err != nil {
		return res, false, err
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return res, false, fmt.Errorf("decode cached probe %s: %w", host, err)
	}
	return res, true, nil
}

func (c *ProbeCache) Put(ctx context.Context, host string, res domain.VerificationResult) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyPrefix+host, raw, c.ttl).Err()
}

func (c *ProbeCache) Close() error { return c.rdb.Close() }
