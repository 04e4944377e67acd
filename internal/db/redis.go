/**
 * @description
 * Redis client for the recommendation cache and the retirement channel.
 * The pool is sized from the retirement worker count: every worker may hold a
 * connection while it removes a listing from cached rankings, the stream hub keeps
 * one subscription open, and the rest serves request-path cache reads.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9
 */

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/farm2consumer/backend/internal/config"
	"github.com/farm2consumer/backend/internal/logger"
	"github.com/redis/go-redis/v9"
)

const (
	// requestConns is the share of the pool reserved for request handlers.
	requestConns    = 10
	// subscriberConns covers the retirement stream hub's subscription.
	subscriberConns = 1

	maxRedisTimeout = 5 * time.Second
)

// ConnectRedis opens a client for cfg.Redis.URL and pings it.
func ConnectRedis(cfg *config.Config) (*redis.Client, error) {
	opt, err := redisOptions(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), opt.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("✅ Connected to Redis (pool %d, min idle %d)", opt.PoolSize, opt.MinIdleConns)
	return client, nil
}

// redisOptions parses the URL and fills in whatever it left unset. Values given
// in the URL query win.
func redisOptions(cfg *config.Config) (*redis.Options, error) {
	opt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, err
	}

	workers := cfg.Retirement.Workers
	if workers < 1 {
		workers = 1
	}

	// A cache call must give up before the retirement step that issued it times out.
	timeout := maxRedisTimeout
	if ct := cfg.Retirement.CallTimeout; ct > 0 && ct < timeout {
		timeout = ct
	}

	if opt.ReadTimeout == 0 {
		opt.ReadTimeout = timeout
	}
	if opt.WriteTimeout == 0 {
		opt.WriteTimeout = timeout
	}
	if opt.DialTimeout == 0 {
		opt.DialTimeout = timeout
	}
	if opt.PoolTimeout == 0 {
		opt.PoolTimeout = timeout
	}
	if opt.MaxRetries == 0 {
		opt.MaxRetries = 2
	}
	if opt.MinRetryBackoff == 0 {
		opt.MinRetryBackoff = 200 * time.Millisecond
	}
	if opt.MaxRetryBackoff == 0 {
		opt.MaxRetryBackoff = 2 * time.Second
	}
	if opt.PoolSize == 0 {
		opt.PoolSize = requestConns + workers + subscriberConns
	}
	if opt.MinIdleConns == 0 {
		opt.MinIdleConns = workers
	}
	return opt, nil
}
