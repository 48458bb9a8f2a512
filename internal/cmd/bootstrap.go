package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/sec-edgar-client/internal/config"
	"github.com/Sternrassler/sec-edgar-client/pkg/cache"
	"github.com/Sternrassler/sec-edgar-client/pkg/client"
	"github.com/Sternrassler/sec-edgar-client/pkg/edgar"
	"github.com/Sternrassler/sec-edgar-client/pkg/facts"
	"github.com/Sternrassler/sec-edgar-client/pkg/logging"
	"github.com/Sternrassler/sec-edgar-client/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
)

// clientConfig maps the command line configuration onto the facade. When
// Redis is configured, the request budget (and the cache, if enabled) are
// shared with every other process using the same Redis. The returned
// cleanup closes the Redis connection.
func clientConfig(ctx context.Context, c *config.Config) (edgar.Config, func(), error) {
	format, err := facts.ParseFormat(c.Extract.Format)
	if err != nil {
		return edgar.Config{}, nil, err
	}

	ec := edgar.Config{
		CompanyName:       c.UserAgent.Company,
		Email:             c.UserAgent.Email,
		DownloadFolder:    c.DownloadFolder,
		RequestsPerSecond: c.RateLimit.RequestsPerSecond,
		Retry: client.RetryConfig{
			MaxAttempts:       c.Retry.MaxAttempts,
			InitialBackoff:    c.Retry.InitialBackoff,
			MaxBackoff:        c.Retry.MaxBackoff,
			BackoffMultiplier: c.Retry.BackoffFactor,
		},
		CacheTTL:      c.Cache.TTL,
		ExtractFormat: format,
	}
	cleanup := func() {}

	if c.Redis.Addr == "" {
		if c.Cache.Enabled {
			ec.Cache = cache.NewMemoryStore(10 * time.Minute)
		}
		return ec, cleanup, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return edgar.Config{}, nil, fmt.Errorf("connect to redis at %s: %w", c.Redis.Addr, err)
	}
	cleanup = func() { rdb.Close() }

	ec.Budget = ratelimit.NewRedisWindow(rdb, c.RateLimit.RedisKey,
		c.RateLimit.RequestsPerSecond, ratelimit.DefaultWindow, logging.NewLogger("ratelimit"))
	if c.Cache.Enabled {
		ec.Cache = cache.NewRedisStore(rdb)
	}
	return ec, cleanup, nil
}

// newClient builds the facade from the loaded configuration.
func newClient(ctx context.Context) (*edgar.Client, func(), error) {
	if err := cfg.RequireUserAgent(); err != nil {
		return nil, nil, err
	}
	ec, cleanup, err := clientConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	c, err := edgar.New(ctx, ec)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return c, func() {
		c.Close()
		cleanup()
	}, nil
}
