// Package redis builds the instrumented client that backs the shared
// circuit breaker state.
package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/autodesk-forge/forge-api-go-client/pkg/core"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

const (
	defaultDialTimeout  = 2 * time.Second
	defaultReadTimeout  = 2 * time.Second
	defaultWriteTimeout = 2 * time.Second
	defaultPoolTimeout  = 2 * time.Second
	defaultPingTimeout  = 3 * time.Second

	defaultPoolSize     = 20
	defaultMinIdleConns = 2
)

type Config struct {
	// Typically "localhost:6379"
	Addr     string
	Password string
	DB       int
}

func ConfigFrom(c core.RedisConfig) Config {
	return Config{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	}
}

func NewClient(c Config, logger *slog.Logger) *redis.Client {
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(
		slog.String("component", "redis"),
		slog.String("addr", c.Addr),
		slog.Int("db", c.DB),
	)

	opts := &redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		PoolTimeout:  defaultPoolTimeout,
		PoolSize:     defaultPoolSize,
		MinIdleConns: defaultMinIdleConns,
	}

	logger.Info("initializing redis client")

	rdb := redis.NewClient(opts)

	if err := redisotel.InstrumentTracing(rdb); err != nil {
		logger.Warn("otel tracing instrumentation failed", slog.Any("err", err))
	}
	if err := redisotel.InstrumentMetrics(rdb); err != nil {
		logger.Warn("otel metrics instrumentation failed", slog.Any("err", err))
	}

	return rdb
}

// Ping checks connectivity, bounding the wait when ctx has no deadline.
func Ping(ctx context.Context, rdb *redis.Client) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultPingTimeout)
		defer cancel()
	}
	return rdb.Ping(ctx).Err()
}
