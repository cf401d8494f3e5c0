package database

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig describes the Redis instance that holds the cross-instance
// refresh locks. Timeout bounds dialing and every command, so a slow Redis
// fails a lock attempt instead of stalling the refresh behind it.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Timeout  time.Duration
	PoolSize int
}

// Addr returns host:port, bracketing IPv6 hosts.
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c RedisConfig) options() *redis.Options {
	opts := &redis.Options{
		Addr:     c.Addr(),
		Password: c.Password,
		DB:       c.DB,
		PoolSize: c.PoolSize,
	}
	if c.Timeout > 0 {
		opts.DialTimeout = c.Timeout
		opts.ReadTimeout = c.Timeout
		opts.WriteTimeout = c.Timeout
	}
	return opts
}

// NewRedisClient connects to Redis and verifies the connection with a ping,
// retrying with the same backoff as the PostgreSQL pool.
func NewRedisClient(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	var lastErr error
	for attempt := 0; attempt < connectAttempts; attempt++ {
		if attempt > 0 {
			wait := connectBackoff(attempt - 1)
			if logger != nil {
				logger.Warn("redis connection failed, retrying",
					slog.String("addr", cfg.Addr()),
					slog.Int("attempt", attempt+1),
					slog.Duration("backoff", wait),
					slog.String("error", lastErr.Error()),
				)
			}
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("connect to redis: %w", ctx.Err())
			case <-time.After(wait):
			}
		}

		client := redis.NewClient(cfg.options())
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			lastErr = err
			continue
		}
		if logger != nil {
			logger.Info("connected to redis", slog.String("addr", cfg.Addr()), slog.Int("db", cfg.DB))
		}
		return client, nil
	}

	return nil, fmt.Errorf("connect to redis after %d attempts: %w", connectAttempts, lastErr)
}
