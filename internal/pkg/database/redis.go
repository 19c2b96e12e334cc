package database

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisConfig configures the shared client. Zero pool sizes take the defaults.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
}

const (
	defaultRedisPoolSize = 50
	defaultRedisMinIdle  = 10
)

// NewRedis connects to Redis. It returns nil, nil when no URL is set; nonce
// checks, SSO tickets and OTP then fall back or switch off.
func NewRedis(cfg RedisConfig) (*redis.Client, error) {
	if cfg.URL == "" {
		log.Warn().Msg("Redis URL not configured, running without Redis")
		return nil, nil
	}

	opt, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, err
	}

	log.Info().Int("pool_size", opt.PoolSize).Msg("Connected to Redis")
	return client, nil
}

func redisOptions(cfg RedisConfig) (*redis.Options, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opt.PoolSize = cfg.PoolSize
	if opt.PoolSize <= 0 {
		opt.PoolSize = defaultRedisPoolSize
	}
	opt.MinIdleConns = cfg.MinIdleConns
	if opt.MinIdleConns <= 0 {
		opt.MinIdleConns = defaultRedisMinIdle
	}
	if opt.MinIdleConns > opt.PoolSize {
		opt.MinIdleConns = opt.PoolSize
	}
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	return opt, nil
}

// PingRedis reports whether the client answers. A nil client is not an error.
func PingRedis(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Ping(ctx).Err()
}

// CloseRedis closes the Redis connection
func CloseRedis(client *redis.Client) {
	if client != nil {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing Redis connection")
		} else {
			log.Info().Msg("Redis connection closed")
		}
	}
}
