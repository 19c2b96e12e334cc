package noncecache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "partner:nonce:"

// Store remembers nonces seen within the signature window.
type Store interface {
	// Claim records nonce for ttl. It returns false when the nonce was
	// already claimed inside the window.
	Claim(ctx context.Context, nonce string, ttl time.Duration) (bool, error)
}

// RedisStore claims nonces with SETNX so replicas share one window.
type RedisStore struct {
	client *redis.Client
}

// New returns a Redis-backed store, or a no-op store when client is nil.
func New(client *redis.Client) Store {
	if client == nil {
		return Noop{}
	}
	return &RedisStore{client: client}
}

func (s *RedisStore) Claim(ctx context.Context, nonce string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, keyPrefix+nonce, 1, ttl).Result()
}

// Noop accepts every nonce.
type Noop struct{}

func (Noop) Claim(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}
