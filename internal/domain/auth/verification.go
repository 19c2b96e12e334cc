package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key prefixes
const (
	keyPrefixCooldown = "otp:cooldown:"
	keyPrefixCode     = "otp:code:"
	keyPrefixAttempts = "otp:attempts:"
)

// CodeStore keeps OTP cooldowns and hashed codes with explicit TTLs.
type CodeStore interface {
	// ClaimCooldown starts a cooldown for phone. When one is already
	// running it returns false and the time left.
	ClaimCooldown(ctx context.Context, phone string, ttl time.Duration) (bool, time.Duration, error)
	ReleaseCooldown(ctx context.Context, phone string) error
	SaveCode(ctx context.Context, phone, hash string, ttl time.Duration) error
	// CodeHash returns "" when no code is pending.
	CodeHash(ctx context.Context, phone string) (string, error)
	// Fail counts a wrong guess and returns the running total.
	Fail(ctx context.Context, phone string, ttl time.Duration) (int64, error)
	DeleteCode(ctx context.Context, phone string) error
}

// RedisCodeStore implements CodeStore on Redis.
type RedisCodeStore struct {
	redis *redis.Client
}

func NewRedisCodeStore(client *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{redis: client}
}

func (s *RedisCodeStore) ClaimCooldown(ctx context.Context, phone string, ttl time.Duration) (bool, time.Duration, error) {
	key := keyPrefixCooldown + phone
	ok, err := s.redis.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, 0, fmt.Errorf("claim otp cooldown: %w", err)
	}
	if ok {
		return true, 0, nil
	}

	left, err := s.redis.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("read otp cooldown: %w", err)
	}
	if left < 0 {
		left = ttl
	}
	return false, left, nil
}

func (s *RedisCodeStore) ReleaseCooldown(ctx context.Context, phone string) error {
	return s.redis.Del(ctx, keyPrefixCooldown+phone).Err()
}

func (s *RedisCodeStore) SaveCode(ctx context.Context, phone, hash string, ttl time.Duration) error {
	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, keyPrefixCode+phone, hash, ttl)
	pipe.Del(ctx, keyPrefixAttempts+phone)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store otp code: %w", err)
	}
	return nil
}

func (s *RedisCodeStore) CodeHash(ctx context.Context, phone string) (string, error) {
	hash, err := s.redis.Get(ctx, keyPrefixCode+phone).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read otp code: %w", err)
	}
	return hash, nil
}

func (s *RedisCodeStore) Fail(ctx context.Context, phone string, ttl time.Duration) (int64, error) {
	key := keyPrefixAttempts + phone
	n, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("count otp attempt: %w", err)
	}
	if n == 1 {
		s.redis.Expire(ctx, key, ttl)
	}
	return n, nil
}

func (s *RedisCodeStore) DeleteCode(ctx context.Context, phone string) error {
	return s.redis.Del(ctx, keyPrefixCode+phone, keyPrefixAttempts+phone).Err()
}
