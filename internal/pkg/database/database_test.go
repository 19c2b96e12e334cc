package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestPGCode(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pq.Error{Code: CodeUniqueViolation})
	if !IsUniqueViolation(unique) {
		t.Fatal("expected wrapped unique violation to be detected")
	}
	if IsForeignKeyViolation(unique) {
		t.Fatal("unique violation is not a foreign key violation")
	}
	if !IsForeignKeyViolation(&pq.Error{Code: CodeForeignKeyViolation}) {
		t.Fatal("expected foreign key violation")
	}
	if PGCode(errors.New("plain")) != "" {
		t.Fatal("expected empty code for non-pq error")
	}
}

func TestRedisOptions(t *testing.T) {
	opt, err := redisOptions(RedisConfig{URL: "redis://localhost:6379/2"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opt.DB != 2 || opt.PoolSize != defaultRedisPoolSize || opt.MinIdleConns != defaultRedisMinIdle {
		t.Errorf("options = db %d pool %d idle %d", opt.DB, opt.PoolSize, opt.MinIdleConns)
	}

	opt, err = redisOptions(RedisConfig{URL: "redis://localhost:6379/0", PoolSize: 4, MinIdleConns: 8})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opt.PoolSize != 4 || opt.MinIdleConns != 4 {
		t.Errorf("pool %d idle %d, want idle capped at pool", opt.PoolSize, opt.MinIdleConns)
	}

	if _, err := redisOptions(RedisConfig{URL: "::not a url"}); err == nil {
		t.Error("expected parse error")
	}
}

func TestNewRedisWithoutURL(t *testing.T) {
	client, err := NewRedis(RedisConfig{})
	if client != nil || err != nil {
		t.Fatalf("got %v, %v; want nil, nil", client, err)
	}
	if err := PingRedis(context.Background(), nil); err != nil {
		t.Errorf("ping nil client: %v", err)
	}
}
