package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

const ticketKeyPrefix = "sso_ticket:"

// TicketStore keeps SSO tickets until they are taken or expire.
type TicketStore interface {
	Put(ctx context.Context, ticket, userID string, ttl time.Duration) error
	// Take returns the owner and deletes the ticket. Missing or expired
	// tickets return "".
	Take(ctx context.Context, ticket string) (string, error)
}

// NewTicketStore uses Redis when available and the verification table
// otherwise.
func NewTicketStore(client *redis.Client, db *sqlx.DB) TicketStore {
	if client != nil {
		return &RedisTicketStore{client: client}
	}
	return &DBTicketStore{db: db, now: time.Now}
}

type RedisTicketStore struct {
	client *redis.Client
}

func (s *RedisTicketStore) Put(ctx context.Context, ticket, userID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, ticketKeyPrefix+ticket, userID, ttl).Err(); err != nil {
		return fmt.Errorf("%w: store ticket: %v", ErrInternal, err)
	}
	return nil
}

func (s *RedisTicketStore) Take(ctx context.Context, ticket string) (string, error) {
	userID, err := s.client.GetDel(ctx, ticketKeyPrefix+ticket).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: take ticket: %v", ErrInternal, err)
	}
	return userID, nil
}

// DBTicketStore keeps tickets in the verification table.
type DBTicketStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func (s *DBTicketStore) Put(ctx context.Context, ticket, userID string, ttl time.Duration) error {
	query := `
		INSERT INTO verification (id, identifier, value, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.ExecContext(ctx, query, uuid.NewString(), ticketKeyPrefix+ticket, userID, s.now().Add(ttl)); err != nil {
		return fmt.Errorf("%w: store ticket: %v", ErrInternal, err)
	}
	return nil
}

func (s *DBTicketStore) Take(ctx context.Context, ticket string) (string, error) {
	var row struct {
		Value     string    `db:"value"`
		ExpiresAt time.Time `db:"expires_at"`
	}
	query := `DELETE FROM verification WHERE identifier = $1 RETURNING value, expires_at`
	if err := s.db.GetContext(ctx, &row, query, ticketKeyPrefix+ticket); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("%w: take ticket: %v", ErrInternal, err)
	}
	if !row.ExpiresAt.After(s.now()) {
		return "", nil
	}
	return row.Value, nil
}
