package credit

import (
	"context"
	"time"
)

// Store is the persistence contract used by Service. Methods called on the
// txStore handed to WithTx run in that transaction.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	UserExists(ctx context.Context, userID string) (bool, error)

	// EnsureBalance creates a zero balance row if missing. Returns
	// ErrUserNotFound when the user does not exist.
	EnsureBalance(ctx context.Context, userID string) error
	// LockBalance returns the balance row locked for update, or nil.
	LockBalance(ctx context.Context, userID string) (*Balance, error)
	GetBalance(ctx context.Context, userID string) (*Balance, error)
	SetBalance(ctx context.Context, userID string, credits int64, at time.Time) error

	FindByIdempotencyKey(ctx context.Context, userID string, txType TxType, key string) (*Transaction, error)
	// ListLots returns spendable lots in FIFO order.
	ListLots(ctx context.Context, userID string, at time.Time) ([]Transaction, error)
	SetRemaining(ctx context.Context, txID string, remaining int64, at time.Time) error
	// InsertTransaction returns ErrDuplicateIdempotencyKey on key collisions.
	InsertTransaction(ctx context.Context, tx *Transaction) error

	ListTransactions(ctx context.Context, filter ListFilter) ([]Transaction, int, error)
	AllTransactions(ctx context.Context, userID string) ([]Transaction, error)

	// ListExpiredLots returns unprocessed lots whose expiration_date <= at.
	ListExpiredLots(ctx context.Context, at time.Time, limit int) ([]Transaction, error)
	// LockLot re-reads a lot under lock, or nil.
	LockLot(ctx context.Context, txID string) (*Transaction, error)
	MarkExpired(ctx context.Context, txID string, at time.Time) error
}
