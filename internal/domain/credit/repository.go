package credit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bizhub/credits-api/internal/pkg/database"
)

const queryTimeout = 3 * time.Second

const txColumns = `id, user_id, type, description, amount, remaining_amount, payment_id, idempotency_key,
	expiration_date, expiration_date_processed_at, created_at, updated_at`

type queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Repository is the Postgres Store.
type Repository struct {
	db *sqlx.DB
	q  queryer
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db, q: db}
}

// WithTx runs fn in one transaction. Nested calls reuse the outer transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if r.db == nil {
		return fn(ctx, r)
	}

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrInternal, err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &Repository{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx: %v", ErrInternal, err)
	}
	return nil
}

func (r *Repository) UserExists(ctx context.Context, userID string) (bool, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exists bool
	if err := r.q.GetContext(ctx2, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID); err != nil {
		return false, fmt.Errorf("%w: user exists: %v", ErrInternal, err)
	}
	return exists, nil
}

func (r *Repository) EnsureBalance(ctx context.Context, userID string) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.q.ExecContext(ctx2, `
		INSERT INTO user_credit (id, user_id, current_credits)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.NewString(), userID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: ensure balance: %v", ErrInternal, err)
	}
	return nil
}

func (r *Repository) LockBalance(ctx context.Context, userID string) (*Balance, error) {
	return r.balance(ctx, `SELECT id, user_id, current_credits, created_at, updated_at FROM user_credit WHERE user_id = $1 FOR UPDATE`, userID)
}

func (r *Repository) GetBalance(ctx context.Context, userID string) (*Balance, error) {
	return r.balance(ctx, `SELECT id, user_id, current_credits, created_at, updated_at FROM user_credit WHERE user_id = $1`, userID)
}

func (r *Repository) balance(ctx context.Context, query, userID string) (*Balance, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var b Balance
	if err := r.q.GetContext(ctx2, &b, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get balance: %v", ErrInternal, err)
	}
	return &b, nil
}

func (r *Repository) SetBalance(ctx context.Context, userID string, credits int64, at time.Time) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.q.ExecContext(ctx2, `UPDATE user_credit SET current_credits = $2, updated_at = $3 WHERE user_id = $1`, userID, credits, at)
	if err != nil {
		return fmt.Errorf("%w: update balance: %v", ErrInternal, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: balance row missing for %s", ErrInternal, userID)
	}
	return nil
}

func (r *Repository) FindByIdempotencyKey(ctx context.Context, userID string, txType TxType, key string) (*Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var t Transaction
	err := r.q.GetContext(ctx2, &t, `
		SELECT `+txColumns+`
		FROM credit_transaction
		WHERE user_id = $1 AND type = $2 AND (idempotency_key = $3 OR payment_id = $3)
		ORDER BY created_at ASC
		LIMIT 1
	`, userID, txType, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: find idempotency key: %v", ErrInternal, err)
	}
	return &t, nil
}

func (r *Repository) ListLots(ctx context.Context, userID string, at time.Time) ([]Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	lots := make([]Transaction, 0)
	err := r.q.SelectContext(ctx2, &lots, `
		SELECT `+txColumns+`
		FROM credit_transaction
		WHERE user_id = $1
		  AND type NOT IN ('USAGE', 'EXPIRE', 'TRANSFER_OUT')
		  AND remaining_amount > 0
		  AND (expiration_date IS NULL OR expiration_date > $2)
		ORDER BY expiration_date ASC NULLS LAST, created_at ASC
		FOR UPDATE
	`, userID, at)
	if err != nil {
		return nil, fmt.Errorf("%w: list lots: %v", ErrInternal, err)
	}
	return lots, nil
}

func (r *Repository) SetRemaining(ctx context.Context, txID string, remaining int64, at time.Time) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.q.ExecContext(ctx2, `UPDATE credit_transaction SET remaining_amount = $2, updated_at = $3 WHERE id = $1`, txID, remaining, at)
	if err != nil {
		return fmt.Errorf("%w: update lot: %v", ErrInternal, err)
	}
	return nil
}

func (r *Repository) InsertTransaction(ctx context.Context, t *Transaction) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.q.ExecContext(ctx2, `
		INSERT INTO credit_transaction (
			id, user_id, type, description, amount, remaining_amount, payment_id, idempotency_key,
			expiration_date, expiration_date_processed_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, t.ID, t.UserID, t.Type, t.Description, t.Amount, t.RemainingAmount, t.PaymentID, t.IdempotencyKey,
		t.ExpirationDate, t.ExpirationDateProcessedAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateIdempotencyKey
		}
		if database.IsForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: insert transaction: %v", ErrInternal, err)
	}
	return nil
}

func (r *Repository) ListTransactions(ctx context.Context, filter ListFilter) ([]Transaction, int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter = filter.Normalize()
	where := " WHERE user_id = $1"
	args := []interface{}{filter.UserID}
	idx := 2
	if filter.Type != "" {
		where += fmt.Sprintf(" AND type = $%d", idx)
		args = append(args, filter.Type)
		idx++
	}

	var total int
	if err := r.q.GetContext(ctx2, &total, `SELECT COUNT(*) FROM credit_transaction`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("%w: count transactions: %v", ErrInternal, err)
	}

	query := strings.TrimSpace(`SELECT `+txColumns+` FROM credit_transaction`+where) +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, filter.PageSize, filter.Offset())

	items := make([]Transaction, 0)
	if err := r.q.SelectContext(ctx2, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("%w: list transactions: %v", ErrInternal, err)
	}
	return items, total, nil
}

func (r *Repository) AllTransactions(ctx context.Context, userID string) ([]Transaction, error) {
	items := make([]Transaction, 0)
	err := r.q.SelectContext(ctx, &items, `
		SELECT `+txColumns+`
		FROM credit_transaction
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: all transactions: %v", ErrInternal, err)
	}
	return items, nil
}

func (r *Repository) ListExpiredLots(ctx context.Context, at time.Time, limit int) ([]Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	lots := make([]Transaction, 0)
	err := r.q.SelectContext(ctx2, &lots, `
		SELECT `+txColumns+`
		FROM credit_transaction
		WHERE expiration_date IS NOT NULL
		  AND expiration_date <= $1
		  AND expiration_date_processed_at IS NULL
		  AND remaining_amount > 0
		ORDER BY expiration_date ASC, created_at ASC
		LIMIT $2
	`, at, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list expired lots: %v", ErrInternal, err)
	}
	return lots, nil
}

func (r *Repository) LockLot(ctx context.Context, txID string) (*Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var t Transaction
	err := r.q.GetContext(ctx2, &t, `SELECT `+txColumns+` FROM credit_transaction WHERE id = $1 FOR UPDATE`, txID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: lock lot: %v", ErrInternal, err)
	}
	return &t, nil
}

func (r *Repository) MarkExpired(ctx context.Context, txID string, at time.Time) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.q.ExecContext(ctx2, `
		UPDATE credit_transaction
		SET remaining_amount = 0, expiration_date_processed_at = $2, updated_at = $2
		WHERE id = $1
	`, txID, at)
	if err != nil {
		return fmt.Errorf("%w: mark expired: %v", ErrInternal, err)
	}
	return nil
}
