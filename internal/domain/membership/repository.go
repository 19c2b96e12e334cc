package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Repository reads payments and tiers.
type Repository interface {
	PaymentReader
	TierReader
	UpsertTier(ctx context.Context, t *Tier) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates membership repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListEntitling(ctx context.Context, userID string) ([]*Payment, error) {
	query := `
		SELECT id, price_id, type, scene, interval, user_id, customer_id, subscription_id,
			status, paid, period_start, period_end, cancel_at_period_end,
			trial_start, trial_end, created_at
		FROM payment
		WHERE user_id = $1 AND paid = true
			AND (
				(type = 'one_time' AND scene = 'lifetime' AND status = 'completed')
				OR (type = 'subscription' AND status IN ('active', 'trialing'))
			)
		ORDER BY created_at DESC
	`
	var payments []*Payment
	if err := r.db.SelectContext(ctx, &payments, query, userID); err != nil {
		return nil, fmt.Errorf("%w: list payments: %v", ErrInternal, err)
	}
	return payments, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*Tier, error) {
	query := `
		SELECT id, code, name, level, discount_rate, disabled, sort_order
		FROM membership_tier
		WHERE code = $1
		LIMIT 1
	`
	var t Tier
	if err := r.db.GetContext(ctx, &t, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: load tier: %v", ErrInternal, err)
	}
	return &t, nil
}

func (r *repository) UpsertTier(ctx context.Context, t *Tier) error {
	query := `
		INSERT INTO membership_tier (id, code, name, level, discount_rate, disabled, sort_order)
		VALUES (:id, :code, :name, :level, :discount_rate, :disabled, :sort_order)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			level = EXCLUDED.level,
			discount_rate = EXCLUDED.discount_rate,
			disabled = EXCLUDED.disabled,
			sort_order = EXCLUDED.sort_order,
			updated_at = NOW()
	`
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("%w: upsert tier %s: %v", ErrInternal, t.Code, err)
	}
	return nil
}
