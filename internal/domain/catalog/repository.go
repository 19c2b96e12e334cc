package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Repository defines catalog data access
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	FindByPriceID(ctx context.Context, priceID string) (*Product, error)
	List(ctx context.Context, productType ProductType, includeDisabled bool) ([]*Product, error)
	Upsert(ctx context.Context, p *Product) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates catalog repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const productColumns = `
	id, name, description, product_type, config, stripe_price_id, amount,
	currency, payment_type, interval, trial_period_days, allow_promotion_code,
	original_amount, discount_rate, popular, disabled, sort_order,
	created_at, updated_at`

func (r *repository) GetByID(ctx context.Context, id string) (*Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM product WHERE id = $1`, id)
}

func (r *repository) FindByPriceID(ctx context.Context, priceID string) (*Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM product WHERE stripe_price_id = $1 LIMIT 1`, priceID)
}

func (r *repository) getOne(ctx context.Context, query string, arg string) (*Product, error) {
	var p Product
	if err := r.db.GetContext(ctx, &p, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: load product: %v", ErrInternal, err)
	}
	if err := p.Decode(); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns products ordered by sort order then creation time. An empty
// productType lists every type.
func (r *repository) List(ctx context.Context, productType ProductType, includeDisabled bool) ([]*Product, error) {
	query := `SELECT ` + productColumns + ` FROM product
		WHERE ($1 = '' OR product_type = $1) AND ($2 OR disabled = false)
		ORDER BY sort_order ASC, created_at ASC`

	var products []*Product
	if err := r.db.SelectContext(ctx, &products, query, string(productType), includeDisabled); err != nil {
		return nil, fmt.Errorf("%w: list products: %v", ErrInternal, err)
	}
	for _, p := range products {
		if err := p.Decode(); err != nil {
			return nil, err
		}
	}
	return products, nil
}

// Upsert inserts or replaces a product by id.
func (r *repository) Upsert(ctx context.Context, p *Product) error {
	query := `
		INSERT INTO product (
			id, name, description, product_type, config, stripe_price_id, amount,
			currency, payment_type, interval, trial_period_days, allow_promotion_code,
			original_amount, discount_rate, popular, disabled, sort_order
		) VALUES (
			:id, :name, :description, :product_type, :config, :stripe_price_id, :amount,
			:currency, :payment_type, :interval, :trial_period_days, :allow_promotion_code,
			:original_amount, :discount_rate, :popular, :disabled, :sort_order
		)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			product_type = EXCLUDED.product_type,
			config = EXCLUDED.config,
			stripe_price_id = EXCLUDED.stripe_price_id,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			payment_type = EXCLUDED.payment_type,
			interval = EXCLUDED.interval,
			trial_period_days = EXCLUDED.trial_period_days,
			allow_promotion_code = EXCLUDED.allow_promotion_code,
			original_amount = EXCLUDED.original_amount,
			discount_rate = EXCLUDED.discount_rate,
			popular = EXCLUDED.popular,
			disabled = EXCLUDED.disabled,
			sort_order = EXCLUDED.sort_order,
			updated_at = NOW()
	`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("%w: upsert product %s: %v", ErrInternal, p.ID, err)
	}
	return nil
}
