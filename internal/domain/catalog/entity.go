package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProductType discriminates the config blob stored on a product row.
type ProductType string

const (
	ProductTypeSubscriptionPlan ProductType = "subscription_plan"
	ProductTypeCreditPackage    ProductType = "credit_package"
)

// PaymentType is how a price is charged.
type PaymentType string

const (
	PaymentTypeSubscription PaymentType = "subscription"
	PaymentTypeOneTime      PaymentType = "one_time"
)

const (
	IntervalMonth = "month"
	IntervalYear  = "year"
)

// PlanCredits is the monthly credit allowance bundled with a plan.
type PlanCredits struct {
	Enable     bool  `json:"enable" yaml:"enable"`
	Amount     int64 `json:"amount" yaml:"amount"`
	ExpireDays int   `json:"expireDays" yaml:"expireDays"`
}

// PlanConfig is the config of a subscription_plan product.
type PlanConfig struct {
	IsFree     bool         `json:"isFree" yaml:"isFree"`
	IsLifetime bool         `json:"isLifetime" yaml:"isLifetime"`
	Credits    *PlanCredits `json:"credits,omitempty" yaml:"credits,omitempty"`
}

// PackageConfig is the config of a credit_package product.
type PackageConfig struct {
	Amount     int64 `json:"amount" yaml:"amount"`
	ExpireDays int   `json:"expireDays" yaml:"expireDays"`
}

// Product is a catalog row. Exactly one of Plan and Package is set after
// Decode, depending on ProductType.
type Product struct {
	ID                 string      `db:"id"`
	Name               string      `db:"name"`
	Description        *string     `db:"description"`
	ProductType        ProductType `db:"product_type"`
	ConfigRaw          *string     `db:"config"`
	StripePriceID      *string     `db:"stripe_price_id"`
	Amount             int64       `db:"amount"`
	Currency           string      `db:"currency"`
	PaymentType        PaymentType `db:"payment_type"`
	Interval           *string     `db:"interval"`
	TrialPeriodDays    *int        `db:"trial_period_days"`
	AllowPromotionCode bool        `db:"allow_promotion_code"`
	OriginalAmount     *int64      `db:"original_amount"`
	DiscountRate       *int        `db:"discount_rate"`
	Popular            bool        `db:"popular"`
	Disabled           bool        `db:"disabled"`
	SortOrder          int         `db:"sort_order"`
	CreatedAt          time.Time   `db:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at"`

	Plan    *PlanConfig    `db:"-"`
	Package *PackageConfig `db:"-"`
}

// Decode parses ConfigRaw into the config type matching ProductType.
// A missing config decodes to the zero config.
func (p *Product) Decode() error {
	raw := ""
	if p.ConfigRaw != nil {
		raw = strings.TrimSpace(*p.ConfigRaw)
	}

	switch p.ProductType {
	case ProductTypeSubscriptionPlan:
		p.Plan = &PlanConfig{}
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), p.Plan); err != nil {
				return fmt.Errorf("%w: product %s: plan config: %v", ErrInternal, p.ID, err)
			}
		}
	case ProductTypeCreditPackage:
		p.Package = &PackageConfig{}
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), p.Package); err != nil {
				return fmt.Errorf("%w: product %s: package config: %v", ErrInternal, p.ID, err)
			}
		}
	default:
		return fmt.Errorf("%w: product %s: unknown product type %q", ErrInternal, p.ID, p.ProductType)
	}
	return nil
}

// Price is a chargeable price of a plan or package in currency units.
type Price struct {
	Type               PaymentType     `json:"type"`
	PriceID            string          `json:"price_id"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Interval           string          `json:"interval,omitempty"`
	TrialPeriodDays    int             `json:"trial_period_days,omitempty"`
	AllowPromotionCode bool            `json:"allow_promotion_code"`
	Disabled           bool            `json:"disabled"`
}

// PricePlan is the plan view of a subscription_plan product. ID is the
// product name, which is what memberships and tiers are keyed by.
type PricePlan struct {
	ID         string       `json:"id"`
	Prices     []Price      `json:"prices"`
	IsFree     bool         `json:"is_free"`
	IsLifetime bool         `json:"is_lifetime"`
	Popular    bool         `json:"popular"`
	Disabled   bool         `json:"disabled"`
	Credits    *PlanCredits `json:"credits,omitempty"`
}

// HasPrice reports whether priceID is one of the plan's prices.
func (p *PricePlan) HasPrice(priceID string) bool {
	for _, pr := range p.Prices {
		if pr.PriceID == priceID {
			return true
		}
	}
	return false
}

// CreditPackage is the package view of a credit_package product.
type CreditPackage struct {
	ID         string `json:"id"`
	Amount     int64  `json:"amount"`
	Price      Price  `json:"price"`
	Popular    bool   `json:"popular"`
	ExpireDays int    `json:"expire_days,omitempty"`
	Disabled   bool   `json:"disabled"`
}

// MinorToUnits converts an amount in minor currency units to units.
func MinorToUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}
