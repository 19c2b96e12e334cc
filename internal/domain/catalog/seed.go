package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML layout accepted by the seed-catalog command.
type SeedFile struct {
	Products []SeedProduct `yaml:"products"`
}

type SeedProduct struct {
	ID                 string      `yaml:"id"`
	Name               string      `yaml:"name"`
	Description        string      `yaml:"description"`
	ProductType        ProductType `yaml:"product_type"`
	StripePriceID      string      `yaml:"stripe_price_id"`
	Amount             int64       `yaml:"amount"`
	Currency           string      `yaml:"currency"`
	PaymentType        PaymentType `yaml:"payment_type"`
	Interval           string      `yaml:"interval"`
	TrialPeriodDays    int         `yaml:"trial_period_days"`
	AllowPromotionCode bool        `yaml:"allow_promotion_code"`
	Popular            bool        `yaml:"popular"`
	Disabled           bool        `yaml:"disabled"`
	SortOrder          int         `yaml:"sort_order"`
	Config             yaml.Node   `yaml:"config"`
}

// ParseSeed reads a seed file and returns decoded products. The config of
// each entry is checked against its product type.
func ParseSeed(r io.Reader) ([]*Product, error) {
	var file SeedFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	products := make([]*Product, 0, len(file.Products))
	for i, sp := range file.Products {
		if sp.ID == "" || sp.Name == "" {
			return nil, fmt.Errorf("seed product %d: id and name are required", i)
		}
		p := &Product{
			ID:                 sp.ID,
			Name:               sp.Name,
			Description:        nonEmpty(sp.Description),
			ProductType:        sp.ProductType,
			StripePriceID:      nonEmpty(sp.StripePriceID),
			Amount:             sp.Amount,
			Currency:           sp.Currency,
			PaymentType:        sp.PaymentType,
			Interval:           nonEmpty(sp.Interval),
			AllowPromotionCode: sp.AllowPromotionCode,
			Popular:            sp.Popular,
			Disabled:           sp.Disabled,
			SortOrder:          sp.SortOrder,
		}
		if p.Currency == "" {
			p.Currency = "USD"
		}
		if sp.TrialPeriodDays > 0 {
			days := sp.TrialPeriodDays
			p.TrialPeriodDays = &days
		}

		var cfg interface{}
		switch sp.ProductType {
		case ProductTypeSubscriptionPlan:
			p.Plan = &PlanConfig{}
			cfg = p.Plan
		case ProductTypeCreditPackage:
			p.Package = &PackageConfig{}
			cfg = p.Package
		default:
			return nil, fmt.Errorf("seed product %s: unknown product type %q", sp.ID, sp.ProductType)
		}
		if !sp.Config.IsZero() {
			if err := sp.Config.Decode(cfg); err != nil {
				return nil, fmt.Errorf("seed product %s: config: %w", sp.ID, err)
			}
		}
		raw, err := json.Marshal(cfg)
		if err != nil {
			return nil, err
		}
		s := string(raw)
		p.ConfigRaw = &s

		products = append(products, p)
	}
	return products, nil
}

// Seed upserts products and returns how many were written.
func (s *Service) Seed(ctx context.Context, products []*Product) (int, error) {
	for i, p := range products {
		if err := s.repo.Upsert(ctx, p); err != nil {
			return i, err
		}
	}
	return len(products), nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
