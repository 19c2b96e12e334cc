package catalog

import (
	"context"
	"errors"

	"github.com/bizhub/credits-api/internal/pkg/logger"
)

// Service exposes the catalog as plan and package views.
type Service struct {
	repo Repository
}

// NewService creates catalog service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Plans returns every enabled subscription plan.
func (s *Service) Plans(ctx context.Context) ([]*PricePlan, error) {
	products, err := s.repo.List(ctx, ProductTypeSubscriptionPlan, false)
	if err != nil {
		return nil, err
	}

	plans := make([]*PricePlan, 0, len(products))
	for _, p := range products {
		plan, err := ToPricePlan(p)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// FreePlan returns an enabled plan flagged free, or nil when none is
// configured. With several, the first by sort order wins.
func (s *Service) FreePlan(ctx context.Context) (*PricePlan, error) {
	plans, err := s.Plans(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range plans {
		if p.IsFree && !p.Disabled {
			return p, nil
		}
	}
	return nil, nil
}

// Packages returns enabled credit packages. Packages without a price id
// are skipped with a warning.
func (s *Service) Packages(ctx context.Context) ([]*CreditPackage, error) {
	products, err := s.repo.List(ctx, ProductTypeCreditPackage, false)
	if err != nil {
		return nil, err
	}

	packages := make([]*CreditPackage, 0, len(products))
	for _, p := range products {
		pkg, err := ToCreditPackage(p)
		if errors.Is(err, ErrMissingPrice) {
			logger.LogWarn(ctx, "credit package without price", "product_id", p.ID)
			continue
		}
		if err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}
	return packages, nil
}

// PackageByPriceID resolves a price id to its credit package.
func (s *Service) PackageByPriceID(ctx context.Context, priceID string) (*CreditPackage, error) {
	p, err := s.repo.FindByPriceID(ctx, priceID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return ToCreditPackage(p)
}
