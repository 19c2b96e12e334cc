package catalog

import "fmt"

// ToPricePlan maps a decoded subscription_plan product to its plan view.
func ToPricePlan(p *Product) (*PricePlan, error) {
	if p.ProductType != ProductTypeSubscriptionPlan {
		return nil, fmt.Errorf("%w: %s", ErrNotAPlan, p.ID)
	}
	if p.Plan == nil {
		if err := p.Decode(); err != nil {
			return nil, err
		}
	}

	plan := &PricePlan{
		ID:         p.Name,
		Prices:     []Price{},
		IsFree:     p.Plan.IsFree,
		IsLifetime: p.Plan.IsLifetime,
		Popular:    p.Popular,
		Disabled:   p.Disabled,
		Credits:    p.Plan.Credits,
	}
	if p.StripePriceID != nil && *p.StripePriceID != "" {
		plan.Prices = append(plan.Prices, priceOf(p))
	}
	return plan, nil
}

// ToCreditPackage maps a decoded credit_package product to its package
// view. Packages must carry a price id.
func ToCreditPackage(p *Product) (*CreditPackage, error) {
	if p.ProductType != ProductTypeCreditPackage {
		return nil, fmt.Errorf("%w: %s", ErrNotAPackage, p.ID)
	}
	if p.StripePriceID == nil || *p.StripePriceID == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingPrice, p.Name)
	}
	if p.Package == nil {
		if err := p.Decode(); err != nil {
			return nil, err
		}
	}

	return &CreditPackage{
		ID:         p.Name,
		Amount:     p.Package.Amount,
		Price:      priceOf(p),
		Popular:    p.Popular,
		ExpireDays: p.Package.ExpireDays,
		Disabled:   p.Disabled,
	}, nil
}

func priceOf(p *Product) Price {
	price := Price{
		Type:               PaymentTypeOneTime,
		PriceID:            *p.StripePriceID,
		Amount:             MinorToUnits(p.Amount),
		Currency:           p.Currency,
		AllowPromotionCode: p.AllowPromotionCode,
		Disabled:           p.Disabled,
	}
	if p.TrialPeriodDays != nil {
		price.TrialPeriodDays = *p.TrialPeriodDays
	}
	if p.PaymentType == PaymentTypeSubscription {
		price.Type = PaymentTypeSubscription
		if p.Interval != nil && *p.Interval != "" {
			price.Interval = IntervalYear
			if *p.Interval == IntervalMonth {
				price.Interval = IntervalMonth
			}
		}
	}
	return price
}
