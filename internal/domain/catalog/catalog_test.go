package catalog

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

type fakeRepo struct {
	products []*Product
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) FindByPriceID(_ context.Context, priceID string) (*Product, error) {
	for _, p := range f.products {
		if p.StripePriceID != nil && *p.StripePriceID == priceID {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) List(_ context.Context, t ProductType, includeDisabled bool) ([]*Product, error) {
	var out []*Product
	for _, p := range f.products {
		if (t == "" || p.ProductType == t) && (includeDisabled || !p.Disabled) {
			if err := p.Decode(); err != nil {
				return nil, err
			}
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) Upsert(_ context.Context, p *Product) error {
	f.products = append(f.products, p)
	return nil
}

func TestDecodeConfigUnion(t *testing.T) {
	plan := &Product{ID: "p1", ProductType: ProductTypeSubscriptionPlan,
		ConfigRaw: strPtr(`{"isFree":false,"isLifetime":true,"credits":{"enable":true,"amount":100,"expireDays":30}}`)}
	if err := plan.Decode(); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if !plan.Plan.IsLifetime || plan.Plan.Credits.Amount != 100 || plan.Package != nil {
		t.Errorf("plan config = %+v", plan.Plan)
	}

	pkg := &Product{ID: "k1", ProductType: ProductTypeCreditPackage, ConfigRaw: strPtr(`{"amount":500,"expireDays":90}`)}
	if err := pkg.Decode(); err != nil {
		t.Fatalf("decode package: %v", err)
	}
	if pkg.Package.Amount != 500 || pkg.Package.ExpireDays != 90 {
		t.Errorf("package config = %+v", pkg.Package)
	}

	empty := &Product{ID: "e1", ProductType: ProductTypeSubscriptionPlan}
	if err := empty.Decode(); err != nil || empty.Plan.IsFree {
		t.Errorf("empty config: err=%v plan=%+v", err, empty.Plan)
	}
}

func TestDecodeCorruptConfigIsInternal(t *testing.T) {
	tests := []*Product{
		{ID: "bad-json", ProductType: ProductTypeSubscriptionPlan, ConfigRaw: strPtr(`{"isFree":`)},
		{ID: "bad-type", ProductType: ProductTypeCreditPackage, ConfigRaw: strPtr(`{"amount":"lots"}`)},
		{ID: "bad-kind", ProductType: "bundle"},
	}
	for _, p := range tests {
		if err := p.Decode(); !errors.Is(err, ErrInternal) {
			t.Errorf("%s: err = %v, want ErrInternal", p.ID, err)
		}
	}
}

func TestToPricePlan(t *testing.T) {
	p := &Product{
		ID: "plan-pro", Name: "pro", ProductType: ProductTypeSubscriptionPlan,
		StripePriceID: strPtr("price_pro"), Amount: 1990, Currency: "USD",
		PaymentType: PaymentTypeSubscription, Interval: strPtr("month"),
		ConfigRaw: strPtr(`{"isFree":false,"isLifetime":false}`),
	}
	plan, err := ToPricePlan(p)
	if err != nil {
		t.Fatalf("to plan: %v", err)
	}
	if plan.ID != "pro" || len(plan.Prices) != 1 {
		t.Fatalf("plan = %+v", plan)
	}
	price := plan.Prices[0]
	if price.Amount.String() != "19.9" || price.Interval != IntervalMonth || price.Type != PaymentTypeSubscription {
		t.Errorf("price = %+v", price)
	}
	if !plan.HasPrice("price_pro") || plan.HasPrice("other") {
		t.Error("HasPrice mismatch")
	}

	yearly := *p
	yearly.Plan = nil
	yearly.Interval = strPtr("annual")
	plan, _ = ToPricePlan(&yearly)
	if plan.Prices[0].Interval != IntervalYear {
		t.Errorf("interval = %s, want year", plan.Prices[0].Interval)
	}

	if _, err := ToPricePlan(&Product{ID: "k", ProductType: ProductTypeCreditPackage}); !errors.Is(err, ErrNotAPlan) {
		t.Errorf("err = %v, want ErrNotAPlan", err)
	}
}

func TestToCreditPackageRequiresPrice(t *testing.T) {
	p := &Product{ID: "pack", Name: "credits-500", ProductType: ProductTypeCreditPackage, Amount: 990,
		ConfigRaw: strPtr(`{"amount":500,"expireDays":90}`)}
	if _, err := ToCreditPackage(p); !errors.Is(err, ErrMissingPrice) {
		t.Fatalf("err = %v, want ErrMissingPrice", err)
	}

	p.StripePriceID = strPtr("price_pack")
	pkg, err := ToCreditPackage(p)
	if err != nil {
		t.Fatalf("to package: %v", err)
	}
	if pkg.Amount != 500 || pkg.ExpireDays != 90 || pkg.Price.Amount.String() != "9.9" {
		t.Errorf("package = %+v", pkg)
	}
}

func TestServiceFreePlanAndPackages(t *testing.T) {
	repo := &fakeRepo{products: []*Product{
		{ID: "dis", Name: "old-free", ProductType: ProductTypeSubscriptionPlan, Disabled: true, ConfigRaw: strPtr(`{"isFree":true}`)},
		{ID: "free", Name: "free", ProductType: ProductTypeSubscriptionPlan, ConfigRaw: strPtr(`{"isFree":true}`)},
		{ID: "nopr", Name: "broken", ProductType: ProductTypeCreditPackage, ConfigRaw: strPtr(`{"amount":1}`)},
		{ID: "pack", Name: "credits-500", ProductType: ProductTypeCreditPackage, StripePriceID: strPtr("price_pack"), ConfigRaw: strPtr(`{"amount":500}`)},
	}}
	svc := NewService(repo)
	ctx := context.Background()

	free, err := svc.FreePlan(ctx)
	if err != nil || free == nil || free.ID != "free" {
		t.Fatalf("free plan = %+v, err = %v", free, err)
	}

	packages, err := svc.Packages(ctx)
	if err != nil {
		t.Fatalf("packages: %v", err)
	}
	if len(packages) != 1 || packages[0].ID != "credits-500" {
		t.Errorf("packages = %+v", packages)
	}

	pkg, err := svc.PackageByPriceID(ctx, "price_pack")
	if err != nil || pkg.Amount != 500 {
		t.Errorf("package by price = %+v, err = %v", pkg, err)
	}
	if _, err := svc.PackageByPriceID(ctx, "missing"); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("err = %v, want ErrProductNotFound", err)
	}
}

func TestParseSeed(t *testing.T) {
	f, err := os.Open("../../../configs/catalog.yaml")
	if err != nil {
		t.Fatalf("open seed: %v", err)
	}
	defer f.Close()

	products, err := ParseSeed(f)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(products) != 4 {
		t.Fatalf("products = %d, want 4", len(products))
	}

	byID := map[string]*Product{}
	for _, p := range products {
		byID[p.ID] = p
	}
	if lt := byID["plan-lifetime"]; lt == nil || !lt.Plan.IsLifetime || !strings.Contains(*lt.ConfigRaw, `"isLifetime":true`) {
		t.Errorf("lifetime plan = %+v", lt)
	}
	if pk := byID["pack-500"]; pk == nil || pk.Package.Amount != 500 || pk.Currency != "USD" {
		t.Errorf("package = %+v", pk)
	}

	repo := &fakeRepo{}
	n, err := NewService(repo).Seed(context.Background(), products)
	if err != nil || n != 4 || len(repo.products) != 4 {
		t.Errorf("seed n=%d err=%v", n, err)
	}
}

func TestParseSeedRejectsUnknownType(t *testing.T) {
	_, err := ParseSeed(strings.NewReader("products:\n  - id: x\n    name: x\n    product_type: bundle\n"))
	if err == nil {
		t.Fatal("expected error for unknown product type")
	}
}
