package membership

import (
	"context"
	"strings"

	"github.com/bizhub/credits-api/internal/domain/catalog"
	"github.com/bizhub/credits-api/internal/domain/credit"
	"github.com/bizhub/credits-api/internal/domain/relationships"
	"github.com/bizhub/credits-api/internal/pkg/logger"
)

// PaymentReader lists the paid payments that can grant membership,
// newest first.
type PaymentReader interface {
	ListEntitling(ctx context.Context, userID string) ([]*Payment, error)
}

// PlanSource returns the enabled subscription plans.
type PlanSource interface {
	Plans(ctx context.Context) ([]*catalog.PricePlan, error)
}

type TierReader interface {
	FindByCode(ctx context.Context, code string) (*Tier, error)
}

// AccountGraph answers parent/child questions about the store graph.
type AccountGraph interface {
	ParentLink(ctx context.Context, childUserID string) (*relationships.Relationship, error)
	CountChildren(ctx context.Context, parentUserID string) (int, error)
}

type BalanceReader interface {
	GetBalance(ctx context.Context, userID string) (*credit.Balance, error)
}

// Service resolves memberships and rights.
type Service struct {
	payments PaymentReader
	plans    PlanSource
	tiers    TierReader
	graph    AccountGraph
	credits  BalanceReader
}

// NewService creates membership service
func NewService(payments PaymentReader, plans PlanSource, tiers TierReader, graph AccountGraph, credits BalanceReader) *Service {
	return &Service{
		payments: payments,
		plans:    plans,
		tiers:    tiers,
		graph:    graph,
		credits:  credits,
	}
}

// Resolve applies lifetime > active subscription > free. A lifetime
// payment whose price does not map to a lifetime plan does not count.
func (s *Service) Resolve(ctx context.Context, userID string) (*Membership, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserIDRequired
	}

	plans, err := s.plans.Plans(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListEntitling(ctx, userID)
	if err != nil {
		return nil, err
	}

	var sub *Payment
	for _, p := range payments {
		if p.IsLifetime() {
			plan := planForPrice(plans, p.PriceID)
			if plan != nil && plan.IsLifetime {
				return &Membership{Source: SourceLifetime, Plan: plan, Payment: p}, nil
			}
			logger.LogWarn(ctx, "lifetime payment does not resolve to a lifetime plan",
				"user_id", userID, "payment_id", p.ID, "price_id", p.PriceID)
			continue
		}
		if sub == nil && p.IsActiveSubscription() {
			sub = p
		}
	}

	if sub != nil {
		plan := planForPrice(plans, sub.PriceID)
		if plan == nil {
			logger.LogWarn(ctx, "subscription price not in catalog",
				"user_id", userID, "payment_id", sub.ID, "price_id", sub.PriceID)
		}
		expires := sub.PeriodEnd
		if expires == nil {
			expires = sub.TrialEnd
		}
		return &Membership{
			Source:       SourceSubscription,
			Plan:         plan,
			Subscription: subscriptionOf(sub),
			Payment:      sub,
			ExpiresAt:    expires,
		}, nil
	}

	return &Membership{Source: SourceFree, Plan: freePlan(plans)}, nil
}

// Rights resolves the full entitlement view of a user.
func (s *Service) Rights(ctx context.Context, userID string) (*Rights, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserIDRequired
	}

	account, err := s.account(ctx, userID)
	if err != nil {
		return nil, err
	}

	m, err := s.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	tier, err := s.tiers.FindByCode(ctx, m.Code())
	if err != nil {
		return nil, err
	}

	bal, err := s.credits.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	var credits Credits
	if bal != nil {
		credits.CurrentCredits = bal.CurrentCredits
		if !bal.UpdatedAt.IsZero() {
			at := bal.UpdatedAt
			credits.UpdatedAt = &at
		}
	}

	return &Rights{
		UserID:     userID,
		Account:    account,
		Membership: m,
		Tier:       tier,
		Credits:    credits,
	}, nil
}

// account classifies a user; parent wins when a user is both.
func (s *Service) account(ctx context.Context, userID string) (Account, error) {
	var a Account

	link, err := s.graph.ParentLink(ctx, userID)
	if err != nil {
		return a, err
	}
	children, err := s.graph.CountChildren(ctx, userID)
	if err != nil {
		return a, err
	}

	a.ChildrenCount = children
	a.IsParent = children > 0
	a.IsChild = link != nil
	if link != nil {
		parent := link.ParentUserID
		joined := link.CreatedAt
		a.ParentUserID = &parent
		a.StoreID = link.StoreID
		a.RelationRole = link.RelationshipRole
		a.JoinedAt = &joined
	}

	switch {
	case a.IsParent:
		a.Role = RoleParent
	case a.IsChild:
		a.Role = RoleChild
	default:
		a.Role = RoleStandalone
	}
	return a, nil
}

func planForPrice(plans []*catalog.PricePlan, priceID string) *catalog.PricePlan {
	for _, p := range plans {
		if p.HasPrice(priceID) {
			return p
		}
	}
	return nil
}

func freePlan(plans []*catalog.PricePlan) *catalog.PricePlan {
	for _, p := range plans {
		if p.IsFree && !p.Disabled {
			return p
		}
	}
	return nil
}
