package membership

import (
	"time"

	"github.com/bizhub/credits-api/internal/domain/catalog"
)

// Source is where a user's membership comes from.
type Source string

const (
	SourceLifetime     Source = "lifetime"
	SourceSubscription Source = "subscription"
	SourceFree         Source = "free"
)

const (
	PaymentTypeSubscription = "subscription"
	PaymentTypeOneTime      = "one_time"
	SceneLifetime           = "lifetime"

	StatusActive    = "active"
	StatusTrialing  = "trialing"
	StatusCompleted = "completed"
)

// FreeCode is the membership code of users without a resolved plan.
const FreeCode = "free"

// Payment is a billing event row. Only paid rows grant membership.
type Payment struct {
	ID                string     `db:"id"`
	PriceID           string     `db:"price_id"`
	Type              string     `db:"type"`
	Scene             *string    `db:"scene"`
	Interval          *string    `db:"interval"`
	UserID            string     `db:"user_id"`
	CustomerID        string     `db:"customer_id"`
	SubscriptionID    *string    `db:"subscription_id"`
	Status            string     `db:"status"`
	Paid              bool       `db:"paid"`
	PeriodStart       *time.Time `db:"period_start"`
	PeriodEnd         *time.Time `db:"period_end"`
	CancelAtPeriodEnd *bool      `db:"cancel_at_period_end"`
	TrialStart        *time.Time `db:"trial_start"`
	TrialEnd          *time.Time `db:"trial_end"`
	CreatedAt         time.Time  `db:"created_at"`
}

// IsLifetime reports a completed one-time lifetime purchase.
func (p *Payment) IsLifetime() bool {
	return p.Paid && p.Type == PaymentTypeOneTime && p.Scene != nil && *p.Scene == SceneLifetime && p.Status == StatusCompleted
}

// IsActiveSubscription reports an active or trialing subscription.
func (p *Payment) IsActiveSubscription() bool {
	return p.Paid && p.Type == PaymentTypeSubscription && (p.Status == StatusActive || p.Status == StatusTrialing)
}

// Subscription is the subscription detail of a resolved membership.
type Subscription struct {
	ID                string
	PriceID           string
	CustomerID        string
	Status            string
	Interval          *string
	PeriodStart       *time.Time
	PeriodEnd         *time.Time
	CancelAtPeriodEnd bool
	TrialStart        *time.Time
	TrialEnd          *time.Time
	CreatedAt         time.Time
}

func subscriptionOf(p *Payment) *Subscription {
	sub := &Subscription{
		ID:          p.ID,
		PriceID:     p.PriceID,
		CustomerID:  p.CustomerID,
		Status:      p.Status,
		Interval:    p.Interval,
		PeriodStart: p.PeriodStart,
		PeriodEnd:   p.PeriodEnd,
		TrialStart:  p.TrialStart,
		TrialEnd:    p.TrialEnd,
		CreatedAt:   p.CreatedAt,
	}
	if p.CancelAtPeriodEnd != nil {
		sub.CancelAtPeriodEnd = *p.CancelAtPeriodEnd
	}
	return sub
}

// Membership is the resolved entitlement of a user. Plan may be nil for a
// subscription whose price is not in the catalog, or when no free plan is
// configured.
type Membership struct {
	Source       Source
	Plan         *catalog.PricePlan
	Subscription *Subscription
	Payment      *Payment
	ExpiresAt    *time.Time
}

// Code is the plan id, or FreeCode without a plan.
func (m *Membership) Code() string {
	if m.Plan == nil {
		return FreeCode
	}
	return m.Plan.ID
}

// Tier is a membership level keyed by membership code. DiscountRate is a
// percentage of the list price.
type Tier struct {
	ID           string  `db:"id"`
	Code         string  `db:"code"`
	Name         *string `db:"name"`
	Level        int     `db:"level"`
	DiscountRate int     `db:"discount_rate"`
	Disabled     bool    `db:"disabled"`
	SortOrder    int     `db:"sort_order"`
}

// Role is the position of an account in the store graph.
type Role string

const (
	RoleParent     Role = "parent"
	RoleChild      Role = "child"
	RoleStandalone Role = "standalone"
)

// Account is the account block of a rights lookup.
type Account struct {
	Role          Role
	IsParent      bool
	IsChild       bool
	ParentUserID  *string
	StoreID       string
	RelationRole  string
	JoinedAt      *time.Time
	ChildrenCount int
}

// Credits is the credit block of a rights lookup.
type Credits struct {
	CurrentCredits int64
	UpdatedAt      *time.Time
}

// Rights joins account role, membership, tier and credits.
type Rights struct {
	UserID     string
	Account    Account
	Membership *Membership
	Tier       *Tier
	Credits    Credits
}
