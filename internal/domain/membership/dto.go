package membership

import "time"

// RightsResponse is the wire form of Rights. Times are ms epoch.
type RightsResponse struct {
	UserID     string             `json:"user_id"`
	Account    AccountResponse    `json:"account"`
	Membership MembershipResponse `json:"membership"`
	Credits    CreditsResponse    `json:"credits"`
}

type AccountResponse struct {
	Role          Role                  `json:"role"`
	IsParent      bool                  `json:"is_parent"`
	IsChild       bool                  `json:"is_child"`
	ParentUserID  *string               `json:"parent_user_id"`
	Relationship  *RelationshipResponse `json:"relationship"`
	ChildrenCount int                   `json:"children_count"`
}

type RelationshipResponse struct {
	StoreID          string `json:"store_id"`
	RelationshipRole string `json:"relationship_role"`
	JoinedAt         *int64 `json:"joined_at"`
}

type MembershipResponse struct {
	Source         Source                `json:"source"`
	MembershipCode string                `json:"membership_code"`
	Tier           *TierResponse         `json:"tier"`
	Plan           *PlanResponse         `json:"plan"`
	Subscription   *SubscriptionResponse `json:"subscription"`
	ExpiresAt      *int64                `json:"expires_at"`
	Purchase       *PurchaseResponse     `json:"purchase"`
}

type TierResponse struct {
	Code         string  `json:"code"`
	Name         *string `json:"name"`
	Level        int     `json:"level"`
	DiscountRate int     `json:"discount_rate"`
	Disabled     bool    `json:"disabled"`
}

type PlanResponse struct {
	ID         string `json:"id"`
	IsFree     bool   `json:"is_free"`
	IsLifetime bool   `json:"is_lifetime"`
}

type SubscriptionResponse struct {
	Status            string  `json:"status"`
	Interval          *string `json:"interval"`
	PeriodStart       *int64  `json:"period_start"`
	PeriodEnd         *int64  `json:"period_end"`
	CancelAtPeriodEnd bool    `json:"cancel_at_period_end"`
	TrialStart        *int64  `json:"trial_start"`
	TrialEnd          *int64  `json:"trial_end"`
}

type PurchaseResponse struct {
	PaymentID   string  `json:"payment_id"`
	PriceID     string  `json:"price_id"`
	Type        string  `json:"type"`
	Scene       *string `json:"scene"`
	Status      string  `json:"status"`
	CreatedAt   int64   `json:"created_at"`
	PeriodStart *int64  `json:"period_start"`
	PeriodEnd   *int64  `json:"period_end"`
}

type CreditsResponse struct {
	CurrentCredits int64  `json:"current_credits"`
	UpdatedAt      *int64 `json:"updated_at"`
}

// ToRightsResponse converts Rights to its wire form
func ToRightsResponse(r *Rights) RightsResponse {
	resp := RightsResponse{
		UserID: r.UserID,
		Account: AccountResponse{
			Role:          r.Account.Role,
			IsParent:      r.Account.IsParent,
			IsChild:       r.Account.IsChild,
			ParentUserID:  r.Account.ParentUserID,
			ChildrenCount: r.Account.ChildrenCount,
		},
		Credits: CreditsResponse{
			CurrentCredits: r.Credits.CurrentCredits,
			UpdatedAt:      millis(r.Credits.UpdatedAt),
		},
	}
	if r.Account.IsChild {
		resp.Account.Relationship = &RelationshipResponse{
			StoreID:          r.Account.StoreID,
			RelationshipRole: r.Account.RelationRole,
			JoinedAt:         millis(r.Account.JoinedAt),
		}
	}

	m := r.Membership
	resp.Membership = MembershipResponse{
		Source:         m.Source,
		MembershipCode: m.Code(),
		ExpiresAt:      millis(m.ExpiresAt),
	}
	if r.Tier != nil {
		resp.Membership.Tier = &TierResponse{
			Code:         r.Tier.Code,
			Name:         r.Tier.Name,
			Level:        r.Tier.Level,
			DiscountRate: r.Tier.DiscountRate,
			Disabled:     r.Tier.Disabled,
		}
	}
	if m.Plan != nil {
		resp.Membership.Plan = &PlanResponse{ID: m.Plan.ID, IsFree: m.Plan.IsFree, IsLifetime: m.Plan.IsLifetime}
	}
	if s := m.Subscription; s != nil {
		resp.Membership.Subscription = &SubscriptionResponse{
			Status:            s.Status,
			Interval:          s.Interval,
			PeriodStart:       millis(s.PeriodStart),
			PeriodEnd:         millis(s.PeriodEnd),
			CancelAtPeriodEnd: s.CancelAtPeriodEnd,
			TrialStart:        millis(s.TrialStart),
			TrialEnd:          millis(s.TrialEnd),
		}
	}
	if p := m.Payment; p != nil {
		resp.Membership.Purchase = &PurchaseResponse{
			PaymentID:   p.ID,
			PriceID:     p.PriceID,
			Type:        p.Type,
			Scene:       p.Scene,
			Status:      p.Status,
			CreatedAt:   p.CreatedAt.UnixMilli(),
			PeriodStart: millis(p.PeriodStart),
			PeriodEnd:   millis(p.PeriodEnd),
		}
	}
	return resp
}

func millis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}
