package relationships

import "time"

// InviteResponse is the wire form of an invite link
type InviteResponse struct {
	InviteID  string `json:"invite_id"`
	Link      string `json:"link"`
	UserID    string `json:"user_id"`
	ExpiresAt int64  `json:"expires_at"`
}

func ToInviteResponse(inv *InviteLink) InviteResponse {
	return InviteResponse{
		InviteID:  inv.ID,
		Link:      inv.Link,
		UserID:    inv.UserID,
		ExpiresAt: inv.ExpiresAt.UnixMilli(),
	}
}

// RedeemResponse for POST /invites/{id}/accept
type RedeemResponse struct {
	ParentUserID string   `json:"parent_user_id"`
	StoreIDs     []string `json:"store_ids"`
	Added        int      `json:"added"`
}

// ChildAccountResponse is a child account as seen by the partner system
type ChildAccountResponse struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Email            string   `json:"email"`
	PhoneNumber      *string  `json:"phone_number"`
	TkSaasUserID     *string  `json:"tk_saas_user_id"`
	Synced           bool     `json:"synced"`
	Banned           bool     `json:"banned"`
	RelationshipRole string   `json:"relationship_role"`
	StoreIDs         []string `json:"store_ids"`
	JoinedAt         int64    `json:"joined_at"`
}

func ToChildAccountResponses(children []ChildAccount) []ChildAccountResponse {
	out := make([]ChildAccountResponse, 0, len(children))
	for _, c := range children {
		out = append(out, ChildAccountResponse{
			ID:               c.ID,
			Name:             c.Name,
			Email:            c.Email,
			PhoneNumber:      c.PhoneNumber,
			TkSaasUserID:     c.TkSaasUserID,
			Synced:           c.Synced,
			Banned:           c.Banned,
			RelationshipRole: c.RelationshipRole,
			StoreIDs:         c.StoreIDs,
			JoinedAt:         c.JoinedAt.UnixMilli(),
		})
	}
	return out
}

// ConnectedAccountResponse for GET /connected-accounts
type ConnectedAccountResponse struct {
	ID       string   `json:"id"`
	Nickname string   `json:"nickname"`
	Shops    []string `json:"shops"`
	Status   string   `json:"status"`
	JoinedAt string   `json:"joined_at"`
}

func ToConnectedAccountResponses(accounts []ConnectedAccount) []ConnectedAccountResponse {
	out := make([]ConnectedAccountResponse, 0, len(accounts))
	for _, a := range accounts {
		status := "active"
		if a.Banned {
			status = "disabled"
		}
		out = append(out, ConnectedAccountResponse{
			ID:       a.ID,
			Nickname: a.Nickname,
			Shops:    a.Shops,
			Status:   status,
			JoinedAt: a.JoinedAt.Format(time.DateOnly),
		})
	}
	return out
}
