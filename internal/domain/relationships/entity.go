package relationships

import "time"

// RoleChild is the relationship role written by invite redemption.
const RoleChild = "child"

// Relationship is a child account's access to one of a parent's stores.
type Relationship struct {
	ID               string    `db:"id" json:"id"`
	StoreID          string    `db:"store_id" json:"store_id"`
	ParentUserID     string    `db:"parent_user_id" json:"parent_user_id"`
	ChildUserID      string    `db:"child_user_id" json:"child_user_id"`
	RelationshipRole string    `db:"relationship_role" json:"relationship_role"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// InviteLink is a shareable link that binds the redeemer under the issuer.
type InviteLink struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Link      string    `db:"link"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Shop is the local copy of a partner store.
type Shop struct {
	ID         string     `db:"id"`
	ShopCode   string     `db:"shop_code"`
	ShopName   string     `db:"shop_name"`
	ShopType   *string    `db:"shop_type"`
	Region     *string    `db:"region"`
	Status     string     `db:"status"`
	ShopAvatar *string    `db:"shop_avatar"`
	BoundAt    *time.Time `db:"bound_at"`
}

// ChildRow is one relationship joined with its child user.
type ChildRow struct {
	ChildUserID      string    `db:"child_user_id"`
	StoreID          string    `db:"store_id"`
	RelationshipRole string    `db:"relationship_role"`
	CreatedAt        time.Time `db:"created_at"`
	Name             string    `db:"name"`
	Email            string    `db:"email"`
	PhoneNumber      *string   `db:"phone_number"`
	TkSaasUserID     *string   `db:"tk_saas_user_id"`
	Synced           bool      `db:"synced"`
	Banned           bool      `db:"banned"`
}

// ChildAccount groups every relationship a child has under one parent.
type ChildAccount struct {
	ID               string
	Name             string
	Email            string
	PhoneNumber      *string
	TkSaasUserID     *string
	Synced           bool
	Banned           bool
	RelationshipRole string
	StoreIDs         []string
	JoinedAt         time.Time
}

// RedeemResult reports what an invite redemption bound.
type RedeemResult struct {
	Invite   *InviteLink
	StoreIDs []string
	Added    int
}
