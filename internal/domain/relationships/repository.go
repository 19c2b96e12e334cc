package relationships

import (
	"context"
	"time"
)

// Repository defines relationships data access
type Repository interface {
	// Invites
	ActiveInviteForUser(ctx context.Context, userID string, now time.Time) (*InviteLink, error)
	ActiveInviteByID(ctx context.Context, id string, now time.Time) (*InviteLink, error)
	CreateInvite(ctx context.Context, invite *InviteLink) error

	// Graph
	InsertRelationship(ctx context.Context, rel *Relationship) (bool, error)
	ParentLink(ctx context.Context, childUserID string) (*Relationship, error)
	CountChildren(ctx context.Context, parentUserID string) (int, error)
	ListChildRows(ctx context.Context, parentUserID, storeID string) ([]ChildRow, error)

	// Shops
	UpsertShops(ctx context.Context, shops []Shop) error
	ShopNames(ctx context.Context, ids []string) (map[string]string, error)
}
