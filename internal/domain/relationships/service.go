package relationships

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bizhub/credits-api/internal/pkg/envelope"
	"github.com/bizhub/credits-api/internal/pkg/logger"
	"github.com/bizhub/credits-api/internal/pkg/partner"
)

const inviteIDLength = 21

// ShopLister fetches a user's stores from the partner system.
type ShopLister interface {
	GetShopList(ctx context.Context, userID string, idType partner.IDType) ([]partner.Shop, error)
}

// Config holds invite settings
type Config struct {
	AppBaseURL string
	InviteTTL  time.Duration
}

// Service handles the store graph and invite links
type Service struct {
	repo  Repository
	shops ShopLister
	cfg   Config
	now   func() time.Time
}

// NewService creates new relationships service
func NewService(repo Repository, shops ShopLister, cfg Config) *Service {
	if cfg.InviteTTL <= 0 {
		cfg.InviteTTL = 24 * time.Hour
	}
	return &Service{repo: repo, shops: shops, cfg: cfg, now: time.Now}
}

// EnsureInviteLink returns the user's active invite link, creating one
// when none is live.
func (s *Service) EnsureInviteLink(ctx context.Context, userID string) (*InviteLink, error) {
	now := s.now()
	existing, err := s.repo.ActiveInviteForUser(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	id, err := envelope.NewNonce(inviteIDLength)
	if err != nil {
		return nil, fmt.Errorf("%w: invite id: %v", ErrInternal, err)
	}
	inv := &InviteLink{
		ID:        id,
		UserID:    userID,
		Link:      s.cfg.AppBaseURL + "/register?invite=" + id,
		ExpiresAt: now.Add(s.cfg.InviteTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateInvite(ctx, inv); err != nil {
		return nil, err
	}
	logger.LogInfo(ctx, "invite link created", "user_id", userID, "invite_id", id)
	return inv, nil
}

// ValidateInvite returns a live invite by id.
func (s *Service) ValidateInvite(ctx context.Context, inviteID string) (*InviteLink, error) {
	inv, err := s.repo.ActiveInviteByID(ctx, inviteID, s.now())
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrInviteNotFoundOrExpired
	}
	return inv, nil
}

// RedeemInvite binds userID as a child under every store of the invite's
// issuer. Redeeming again only adds bindings that are missing.
func (s *Service) RedeemInvite(ctx context.Context, inviteID, userID string) (*RedeemResult, error) {
	inv, err := s.ValidateInvite(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	if inv.UserID == userID {
		return nil, ErrSelfInvite
	}

	shops, err := s.shops.GetShopList(ctx, inv.UserID, partner.IDTypeBizhub)
	if err != nil {
		return nil, err
	}
	s.storeShops(ctx, shops)

	res := &RedeemResult{Invite: inv}
	now := s.now()
	for _, shop := range shops {
		added, err := s.repo.InsertRelationship(ctx, &Relationship{
			ID:               uuid.NewString(),
			StoreID:          shop.ShopID,
			ParentUserID:     inv.UserID,
			ChildUserID:      userID,
			RelationshipRole: RoleChild,
			CreatedAt:        now,
		})
		if err != nil {
			return nil, err
		}
		if added {
			res.Added++
		}
		res.StoreIDs = append(res.StoreIDs, shop.ShopID)
	}

	logger.LogInfo(ctx, "invite redeemed",
		"invite_id", inviteID, "parent_user_id", inv.UserID, "user_id", userID,
		"stores", len(res.StoreIDs), "added", res.Added)
	return res, nil
}

// storeShops keeps the local shop table current. Failures are logged only.
func (s *Service) storeShops(ctx context.Context, shops []partner.Shop) {
	rows := make([]Shop, 0, len(shops))
	for _, sh := range shops {
		row := Shop{
			ID:         sh.ShopID,
			ShopCode:   sh.ShopCode,
			ShopName:   sh.ShopName,
			ShopType:   optional(sh.ShopType),
			Region:     optional(sh.Region),
			Status:     sh.Status,
			ShopAvatar: optional(sh.ShopAvatar),
		}
		if row.ShopCode == "" {
			row.ShopCode = sh.ShopID
		}
		if row.Status == "" {
			row.Status = "initializing"
		}
		if sh.BoundAt > 0 {
			t := time.Unix(sh.BoundAt, 0).UTC()
			row.BoundAt = &t
		}
		rows = append(rows, row)
	}
	if err := s.repo.UpsertShops(ctx, rows); err != nil {
		logger.LogWarn(ctx, "store shops failed", "error", err.Error())
	}
}

// ListChildren groups the parent's relationships per child. With storeID
// set only bindings on that store are considered.
func (s *Service) ListChildren(ctx context.Context, parentUserID, storeID string) ([]ChildAccount, error) {
	if parentUserID == "" {
		return nil, ErrParentRequired
	}

	rows, err := s.repo.ListChildRows(ctx, parentUserID, storeID)
	if err != nil {
		return nil, err
	}

	var order []string
	byID := make(map[string]*ChildAccount)
	for _, row := range rows {
		acc, ok := byID[row.ChildUserID]
		if !ok {
			acc = &ChildAccount{
				ID:               row.ChildUserID,
				Name:             row.Name,
				Email:            row.Email,
				PhoneNumber:      row.PhoneNumber,
				TkSaasUserID:     row.TkSaasUserID,
				Synced:           row.Synced,
				Banned:           row.Banned,
				RelationshipRole: row.RelationshipRole,
				JoinedAt:         row.CreatedAt,
			}
			byID[row.ChildUserID] = acc
			order = append(order, row.ChildUserID)
		}
		if !contains(acc.StoreIDs, row.StoreID) {
			acc.StoreIDs = append(acc.StoreIDs, row.StoreID)
		}
		if row.CreatedAt.Before(acc.JoinedAt) {
			acc.JoinedAt = row.CreatedAt
		}
	}

	out := make([]ChildAccount, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

// ConnectedAccount is the session view of a child account.
type ConnectedAccount struct {
	ID       string
	Nickname string
	Shops    []string
	Banned   bool
	JoinedAt time.Time
}

// ConnectedAccounts lists the parent's children with shop names resolved
// from the local shop table. Unknown shops fall back to their id.
func (s *Service) ConnectedAccounts(ctx context.Context, parentUserID string) ([]ConnectedAccount, error) {
	children, err := s.ListChildren(ctx, parentUserID, "")
	if err != nil {
		return nil, err
	}

	var storeIDs []string
	for _, c := range children {
		for _, id := range c.StoreIDs {
			if !contains(storeIDs, id) {
				storeIDs = append(storeIDs, id)
			}
		}
	}
	sort.Strings(storeIDs)

	names, err := s.repo.ShopNames(ctx, storeIDs)
	if err != nil {
		logger.LogWarn(ctx, "shop names lookup failed", "error", err.Error())
		names = map[string]string{}
	}

	out := make([]ConnectedAccount, 0, len(children))
	for _, c := range children {
		nick := c.Name
		if nick == "" {
			nick = c.Email
		}
		shops := make([]string, 0, len(c.StoreIDs))
		for _, id := range c.StoreIDs {
			if n := names[id]; n != "" {
				shops = append(shops, n)
			} else {
				shops = append(shops, id)
			}
		}
		out = append(out, ConnectedAccount{ID: c.ID, Nickname: nick, Shops: shops, Banned: c.Banned, JoinedAt: c.JoinedAt})
	}
	return out, nil
}

// ParentLink returns the earliest relationship where userID is the child.
func (s *Service) ParentLink(ctx context.Context, userID string) (*Relationship, error) {
	return s.repo.ParentLink(ctx, userID)
}

// CountChildren counts relationships where userID is the parent.
func (s *Service) CountChildren(ctx context.Context, userID string) (int, error) {
	return s.repo.CountChildren(ctx, userID)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
