package relationships

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new relationships repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ActiveInviteForUser(ctx context.Context, userID string, now time.Time) (*InviteLink, error) {
	query := `SELECT * FROM invite_link WHERE user_id = $1 AND expires_at > $2 ORDER BY expires_at DESC LIMIT 1`
	return r.invite(ctx, query, userID, now)
}

func (r *repository) ActiveInviteByID(ctx context.Context, id string, now time.Time) (*InviteLink, error) {
	query := `SELECT * FROM invite_link WHERE id = $1 AND expires_at > $2`
	return r.invite(ctx, query, id, now)
}

func (r *repository) invite(ctx context.Context, query string, key string, now time.Time) (*InviteLink, error) {
	var inv InviteLink
	if err := r.db.GetContext(ctx, &inv, query, key, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: load invite: %v", ErrInternal, err)
	}
	return &inv, nil
}

func (r *repository) CreateInvite(ctx context.Context, inv *InviteLink) error {
	query := `
		INSERT INTO invite_link (id, user_id, link, expires_at, created_at, updated_at)
		VALUES (:id, :user_id, :link, :expires_at, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, inv); err != nil {
		return fmt.Errorf("%w: create invite: %v", ErrInternal, err)
	}
	return nil
}

// InsertRelationship inserts rel unless the (store, parent, child) triple
// exists, and reports whether a row was added.
func (r *repository) InsertRelationship(ctx context.Context, rel *Relationship) (bool, error) {
	query := `
		INSERT INTO store_user_relationship (id, store_id, parent_user_id, child_user_id, relationship_role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (store_id, parent_user_id, child_user_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, rel.ID, rel.StoreID, rel.ParentUserID, rel.ChildUserID, rel.RelationshipRole, rel.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("%w: insert relationship: %v", ErrInternal, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: insert relationship: %v", ErrInternal, err)
	}
	return n > 0, nil
}

func (r *repository) ParentLink(ctx context.Context, childUserID string) (*Relationship, error) {
	query := `SELECT * FROM store_user_relationship WHERE child_user_id = $1 ORDER BY created_at ASC LIMIT 1`
	var rel Relationship
	if err := r.db.GetContext(ctx, &rel, query, childUserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: load parent link: %v", ErrInternal, err)
	}
	return &rel, nil
}

func (r *repository) CountChildren(ctx context.Context, parentUserID string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM store_user_relationship WHERE parent_user_id = $1`, parentUserID); err != nil {
		return 0, fmt.Errorf("%w: count children: %v", ErrInternal, err)
	}
	return n, nil
}

func (r *repository) ListChildRows(ctx context.Context, parentUserID, storeID string) ([]ChildRow, error) {
	query := `
		SELECT r.child_user_id, r.store_id, r.relationship_role, r.created_at,
			u.name, u.email, u.phone_number, u.tk_saas_user_id, u.synced, u.banned
		FROM store_user_relationship r
		JOIN users u ON u.id = r.child_user_id
		WHERE r.parent_user_id = $1 AND ($2 = '' OR r.store_id = $2)
		ORDER BY r.created_at ASC
	`
	var rows []ChildRow
	if err := r.db.SelectContext(ctx, &rows, query, parentUserID, storeID); err != nil {
		return nil, fmt.Errorf("%w: list children: %v", ErrInternal, err)
	}
	return rows, nil
}

func (r *repository) UpsertShops(ctx context.Context, shops []Shop) error {
	query := `
		INSERT INTO shop (id, shop_code, shop_name, shop_type, region, status, shop_avatar, bound_at)
		VALUES (:id, :shop_code, :shop_name, :shop_type, :region, :status, :shop_avatar, :bound_at)
		ON CONFLICT (id) DO UPDATE SET
			shop_code = EXCLUDED.shop_code,
			shop_name = EXCLUDED.shop_name,
			shop_type = EXCLUDED.shop_type,
			region = EXCLUDED.region,
			status = EXCLUDED.status,
			shop_avatar = EXCLUDED.shop_avatar,
			bound_at = EXCLUDED.bound_at,
			updated_at = NOW()
	`
	for i := range shops {
		if _, err := r.db.NamedExecContext(ctx, query, &shops[i]); err != nil {
			return fmt.Errorf("%w: upsert shop %s: %v", ErrInternal, shops[i].ID, err)
		}
	}
	return nil
}

func (r *repository) ShopNames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	query, args, err := sqlx.In(`SELECT id, shop_name FROM shop WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID       string `db:"id"`
		ShopName string `db:"shop_name"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%w: shop names: %v", ErrInternal, err)
	}
	for _, row := range rows {
		names[row.ID] = row.ShopName
	}
	return names, nil
}
