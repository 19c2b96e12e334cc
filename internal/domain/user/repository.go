package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/bizhub/credits-api/internal/pkg/database"
)

// Repository defines user data access interface
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	FindByIdentifier(ctx context.Context, ident Identifier) (*User, error)
	Upsert(ctx context.Context, u *User) error
	Update(ctx context.Context, p UpdateParams) (bool, error)
	SetSynced(ctx context.Context, id string, synced bool) (bool, error)
}

// repository implements Repository
type repository struct {
	db *sqlx.DB
}

// NewRepository creates new user repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const userColumns = `id, name, email, email_verified, image, role, customer_id, phone_number,
	phone_number_verified, tk_saas_user_id, synced, banned, created_at, updated_at`

// GetByID returns user by ID
func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByIdentifier looks the user up by bizhub id, partner id, email or
// phone, using the first one set.
func (r *repository) FindByIdentifier(ctx context.Context, ident Identifier) (*User, error) {
	switch {
	case ident.BizhubUserID != "":
		return r.GetByID(ctx, ident.BizhubUserID)
	case ident.TkSaasUserID != "":
		return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE tk_saas_user_id = $1 LIMIT 1`, ident.TkSaasUserID)
	case ident.Email != "":
		return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 LIMIT 1`, ident.Email)
	case ident.Phone != "":
		return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE phone_number = $1 LIMIT 1`, ident.Phone)
	}
	return nil, ErrIdentifierRequired
}

func (r *repository) getOne(ctx context.Context, query string, arg interface{}) (*User, error) {
	var u User
	if err := r.db.GetContext(ctx, &u, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get user: %v", ErrInternal, err)
	}
	return &u, nil
}

// Upsert inserts the user or refreshes the partner-owned fields.
func (r *repository) Upsert(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (id, name, email, phone_number, tk_saas_user_id, synced, created_at, updated_at)
		VALUES (:id, :name, :email, :phone_number, :tk_saas_user_id, :synced, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    email = EXCLUDED.email,
		    phone_number = EXCLUDED.phone_number,
		    tk_saas_user_id = EXCLUDED.tk_saas_user_id,
		    synced = EXCLUDED.synced,
		    updated_at = NOW()
	`
	if _, err := r.db.NamedExecContext(ctx, query, u); err != nil {
		if database.IsUniqueViolation(err) {
			return ErrEmailAlreadyExists
		}
		return fmt.Errorf("%w: upsert user: %v", ErrInternal, err)
	}
	return nil
}

// Update applies the non-nil fields of p. Reports false when no row matched.
func (r *repository) Update(ctx context.Context, p UpdateParams) (bool, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{p.BizhubUserID}
	add := func(column string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.Username != nil {
		add("name", *p.Username)
	}
	if p.Phone != nil {
		add("phone_number", *p.Phone)
	}
	if p.TkSaasUserID != nil {
		add("tk_saas_user_id", *p.TkSaasUserID)
	}
	if p.Synced != nil {
		add("synced", *p.Synced)
	}

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return false, ErrEmailAlreadyExists
		}
		return false, fmt.Errorf("%w: update user: %v", ErrInternal, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: update user: %v", ErrInternal, err)
	}
	return n > 0, nil
}

func (r *repository) SetSynced(ctx context.Context, id string, synced bool) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET synced = $2, updated_at = NOW() WHERE id = $1`, id, synced)
	if err != nil {
		return false, fmt.Errorf("%w: set synced: %v", ErrInternal, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: set synced: %v", ErrInternal, err)
	}
	return n > 0, nil
}
