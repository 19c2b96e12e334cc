package user

import "time"

// User is a directory row. Ids are supplied by the partner system.
type User struct {
	ID                  string    `db:"id"`
	Name                string    `db:"name"`
	Email               string    `db:"email"`
	EmailVerified       bool      `db:"email_verified"`
	Image               *string   `db:"image"`
	Role                *string   `db:"role"`
	CustomerID          *string   `db:"customer_id"`
	PhoneNumber         *string   `db:"phone_number"`
	PhoneNumberVerified bool      `db:"phone_number_verified"`
	TkSaasUserID        *string   `db:"tk_saas_user_id"`
	Synced              bool      `db:"synced"`
	Banned              bool      `db:"banned"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

// IsActive returns true if user is not banned
func (u *User) IsActive() bool {
	return !u.Banned
}

// RoleName is the session role, empty for ordinary users.
func (u *User) RoleName() string {
	if u.Role == nil {
		return ""
	}
	return *u.Role
}

// SyncParams is a partner push of one user.
type SyncParams struct {
	BizhubUserID string
	Email        string
	Username     string
	Phone        string
	TkSaasUserID string
}

type SyncResult struct {
	TkSaasUserID string
	IsNew        bool
	Synced       bool
}

// UpdateParams is a partial update; nil fields are left untouched.
type UpdateParams struct {
	BizhubUserID string
	Email        *string
	Username     *string
	Phone        *string
	TkSaasUserID *string
	Synced       *bool
}

// Empty reports whether no field would change.
func (p UpdateParams) Empty() bool {
	return p.Email == nil && p.Username == nil && p.Phone == nil && p.TkSaasUserID == nil && p.Synced == nil
}

// Identifier locates a user by the first non-empty field, in field order.
type Identifier struct {
	BizhubUserID string
	TkSaasUserID string
	Email        string
	Phone        string
}

func (i Identifier) Empty() bool {
	return i.BizhubUserID == "" && i.TkSaasUserID == "" && i.Email == "" && i.Phone == ""
}

// Ticket is a single-use SSO handoff token.
type Ticket struct {
	Value     string
	UserID    string
	ExpiresAt time.Time
}
