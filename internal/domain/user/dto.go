package user

// Response is the wire form of a user. Times are ms epoch.
type Response struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Email               string  `json:"email"`
	EmailVerified       bool    `json:"email_verified"`
	PhoneNumber         *string `json:"phone_number"`
	PhoneNumberVerified bool    `json:"phone_number_verified"`
	Role                *string `json:"role"`
	Banned              bool    `json:"banned"`
	CustomerID          *string `json:"customer_id"`
	TkSaasUserID        *string `json:"tk_saas_user_id"`
	Synced              bool    `json:"synced"`
	CreatedAt           int64   `json:"created_at"`
	UpdatedAt           int64   `json:"updated_at"`
}

func ToResponse(u *User) Response {
	return Response{
		ID:                  u.ID,
		Name:                u.Name,
		Email:               u.Email,
		EmailVerified:       u.EmailVerified,
		PhoneNumber:         u.PhoneNumber,
		PhoneNumberVerified: u.PhoneNumberVerified,
		Role:                u.Role,
		Banned:              u.Banned,
		CustomerID:          u.CustomerID,
		TkSaasUserID:        u.TkSaasUserID,
		Synced:              u.Synced,
		CreatedAt:           u.CreatedAt.UnixMilli(),
		UpdatedAt:           u.UpdatedAt.UnixMilli(),
	}
}

type SyncResponse struct {
	TkSaasUserID string `json:"tk_saas_user_id"`
	IsNew        bool   `json:"is_new"`
	Synced       bool   `json:"synced"`
}

type TicketResponse struct {
	Ticket    string `json:"ticket"`
	ExpiresAt int64  `json:"expires_at"`
}

func ToTicketResponse(t *Ticket) TicketResponse {
	return TicketResponse{Ticket: t.Value, ExpiresAt: t.ExpiresAt.UnixMilli()}
}
