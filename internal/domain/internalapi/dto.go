package internalapi

import "encoding/json"

type SyncUserRequest struct {
	BizhubUserID string `json:"bizhub_user_id" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Username     string `json:"username" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
	TkSaasUserID string `json:"tk_saas_user_id"`
}

type UpdateUserRequest struct {
	BizhubUserID string  `json:"bizhub_user_id" validate:"required"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Username     *string `json:"username" validate:"omitempty,min=1"`
	Phone        *string `json:"phone" validate:"omitempty,min=1"`
	TkSaasUserID *string `json:"tk_saas_user_id" validate:"omitempty,min=1"`
	Synced       *bool   `json:"synced"`
}

type UpdateUserResponse struct {
	Updated      bool   `json:"updated"`
	BizhubUserID string `json:"bizhub_user_id"`
}

type TicketRequest struct {
	BizhubUserID string `json:"bizhub_user_id"`
	TkSaasUserID string `json:"tk_saas_user_id"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone"`
}

type VoucherUseRequest struct {
	BizhubUserID string `json:"bizhub_user_id" validate:"required"`
	OrderID      string `json:"order_id" validate:"required"`
	Amount       int64  `json:"amount" validate:"gt=0"`
	Scene        string `json:"scene"`
	Description  string `json:"description"`
	OccurredAt   *int64 `json:"occurred_at" validate:"omitempty,gt=0"`
}

type VoucherUseResponse struct {
	UserID        string `json:"user_id"`
	OrderID       string `json:"order_id"`
	PaymentID     string `json:"payment_id"`
	Amount        int64  `json:"amount"`
	Idempotent    bool   `json:"idempotent"`
	TransactionID string `json:"transaction_id"`
	Deducted      int64  `json:"deducted"`
	Balance       int64  `json:"balance"`
	OccurredAt    *int64 `json:"occurred_at"`
	CreatedAt     int64  `json:"created_at"`
}

type VoucherListResponse struct {
	UserID   string      `json:"user_id"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Total    int         `json:"total"`
	Items    interface{} `json:"items"`
}

type ChildrenResponse struct {
	ParentUserID string      `json:"parent_user_id"`
	StoreID      *string     `json:"store_id,omitempty"`
	Children     interface{} `json:"children"`
}

// WebhookEvent is the generic event envelope pushed by the partner.
type WebhookEvent struct {
	EventType string          `json:"event_type" validate:"required"`
	EventID   string          `json:"event_id" validate:"required"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type WebhookResponse struct {
	Received bool   `json:"received"`
	EventID  string `json:"event_id"`
}
