package credit

import "time"

// TransactionItem is the wire form of a ledger row. Times are ms epoch.
type TransactionItem struct {
	ID              string  `json:"id"`
	Type            TxType  `json:"type"`
	Description     *string `json:"description"`
	Amount          int64   `json:"amount"`
	RemainingAmount *int64  `json:"remaining_amount"`
	PaymentID       *string `json:"payment_id"`
	ExpirationDate  *int64  `json:"expiration_date"`
	CreatedAt       int64   `json:"created_at"`
	UpdatedAt       int64   `json:"updated_at"`
}

func ToItem(t Transaction) TransactionItem {
	return TransactionItem{
		ID:              t.ID,
		Type:            t.Type,
		Description:     t.Description,
		Amount:          t.Amount,
		RemainingAmount: t.RemainingAmount,
		PaymentID:       t.PaymentID,
		ExpirationDate:  MillisPtr(t.ExpirationDate),
		CreatedAt:       t.CreatedAt.UnixMilli(),
		UpdatedAt:       t.UpdatedAt.UnixMilli(),
	}
}

func ToItems(rows []Transaction) []TransactionItem {
	items := make([]TransactionItem, 0, len(rows))
	for _, t := range rows {
		items = append(items, ToItem(t))
	}
	return items
}

// MillisPtr converts an optional time to ms epoch.
func MillisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

type BalanceResponse struct {
	UserID         string `json:"user_id"`
	CurrentCredits int64  `json:"current_credits"`
	UpdatedAt      *int64 `json:"updated_at"`
}

func ToBalanceResponse(b *Balance) BalanceResponse {
	resp := BalanceResponse{UserID: b.UserID, CurrentCredits: b.CurrentCredits}
	if !b.UpdatedAt.IsZero() {
		resp.UpdatedAt = MillisPtr(&b.UpdatedAt)
	}
	return resp
}

type TransferRequest struct {
	ToUserID    string `json:"to_user_id" validate:"required"`
	Amount      int64  `json:"amount" validate:"gt=0"`
	Description string `json:"description" validate:"max=255"`
}

type GrantRequest struct {
	UserID         string `json:"user_id" validate:"required"`
	Type           TxType `json:"type" validate:"required,tx_type"`
	Amount         int64  `json:"amount" validate:"gt=0"`
	Description    string `json:"description" validate:"max=255"`
	PaymentID      string `json:"payment_id"`
	IdempotencyKey string `json:"idempotency_key"`
	ExpireDays     int    `json:"expire_days" validate:"gte=0"`
}
