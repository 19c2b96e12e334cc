package credit

import "time"

// TxType is the kind of a ledger row.
type TxType string

const (
	TxTypeMonthlyRefresh      TxType = "MONTHLY_REFRESH"
	TxTypeRegisterGift        TxType = "REGISTER_GIFT"
	TxTypePurchasePackage     TxType = "PURCHASE_PACKAGE"
	TxTypeSubscriptionRenewal TxType = "SUBSCRIPTION_RENEWAL"
	TxTypeLifetimeMonthly     TxType = "LIFETIME_MONTHLY"
	TxTypeUsage               TxType = "USAGE"
	TxTypeTransferOut         TxType = "TRANSFER_OUT"
	TxTypeTransferIn          TxType = "TRANSFER_IN"
	TxTypeExpire              TxType = "EXPIRE"
)

// IdempotencyPrefix scopes partner order ids on USAGE rows.
const IdempotencyPrefix = "sample_order:"

// IsGrant reports whether rows of this type are lots with a remaining amount.
func (t TxType) IsGrant() bool {
	switch t {
	case TxTypeMonthlyRefresh, TxTypeRegisterGift, TxTypePurchasePackage,
		TxTypeSubscriptionRenewal, TxTypeLifetimeMonthly, TxTypeTransferIn:
		return true
	}
	return false
}

func (t TxType) Valid() bool {
	return t.IsGrant() || t == TxTypeUsage || t == TxTypeTransferOut || t == TxTypeExpire
}

// Transaction is a ledger row. Only RemainingAmount and
// ExpirationDateProcessedAt change after insert.
type Transaction struct {
	ID                        string     `db:"id"`
	UserID                    string     `db:"user_id"`
	Type                      TxType     `db:"type"`
	Description               *string    `db:"description"`
	Amount                    int64      `db:"amount"`
	RemainingAmount           *int64     `db:"remaining_amount"`
	PaymentID                 *string    `db:"payment_id"`
	IdempotencyKey            *string    `db:"idempotency_key"`
	ExpirationDate            *time.Time `db:"expiration_date"`
	ExpirationDateProcessedAt *time.Time `db:"expiration_date_processed_at"`
	CreatedAt                 time.Time  `db:"created_at"`
	UpdatedAt                 time.Time  `db:"updated_at"`
}

// Remaining returns the unspent part of a lot, 0 for debits.
func (t *Transaction) Remaining() int64 {
	if t.RemainingAmount == nil {
		return 0
	}
	return *t.RemainingAmount
}

// Balance is the per-user credit counter.
type Balance struct {
	ID             string    `db:"id"`
	UserID         string    `db:"user_id"`
	CurrentCredits int64     `db:"current_credits"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

type GrantParams struct {
	UserID         string
	Type           TxType
	Amount         int64
	Description    string
	PaymentID      string
	IdempotencyKey string
	ExpirationDate *time.Time
}

type ConsumeParams struct {
	UserID      string
	OrderID     string
	Amount      int64
	Scene       string
	Description string
	OccurredAt  *time.Time
}

type ConsumeResult struct {
	Idempotent    bool
	TransactionID string
	PaymentID     string
	Deducted      int64
	Balance       int64
	CreatedAt     time.Time
}

type TransferParams struct {
	FromUserID  string
	ToUserID    string
	Amount      int64
	Description string
}

type TransferResult struct {
	OutTransactionID string
	InTransactionID  string
	FromBalance      int64
	ToBalance        int64
}

// ListFilter pages a user's history, newest first.
type ListFilter struct {
	UserID   string
	Type     TxType
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps paging to page >= 1 and 1..MaxPageSize.
func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// ExpireResult summarizes one sweep.
type ExpireResult struct {
	Lots    int
	Credits int64
}
