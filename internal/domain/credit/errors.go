package credit

import "errors"

var (
	// ErrInsufficientCredits is returned when user doesn't have enough credits
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidAmount is returned when amount is <= 0
	ErrInvalidAmount = errors.New("invalid amount: must be greater than 0")

	// ErrUserNotFound is returned when user doesn't exist
	ErrUserNotFound = errors.New("user not found")

	ErrSameUserTransfer = errors.New("cannot transfer credits to the same user")

	ErrInvalidType = errors.New("invalid transaction type")

	ErrMissingOrder = errors.New("user id and order id are required")

	// ErrDuplicateIdempotencyKey means a concurrent writer inserted the same key first.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	ErrInternal = errors.New("internal error")
)
