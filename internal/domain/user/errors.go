package user

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrUserIDRequired     = errors.New("bizhub_user_id is required")
	ErrNoUpdateFields     = errors.New("at least one updatable field is required")
	ErrIdentifierRequired = errors.New("one of bizhub_user_id, tk_saas_user_id, email, phone is required")
	ErrInvalidTicket      = errors.New("invalid or expired ticket")
	ErrInternal           = errors.New("internal error")
)
