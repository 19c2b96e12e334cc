package membership

import "errors"

var (
	ErrUserIDRequired = errors.New("user_id is required")
	ErrInternal       = errors.New("internal error")
)
