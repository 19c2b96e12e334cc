package relationships

import "errors"

var (
	ErrInviteNotFoundOrExpired = errors.New("invite link is invalid or has expired")
	ErrSelfInvite              = errors.New("cannot use your own invite link")
	ErrParentRequired          = errors.New("parent_user_id is required")
	ErrInternal                = errors.New("internal error")
)
