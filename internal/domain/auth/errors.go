package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidPhone    = errors.New("invalid phone number")
	ErrInvalidCode     = errors.New("invalid or expired code")
	ErrOTPCooldown     = errors.New("code requested too frequently")
	ErrOTPUnavailable  = errors.New("otp login is not configured")
	ErrUserBanned      = errors.New("user is banned")
	ErrDeliveryFailed  = errors.New("failed to deliver code")
	ErrTooManyAttempts = errors.New("too many attempts")
)

// CooldownError carries how long the caller has to wait.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s, retry in %ds", ErrOTPCooldown, e.Seconds())
}

func (e *CooldownError) Unwrap() error { return ErrOTPCooldown }

// Seconds rounds the wait up to whole seconds.
func (e *CooldownError) Seconds() int {
	s := int((e.RetryAfter + time.Second - 1) / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}
