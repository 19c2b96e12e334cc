package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/bizhub/credits-api/internal/domain/user"
	"github.com/bizhub/credits-api/internal/pkg/codehash"
	"github.com/bizhub/credits-api/internal/pkg/jwt"
	"github.com/bizhub/credits-api/internal/pkg/logger"
)

const maxCodeAttempts = 5

// UserDirectory is the part of the user service login needs.
type UserDirectory interface {
	Find(ctx context.Context, ident user.Identifier) (*user.User, error)
	ExchangeTicket(ctx context.Context, ticket string) (*user.User, error)
}

// OTPConfig holds code timing.
type OTPConfig struct {
	Cooldown time.Duration
	CodeTTL  time.Duration
}

// Session is an issued access token.
type Session struct {
	UserID      string
	AccessToken string
	ExpiresAt   time.Time
}

// Service handles SSO ticket exchange and phone code login
type Service struct {
	users   UserDirectory
	jwt     *jwt.Service
	codes   CodeStore
	sender  Sender
	otp     OTPConfig
	cost    int
	newCode func() (string, error)
}

// NewService creates auth service. codes may be nil, which disables OTP.
func NewService(users UserDirectory, jwtService *jwt.Service, codes CodeStore, sender Sender, otp OTPConfig) *Service {
	if sender == nil {
		sender = LogSender{}
	}
	return &Service{
		users:   users,
		jwt:     jwtService,
		codes:   codes,
		sender:  sender,
		otp:     otp,
		cost:    codehash.DefaultCost,
		newCode: func() (string, error) { return generateNumericCode(CodeLength) },
	}
}

// ExchangeTicket trades a single-use SSO ticket for a session.
func (s *Service) ExchangeTicket(ctx context.Context, ticket string) (*Session, error) {
	u, err := s.users.ExchangeTicket(ctx, ticket)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, u, "sso")
}

// SendCode starts a cooldown for the phone and delivers a fresh code.
func (s *Service) SendCode(ctx context.Context, phone string) (time.Duration, error) {
	if s.codes == nil {
		return 0, ErrOTPUnavailable
	}
	normalized := NormalizePhone(phone)
	if len(normalized) < 6 {
		return 0, ErrInvalidPhone
	}

	ok, left, err := s.codes.ClaimCooldown(ctx, normalized, s.otp.Cooldown)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &CooldownError{RetryAfter: left}
	}

	code, err := s.newCode()
	if err != nil {
		s.releaseCooldown(ctx, normalized)
		return 0, err
	}
	hash, err := codehash.Hash(code, s.cost)
	if err != nil {
		s.releaseCooldown(ctx, normalized)
		return 0, fmt.Errorf("hash otp code: %w", err)
	}
	if err := s.codes.SaveCode(ctx, normalized, hash, s.otp.CodeTTL); err != nil {
		s.releaseCooldown(ctx, normalized)
		return 0, err
	}

	if err := s.sender.Send(ctx, normalized, code); err != nil {
		logger.LogError(ctx, err, "otp delivery failed", "phone", normalized)
		s.releaseCooldown(ctx, normalized)
		s.dropCode(ctx, normalized)
		return 0, ErrDeliveryFailed
	}
	return s.otp.Cooldown, nil
}

func (s *Service) releaseCooldown(ctx context.Context, phone string) {
	if err := s.codes.ReleaseCooldown(ctx, phone); err != nil {
		logger.LogWarn(ctx, "otp cooldown release failed", "phone", phone, "error", err.Error())
	}
}

func (s *Service) dropCode(ctx context.Context, phone string) {
	if err := s.codes.DeleteCode(ctx, phone); err != nil {
		logger.LogWarn(ctx, "otp code cleanup failed", "phone", phone, "error", err.Error())
	}
}

// VerifyCode checks a code and opens a session for the phone's user.
func (s *Service) VerifyCode(ctx context.Context, phone, code string) (*Session, error) {
	if s.codes == nil {
		return nil, ErrOTPUnavailable
	}
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return nil, ErrInvalidPhone
	}

	hash, err := s.codes.CodeHash(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if hash == "" {
		return nil, ErrInvalidCode
	}

	if !codehash.Verify(code, hash) {
		n, err := s.codes.Fail(ctx, normalized, s.otp.CodeTTL)
		if err != nil {
			return nil, err
		}
		if n >= maxCodeAttempts {
			s.dropCode(ctx, normalized)
			return nil, ErrTooManyAttempts
		}
		return nil, ErrInvalidCode
	}
	if err := s.codes.DeleteCode(ctx, normalized); err != nil {
		return nil, err
	}

	u, err := s.users.Find(ctx, user.Identifier{Phone: normalized})
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, u, "otp")
}

func (s *Service) issue(ctx context.Context, u *user.User, method string) (*Session, error) {
	if !u.IsActive() {
		return nil, ErrUserBanned
	}
	token, expiresAt, err := s.jwt.GenerateAccessToken(u.ID, u.RoleName())
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	logger.LogInfo(ctx, "session issued", "user_id", u.ID, "method", method)
	return &Session{UserID: u.ID, AccessToken: token, ExpiresAt: expiresAt}, nil
}
