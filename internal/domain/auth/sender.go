package auth

import (
	"context"

	"github.com/bizhub/credits-api/internal/pkg/logger"
)

// Sender delivers a login code to a phone number.
type Sender interface {
	Send(ctx context.Context, phone, code string) error
}

// LogSender writes codes to the log instead of an SMS gateway.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, phone, code string) error {
	logger.LogInfo(ctx, "otp code issued", "phone", phone, "code", code)
	return nil
}
