package auth

type SSOExchangeRequest struct {
	Ticket string `json:"ticket" validate:"required"`
}

type SendCodeRequest struct {
	Phone string `json:"phone" validate:"required"`
}

type VerifyCodeRequest struct {
	Phone string `json:"phone" validate:"required"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// TokensResponse represents tokens in API response
type TokensResponse struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
	TokenType   string `json:"token_type"`
}

func ToTokensResponse(s *Session) TokensResponse {
	return TokensResponse{
		UserID:      s.UserID,
		AccessToken: s.AccessToken,
		ExpiresAt:   s.ExpiresAt.UnixMilli(),
		TokenType:   "Bearer",
	}
}

type SendCodeResponse struct {
	Sent            bool `json:"sent"`
	CooldownSeconds int  `json:"cooldown_seconds"`
}
