package auth

import (
	"github.com/go-chi/chi/v5"
)

// Routes returns auth router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/sso/exchange", h.SSOExchange)
	r.Post("/otp/send", h.SendCode)
	r.Post("/otp/verify", h.VerifyCode)

	return r
}
