package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bizhub/credits-api/internal/domain/user"
	"github.com/bizhub/credits-api/internal/pkg/logger"
	"github.com/bizhub/credits-api/internal/pkg/response"
	"github.com/bizhub/credits-api/internal/pkg/validator"
)

// Handler handles auth HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates auth handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// SSOExchange handles POST /auth/sso/exchange
// @Summary Exchange an SSO ticket for an access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body SSOExchangeRequest true "Ticket"
// @Success 200 {object} response.Response{data=TokensResponse}
// @Failure 401 {object} response.Response
// @Router /auth/sso/exchange [post]
func (h *Handler) SSOExchange(w http.ResponseWriter, r *http.Request) {
	var req SSOExchangeRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	session, err := h.service.ExchangeTicket(r.Context(), req.Ticket)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, ToTokensResponse(session))
}

// SendCode handles POST /auth/otp/send
// @Summary Send a login code by SMS
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body SendCodeRequest true "Phone"
// @Success 200 {object} response.Response{data=SendCodeResponse}
// @Failure 429 {object} response.Response
// @Router /auth/otp/send [post]
func (h *Handler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req SendCodeRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	cooldown, err := h.service.SendCode(r.Context(), req.Phone)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, SendCodeResponse{Sent: true, CooldownSeconds: int(cooldown / time.Second)})
}

// VerifyCode handles POST /auth/otp/verify
// @Summary Log in with a phone code
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body VerifyCodeRequest true "Phone and code"
// @Success 200 {object} response.Response{data=TokensResponse}
// @Failure 400 {object} response.Response
// @Router /auth/otp/verify [post]
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	session, err := h.service.VerifyCode(r.Context(), req.Phone, req.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, ToTokensResponse(session))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var cooldown *CooldownError
	switch {
	case errors.As(err, &cooldown):
		w.Header().Set("Retry-After", strconv.Itoa(cooldown.Seconds()))
		response.TooManyRequests(w, fmt.Sprintf("Code requested too frequently, retry in %d seconds", cooldown.Seconds()))
	case errors.Is(err, ErrTooManyAttempts):
		response.TooManyRequests(w, "Too many attempts, request a new code")
	case errors.Is(err, ErrInvalidPhone):
		response.BadRequest(w, "Invalid phone number")
	case errors.Is(err, ErrInvalidCode):
		response.BadRequest(w, "Invalid or expired code")
	case errors.Is(err, user.ErrInvalidTicket):
		response.Unauthorized(w, "Invalid or expired ticket")
	case errors.Is(err, user.ErrUserNotFound):
		response.NotFound(w, "User not found")
	case errors.Is(err, ErrUserBanned):
		response.Forbidden(w, "User is banned")
	case errors.Is(err, ErrOTPUnavailable):
		response.Error(w, http.StatusServiceUnavailable, "Phone login is not available")
	case errors.Is(err, ErrDeliveryFailed):
		response.BadGateway(w, "Failed to deliver code")
	default:
		logger.LogError(r.Context(), err, "auth request failed")
		response.InternalError(w)
	}
}
