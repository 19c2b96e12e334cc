package credit

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bizhub/credits-api/internal/middleware"
	"github.com/bizhub/credits-api/internal/pkg/response"
	"github.com/bizhub/credits-api/internal/pkg/validator"
)

// Handler serves the session-authenticated credit endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Balance handles GET /credits/balance
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	b, err := h.svc.GetBalance(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, ToBalanceResponse(b))
}

// Transactions handles GET /credits/transactions?page=&page_size=&type=
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))

	rows, total, f, err := h.svc.ListTransactions(r.Context(), ListFilter{
		UserID:   userID,
		Type:     TxType(q.Get("type")),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.OK(w, response.Page{Page: f.Page, PageSize: f.PageSize, Total: total, Items: ToItems(rows)})
}

// Transfer handles POST /credits/transfer from the session user.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req TransferRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	res, err := h.svc.Transfer(r.Context(), TransferParams{
		FromUserID:  userID,
		ToUserID:    req.ToUserID,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.OKWithMsg(w, "Credits transferred successfully", map[string]interface{}{
		"from_user_id":       userID,
		"to_user_id":         req.ToUserID,
		"amount":             req.Amount,
		"balance":            res.FromBalance,
		"out_transaction_id": res.OutTransactionID,
		"in_transaction_id":  res.InTransactionID,
	})
}

// Grant handles POST /credits/grant
func (h *Handler) Grant(w http.ResponseWriter, r *http.Request) {
	var req GrantRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	p := GrantParams{
		UserID:         req.UserID,
		Type:           req.Type,
		Amount:         req.Amount,
		Description:    req.Description,
		PaymentID:      req.PaymentID,
		IdempotencyKey: req.IdempotencyKey,
		ExpirationDate: DefaultExpiry(h.svc.now(), req.ExpireDays, 0),
	}

	t, err := h.svc.Grant(r.Context(), p)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.OK(w, ToItem(*t))
}

// WriteError maps ledger errors to envelope responses.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInsufficientCredits):
		response.Conflict(w, "Insufficient credits")
	case errors.Is(err, ErrSameUserTransfer):
		response.BadRequest(w, "Cannot transfer credits to the same user")
	case errors.Is(err, ErrUserNotFound):
		response.NotFound(w, "User not found")
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidType), errors.Is(err, ErrMissingOrder):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w)
	}
}

// Routes mounts the session routes; admin routes need RequireAdmin.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/balance", h.Balance)
	r.Get("/transactions", h.Transactions)
	r.Post("/transfer", h.Transfer)
	r.With(middleware.RequireAdmin()).Post("/grant", h.Grant)
	return r
}

// DefaultExpiry returns the expiration for a grant using expireDays, or
// fallbackDays when expireDays is not positive.
func DefaultExpiry(now time.Time, expireDays, fallbackDays int) *time.Time {
	days := expireDays
	if days <= 0 {
		days = fallbackDays
	}
	if days <= 0 {
		return nil
	}
	exp := now.AddDate(0, 0, days)
	return &exp
}
