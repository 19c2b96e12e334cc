package internalapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bizhub/credits-api/internal/domain/credit"
	"github.com/bizhub/credits-api/internal/domain/membership"
	"github.com/bizhub/credits-api/internal/domain/relationships"
	"github.com/bizhub/credits-api/internal/domain/user"
	"github.com/bizhub/credits-api/internal/pkg/logger"
	"github.com/bizhub/credits-api/internal/pkg/response"
	"github.com/bizhub/credits-api/internal/pkg/validator"
)

// Users is the user directory as seen by the partner.
type Users interface {
	Sync(ctx context.Context, p user.SyncParams) (*user.SyncResult, error)
	Update(ctx context.Context, p user.UpdateParams) error
	Get(ctx context.Context, id string) (*user.User, error)
	IssueTicket(ctx context.Context, ident user.Identifier) (*user.Ticket, error)
	MarkUnsynced(ctx context.Context, id string) error
}

type Children interface {
	ListChildren(ctx context.Context, parentUserID, storeID string) ([]relationships.ChildAccount, error)
}

type RightsResolver interface {
	Rights(ctx context.Context, userID string) (*membership.Rights, error)
}

type Ledger interface {
	ConsumeIdempotent(ctx context.Context, p credit.ConsumeParams) (*credit.ConsumeResult, error)
	ListTransactions(ctx context.Context, f credit.ListFilter) ([]credit.Transaction, int, credit.ListFilter, error)
}

// Handler serves the signed partner API
type Handler struct {
	users    Users
	children Children
	rights   RightsResolver
	ledger   Ledger
}

// NewHandler creates internal API handler
func NewHandler(users Users, children Children, rights RightsResolver, ledger Ledger) *Handler {
	return &Handler{users: users, children: children, rights: rights, ledger: ledger}
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]interface{}{"status": "ok", "timestamp": time.Now().UnixMilli()})
}

// SyncUser handles POST /sync-user
// @Summary Upsert a user pushed by the partner
// @Tags Internal
// @Accept json
// @Produce json
// @Param request body SyncUserRequest true "User"
// @Success 200 {object} response.Response{data=user.SyncResponse}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /internal/sync-user [post]
func (h *Handler) SyncUser(w http.ResponseWriter, r *http.Request) {
	var req SyncUserRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.users.Sync(r.Context(), toSyncParams(req))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	response.OKWithMsg(w, "User synced successfully", user.SyncResponse{
		TkSaasUserID: res.TkSaasUserID,
		IsNew:        res.IsNew,
		Synced:       res.Synced,
	})
}

// UpdateUser handles PUT /user/update
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if !decode(w, r, &req) {
		return
	}

	err := h.users.Update(r.Context(), user.UpdateParams{
		BizhubUserID: req.BizhubUserID,
		Email:        req.Email,
		Username:     req.Username,
		Phone:        req.Phone,
		TkSaasUserID: req.TkSaasUserID,
		Synced:       req.Synced,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	response.OKWithMsg(w, "Updated successfully", UpdateUserResponse{Updated: true, BizhubUserID: req.BizhubUserID})
}

// GetUser handles GET /user/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	response.OK(w, user.ToResponse(u))
}

// ListChildren handles GET /user/children?parent_user_id=&store_id=
func (h *Handler) ListChildren(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	parentID := strings.TrimSpace(q.Get("parent_user_id"))
	storeID := strings.TrimSpace(q.Get("store_id"))

	children, err := h.children.ListChildren(r.Context(), parentID, storeID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	resp := ChildrenResponse{
		ParentUserID: parentID,
		Children:     relationships.ToChildAccountResponses(children),
	}
	if storeID != "" {
		resp.StoreID = &storeID
	}
	response.OK(w, resp)
}

// MembershipRights handles GET /membership/rights?user_id=
// @Summary Resolve account role, membership and credits for a user
// @Tags Internal
// @Produce json
// @Param user_id query string true "Bizhub user ID"
// @Success 200 {object} response.Response{data=membership.RightsResponse}
// @Failure 400 {object} response.Response
// @Router /internal/membership/rights [get]
func (h *Handler) MembershipRights(w http.ResponseWriter, r *http.Request) {
	rights, err := h.rights.Rights(r.Context(), strings.TrimSpace(r.URL.Query().Get("user_id")))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	response.OK(w, membership.ToRightsResponse(rights))
}

// VoucherList handles GET /voucher/list?user_id=&page=&page_size=&type=
func (h *Handler) VoucherList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := strings.TrimSpace(q.Get("user_id"))
	if userID == "" {
		response.BadRequest(w, "Missing query: user_id")
		return
	}

	details := map[string]string{}
	page := queryInt(q.Get("page"), 1, 1, 0, "page", details)
	size := queryInt(q.Get("page_size"), credit.DefaultPageSize, 1, credit.MaxPageSize, "page_size", details)
	txType := credit.TxType(strings.TrimSpace(q.Get("type")))
	if txType != "" && !txType.Valid() {
		details["type"] = "unknown transaction type"
	}
	if len(details) > 0 {
		response.ValidationError(w, details)
		return
	}

	rows, total, f, err := h.ledger.ListTransactions(r.Context(), credit.ListFilter{
		UserID:   userID,
		Type:     txType,
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	response.OK(w, VoucherListResponse{
		UserID:   userID,
		Page:     f.Page,
		PageSize: f.PageSize,
		Total:    total,
		Items:    credit.ToItems(rows),
	})
}

// VoucherUse handles POST /voucher/use
// @Summary Spend credits for an external sample order, idempotent per order_id
// @Tags Internal
// @Accept json
// @Produce json
// @Param request body VoucherUseRequest true "Order"
// @Success 200 {object} response.Response{data=VoucherUseResponse}
// @Failure 409 {object} response.Response
// @Router /internal/voucher/use [post]
func (h *Handler) VoucherUse(w http.ResponseWriter, r *http.Request) {
	var req VoucherUseRequest
	if !decode(w, r, &req) {
		return
	}

	p := credit.ConsumeParams{
		UserID:      req.BizhubUserID,
		OrderID:     req.OrderID,
		Amount:      req.Amount,
		Scene:       req.Scene,
		Description: req.Description,
	}
	if req.OccurredAt != nil {
		at := time.UnixMilli(*req.OccurredAt)
		p.OccurredAt = &at
	}

	res, err := h.ledger.ConsumeIdempotent(r.Context(), p)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	response.OKWithMsg(w, "Deducted successfully", VoucherUseResponse{
		UserID:        req.BizhubUserID,
		OrderID:       req.OrderID,
		PaymentID:     res.PaymentID,
		Amount:        req.Amount,
		Idempotent:    res.Idempotent,
		TransactionID: res.TransactionID,
		Deducted:      res.Deducted,
		Balance:       res.Balance,
		OccurredAt:    req.OccurredAt,
		CreatedAt:     res.CreatedAt.UnixMilli(),
	})
}

// GetTicket handles POST /get-ticket
// @Summary Issue a short-lived SSO ticket
// @Tags Internal
// @Accept json
// @Produce json
// @Param request body TicketRequest true "One user identifier"
// @Success 200 {object} response.Response{data=user.TicketResponse}
// @Failure 404 {object} response.Response
// @Router /internal/get-ticket [post]
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	var req TicketRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	ticket, err := h.users.IssueTicket(r.Context(), user.Identifier{
		BizhubUserID: strings.TrimSpace(req.BizhubUserID),
		TkSaasUserID: strings.TrimSpace(req.TkSaasUserID),
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	response.OKWithMsg(w, "Ticket issued", user.ToTicketResponse(ticket))
}

func toSyncParams(req SyncUserRequest) user.SyncParams {
	return user.SyncParams{
		BizhubUserID: req.BizhubUserID,
		Email:        req.Email,
		Username:     req.Username,
		Phone:        req.Phone,
		TkSaasUserID: req.TkSaasUserID,
	}
}

// decode reads and validates a JSON body, writing the 400 itself.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := response.DecodeJSON(r.Body, v); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return false
	}
	if errs := validator.Validate(v); errs != nil {
		logger.LogWarn(r.Context(), "internal api validation failed", "path", r.URL.Path)
		response.ValidationError(w, errs)
		return false
	}
	return true
}

// queryInt parses an optional integer within [min, max]; max 0 means unbounded.
func queryInt(raw string, def, min, max int, field string, details map[string]string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		details[field] = "must be an integer"
		return def
	}
	if n < min || (max > 0 && n > max) {
		if max > 0 {
			details[field] = "must be between " + strconv.Itoa(min) + " and " + strconv.Itoa(max)
		} else {
			details[field] = "must be at least " + strconv.Itoa(min)
		}
		return def
	}
	return n
}
