package relationships

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bizhub/credits-api/internal/middleware"
	"github.com/bizhub/credits-api/internal/pkg/logger"
	"github.com/bizhub/credits-api/internal/pkg/partner"
	"github.com/bizhub/credits-api/internal/pkg/response"
)

// Handler handles invite and connected-account HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates relationship handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateInvite handles POST /invites
// @Summary Get or create my invite link
// @Tags Relationships
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /invites [post]
func (h *Handler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	inv, err := h.service.EnsureInviteLink(r.Context(), userID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	response.OK(w, ToInviteResponse(inv))
}

// GetInvite handles GET /invites/{id}
// @Summary Validate an invite link
// @Tags Relationships
// @Param id path string true "Invite ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /invites/{id} [get]
func (h *Handler) GetInvite(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.ValidateInvite(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	response.OK(w, ToInviteResponse(inv))
}

// AcceptInvite handles POST /invites/{id}/accept
// @Summary Redeem an invite link as the session user
// @Tags Relationships
// @Security BearerAuth
// @Param id path string true "Invite ID"
// @Success 200 {object} response.Response
// @Failure 400,404,502 {object} response.Response
// @Router /invites/{id}/accept [post]
func (h *Handler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	res, err := h.service.RedeemInvite(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	storeIDs := res.StoreIDs
	if storeIDs == nil {
		storeIDs = []string{}
	}
	response.OK(w, RedeemResponse{ParentUserID: res.Invite.UserID, StoreIDs: storeIDs, Added: res.Added})
}

// ConnectedAccounts handles GET /connected-accounts
// @Summary List child accounts of the session user
// @Tags Relationships
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /connected-accounts [get]
func (h *Handler) ConnectedAccounts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	accounts, err := h.service.ConnectedAccounts(r.Context(), userID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	response.OK(w, ToConnectedAccountResponses(accounts))
}

// WriteError maps graph and partner errors to envelope responses.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInviteNotFoundOrExpired):
		response.NotFound(w, "Invite link is invalid or has expired")
	case errors.Is(err, ErrSelfInvite):
		response.BadRequest(w, "Cannot use your own invite link")
	case errors.Is(err, ErrParentRequired):
		response.BadRequest(w, "Missing query: parent_user_id")
	case errors.Is(err, partner.ErrTimeout):
		logger.LogWarn(r.Context(), "partner shop list timed out")
		response.GatewayTimeout(w, "Partner request timed out")
	case partner.IsRemote(err), errors.Is(err, partner.ErrNetwork):
		logger.LogWarn(r.Context(), "partner shop list failed", "error", err.Error())
		response.BadGateway(w, "Partner request failed")
	default:
		logger.LogError(r.Context(), err, "relationships request failed")
		response.InternalError(w)
	}
}
