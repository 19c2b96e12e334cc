package membership

import (
	"errors"
	"net/http"

	"github.com/bizhub/credits-api/internal/middleware"
	"github.com/bizhub/credits-api/internal/pkg/logger"
	"github.com/bizhub/credits-api/internal/pkg/response"
)

// Handler serves the session membership endpoint.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Me handles GET /membership for the session user
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	rights, err := h.svc.Rights(r.Context(), userID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	response.OK(w, ToRightsResponse(rights))
}

// WriteError maps resolver errors to envelope responses.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrUserIDRequired) {
		response.BadRequest(w, err.Error())
		return
	}
	logger.LogError(r.Context(), err, "membership lookup failed")
	response.InternalError(w)
}
