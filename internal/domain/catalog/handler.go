package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bizhub/credits-api/internal/pkg/logger"
	"github.com/bizhub/credits-api/internal/pkg/response"
)

// Handler serves the public catalog.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ListPlans handles GET /catalog/plans
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.svc.Plans(r.Context())
	if err != nil {
		logger.LogError(r.Context(), err, "list plans failed")
		response.InternalError(w)
		return
	}
	response.OK(w, plans)
}

// ListPackages handles GET /catalog/packages
func (h *Handler) ListPackages(w http.ResponseWriter, r *http.Request) {
	packages, err := h.svc.Packages(r.Context())
	if err != nil {
		logger.LogError(r.Context(), err, "list packages failed")
		response.InternalError(w)
		return
	}
	response.OK(w, packages)
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/plans", h.ListPlans)
	r.Get("/packages", h.ListPackages)
	return r
}
