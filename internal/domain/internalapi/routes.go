package internalapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts the partner API. verify checks signatures; decrypt opens
// encrypted bodies and is applied only to routes that accept them.
func (h *Handler) Routes(verify, decrypt func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(verify)

		r.Get("/user/children", h.ListChildren)
		r.Get("/user/{id}", h.GetUser)
		r.Get("/membership/rights", h.MembershipRights)
		r.Get("/voucher/list", h.VoucherList)
		r.Post("/get-ticket", h.GetTicket)

		r.Group(func(r chi.Router) {
			r.Use(decrypt)
			r.Post("/sync-user", h.SyncUser)
			r.Put("/user/update", h.UpdateUser)
			r.Post("/voucher/use", h.VoucherUse)
			r.Post("/webhook", h.Webhook)
		})
	})

	return r
}
