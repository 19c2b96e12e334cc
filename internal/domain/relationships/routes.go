package relationships

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns relationships router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	// Invite validation is public so the register page can check a link
	r.Get("/invites/{id}", h.GetInvite)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/invites", h.CreateInvite)
		r.Post("/invites/{id}/accept", h.AcceptInvite)
		r.Get("/connected-accounts", h.ConnectedAccounts)
	})

	return r
}
