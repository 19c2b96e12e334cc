package internalapi

import (
	"errors"
	"net/http"

	"github.com/bizhub/credits-api/internal/domain/credit"
	"github.com/bizhub/credits-api/internal/domain/membership"
	"github.com/bizhub/credits-api/internal/domain/relationships"
	"github.com/bizhub/credits-api/internal/domain/user"
	"github.com/bizhub/credits-api/internal/pkg/logger"
	"github.com/bizhub/credits-api/internal/pkg/partner"
	"github.com/bizhub/credits-api/internal/pkg/response"
)

// WriteError maps domain errors to the partner-facing status codes.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, user.ErrUserNotFound), errors.Is(err, credit.ErrUserNotFound):
		response.NotFound(w, "User not found")
	case errors.Is(err, credit.ErrInsufficientCredits):
		response.Conflict(w, "Insufficient credits")
	case errors.Is(err, user.ErrEmailAlreadyExists):
		response.Conflict(w, "Email already exists")
	case errors.Is(err, relationships.ErrInviteNotFoundOrExpired):
		response.NotFound(w, "Invite not found or expired")
	case errors.Is(err, relationships.ErrParentRequired):
		response.BadRequest(w, "Missing query: parent_user_id")
	case errors.Is(err, membership.ErrUserIDRequired):
		response.BadRequest(w, "Missing query: user_id")
	case errors.Is(err, credit.ErrSameUserTransfer),
		errors.Is(err, relationships.ErrSelfInvite),
		errors.Is(err, credit.ErrInvalidAmount),
		errors.Is(err, credit.ErrInvalidType),
		errors.Is(err, credit.ErrMissingOrder),
		errors.Is(err, user.ErrUserIDRequired),
		errors.Is(err, user.ErrNoUpdateFields),
		errors.Is(err, user.ErrIdentifierRequired):
		response.BadRequest(w, err.Error())
	case errors.Is(err, partner.ErrTimeout):
		response.GatewayTimeout(w, "Partner request timed out")
	case partner.IsRemote(err), errors.Is(err, partner.ErrNetwork):
		response.BadGateway(w, "Partner request failed")
	default:
		logger.LogError(r.Context(), err, "internal api request failed", "path", r.URL.Path)
		response.InternalError(w)
	}
}
