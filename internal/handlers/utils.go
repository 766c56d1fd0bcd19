package handlers

import (
	"context"
	"net/http"

	"sofia-backend/internal/auth"
	"sofia-backend/internal/models"
	"sofia-backend/pkg/httputil"

	"github.com/google/uuid"
)

// RespondWithError responds with a plain error message.
func RespondWithError(w http.ResponseWriter, code int, message string) {
	httputil.RespondJSON(w, code, models.ErrorResponse{Error: message})
}

// RespondLimitExceeded responds with the machine-readable quota error the
// client maps to its usage notice.
func RespondLimitExceeded(w http.ResponseWriter, message string) {
	httputil.RespondJSON(w, http.StatusTooManyRequests, models.ErrorResponse{
		Error: message,
		Code:  models.ErrorCodeLimitExceeded,
	})
}

// UserIDFromRequest extracts the authenticated user's ID injected by the JWT
// middleware. A missing value means the route was mounted outside the
// authenticated group.
func UserIDFromRequest(ctx context.Context) (uuid.UUID, bool) {
	return auth.GetUserIDFromContext(ctx)
}
