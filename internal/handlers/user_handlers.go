package handlers

import (
	"log"
	"net/http"

	"sofia-backend/internal/models"
	"sofia-backend/internal/services"
	"sofia-backend/pkg/httputil"
)

// UserHandlers handles profile reads and account lifecycle actions.
type UserHandlers struct {
	userService *services.UserService
}

// NewUserHandlers creates a new UserHandlers instance.
func NewUserHandlers(userService *services.UserService) *UserHandlers {
	return &UserHandlers{userService: userService}
}

// HandleGetUserInfo handles GET /get_user_info.
func (h *UserHandlers) HandleGetUserInfo(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromRequest(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	info, err := h.userService.GetUserInfo(r.Context(), userID)
	if err != nil {
		log.Printf("GetUserInfo handler failed for user %s: %v", userID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to load user info")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, info)
}

// HandleLogout handles POST /logout. Tokens are stateless, so a single-device
// logout is a client-side token discard; the endpoint exists for the contract
// and audit logging.
func (h *UserHandlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromRequest(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	log.Printf("[UserHandlers] User %s logged out", userID)
	httputil.RespondJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

// HandleLogoutAll handles POST /logout-all.
func (h *UserHandlers) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromRequest(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.userService.LogoutAll(r.Context(), userID); err != nil {
		log.Printf("LogoutAll handler failed for user %s: %v", userID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to log out of all devices")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.SuccessResponse{Success: true, Message: "Logged out of all devices."})
}

// HandleDeleteAccount handles DELETE /delete_account.
func (h *UserHandlers) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromRequest(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.userService.DeleteAccount(r.Context(), userID); err != nil {
		log.Printf("DeleteAccount handler failed for user %s: %v", userID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete account")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}
