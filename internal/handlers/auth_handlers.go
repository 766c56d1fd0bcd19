package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"sofia-backend/internal/auth"
	"sofia-backend/internal/models"
	"sofia-backend/internal/services"
	"sofia-backend/internal/store"
	"sofia-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// AuthService defines the interface expected from the auth service.
// This promotes loose coupling and testability.
type AuthService interface {
	Signup(ctx context.Context, name, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	ConfirmEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, userID uuid.UUID) error
}

type AuthHandler struct {
	authService AuthService
}

func NewAuthHandler(authSvc AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authSvc,
	}
}

// HandleSignup handles the POST /api/signup request.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if req.Name == "" || req.Email == "" || req.Password == "" {
		RespondWithError(w, http.StatusBadRequest, "Please fill out all fields.")
		return
	}

	_, err := h.authService.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		log.Printf("Signup handler failed for email %s: %v", req.Email, err)
		switch {
		case errors.Is(err, services.ErrUserAlreadyExists):
			RespondWithError(w, http.StatusConflict, "Email already registered.")
		case errors.Is(err, services.ErrValidation):
			RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			RespondWithError(w, http.StatusInternalServerError, "Error creating account.")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, models.SuccessResponse{
		Success: true,
		Message: "Account created! Check your email to verify.",
	})
}

// HandleLogin handles the POST /api/login request.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if req.Email == "" || req.Password == "" {
		RespondWithError(w, http.StatusBadRequest, "Missing credentials.")
		return
	}

	token, user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			RespondWithError(w, http.StatusUnauthorized, err.Error())
		case errors.Is(err, services.ErrEmailNotVerified):
			RespondWithError(w, http.StatusForbidden, err.Error())
		default:
			log.Printf("Login handler failed for email %s: %v", req.Email, err)
			RespondWithError(w, http.StatusInternalServerError, "Login failed due to an internal error")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.AuthResponse{
		AccessToken: token,
		User: models.UserResponse{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
		},
	})
}

// HandleConfirmEmail handles GET /confirm/{token} from the verification link.
func (h *AuthHandler) HandleConfirmEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		RespondWithError(w, http.StatusBadRequest, "Missing confirmation token.")
		return
	}

	if err := h.authService.ConfirmEmail(r.Context(), token); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidVerifyToken):
			RespondWithError(w, http.StatusBadRequest, "The confirmation link is invalid or has expired.")
		case errors.Is(err, store.ErrNotFound):
			RespondWithError(w, http.StatusNotFound, "User not found.")
		default:
			log.Printf("ConfirmEmail handler failed: %v", err)
			RespondWithError(w, http.StatusInternalServerError, "Verification failed due to an internal error")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.SuccessResponse{Success: true, Message: "Email verified. You can now log in."})
}

// HandleSendVerificationEmail handles POST /send_verification_email
// (re-send from the settings menu; requires auth).
func (h *AuthHandler) HandleSendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromRequest(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.authService.ResendVerification(r.Context(), userID); err != nil {
		if errors.Is(err, services.ErrAlreadyVerified) {
			RespondWithError(w, http.StatusBadRequest, "Email is already verified.")
			return
		}
		log.Printf("SendVerificationEmail handler failed for user %s: %v", userID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to send verification email")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.SuccessResponse{Success: true, Message: "Verification email sent."})
}
