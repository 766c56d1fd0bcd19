package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"sofia-backend/internal/models"
	"sofia-backend/internal/services"
	"sofia-backend/pkg/httputil"
)

// ChatHandlers handles the /chat proxy and the /update_usage mirror.
type ChatHandlers struct {
	chatService *services.ChatService
}

// NewChatHandlers creates a new ChatHandlers instance.
func NewChatHandlers(chatService *services.ChatService) *ChatHandlers {
	return &ChatHandlers{
		chatService: chatService,
	}
}

// HandleChat handles POST /chat: one user turn in, one model reply out.
func (h *ChatHandlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromRequest(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	reply, err := h.chatService.SendMessage(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyMessage):
			RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrMessageLimitExceeded),
			errors.Is(err, services.ErrSearchLimitExceeded):
			RespondLimitExceeded(w, err.Error())
		default:
			log.Printf("Chat handler failed for user %s: %v", userID, err)
			RespondWithError(w, http.StatusInternalServerError, "Failed to get a response from the AI")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.ChatResponse{Response: reply})
}

// HandleUpdateUsage handles POST /update_usage, the client's fire-and-forget
// usage mirror. The actual counting happens on /chat, which is the single
// authority for the quota counters; this endpoint only acknowledges the
// client's local bookkeeping so one turn is never counted twice.
func (h *ChatHandlers) HandleUpdateUsage(w http.ResponseWriter, r *http.Request) {
	if _, ok := UserIDFromRequest(r.Context()); !ok {
		RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.UpdateUsageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	usage := services.UsageType(req.Type)
	if usage != services.UsageMessage && usage != services.UsageSearch {
		RespondWithError(w, http.StatusBadRequest, "Unknown usage type")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}
