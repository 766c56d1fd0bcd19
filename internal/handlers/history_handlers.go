package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"sofia-backend/internal/models"
	"sofia-backend/internal/services"
	"sofia-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// HistoryHandlers handles the /api/chats CRUD surface backing the client's
// sidebar and session persistence.
type HistoryHandlers struct {
	historyService *services.HistoryService
}

// NewHistoryHandlers creates a new HistoryHandlers instance.
func NewHistoryHandlers(historyService *services.HistoryService) *HistoryHandlers {
	return &HistoryHandlers{historyService: historyService}
}

// HandleListChats handles GET /api/chats.
func (h *HistoryHandlers) HandleListChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromRequest(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	chats, err := h.historyService.ListChats(r.Context(), userID)
	if err != nil {
		log.Printf("ListChats handler failed for user %s: %v", userID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to list chats")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, chats)
}

// HandleSaveChat handles POST /api/chats (full-session upsert).
func (h *HistoryHandlers) HandleSaveChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromRequest(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.SaveChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	resp, err := h.historyService.SaveChat(r.Context(), userID, req)
	if err != nil {
		if errors.Is(err, services.ErrChatNotFound) {
			RespondWithError(w, http.StatusNotFound, "Chat not found")
			return
		}
		log.Printf("SaveChat handler failed for user %s: %v", userID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to save chat")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleRenameChat handles PUT /api/chats/{chatID}.
func (h *HistoryHandlers) HandleRenameChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromRequest(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	chatID, err := uuid.Parse(chi.URLParam(r, "chatID"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid chat ID")
		return
	}

	var req models.RenameChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	if err := h.historyService.RenameChat(r.Context(), userID, chatID, req.Title); err != nil {
		switch {
		case errors.Is(err, services.ErrChatNotFound):
			RespondWithError(w, http.StatusNotFound, "Chat not found")
		case errors.Is(err, services.ErrValidation):
			RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("RenameChat handler failed for chat %s: %v", chatID, err)
			RespondWithError(w, http.StatusInternalServerError, "Failed to rename chat")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

// HandleDeleteChat handles DELETE /api/chats/{chatID}.
func (h *HistoryHandlers) HandleDeleteChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromRequest(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	chatID, err := uuid.Parse(chi.URLParam(r, "chatID"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid chat ID")
		return
	}

	if err := h.historyService.DeleteChat(r.Context(), userID, chatID); err != nil {
		if errors.Is(err, services.ErrChatNotFound) {
			RespondWithError(w, http.StatusNotFound, "Chat not found")
			return
		}
		log.Printf("DeleteChat handler failed for chat %s: %v", chatID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete chat")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}
