package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"sofia-backend/internal/models"
	"sofia-backend/internal/store"

	"github.com/google/uuid"
)

// ErrChatNotFound is returned when a chat id does not exist for this user.
var ErrChatNotFound = errors.New("chat not found")

// maxDerivedTitleLen caps titles derived from the first user message.
const maxDerivedTitleLen = 40

// HistoryService handles the persisted chat history: full-session upserts,
// newest-first listing, rename and delete.
type HistoryService struct {
	store store.Store
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(s store.Store) *HistoryService {
	return &HistoryService{store: s}
}

// mapChatToSummary converts a DB chat to the API shape, parsing the JSONB
// message array.
func mapChatToSummary(chat *models.Chat) (*models.ChatSummary, error) {
	var messages []models.Message
	if len(chat.Messages) > 0 {
		if err := json.Unmarshal(chat.Messages, &messages); err != nil {
			return nil, fmt.Errorf("failed to parse chat messages: %w", err)
		}
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return &models.ChatSummary{
		ID:       chat.ID,
		Title:    chat.Title,
		Messages: messages,
	}, nil
}

// DeriveTitle produces a session title from the first user message when the
// caller supplied none: the leading substring, at most 40 characters.
func DeriveTitle(messages []models.Message) string {
	for _, msg := range messages {
		if msg.Sender != models.SenderUser {
			continue
		}
		title := strings.TrimSpace(msg.Text)
		if title == "" {
			continue
		}
		runes := []rune(title)
		if len(runes) > maxDerivedTitleLen {
			title = string(runes[:maxDerivedTitleLen])
		}
		return title
	}
	return "New Chat"
}

// SaveChat upserts a full session. A request without an id creates the chat
// and returns the assigned identity the client adopts.
func (s *HistoryService) SaveChat(ctx context.Context, userID uuid.UUID, req models.SaveChatRequest) (*models.SaveChatResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DeriveTitle(req.Messages)
	}

	messagesJSON, err := models.MarshalMessages(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal messages: %w", err)
	}

	chat, err := s.store.UpsertChat(ctx, store.UpsertChatParams{
		ID:       req.ID,
		UserID:   userID,
		Title:    title,
		Messages: messagesJSON,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to upsert chat: %w", err)
	}

	return &models.SaveChatResponse{ID: chat.ID, Title: chat.Title}, nil
}

// ListChats returns every chat for the user, newest activity first.
func (s *HistoryService) ListChats(ctx context.Context, userID uuid.UUID) ([]models.ChatSummary, error) {
	chats, err := s.store.ListChatsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	summaries := make([]models.ChatSummary, 0, len(chats))
	for i := range chats {
		summary, err := mapChatToSummary(&chats[i])
		if err != nil {
			return nil, fmt.Errorf("failed to map chat %s: %w", chats[i].ID, err)
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

// RenameChat updates a chat's title.
func (s *HistoryService) RenameChat(ctx context.Context, userID, chatID uuid.UUID, newTitle string) error {
	newTitle = strings.TrimSpace(newTitle)
	if newTitle == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrValidation)
	}
	if err := s.store.RenameChat(ctx, chatID, userID, newTitle); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrChatNotFound
		}
		return fmt.Errorf("failed to rename chat: %w", err)
	}
	return nil
}

// DeleteChat removes a chat.
func (s *HistoryService) DeleteChat(ctx context.Context, userID, chatID uuid.UUID) error {
	if err := s.store.DeleteChat(ctx, chatID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrChatNotFound
		}
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	return nil
}
