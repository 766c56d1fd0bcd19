package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"sofia-backend/internal/llm"
	"sofia-backend/internal/models"
	"sofia-backend/internal/search"

	"github.com/google/uuid"
)

// ErrEmptyMessage is returned when a chat request carries neither text nor a file.
var ErrEmptyMessage = errors.New("message text or attachment is required")

const systemPrompt = "You are Sofia, a helpful AI assistant. Answer clearly and format responses in Markdown."

// ChatService proxies chat requests to the configured LLM provider, running
// an optional web search first and enforcing the daily quotas server-side.
// The quota check here is authoritative; the client-side counters are UX only.
type ChatService struct {
	registry     *llm.Registry
	searchClient *search.Client
	userService  *UserService
	providerName string
}

// NewChatService creates a new ChatService.
func NewChatService(registry *llm.Registry, searchClient *search.Client, userService *UserService, providerName string) *ChatService {
	return &ChatService{
		registry:     registry,
		searchClient: searchClient,
		userService:  userService,
		providerName: providerName,
	}
}

// SendMessage handles one POST /chat turn and returns the model's reply.
func (s *ChatService) SendMessage(ctx context.Context, userID uuid.UUID, req models.ChatRequest) (string, error) {
	if req.Text == "" && req.FileData == "" {
		return "", ErrEmptyMessage
	}

	user, err := s.userService.GetCurrentUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if err := s.userService.CheckQuota(user, UsageMessage); err != nil {
		return "", err
	}

	// web_search mode has its own quota and prepends grounding context.
	system := systemPrompt
	if req.Mode == models.ModeWebSearch {
		if err := s.userService.CheckQuota(user, UsageSearch); err != nil {
			return "", err
		}
		digest, err := s.searchClient.Search(ctx, req.Text)
		if err != nil {
			// A failed search degrades to a plain answer rather than failing the turn.
			log.Printf("WARN [ChatService] Web search failed for user %s: %v", userID, err)
		} else if digest != "" {
			system = systemPrompt + "\n\nUse the following search results to ground your answer. Cite sources where relevant.\n\n" + digest
			if err := s.userService.IncrementUsage(ctx, userID, UsageSearch); err != nil {
				log.Printf("WARN [ChatService] Failed to count search for user %s: %v", userID, err)
			}
		}
	}

	provider, err := s.registry.Get(s.providerName)
	if err != nil {
		return "", fmt.Errorf("chat is unavailable: %w", err)
	}

	llmReq := llm.Request{System: system, Text: req.Text}
	if req.FileData != "" {
		llmReq.File = &llm.InlineFile{MimeType: req.FileType, Data: req.FileData}
	}

	reply, err := provider.Generate(ctx, llmReq)
	if err != nil {
		log.Printf("ERROR [ChatService] Provider %s failed for user %s: %v", s.providerName, userID, err)
		return "", fmt.Errorf("chat provider error: %w", err)
	}

	if err := s.userService.IncrementUsage(ctx, userID, UsageMessage); err != nil {
		log.Printf("WARN [ChatService] Failed to count message for user %s: %v", userID, err)
	}

	return reply, nil
}
