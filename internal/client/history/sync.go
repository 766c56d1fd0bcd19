// Package history keeps the sidebar list of past sessions in sync with the
// backend. Rename and delete are confirmed-then-refreshed rather than
// optimistic; filtering is purely local.
package history

import (
	"context"
	"strings"
	"sync"

	"sofia-backend/internal/models"

	"github.com/google/uuid"
)

// Backend is the slice of the API client the synchronizer depends on.
type Backend interface {
	ListChats(ctx context.Context) ([]models.ChatSummary, error)
	RenameChat(ctx context.Context, id uuid.UUID, title string) error
	DeleteChat(ctx context.Context, id uuid.UUID) error
}

// OpenSession lets the synchronizer react when the currently open session
// is deleted from the sidebar.
type OpenSession interface {
	ID() *uuid.UUID
	StartNew()
}

// Synchronizer caches the session list. Safe for concurrent reads while a
// refresh runs on a worker goroutine.
type Synchronizer struct {
	mu      sync.Mutex
	backend Backend
	open    OpenSession
	cache   []models.ChatSummary
}

// NewSynchronizer creates a Synchronizer. open may be nil when no session
// manager participates (tests, listings).
func NewSynchronizer(backend Backend, open OpenSession) *Synchronizer {
	return &Synchronizer{backend: backend, open: open}
}

// Refresh replaces the cache with the backend's list. The backend returns
// sessions newest-first; the order is preserved as-is.
func (s *Synchronizer) Refresh(ctx context.Context) ([]models.ChatSummary, error) {
	chats, err := s.backend.ListChats(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache = chats
	s.mu.Unlock()
	return s.Chats(), nil
}

// Chats returns a copy of the cached list.
func (s *Synchronizer) Chats() []models.ChatSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChatSummary(nil), s.cache...)
}

// Get returns the cached session with the given id.
func (s *Synchronizer) Get(id uuid.UUID) (models.ChatSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chat := range s.cache {
		if chat.ID == id {
			return chat, true
		}
	}
	return models.ChatSummary{}, false
}

// Rename updates a session's title on the backend, then refreshes so the
// sidebar reflects the confirmed state.
func (s *Synchronizer) Rename(ctx context.Context, id uuid.UUID, title string) error {
	if err := s.backend.RenameChat(ctx, id, title); err != nil {
		return err
	}
	_, err := s.Refresh(ctx)
	return err
}

// Remove deletes a session on the backend, then refreshes. If the deleted
// session is the one currently open, the session manager falls back to a
// fresh conversation.
func (s *Synchronizer) Remove(ctx context.Context, id uuid.UUID) error {
	if err := s.backend.DeleteChat(ctx, id); err != nil {
		return err
	}
	if s.open != nil {
		if openID := s.open.ID(); openID != nil && *openID == id {
			s.open.StartNew()
		}
	}
	_, err := s.Refresh(ctx)
	return err
}

// Filter returns the cached sessions whose titles contain the query,
// case-insensitive. An empty query returns everything. No backend call.
func (s *Synchronizer) Filter(query string) []models.ChatSummary {
	all := s.Chats()
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return all
	}
	var matched []models.ChatSummary
	for _, chat := range all {
		if strings.Contains(strings.ToLower(chat.Title), query) {
			matched = append(matched, chat)
		}
	}
	return matched
}
