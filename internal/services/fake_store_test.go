package services

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"sofia-backend/internal/models"
	"sofia-backend/internal/store"

	"github.com/google/uuid"
)

// fakeStore is an in-memory store.Store for service tests.
type fakeStore struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*models.User
	chats   map[uuid.UUID]*models.Chat
	library map[uuid.UUID]*models.LibraryItem

	upsertCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[uuid.UUID]*models.User),
		chats:   make(map[uuid.UUID]*models.Chat),
		library: make(map[uuid.UUID]*models.LibraryItem),
	}
}

var _ store.Store = (*fakeStore)(nil)

func (f *fakeStore) CreateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeStore) SetUserVerified(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			u.IsVerified = true
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) RotateAuthSession(_ context.Context, userID, newSessionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.AuthSessionID = newSessionID
	return nil
}

func (f *fakeStore) UpdateUsage(_ context.Context, userID uuid.UUID, counts models.UsageCounts, resetDate string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.UsageCounts = counts
	u.LastUsageReset = resetDate
	return nil
}

func (f *fakeStore) AnonymizeUser(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.Name = "Deleted User"
	u.Email = "deleted_" + userID.String() + "@anonymous.invalid"
	u.HashedPassword = ""
	u.IsVerified = false
	return nil
}

func (f *fakeStore) UpsertChat(_ context.Context, arg store.UpsertChatParams) (*models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++

	if arg.ID != nil {
		existing, ok := f.chats[*arg.ID]
		if !ok || existing.UserID != arg.UserID {
			return nil, store.ErrNotFound
		}
		existing.Title = arg.Title
		existing.Messages = append(json.RawMessage(nil), arg.Messages...)
		existing.UpdatedAt = time.Now()
		clone := *existing
		return &clone, nil
	}

	chat := &models.Chat{
		ID:        uuid.New(),
		UserID:    arg.UserID,
		Title:     arg.Title,
		Messages:  append(json.RawMessage(nil), arg.Messages...),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.chats[chat.ID] = chat
	clone := *chat
	return &clone, nil
}

func (f *fakeStore) GetChatByID(_ context.Context, chatID, userID uuid.UUID) (*models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chats[chatID]
	if !ok || c.UserID != userID {
		return nil, store.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (f *fakeStore) ListChatsByUser(_ context.Context, userID uuid.UUID) ([]models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Chat
	for _, c := range f.chats {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeStore) RenameChat(_ context.Context, chatID, userID uuid.UUID, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chats[chatID]
	if !ok || c.UserID != userID {
		return store.ErrNotFound
	}
	c.Title = title
	return nil
}

func (f *fakeStore) DeleteChat(_ context.Context, chatID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chats[chatID]
	if !ok || c.UserID != userID {
		return store.ErrNotFound
	}
	delete(f.chats, chatID)
	return nil
}

func (f *fakeStore) CreateLibraryItem(_ context.Context, arg store.CreateLibraryItemParams) (*models.LibraryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := &models.LibraryItem{
		ID:            arg.ID,
		UserID:        arg.UserID,
		FileName:      arg.FileName,
		FileType:      arg.FileType,
		FileCategory:  arg.FileCategory,
		EncryptedData: append([]byte(nil), arg.EncryptedData...),
		CreatedAt:     time.Now(),
	}
	f.library[item.ID] = item
	clone := *item
	return &clone, nil
}

func (f *fakeStore) GetLibraryItemByID(_ context.Context, id, userID uuid.UUID) (*models.LibraryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.library[id]
	if !ok || item.UserID != userID {
		return nil, store.ErrNotFound
	}
	clone := *item
	return &clone, nil
}

func (f *fakeStore) ListLibraryItemsByUser(_ context.Context, userID uuid.UUID) ([]models.LibraryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.LibraryItem
	for _, item := range f.library {
		if item.UserID == userID {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) DeleteLibraryItem(_ context.Context, id, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.library[id]
	if !ok || item.UserID != userID {
		return store.ErrNotFound
	}
	delete(f.library, id)
	return nil
}
