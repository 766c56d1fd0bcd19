package store

import (
	"context"
	"encoding/json"
	"errors"

	"sofia-backend/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// UpsertChatParams contains parameters for the full-session chat upsert.
// ID is nil on the first persistence of a session; the store assigns one.
type UpsertChatParams struct {
	ID       *uuid.UUID
	UserID   uuid.UUID
	Title    string
	Messages json.RawMessage // JSON array of models.Message
}

// CreateLibraryItemParams contains parameters for storing an uploaded file.
// EncryptedData is the nonce-prefixed AES-GCM ciphertext; encryption happens
// in the service layer, the store never sees plaintext content.
type CreateLibraryItemParams struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	FileName      string
	FileType      string
	FileCategory  models.FileCategory
	EncryptedData []byte
}

// Store defines the interface for database operations.
// This allows for mocking in tests and potential DB backend switching.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetUserVerified(ctx context.Context, email string) error
	RotateAuthSession(ctx context.Context, userID, newSessionID uuid.UUID) error
	UpdateUsage(ctx context.Context, userID uuid.UUID, counts models.UsageCounts, resetDate string) error
	AnonymizeUser(ctx context.Context, userID uuid.UUID) error

	// Chat operations (full-session upserts; messages stored as JSONB)
	UpsertChat(ctx context.Context, arg UpsertChatParams) (*models.Chat, error)
	GetChatByID(ctx context.Context, chatID, userID uuid.UUID) (*models.Chat, error)
	ListChatsByUser(ctx context.Context, userID uuid.UUID) ([]models.Chat, error)
	RenameChat(ctx context.Context, chatID, userID uuid.UUID, title string) error
	DeleteChat(ctx context.Context, chatID, userID uuid.UUID) error

	// Library operations
	CreateLibraryItem(ctx context.Context, arg CreateLibraryItemParams) (*models.LibraryItem, error)
	GetLibraryItemByID(ctx context.Context, id, userID uuid.UUID) (*models.LibraryItem, error)
	ListLibraryItemsByUser(ctx context.Context, userID uuid.UUID) ([]models.LibraryItem, error)
	DeleteLibraryItem(ctx context.Context, id, userID uuid.UUID) error
}
