package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// UsageCounts tracks a user's consumption against the daily free-plan limits.
// Stored as JSONB on the users row; reset lazily when LastUsageReset is stale.
type UsageCounts struct {
	Messages    int `json:"messages"`
	WebSearches int `json:"webSearches"`
}

// User represents a user in the database.
type User struct {
	ID             uuid.UUID   `db:"id"`
	Name           string      `db:"name"`
	Email          string      `db:"email"`
	HashedPassword string      `db:"hashed_password"`
	IsAdmin        bool        `db:"is_admin"`
	IsPremium      bool        `db:"is_premium"`
	IsVerified     bool        `db:"is_verified"`
	AuthSessionID  uuid.UUID   `db:"auth_session_id"` // rotated on login/logout-all; tokens carrying an older value are rejected
	UsageCounts    UsageCounts `db:"usage_counts"`
	LastUsageReset string      `db:"last_usage_reset"` // UTC date "2006-01-02" of the last counter reset
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

// Chat represents a persisted conversation. The full ordered message history
// lives in the Messages JSONB column; every upsert replaces it wholesale.
type Chat struct {
	ID        uuid.UUID       `db:"id"`
	UserID    uuid.UUID       `db:"user_id"`
	Title     string          `db:"title"`
	Messages  json.RawMessage `db:"messages"` // JSONB array of Message
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// FileCategory buckets library items for the client's filter tabs.
type FileCategory string

const (
	FileCategoryImage    FileCategory = "image"
	FileCategoryDocument FileCategory = "document"
	FileCategoryCode     FileCategory = "code"
	FileCategoryOther    FileCategory = "other"
)

// LibraryItem represents a user-owned uploaded file stored for reuse across
// sessions. Content is encrypted at rest with AES-GCM; EncryptedData holds the
// nonce-prefixed ciphertext exactly as it comes out of the database.
type LibraryItem struct {
	ID            uuid.UUID    `db:"id"`
	UserID        uuid.UUID    `db:"user_id"`
	FileName      string       `db:"file_name"`
	FileType      string       `db:"file_type"` // MIME type
	FileCategory  FileCategory `db:"file_category"`
	EncryptedData []byte       `db:"encrypted_data"`
	CreatedAt     time.Time    `db:"created_at"`
}
