package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"

	"sofia-backend/internal/models"
	"sofia-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Chat Methods ---

const upsertChat = `
INSERT INTO chats (id, user_id, title, messages)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET title = EXCLUDED.title, messages = EXCLUDED.messages, updated_at = NOW()
WHERE chats.user_id = EXCLUDED.user_id
RETURNING id, user_id, title, messages, created_at, updated_at
`

// UpsertChat persists a full session. A nil ID means first persistence; the
// store assigns a fresh UUID which the caller adopts. An existing ID replaces
// the title and the whole JSONB message array.
func (s *PostgresStore) UpsertChat(ctx context.Context, arg store.UpsertChatParams) (*models.Chat, error) {
	chatID := uuid.New()
	if arg.ID != nil {
		chatID = *arg.ID
	}

	chat := &models.Chat{}
	err := s.db.QueryRow(ctx, upsertChat, chatID, arg.UserID, arg.Title, arg.Messages).Scan(
		&chat.ID,
		&chat.UserID,
		&chat.Title,
		&chat.Messages,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The ON CONFLICT WHERE clause filtered the update: the id exists
			// but belongs to another user.
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] UpsertChat: Failed for chat %s (user %s): %v", chatID, arg.UserID, err)
		return nil, fmt.Errorf("database error upserting chat: %w", err)
	}

	return chat, nil
}

// GetChatByID retrieves a single chat scoped to its owner.
func (s *PostgresStore) GetChatByID(ctx context.Context, chatID, userID uuid.UUID) (*models.Chat, error) {
	query := `
		SELECT id, user_id, title, messages, created_at, updated_at
		FROM chats
		WHERE id = $1 AND user_id = $2`

	chat := &models.Chat{}
	err := s.db.QueryRow(ctx, query, chatID, userID).Scan(
		&chat.ID,
		&chat.UserID,
		&chat.Title,
		&chat.Messages,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetChatByID: Failed for chat %s: %v", chatID, err)
		return nil, fmt.Errorf("database error fetching chat: %w", err)
	}

	return chat, nil
}

// ListChatsByUser returns all chats for a user, newest activity first.
func (s *PostgresStore) ListChatsByUser(ctx context.Context, userID uuid.UUID) ([]models.Chat, error) {
	query := `
		SELECT id, user_id, title, messages, created_at, updated_at
		FROM chats
		WHERE user_id = $1
		ORDER BY updated_at DESC`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListChatsByUser: Query failed for user %s: %v", userID, err)
		return nil, fmt.Errorf("database error listing chats: %w", err)
	}
	defer rows.Close()

	chats := []models.Chat{}
	for rows.Next() {
		var chat models.Chat
		if err := rows.Scan(
			&chat.ID,
			&chat.UserID,
			&chat.Title,
			&chat.Messages,
			&chat.CreatedAt,
			&chat.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("database error scanning chat row: %w", err)
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating chats: %w", err)
	}

	return chats, nil
}

// RenameChat updates only the title of an owned chat.
func (s *PostgresStore) RenameChat(ctx context.Context, chatID, userID uuid.UUID, title string) error {
	query := `UPDATE chats SET title = $3, updated_at = NOW() WHERE id = $1 AND user_id = $2`

	tag, err := s.db.Exec(ctx, query, chatID, userID, title)
	if err != nil {
		log.Printf("ERROR [PostgresStore] RenameChat: Failed for chat %s: %v", chatID, err)
		return fmt.Errorf("database error renaming chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteChat removes an owned chat.
func (s *PostgresStore) DeleteChat(ctx context.Context, chatID, userID uuid.UUID) error {
	query := `DELETE FROM chats WHERE id = $1 AND user_id = $2`

	tag, err := s.db.Exec(ctx, query, chatID, userID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] DeleteChat: Failed for chat %s: %v", chatID, err)
		return fmt.Errorf("database error deleting chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
