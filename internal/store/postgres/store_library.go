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

// --- Library Methods ---

// CreateLibraryItem stores an uploaded file's metadata and encrypted content.
func (s *PostgresStore) CreateLibraryItem(ctx context.Context, arg store.CreateLibraryItemParams) (*models.LibraryItem, error) {
	query := `
		INSERT INTO library_items (id, user_id, file_name, file_type, file_category, encrypted_data)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, file_name, file_type, file_category, encrypted_data, created_at`

	item := &models.LibraryItem{}
	err := s.db.QueryRow(ctx, query,
		arg.ID,
		arg.UserID,
		arg.FileName,
		arg.FileType,
		arg.FileCategory,
		arg.EncryptedData,
	).Scan(
		&item.ID,
		&item.UserID,
		&item.FileName,
		&item.FileType,
		&item.FileCategory,
		&item.EncryptedData,
		&item.CreatedAt,
	)
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateLibraryItem: Failed for user %s file %s: %v", arg.UserID, arg.FileName, err)
		return nil, fmt.Errorf("database error creating library item: %w", err)
	}

	return item, nil
}

// GetLibraryItemByID retrieves a single library item scoped to its owner.
func (s *PostgresStore) GetLibraryItemByID(ctx context.Context, id, userID uuid.UUID) (*models.LibraryItem, error) {
	query := `
		SELECT id, user_id, file_name, file_type, file_category, encrypted_data, created_at
		FROM library_items
		WHERE id = $1 AND user_id = $2`

	item := &models.LibraryItem{}
	err := s.db.QueryRow(ctx, query, id, userID).Scan(
		&item.ID,
		&item.UserID,
		&item.FileName,
		&item.FileType,
		&item.FileCategory,
		&item.EncryptedData,
		&item.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetLibraryItemByID: Failed for item %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching library item: %w", err)
	}

	return item, nil
}

// ListLibraryItemsByUser returns all library items for a user, newest first.
func (s *PostgresStore) ListLibraryItemsByUser(ctx context.Context, userID uuid.UUID) ([]models.LibraryItem, error) {
	query := `
		SELECT id, user_id, file_name, file_type, file_category, encrypted_data, created_at
		FROM library_items
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListLibraryItemsByUser: Query failed for user %s: %v", userID, err)
		return nil, fmt.Errorf("database error listing library items: %w", err)
	}
	defer rows.Close()

	items := []models.LibraryItem{}
	for rows.Next() {
		var item models.LibraryItem
		if err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.FileName,
			&item.FileType,
			&item.FileCategory,
			&item.EncryptedData,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("database error scanning library row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating library items: %w", err)
	}

	return items, nil
}

// DeleteLibraryItem removes an owned library item.
func (s *PostgresStore) DeleteLibraryItem(ctx context.Context, id, userID uuid.UUID) error {
	query := `DELETE FROM library_items WHERE id = $1 AND user_id = $2`

	tag, err := s.db.Exec(ctx, query, id, userID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] DeleteLibraryItem: Failed for item %s: %v", id, err)
		return fmt.Errorf("database error deleting library item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
