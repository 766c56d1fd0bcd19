package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"sofia-backend/internal/models"
	"sofia-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// --- User Methods ---

// CreateUser inserts a new user record into the database.
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	log.Printf("[PostgresStore] CreateUser called for: %s (UserID: %s)", user.Email, user.ID)

	usageJSON, err := json.Marshal(user.UsageCounts)
	if err != nil {
		return fmt.Errorf("failed to marshal usage counts: %w", err)
	}

	query := `
		INSERT INTO users (id, name, email, hashed_password, is_admin, is_premium, is_verified, auth_session_id, usage_counts, last_usage_reset)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	// created_at and updated_at have database defaults (NOW())

	_, err = s.db.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.HashedPassword,
		user.IsAdmin,
		user.IsPremium,
		user.IsVerified,
		user.AuthSessionID,
		usageJSON,
		user.LastUsageReset,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			// "23505" is unique_violation (duplicate email)
			log.Printf("ERROR [PostgresStore] CreateUser: PostgreSQL error for email %s: Code=%s, Message=%s", user.Email, pgErr.Code, pgErr.Message)
		} else {
			log.Printf("ERROR [PostgresStore] CreateUser: Failed to execute insert for email %s: %v", user.Email, err)
		}
		return fmt.Errorf("database error creating user: %w", err)
	}

	return nil
}

// scanUser scans a full user row including the JSONB usage counters.
func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	var usageJSON []byte
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.HashedPassword,
		&user.IsAdmin,
		&user.IsPremium,
		&user.IsVerified,
		&user.AuthSessionID,
		&usageJSON,
		&user.LastUsageReset,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(usageJSON) > 0 {
		if err := json.Unmarshal(usageJSON, &user.UsageCounts); err != nil {
			return nil, fmt.Errorf("failed to parse usage counts: %w", err)
		}
	}
	return user, nil
}

const selectUserColumns = `id, name, email, hashed_password, is_admin, is_premium, is_verified, auth_session_id, usage_counts, last_usage_reset, created_at, updated_at`

// GetUserByEmail retrieves a user by their email address.
// Returns store.ErrNotFound if the user does not exist.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + selectUserColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(s.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetUserByEmail: Failed to query/scan user for email %s: %v", email, err)
		return nil, fmt.Errorf("database error fetching user by email: %w", err)
	}

	return user, nil
}

// GetUserByID retrieves a user by their primary key.
func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + selectUserColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetUserByID: Failed to query/scan user %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching user by id: %w", err)
	}

	return user, nil
}

// SetUserVerified marks the user with the given email as verified. Idempotent.
func (s *PostgresStore) SetUserVerified(ctx context.Context, email string) error {
	query := `UPDATE users SET is_verified = TRUE, updated_at = NOW() WHERE email = $1`

	tag, err := s.db.Exec(ctx, query, email)
	if err != nil {
		log.Printf("ERROR [PostgresStore] SetUserVerified: Failed for email %s: %v", email, err)
		return fmt.Errorf("database error verifying user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// RotateAuthSession replaces the user's auth_session_id, invalidating all
// previously issued access tokens.
func (s *PostgresStore) RotateAuthSession(ctx context.Context, userID, newSessionID uuid.UUID) error {
	query := `UPDATE users SET auth_session_id = $2, updated_at = NOW() WHERE id = $1`

	tag, err := s.db.Exec(ctx, query, userID, newSessionID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] RotateAuthSession: Failed for user %s: %v", userID, err)
		return fmt.Errorf("database error rotating auth session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpdateUsage overwrites the user's usage counters and reset date.
func (s *PostgresStore) UpdateUsage(ctx context.Context, userID uuid.UUID, counts models.UsageCounts, resetDate string) error {
	usageJSON, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("failed to marshal usage counts: %w", err)
	}

	query := `UPDATE users SET usage_counts = $2, last_usage_reset = $3, updated_at = NOW() WHERE id = $1`

	tag, err := s.db.Exec(ctx, query, userID, usageJSON, resetDate)
	if err != nil {
		log.Printf("ERROR [PostgresStore] UpdateUsage: Failed for user %s: %v", userID, err)
		return fmt.Errorf("database error updating usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AnonymizeUser scrubs personal data from a deleted account while keeping the
// row so foreign keys (chats, library items) stay consistent.
func (s *PostgresStore) AnonymizeUser(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE users
		SET email = 'deleted_' || id || '@anonymous.invalid',
		    name = '',
		    hashed_password = 'deleted',
		    auth_session_id = $2,
		    updated_at = NOW()
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query, userID, uuid.New())
	if err != nil {
		log.Printf("ERROR [PostgresStore] AnonymizeUser: Failed for user %s: %v", userID, err)
		return fmt.Errorf("database error anonymizing user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Methods for other entities live in separate files
// (store_chats.go, store_library.go)
