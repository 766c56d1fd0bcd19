package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"sofia-backend/internal/config"
	"sofia-backend/internal/models"
	"sofia-backend/internal/store"

	"github.com/google/uuid"
)

// Custom errors for usage gating
var (
	ErrMessageLimitExceeded = errors.New("daily message limit reached")
	ErrSearchLimitExceeded  = errors.New("daily web search limit reached")
	ErrUnknownUsageType     = errors.New("unknown usage type")
)

// UsageType names the two metered actions.
type UsageType string

const (
	UsageMessage UsageType = "message"
	UsageSearch  UsageType = "search"
)

// UserService owns user profile reads, usage counter accounting, and the
// account lifecycle actions (logout-all, delete).
type UserService struct {
	store store.Store
	cfg   *config.Config
}

func NewUserService(s store.Store, cfg *config.Config) *UserService {
	return &UserService{store: s, cfg: cfg}
}

// currentDay returns today's UTC date in the counter-reset format.
func currentDay() string {
	return time.Now().UTC().Format("2006-01-02")
}

// GetCurrentUser loads the user and lazily resets stale daily counters. The
// reset is persisted so concurrent readers converge on zeroed counts.
func (s *UserService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	today := currentDay()
	if user.LastUsageReset != today {
		user.UsageCounts = models.UsageCounts{}
		user.LastUsageReset = today
		if err := s.store.UpdateUsage(ctx, user.ID, user.UsageCounts, today); err != nil {
			// Non-fatal: the stale counters only over-count until the next write.
			log.Printf("WARN [UserService] Failed to persist usage reset for user %s: %v", user.ID, err)
		}
	}

	return user, nil
}

// GetUserInfo maps the current user to the /get_user_info response.
func (s *UserService) GetUserInfo(ctx context.Context, userID uuid.UUID) (*models.UserInfoResponse, error) {
	user, err := s.GetCurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.UserInfoResponse{
		Name:          user.Name,
		Email:         user.Email,
		IsAdmin:       user.IsAdmin,
		IsPremium:     user.IsPremium,
		EmailVerified: user.IsVerified,
		UsageCounts:   user.UsageCounts,
	}, nil
}

// CheckQuota returns the quota error for the given usage type if the user has
// exhausted today's allowance. Admin and premium accounts are unmetered.
func (s *UserService) CheckQuota(user *models.User, usage UsageType) error {
	if user.IsAdmin || user.IsPremium {
		return nil
	}
	switch usage {
	case UsageMessage:
		if user.UsageCounts.Messages >= s.cfg.FreeMessageLimit {
			return ErrMessageLimitExceeded
		}
	case UsageSearch:
		if user.UsageCounts.WebSearches >= s.cfg.FreeSearchLimit {
			return ErrSearchLimitExceeded
		}
	default:
		return ErrUnknownUsageType
	}
	return nil
}

// IncrementUsage bumps one counter for the user. Only the chat turn itself
// counts; the client's /update_usage mirror never reaches this method.
func (s *UserService) IncrementUsage(ctx context.Context, userID uuid.UUID, usage UsageType) error {
	user, err := s.GetCurrentUser(ctx, userID)
	if err != nil {
		return err
	}
	switch usage {
	case UsageMessage:
		user.UsageCounts.Messages++
	case UsageSearch:
		user.UsageCounts.WebSearches++
	default:
		return ErrUnknownUsageType
	}
	if err := s.store.UpdateUsage(ctx, userID, user.UsageCounts, user.LastUsageReset); err != nil {
		return fmt.Errorf("failed to persist usage: %w", err)
	}
	return nil
}

// LogoutAll rotates the auth session id so every outstanding token is rejected.
func (s *UserService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.RotateAuthSession(ctx, userID, uuid.New()); err != nil {
		return fmt.Errorf("failed to rotate auth session: %w", err)
	}
	log.Printf("[UserService] User %s logged out of all devices", userID)
	return nil
}

// DeleteAccount anonymizes the user row. Chats and library items stay keyed
// to the scrubbed row so foreign keys survive.
func (s *UserService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.AnonymizeUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to anonymize user: %w", err)
	}
	log.Printf("[UserService] User %s account deleted (anonymized)", userID)
	return nil
}
