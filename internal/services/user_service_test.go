package services

import (
	"context"
	"testing"
	"time"

	"sofia-backend/internal/config"
	"sofia-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		FreeMessageLimit: 15,
		FreeSearchLimit:  3,
	}
}

func seedUser(t *testing.T, fs *fakeStore, mutate func(*models.User)) *models.User {
	t.Helper()
	user := &models.User{
		ID:             uuid.New(),
		Name:           "Test User",
		Email:          "test@example.com",
		IsVerified:     true,
		AuthSessionID:  uuid.New(),
		LastUsageReset: time.Now().UTC().Format("2006-01-02"),
	}
	if mutate != nil {
		mutate(user)
	}
	require.NoError(t, fs.CreateUser(context.Background(), user))
	return user
}

func TestCheckQuotaFreePlan(t *testing.T) {
	svc := NewUserService(newFakeStore(), testConfig())

	user := &models.User{UsageCounts: models.UsageCounts{Messages: 14, WebSearches: 2}}
	assert.NoError(t, svc.CheckQuota(user, UsageMessage))
	assert.NoError(t, svc.CheckQuota(user, UsageSearch))

	user.UsageCounts = models.UsageCounts{Messages: 15, WebSearches: 3}
	assert.ErrorIs(t, svc.CheckQuota(user, UsageMessage), ErrMessageLimitExceeded)
	assert.ErrorIs(t, svc.CheckQuota(user, UsageSearch), ErrSearchLimitExceeded)
}

func TestCheckQuotaExemptAccounts(t *testing.T) {
	svc := NewUserService(newFakeStore(), testConfig())
	exhausted := models.UsageCounts{Messages: 1000, WebSearches: 1000}

	admin := &models.User{IsAdmin: true, UsageCounts: exhausted}
	premium := &models.User{IsPremium: true, UsageCounts: exhausted}

	assert.NoError(t, svc.CheckQuota(admin, UsageMessage))
	assert.NoError(t, svc.CheckQuota(premium, UsageSearch))
}

func TestCheckQuotaUnknownType(t *testing.T) {
	svc := NewUserService(newFakeStore(), testConfig())
	assert.ErrorIs(t, svc.CheckQuota(&models.User{}, UsageType("bogus")), ErrUnknownUsageType)
}

func TestGetCurrentUserResetsStaleCounters(t *testing.T) {
	fs := newFakeStore()
	svc := NewUserService(fs, testConfig())
	seeded := seedUser(t, fs, func(u *models.User) {
		u.UsageCounts = models.UsageCounts{Messages: 12, WebSearches: 3}
		u.LastUsageReset = "2020-01-01"
	})

	user, err := svc.GetCurrentUser(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UsageCounts{}, user.UsageCounts)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), user.LastUsageReset)

	// The reset is persisted, not just returned.
	stored, err := fs.GetUserByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UsageCounts{}, stored.UsageCounts)
}

func TestGetCurrentUserKeepsTodaysCounters(t *testing.T) {
	fs := newFakeStore()
	svc := NewUserService(fs, testConfig())
	seeded := seedUser(t, fs, func(u *models.User) {
		u.UsageCounts = models.UsageCounts{Messages: 5, WebSearches: 1}
	})

	user, err := svc.GetCurrentUser(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UsageCounts{Messages: 5, WebSearches: 1}, user.UsageCounts)
}

func TestIncrementUsage(t *testing.T) {
	fs := newFakeStore()
	svc := NewUserService(fs, testConfig())
	seeded := seedUser(t, fs, nil)

	require.NoError(t, svc.IncrementUsage(context.Background(), seeded.ID, UsageMessage))
	require.NoError(t, svc.IncrementUsage(context.Background(), seeded.ID, UsageMessage))
	require.NoError(t, svc.IncrementUsage(context.Background(), seeded.ID, UsageSearch))

	stored, err := fs.GetUserByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UsageCounts{Messages: 2, WebSearches: 1}, stored.UsageCounts)
}

func TestLogoutAllRotatesSession(t *testing.T) {
	fs := newFakeStore()
	svc := NewUserService(fs, testConfig())
	seeded := seedUser(t, fs, nil)
	before := seeded.AuthSessionID

	require.NoError(t, svc.LogoutAll(context.Background(), seeded.ID))

	stored, err := fs.GetUserByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.NotEqual(t, before, stored.AuthSessionID)
}

func TestDeleteAccountAnonymizes(t *testing.T) {
	fs := newFakeStore()
	svc := NewUserService(fs, testConfig())
	seeded := seedUser(t, fs, nil)

	require.NoError(t, svc.DeleteAccount(context.Background(), seeded.ID))

	stored, err := fs.GetUserByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "test@example.com", stored.Email)
	assert.Empty(t, stored.HashedPassword)
}
