package services

import (
	"context"
	"testing"

	"sofia-backend/internal/llm"
	"sofia-backend/internal/models"
	"sofia-backend/internal/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider records requests and replies with a canned string.
type fakeProvider struct {
	name     string
	reply    string
	requests []llm.Request
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Generate(_ context.Context, req llm.Request) (string, error) {
	p.requests = append(p.requests, req)
	return p.reply, nil
}

func newTestChatService(t *testing.T, fs *fakeStore) (*ChatService, *fakeProvider) {
	t.Helper()
	provider := &fakeProvider{name: "fake", reply: "Hello from the model."}
	registry := llm.NewRegistry()
	registry.Register(provider)
	userSvc := NewUserService(fs, testConfig())
	// No API key: searches report not-configured and the turn degrades.
	svc := NewChatService(registry, search.NewClient(""), userSvc, "fake")
	return svc, provider
}

func TestSendMessageHappyPath(t *testing.T) {
	fs := newFakeStore()
	svc, provider := newTestChatService(t, fs)
	user := seedUser(t, fs, nil)

	reply, err := svc.SendMessage(context.Background(), user.ID, models.ChatRequest{Text: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "Hello from the model.", reply)
	require.Len(t, provider.requests, 1)
	assert.Equal(t, "Hello", provider.requests[0].Text)

	// The authoritative counter moved.
	stored, err := fs.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsageCounts.Messages)
}

func TestSendMessageRejectsEmpty(t *testing.T) {
	fs := newFakeStore()
	svc, provider := newTestChatService(t, fs)
	user := seedUser(t, fs, nil)

	_, err := svc.SendMessage(context.Background(), user.ID, models.ChatRequest{})
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, provider.requests)
}

// Each turn counts exactly once, so a free user gets the full daily
// allowance. The /update_usage acknowledgment never reaches the counter.
func TestSendMessageCountsEachTurnOnce(t *testing.T) {
	fs := newFakeStore()
	svc, _ := newTestChatService(t, fs)
	user := seedUser(t, fs, nil)

	limit := testConfig().FreeMessageLimit
	for i := 0; i < limit; i++ {
		_, err := svc.SendMessage(context.Background(), user.ID, models.ChatRequest{Text: "turn"})
		require.NoError(t, err, "turn %d of %d must succeed", i+1, limit)
	}

	stored, err := fs.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, limit, stored.UsageCounts.Messages)

	_, err = svc.SendMessage(context.Background(), user.ID, models.ChatRequest{Text: "one more"})
	assert.ErrorIs(t, err, ErrMessageLimitExceeded)
}

func TestSendMessageEnforcesQuota(t *testing.T) {
	fs := newFakeStore()
	svc, provider := newTestChatService(t, fs)
	user := seedUser(t, fs, func(u *models.User) {
		u.UsageCounts.Messages = 15
	})

	_, err := svc.SendMessage(context.Background(), user.ID, models.ChatRequest{Text: "one more"})
	assert.ErrorIs(t, err, ErrMessageLimitExceeded)
	assert.Empty(t, provider.requests)
}

func TestSendMessageSearchQuota(t *testing.T) {
	fs := newFakeStore()
	svc, _ := newTestChatService(t, fs)
	user := seedUser(t, fs, func(u *models.User) {
		u.UsageCounts.WebSearches = 3
	})

	_, err := svc.SendMessage(context.Background(), user.ID, models.ChatRequest{
		Text: "latest news",
		Mode: models.ModeWebSearch,
	})
	assert.ErrorIs(t, err, ErrSearchLimitExceeded)
}

func TestSendMessageSearchFailureDegrades(t *testing.T) {
	fs := newFakeStore()
	svc, provider := newTestChatService(t, fs)
	user := seedUser(t, fs, nil)

	// The search client has no API key, so the search fails and the turn
	// proceeds without grounding.
	reply, err := svc.SendMessage(context.Background(), user.ID, models.ChatRequest{
		Text: "latest news",
		Mode: models.ModeWebSearch,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello from the model.", reply)
	require.Len(t, provider.requests, 1)
	assert.NotContains(t, provider.requests[0].System, "search results")

	stored, err := fs.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UsageCounts.WebSearches, "a failed search must not be counted")
}

func TestSendMessageAttachesFile(t *testing.T) {
	fs := newFakeStore()
	svc, provider := newTestChatService(t, fs)
	user := seedUser(t, fs, nil)

	_, err := svc.SendMessage(context.Background(), user.ID, models.ChatRequest{
		Text:     "what is in this image?",
		FileData: "aGVsbG8=",
		FileType: "image/png",
	})
	require.NoError(t, err)
	require.Len(t, provider.requests, 1)
	require.NotNil(t, provider.requests[0].File)
	assert.Equal(t, "image/png", provider.requests[0].File.MimeType)
}
