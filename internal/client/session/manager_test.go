package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sofia-backend/internal/client/mode"
	"sofia-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend implements Backend in memory and records every call.
type fakeBackend struct {
	mu          sync.Mutex
	chatErr     error
	chatReply   string
	chatCalls   int
	chatBlock   chan struct{} // when set, Chat waits for a signal
	saveBlock   chan struct{} // when set, SaveChat waits before recording
	saveCalls   []models.SaveChatRequest
	savedID     uuid.UUID
	usageCalls  []string
	userInfo    models.UserInfoResponse
	persistDone chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chatReply:   "Hi there!",
		savedID:     uuid.New(),
		persistDone: make(chan struct{}, 16),
	}
}

func (f *fakeBackend) Chat(_ context.Context, _ models.ChatRequest) (*models.ChatResponse, error) {
	f.mu.Lock()
	f.chatCalls++
	block := f.chatBlock
	err := f.chatErr
	reply := f.chatReply
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return &models.ChatResponse{Response: reply}, nil
}

func (f *fakeBackend) SaveChat(_ context.Context, req models.SaveChatRequest) (*models.SaveChatResponse, error) {
	f.mu.Lock()
	block := f.saveBlock
	f.mu.Unlock()
	if block != nil {
		<-block
	}

	f.mu.Lock()
	f.saveCalls = append(f.saveCalls, req)
	id := f.savedID
	if req.ID != nil {
		id = *req.ID
	}
	f.mu.Unlock()
	f.persistDone <- struct{}{}
	return &models.SaveChatResponse{ID: id, Title: req.Title}, nil
}

func (f *fakeBackend) UpdateUsage(_ context.Context, usageType string) error {
	f.mu.Lock()
	f.usageCalls = append(f.usageCalls, usageType)
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) GetUserInfo(_ context.Context) (*models.UserInfoResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info := f.userInfo
	return &info, nil
}

func (f *fakeBackend) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saveCalls)
}

func (f *fakeBackend) waitPersist(t *testing.T) models.SaveChatRequest {
	t.Helper()
	select {
	case <-f.persistDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for persistence call")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveCalls[len(f.saveCalls)-1]
}

// fakeTranscript records appended messages in order.
type fakeTranscript struct {
	mu       sync.Mutex
	messages []models.Message
	typing   bool
	resets   int
}

func (f *fakeTranscript) Append(msg models.Message) {
	f.mu.Lock()
	f.messages = append(f.messages, msg)
	f.mu.Unlock()
}
func (f *fakeTranscript) ShowTyping() { f.mu.Lock(); f.typing = true; f.mu.Unlock() }
func (f *fakeTranscript) HideTyping() { f.mu.Lock(); f.typing = false; f.mu.Unlock() }
func (f *fakeTranscript) Reset() {
	f.mu.Lock()
	f.messages = nil
	f.resets++
	f.mu.Unlock()
}

func (f *fakeTranscript) senders() []models.Sender {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Sender, len(f.messages))
	for i, m := range f.messages {
		out[i] = m.Sender
	}
	return out
}

type fakeNotices struct {
	mu           sync.Mutex
	messageLimit int
}

func (f *fakeNotices) MessageLimitReached() {
	f.mu.Lock()
	f.messageLimit++
	f.mu.Unlock()
}

func newTestManager() (*Manager, *fakeBackend, *fakeTranscript, *fakeNotices) {
	backend := newFakeBackend()
	transcript := &fakeTranscript{}
	notices := &fakeNotices{}
	m := NewManager(backend, transcript, notices, DefaultLimits)
	m.SetModeManager(mode.NewManager(m, nil))
	return m, backend, transcript, notices
}

func TestSendAppendsInOrderAndPersists(t *testing.T) {
	m, backend, transcript, _ := newTestManager()

	require.NoError(t, m.Send(context.Background(), "Hello"))

	assert.Equal(t, []models.Sender{models.SenderUser, models.SenderAI}, transcript.senders())

	saved := backend.waitPersist(t)
	assert.Nil(t, saved.ID)
	assert.Len(t, saved.Messages, 2)

	// The manager adopts the server-assigned id.
	assert.Eventually(t, func() bool { return m.ID() != nil }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, backend.savedID, *m.ID())

	// The second turn upserts under the adopted id.
	require.NoError(t, m.Send(context.Background(), "And again"))
	saved = backend.waitPersist(t)
	require.NotNil(t, saved.ID)
	assert.Equal(t, backend.savedID, *saved.ID)
	assert.Len(t, saved.Messages, 4)
}

// Two sends before the first upsert returns must still produce one chat
// row: the second persist waits for the first and reuses the adopted id.
func TestBackToBackSendsPersistOneSession(t *testing.T) {
	m, backend, _, _ := newTestManager()
	backend.saveBlock = make(chan struct{})

	require.NoError(t, m.Send(context.Background(), "first"))
	require.NoError(t, m.Send(context.Background(), "second"))
	close(backend.saveBlock)

	backend.waitPersist(t)
	backend.waitPersist(t)

	backend.mu.Lock()
	calls := append([]models.SaveChatRequest(nil), backend.saveCalls...)
	backend.mu.Unlock()

	require.Len(t, calls, 2)
	assert.Nil(t, calls[0].ID, "the first persist creates the session")
	require.NotNil(t, calls[1].ID, "the second persist must reuse the adopted id")
	assert.Equal(t, backend.savedID, *calls[1].ID)

	require.NotNil(t, m.ID())
	assert.Equal(t, backend.savedID, *m.ID())
}

func TestSendRejectsEmpty(t *testing.T) {
	m, backend, _, _ := newTestManager()
	assert.ErrorIs(t, m.Send(context.Background(), ""), ErrEmptyMessage)
	assert.Equal(t, 0, backend.chatCalls)
}

func TestSendRejectsOverlapping(t *testing.T) {
	m, backend, _, _ := newTestManager()
	backend.chatBlock = make(chan struct{})

	firstDone := make(chan error, 1)
	go func() { firstDone <- m.Send(context.Background(), "first") }()

	// Wait for the first send to reach the backend.
	require.Eventually(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return backend.chatCalls == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, m.Send(context.Background(), "second"), ErrBusy)

	close(backend.chatBlock)
	require.NoError(t, <-firstDone)

	// After the reply lands, sending works again.
	backend.chatBlock = nil
	require.NoError(t, m.Send(context.Background(), "third"))
}

func TestSendQuotaRejectedWithoutBackendCall(t *testing.T) {
	m, backend, _, notices := newTestManager()
	backend.userInfo = models.UserInfoResponse{
		UsageCounts: models.UsageCounts{Messages: 15},
	}
	_, err := m.RefreshUserInfo(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, m.Send(context.Background(), "the 16th"), ErrQuotaExceeded)
	assert.Equal(t, 0, backend.chatCalls)
	assert.Equal(t, 1, notices.messageLimit)
}

func TestSendQuotaExemptForPremium(t *testing.T) {
	m, backend, _, _ := newTestManager()
	backend.userInfo = models.UserInfoResponse{
		IsPremium:   true,
		UsageCounts: models.UsageCounts{Messages: 500},
	}
	_, err := m.RefreshUserInfo(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.Send(context.Background(), "still fine"))
	assert.Equal(t, 1, backend.chatCalls)
}

func TestSendFailureAppendsSystemMessageAndRecovers(t *testing.T) {
	m, backend, transcript, _ := newTestManager()
	backend.chatErr = errors.New("boom")

	err := m.Send(context.Background(), "Hello")
	require.Error(t, err)

	assert.Equal(t, []models.Sender{models.SenderUser, models.SenderSystem}, transcript.senders())

	// The degraded session is still persisted.
	saved := backend.waitPersist(t)
	assert.Len(t, saved.Messages, 2)

	// And the composer accepts a new send immediately.
	backend.mu.Lock()
	backend.chatErr = nil
	backend.mu.Unlock()
	require.NoError(t, m.Send(context.Background(), "retry"))
	assert.Equal(t,
		[]models.Sender{models.SenderUser, models.SenderSystem, models.SenderUser, models.SenderAI},
		transcript.senders())
}

func TestTemporarySessionNeverPersistsUntilSaved(t *testing.T) {
	m, backend, _, _ := newTestManager()
	m.SetTemporary(true)

	require.NoError(t, m.Send(context.Background(), "secret one"))
	require.NoError(t, m.Send(context.Background(), "secret two"))

	// Give any stray fire-and-forget persist a moment to show up.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, backend.saveCount())

	// Opting in converts the session: exactly one persistence call.
	require.NoError(t, m.SaveToDB(context.Background()))
	assert.Equal(t, 1, backend.saveCount())
	assert.False(t, m.Temporary())
	<-backend.persistDone // drain the SaveToDB signal

	// Further replies trigger normal upserts.
	require.NoError(t, m.Send(context.Background(), "now saved"))
	backend.waitPersist(t)
	assert.Equal(t, 2, backend.saveCount())
}

func TestStartNewResetsEverything(t *testing.T) {
	m, backend, transcript, _ := newTestManager()

	require.NoError(t, m.Send(context.Background(), "Hello"))
	backend.waitPersist(t)

	m.StartNew()
	assert.Nil(t, m.ID())
	assert.Empty(t, m.Messages())
	assert.Equal(t, 1, transcript.resets)
}

func TestLoadRendersHistoryInOrder(t *testing.T) {
	m, _, transcript, _ := newTestManager()

	id := uuid.New()
	m.Load(models.ChatSummary{
		ID:    id,
		Title: "Old chat",
		Messages: []models.Message{
			{Text: "hi", Sender: models.SenderUser},
			{Text: "hello", Sender: models.SenderAI},
		},
	})

	require.NotNil(t, m.ID())
	assert.Equal(t, id, *m.ID())
	assert.Equal(t, []models.Sender{models.SenderUser, models.SenderAI}, transcript.senders())
	assert.False(t, m.Temporary())
}

func TestSendCarriesModeAndAttachment(t *testing.T) {
	m, backend, _, _ := newTestManager()
	backend.userInfo = models.UserInfoResponse{}
	_, err := m.RefreshUserInfo(context.Background())
	require.NoError(t, err)

	m.AttachFile(Attachment{Name: "cat.png", MimeType: "image/png", Data: "YmFzZTY0"})
	require.NoError(t, m.Send(context.Background(), "what is this?"))

	msgs := m.Messages()
	require.Len(t, msgs, 2)
	require.NotNil(t, msgs[0].Attachment)
	assert.Equal(t, "cat.png", msgs[0].Attachment.Name)

	// The attachment is consumed by the send.
	require.NoError(t, m.Send(context.Background(), "and without a file"))
	msgs = m.Messages()
	assert.Nil(t, msgs[2].Attachment)
}
