package history

import (
	"context"
	"testing"

	"sofia-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend keeps the chat list in memory, newest-first by insertion.
type fakeBackend struct {
	chats []models.ChatSummary
}

func (f *fakeBackend) ListChats(_ context.Context) ([]models.ChatSummary, error) {
	return append([]models.ChatSummary(nil), f.chats...), nil
}

func (f *fakeBackend) RenameChat(_ context.Context, id uuid.UUID, title string) error {
	for i := range f.chats {
		if f.chats[i].ID == id {
			f.chats[i].Title = title
			return nil
		}
	}
	return assert.AnError
}

func (f *fakeBackend) DeleteChat(_ context.Context, id uuid.UUID) error {
	for i := range f.chats {
		if f.chats[i].ID == id {
			f.chats = append(f.chats[:i], f.chats[i+1:]...)
			return nil
		}
	}
	return assert.AnError
}

// fakeSession tracks the open session id and StartNew calls.
type fakeSession struct {
	id        *uuid.UUID
	newStarts int
}

func (f *fakeSession) ID() *uuid.UUID { return f.id }
func (f *fakeSession) StartNew()      { f.newStarts++; f.id = nil }

func seedBackend(titles ...string) *fakeBackend {
	b := &fakeBackend{}
	for _, title := range titles {
		b.chats = append(b.chats, models.ChatSummary{ID: uuid.New(), Title: title})
	}
	return b
}

func TestRefreshReplacesCache(t *testing.T) {
	backend := seedBackend("Alpha", "Beta")
	s := NewSynchronizer(backend, nil)

	chats, err := s.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "Alpha", chats[0].Title)

	backend.chats = backend.chats[:1]
	chats, err = s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}

func TestRenameConfirmedThenRefreshed(t *testing.T) {
	backend := seedBackend("Old Title")
	s := NewSynchronizer(backend, nil)
	_, err := s.Refresh(context.Background())
	require.NoError(t, err)
	id := s.Chats()[0].ID

	require.NoError(t, s.Rename(context.Background(), id, "New Title"))

	got, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, "New Title", got.Title)
}

func TestRenameFailureLeavesCache(t *testing.T) {
	backend := seedBackend("Kept")
	s := NewSynchronizer(backend, nil)
	_, err := s.Refresh(context.Background())
	require.NoError(t, err)

	require.Error(t, s.Rename(context.Background(), uuid.New(), "nope"))
	assert.Equal(t, "Kept", s.Chats()[0].Title)
}

func TestRemoveOpenSessionStartsNew(t *testing.T) {
	backend := seedBackend("Open", "Other")
	openID := backend.chats[0].ID
	sess := &fakeSession{id: &openID}
	s := NewSynchronizer(backend, sess)
	_, err := s.Refresh(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Remove(context.Background(), openID))
	assert.Equal(t, 1, sess.newStarts)
	assert.Len(t, s.Chats(), 1)
}

func TestRemoveOtherSessionKeepsCurrent(t *testing.T) {
	backend := seedBackend("Open", "Other")
	openID := backend.chats[0].ID
	otherID := backend.chats[1].ID
	sess := &fakeSession{id: &openID}
	s := NewSynchronizer(backend, sess)
	_, err := s.Refresh(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Remove(context.Background(), otherID))
	assert.Equal(t, 0, sess.newStarts)
}

func TestFilterIsLocalAndCaseInsensitive(t *testing.T) {
	backend := seedBackend("Go generics", "Python tips", "More Go")
	s := NewSynchronizer(backend, nil)
	_, err := s.Refresh(context.Background())
	require.NoError(t, err)

	matched := s.Filter("go")
	require.Len(t, matched, 2)
	assert.Equal(t, "Go generics", matched[0].Title)
	assert.Equal(t, "More Go", matched[1].Title)

	assert.Len(t, s.Filter(""), 3)
	assert.Empty(t, s.Filter("rust"))
}
