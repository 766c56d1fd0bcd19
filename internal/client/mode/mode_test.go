package mode

import (
	"testing"

	"sofia-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

type stubGate struct{ allow bool }

func (g stubGate) CanSearch() bool { return g.allow }

type stubNotices struct{ searchLimit int }

func (n *stubNotices) SearchLimitReached() { n.searchLimit++ }

func TestModesAreMutuallyExclusive(t *testing.T) {
	m := NewManager(nil, nil)

	assert.True(t, m.Set(models.ModeVoice))
	assert.Equal(t, models.ModeVoice, m.Current())

	// Setting web search deactivates voice mode first.
	assert.True(t, m.Set(models.ModeWebSearch))
	assert.Equal(t, models.ModeWebSearch, m.Current())

	assert.True(t, m.Set(models.ModeVoice))
	assert.Equal(t, models.ModeVoice, m.Current())
}

func TestWebSearchGatedByQuota(t *testing.T) {
	notices := &stubNotices{}
	m := NewManager(stubGate{allow: false}, notices)
	m.Set(models.ModeVoice)

	assert.False(t, m.Set(models.ModeWebSearch))
	assert.Equal(t, models.ModeVoice, m.Current(), "a refused mode change keeps the previous mode")
	assert.Equal(t, 1, notices.searchLimit)
}

func TestWebSearchAllowedWithinQuota(t *testing.T) {
	m := NewManager(stubGate{allow: true}, &stubNotices{})
	assert.True(t, m.Set(models.ModeWebSearch))
	assert.Equal(t, models.ModeWebSearch, m.Current())
}

func TestToggle(t *testing.T) {
	m := NewManager(nil, nil)

	assert.Equal(t, models.ModeWebSearch, m.Toggle(models.ModeWebSearch))
	assert.Equal(t, models.ModeNone, m.Toggle(models.ModeWebSearch))
}

func TestConsumeTransientOnlyClearsMicInput(t *testing.T) {
	m := NewManager(nil, nil)

	m.Set(models.ModeMicInput)
	m.ConsumeTransient()
	assert.Equal(t, models.ModeNone, m.Current())

	// Voice mode persists across turns.
	m.Set(models.ModeVoice)
	m.ConsumeTransient()
	assert.Equal(t, models.ModeVoice, m.Current())
}

func TestClear(t *testing.T) {
	m := NewManager(nil, nil)
	m.Set(models.ModeWebSearch)
	m.Clear()
	assert.Equal(t, models.ModeNone, m.Current())
}
