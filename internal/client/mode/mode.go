// Package mode tracks which input mode is attached to the next outgoing
// message. Modes are mutually exclusive: activating one deactivates any
// previously active one. Web search is additionally quota-gated.
package mode

import (
	"log"

	"sofia-backend/internal/models"
)

// QuotaGate answers whether the user may start another web search right
// now. The session manager provides an implementation backed by the user
// info mirror; the check here is advisory UX gating, the server enforces
// the real limit.
type QuotaGate interface {
	CanSearch() bool
}

// Notices receives user-facing events the mode manager cannot act on
// itself, like a quota rejection that should open the usage view.
type Notices interface {
	SearchLimitReached()
}

// Manager owns the active mode. It is mutated only from the client's event
// loop, so it carries no lock.
type Manager struct {
	current models.Mode
	gate    QuotaGate
	notices Notices
}

// NewManager creates a Manager. gate and notices may be nil, in which case
// web search is never gated and limit events are only logged.
func NewManager(gate QuotaGate, notices Notices) *Manager {
	return &Manager{current: models.ModeNone, gate: gate, notices: notices}
}

// Current returns the active mode.
func (m *Manager) Current() models.Mode { return m.current }

// Set activates the given mode, deactivating whatever was active before.
// Returns false when the mode was refused (web search with an exhausted
// quota); the previous mode stays active in that case.
func (m *Manager) Set(mode models.Mode) bool {
	if mode == models.ModeWebSearch && m.gate != nil && !m.gate.CanSearch() {
		log.Printf("[Mode] Web search refused: daily limit reached")
		if m.notices != nil {
			m.notices.SearchLimitReached()
		}
		return false
	}
	m.current = mode
	return true
}

// Toggle flips the given mode: activates it if inactive, clears it if it is
// the current mode. Returns the resulting active mode.
func (m *Manager) Toggle(mode models.Mode) models.Mode {
	if m.current == mode {
		m.current = models.ModeNone
		return m.current
	}
	m.Set(mode)
	return m.current
}

// Clear resets to no mode.
func (m *Manager) Clear() { m.current = models.ModeNone }

// ConsumeTransient clears mic dictation after its transcript has been
// captured into the composer. Voice conversation mode persists across
// turns and is untouched here.
func (m *Manager) ConsumeTransient() {
	if m.current == models.ModeMicInput {
		m.current = models.ModeNone
	}
}
