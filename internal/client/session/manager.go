// Package session owns the current conversation: its ordered message list,
// its identity, and the decision of when to persist. It mediates between the
// mode state, the transcript, the speech loop, and the backend chat endpoint.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"sofia-backend/internal/client/mode"
	"sofia-backend/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrBusy rejects a send while a previous one is still awaiting its
	// reply. Overlapping sends would break transcript ordering.
	ErrBusy = errors.New("session: a message is already in flight")
	// ErrEmptyMessage rejects a send with neither text nor attachment.
	ErrEmptyMessage = errors.New("session: nothing to send")
	// ErrQuotaExceeded rejects a send locally once the daily message
	// allowance is used up. No backend call is made.
	ErrQuotaExceeded = errors.New("session: daily message limit reached")
)

// persistTimeout bounds the fire-and-forget upsert after each reply.
const persistTimeout = 15 * time.Second

// Backend is the slice of the API client the manager depends on.
type Backend interface {
	Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
	SaveChat(ctx context.Context, req models.SaveChatRequest) (*models.SaveChatResponse, error)
	UpdateUsage(ctx context.Context, usageType string) error
	GetUserInfo(ctx context.Context) (*models.UserInfoResponse, error)
}

// Transcript is the display surface messages are appended to. Append order
// is render order.
type Transcript interface {
	Append(models.Message)
	ShowTyping()
	HideTyping()
	Reset()
}

// Voice is the running voice-conversation loop, when one is active.
type Voice interface {
	DeliverReply(text string)
	SpeakFault(text string)
}

// Notices receives quota events the manager surfaces instead of sending.
type Notices interface {
	MessageLimitReached()
}

// Attachment is a file staged in the composer for the next send.
type Attachment struct {
	Name     string
	MimeType string
	Data     string // base64 content
}

// Limits are the free-plan daily allowances mirrored from the server's
// configuration. Advisory only; the server enforces the real ones.
type Limits struct {
	Messages int
	Searches int
}

// DefaultLimits match the backend's free plan.
var DefaultLimits = Limits{Messages: 15, Searches: 3}

// Manager holds the current session. All mutation goes through its methods;
// the lock keeps the transcript ordering invariant when the UI drives sends
// from worker goroutines.
type Manager struct {
	mu sync.Mutex

	// persistMu serializes upserts so a second persist of a still-unsaved
	// session waits for the first to adopt the server-assigned id instead
	// of creating a second chat row.
	persistMu sync.Mutex

	backend    Backend
	transcript Transcript
	modes      *mode.Manager
	notices    Notices
	voice      Voice
	limits     Limits

	id        *uuid.UUID
	title     string
	messages  []models.Message
	temporary bool
	inFlight  bool

	attachment *Attachment

	// Read-only mirror of the server-owned user record.
	user  *models.UserInfoResponse
	usage models.UsageCounts
}

// NewManager creates a Manager with an empty session.
func NewManager(backend Backend, transcript Transcript, notices Notices, limits Limits) *Manager {
	m := &Manager{
		backend:    backend,
		transcript: transcript,
		notices:    notices,
		limits:     limits,
	}
	return m
}

// SetModeManager attaches the mode state. Separate from the constructor
// because the mode manager's quota gate is the session manager itself.
func (m *Manager) SetModeManager(modes *mode.Manager) { m.modes = modes }

// SetVoice attaches or detaches the active voice loop.
func (m *Manager) SetVoice(v Voice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voice = v
}

// RefreshUserInfo pulls the server-owned user record, replacing the local
// usage mirror with the authoritative counts.
func (m *Manager) RefreshUserInfo(ctx context.Context) (*models.UserInfoResponse, error) {
	info, err := m.backend.GetUserInfo(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.user = info
	m.usage = info.UsageCounts
	m.mu.Unlock()
	return info, nil
}

// CanSearch reports whether another web search is allowed under the
// mirrored counters. Implements the mode package's quota gate.
func (m *Manager) CanSearch() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.exemptLocked() {
		return true
	}
	return m.usage.WebSearches < m.limits.Searches
}

func (m *Manager) canSendLocked() bool {
	if m.exemptLocked() {
		return true
	}
	return m.usage.Messages < m.limits.Messages
}

func (m *Manager) exemptLocked() bool {
	return m.user != nil && (m.user.IsAdmin || m.user.IsPremium)
}

// StartNew resets to an empty session: no id, no messages, no staged
// attachment, mode cleared, welcome state rendered. No network call.
func (m *Manager) StartNew() {
	m.mu.Lock()
	m.id = nil
	m.title = ""
	m.messages = nil
	m.temporary = false
	m.attachment = nil
	m.inFlight = false
	m.mu.Unlock()

	if m.modes != nil {
		m.modes.Clear()
	}
	m.transcript.Reset()
}

// Load replaces the current session with a previously persisted one and
// renders its history in order. Loaded sessions are never temporary.
func (m *Manager) Load(chat models.ChatSummary) {
	m.mu.Lock()
	id := chat.ID
	m.id = &id
	m.title = chat.Title
	m.messages = append([]models.Message(nil), chat.Messages...)
	m.temporary = false
	m.attachment = nil
	m.inFlight = false
	rendered := append([]models.Message(nil), m.messages...)
	m.mu.Unlock()

	m.transcript.Reset()
	for _, msg := range rendered {
		m.transcript.Append(msg)
	}
}

// SetTemporary marks the session as excluded from persistence. Only valid
// before the session has been persisted; converting back goes through
// SaveToDB, a one-way transition.
func (m *Manager) SetTemporary(temporary bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.id != nil {
		return
	}
	m.temporary = temporary
}

// Temporary reports whether the session is excluded from persistence.
func (m *Manager) Temporary() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.temporary
}

// AttachFile stages a file for the next send, replacing any staged one.
func (m *Manager) AttachFile(a Attachment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attachment = &a
}

// ClearAttachment drops the staged file.
func (m *Manager) ClearAttachment() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attachment = nil
}

// ID returns the persisted identity, or nil before first persistence.
func (m *Manager) ID() *uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.id == nil {
		return nil
	}
	id := *m.id
	return &id
}

// Messages returns a copy of the session's ordered message list.
func (m *Manager) Messages() []models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Message(nil), m.messages...)
}

// Send dispatches one user turn. It rejects overlapping sends, empty
// sends, and quota-exhausted sends without touching the backend. On any
// outcome of the backend call the transcript gains exactly one reply
// (AI or system) and the composer is usable again.
func (m *Manager) Send(ctx context.Context, text string) error {
	m.mu.Lock()
	if m.inFlight {
		m.mu.Unlock()
		return ErrBusy
	}
	attachment := m.attachment
	if text == "" && attachment == nil {
		m.mu.Unlock()
		return ErrEmptyMessage
	}
	if !m.canSendLocked() {
		m.mu.Unlock()
		if m.notices != nil {
			m.notices.MessageLimitReached()
		}
		return ErrQuotaExceeded
	}

	var activeMode models.Mode = models.ModeNone
	if m.modes != nil {
		activeMode = m.modes.Current()
	}

	userMsg := models.Message{
		Text:      text,
		Sender:    models.SenderUser,
		Mode:      activeMode,
		Timestamp: time.Now().UTC(),
	}
	if attachment != nil {
		userMsg.Attachment = &models.Attachment{
			Name:          attachment.Name,
			MimeType:      attachment.MimeType,
			DataReference: attachment.Name,
		}
	}

	m.messages = append(m.messages, userMsg)
	m.attachment = nil
	m.inFlight = true
	temporary := m.temporary
	voice := m.voice
	m.mu.Unlock()

	// Optimistic render, then the blocking backend call.
	m.transcript.Append(userMsg)
	if m.modes != nil {
		m.modes.ConsumeTransient()
	}
	m.transcript.ShowTyping()

	req := models.ChatRequest{
		Text:        text,
		IsTemporary: temporary,
		Mode:        activeMode,
	}
	if attachment != nil {
		req.FileData = attachment.Data
		req.FileName = attachment.Name
		req.FileType = attachment.MimeType
	}

	resp, err := m.backend.Chat(ctx, req)

	m.transcript.HideTyping()

	var reply models.Message
	if err != nil {
		log.Printf("[Session] Chat call failed: %v", err)
		reply = models.Message{
			Text:      "Sorry, I couldn't get a response. Please try again.",
			Sender:    models.SenderSystem,
			Timestamp: time.Now().UTC(),
		}
	} else {
		reply = models.Message{
			Text:      resp.Response,
			Sender:    models.SenderAI,
			Timestamp: time.Now().UTC(),
		}
	}

	m.mu.Lock()
	m.messages = append(m.messages, reply)
	if err == nil {
		m.usage.Messages++
		if activeMode == models.ModeWebSearch {
			m.usage.WebSearches++
		}
	}
	m.inFlight = false
	m.mu.Unlock()

	m.transcript.Append(reply)

	if err == nil {
		// Mirror the counter to the backend without blocking the turn.
		go m.reportUsage(models.ModeWebSearch == activeMode)
	}
	if !temporary {
		go m.persistAsync()
	}

	if voice != nil && activeMode == models.ModeVoice {
		if err != nil {
			voice.SpeakFault(reply.Text)
		} else {
			voice.DeliverReply(reply.Text)
		}
	}

	if err != nil {
		return err
	}
	return nil
}

func (m *Manager) reportUsage(searched bool) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := m.backend.UpdateUsage(ctx, "message"); err != nil {
		log.Printf("[Session] Usage mirror failed: %v", err)
	}
	if searched {
		if err := m.backend.UpdateUsage(ctx, "search"); err != nil {
			log.Printf("[Session] Usage mirror failed: %v", err)
		}
	}
}

func (m *Manager) persistAsync() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := m.Persist(ctx); err != nil {
		log.Printf("[Session] Persist failed (local state kept): %v", err)
	}
}

// Persist upserts the full session. The first successful call for an
// unsaved session adopts the server-assigned id. Failure leaves local
// state untouched; the transcript remains the source of truth.
//
// Calls run one at a time: the snapshot is taken after any earlier persist
// has finished, so it carries the adopted id rather than minting a new row.
func (m *Manager) Persist(ctx context.Context) error {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.mu.Lock()
	if m.temporary || len(m.messages) == 0 {
		m.mu.Unlock()
		return nil
	}
	req := models.SaveChatRequest{
		ID:       m.id,
		Title:    m.title,
		Messages: append([]models.Message(nil), m.messages...),
	}
	m.mu.Unlock()

	resp, err := m.backend.SaveChat(ctx, req)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.id == nil {
		id := resp.ID
		m.id = &id
	}
	if m.title == "" {
		m.title = resp.Title
	}
	m.mu.Unlock()
	return nil
}

// SaveToDB converts a temporary session into a persisted one and performs
// the first upsert. One-way: further replies trigger normal persistence.
func (m *Manager) SaveToDB(ctx context.Context) error {
	m.mu.Lock()
	m.temporary = false
	m.mu.Unlock()
	return m.Persist(ctx)
}
