// Command sofia-cli is a terminal client for the Sofia backend. It drives
// the same session, mode, and history machinery the browser UI uses,
// rendered with Bubble Tea.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"sofia-backend/internal/client/api"
	"sofia-backend/internal/client/history"
	"sofia-backend/internal/client/mode"
	"sofia-backend/internal/client/prefs"
	"sofia-backend/internal/client/render"
	"sofia-backend/internal/client/session"
	"sofia-backend/internal/client/speech"
	"sofia-backend/internal/models"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func main() {
	baseURL := os.Getenv("SOFIA_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	store, err := prefs.Open(prefsPath())
	if err != nil {
		log.Fatalf("Could not open preferences: %v", err)
	}
	defer store.Close()

	m, err := newAppModel(baseURL, store)
	if err != nil {
		log.Fatalf("Could not start client: %v", err)
	}

	if _, err := tea.NewProgram(m).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

func prefsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sofia.db"
	}
	dir := filepath.Join(home, ".sofia")
	_ = os.MkdirAll(dir, 0700)
	return filepath.Join(dir, "prefs.db")
}

// --- Transcript buffer ---

// transcriptBuffer implements the session manager's display surface. Sends
// run on worker goroutines, so appends land here under a lock and the view
// reads a snapshot each frame.
type transcriptBuffer struct {
	mu       sync.Mutex
	renderer *render.Renderer
	entries  []transcriptEntry
	typing   bool
}

// transcriptEntry is one rendered message plus the reaction attached to it.
type transcriptEntry struct {
	rendered string
	sender   models.Sender
	reaction render.Reaction
}

func (t *transcriptBuffer) Append(msg models.Message) {
	out, err := t.renderer.Render(msg)
	if err != nil {
		out = msg.Text + "\n"
	}
	t.mu.Lock()
	t.entries = append(t.entries, transcriptEntry{rendered: out, sender: msg.Sender})
	t.mu.Unlock()
}

func (t *transcriptBuffer) ShowTyping() {
	t.mu.Lock()
	t.typing = true
	t.mu.Unlock()
}

func (t *transcriptBuffer) HideTyping() {
	t.mu.Lock()
	t.typing = false
	t.mu.Unlock()
}

func (t *transcriptBuffer) Reset() {
	t.mu.Lock()
	t.entries = nil
	t.typing = false
	t.mu.Unlock()
}

// toggleReaction presses like or dislike on the n-th AI reply (1-based).
// n <= 0 targets the latest reply. Reports whether a reply was found.
func (t *transcriptBuffer) toggleReaction(n int, pressed render.Reaction) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	target := -1
	count := 0
	for i := range t.entries {
		if t.entries[i].sender != models.SenderAI {
			continue
		}
		count++
		target = i
		if n > 0 && count == n {
			break
		}
	}
	if target < 0 || (n > 0 && count != n) {
		return false
	}
	t.entries[target].reaction = render.ToggleReaction(t.entries[target].reaction, pressed)
	return true
}

func (t *transcriptBuffer) snapshot() ([]string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	lines := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		line := e.rendered
		if tag := render.ReactionTag(e.reaction); tag != "" {
			line += noticeStyle.Render(tag) + "\n"
		}
		lines = append(lines, line)
	}
	return lines, t.typing
}

// --- Notices ---

// limitNotices collects quota events for display in the status line.
type limitNotices struct {
	mu   sync.Mutex
	text string
}

func (n *limitNotices) MessageLimitReached() {
	n.set("Daily message limit reached. Upgrade or try again tomorrow.")
}

func (n *limitNotices) SearchLimitReached() {
	n.set("Daily web search limit reached. Mode unchanged.")
}

func (n *limitNotices) set(text string) {
	n.mu.Lock()
	n.text = text
	n.mu.Unlock()
}

func (n *limitNotices) take() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	text := n.text
	n.text = ""
	return text
}

// --- Speech stubs ---

// noRecognizer and noSynthesizer stand in for the platform speech
// primitives, which a plain terminal does not have.
type noRecognizer struct{}

func (noRecognizer) Start(func(string), func(string), func(error)) error {
	return speech.ErrUnsupported
}
func (noRecognizer) Stop() {}

type noSynthesizer struct{}

func (noSynthesizer) Speak(_ string, onDone func()) {
	if onDone != nil {
		onDone()
	}
}
func (noSynthesizer) Cancel() {}

// --- Model ---

type phase int

const (
	phaseEmail phase = iota
	phaseLogin
	phaseChat
)

type appModel struct {
	client     *api.Client
	store      *prefs.Store
	transcript *transcriptBuffer
	notices    *limitNotices
	modes      *mode.Manager
	sessions   *session.Manager
	syncer     *history.Synchronizer

	phase   phase
	input   textinput.Model
	spin    spinner.Model
	busy    bool
	status  string
	email   string
	width   int
	sidebar []models.ChatSummary
}

type (
	loginDoneMsg   struct{ err error }
	sendDoneMsg    struct{ err error }
	refreshDoneMsg struct {
		chats []models.ChatSummary
		err   error
	}
	actionDoneMsg struct {
		status string
		err    error
	}
)

func newAppModel(baseURL string, store *prefs.Store) (*appModel, error) {
	theme, err := store.Get(prefs.KeyTheme, "auto")
	if err != nil {
		theme = "auto"
	}
	renderer, err := render.NewRenderer(80, theme)
	if err != nil {
		return nil, err
	}

	client := api.NewClient(baseURL)
	transcript := &transcriptBuffer{renderer: renderer}
	notices := &limitNotices{}

	sessions := session.NewManager(client, transcript, notices, session.DefaultLimits)
	modes := mode.NewManager(sessions, notices)
	sessions.SetModeManager(modes)
	syncer := history.NewSynchronizer(client, sessions)

	in := textinput.New()
	in.Prompt = "> "
	in.CharLimit = 0
	in.Width = 72
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	m := &appModel{
		client:     client,
		store:      store,
		transcript: transcript,
		notices:    notices,
		modes:      modes,
		sessions:   sessions,
		syncer:     syncer,
		input:      in,
		spin:       sp,
		phase:      phaseEmail,
	}
	m.input.Placeholder = "email"

	// A saved token skips the login surface until it turns stale.
	if token, err := store.Get(prefs.KeyToken, ""); err == nil && token != "" {
		client.SetToken(token)
		m.phase = phaseChat
		m.input.Placeholder = "Type a message, or /help"
	}
	return m, nil
}

func (m *appModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick, textinput.Blink}
	if m.phase == phaseChat {
		cmds = append(cmds, m.bootstrapCmd())
	}
	return tea.Batch(cmds...)
}

func (m *appModel) bootstrapCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if _, err := m.sessions.RefreshUserInfo(ctx); err != nil {
			return refreshDoneMsg{err: err}
		}
		chats, err := m.syncer.Refresh(ctx)
		return refreshDoneMsg{chats: chats, err: err}
	}
}

func (m *appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - 4
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case loginDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = errorStyle.Render("Login failed: " + msg.err.Error())
			m.phase = phaseEmail
			m.input.Placeholder = "email"
			return m, nil
		}
		_ = m.store.Set(prefs.KeyToken, m.client.Token())
		m.phase = phaseChat
		m.input.Placeholder = "Type a message, or /help"
		m.status = "Logged in."
		return m, m.bootstrapCmd()

	case sendDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = m.statusForError(msg.err)
		} else {
			m.status = ""
		}
		if notice := m.notices.take(); notice != "" {
			m.status = noticeStyle.Render(notice)
		}
		return m, nil

	case refreshDoneMsg:
		if msg.err != nil {
			m.status = m.statusForError(msg.err)
			return m, nil
		}
		m.sidebar = msg.chats
		return m, nil

	case actionDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = m.statusForError(msg.err)
		} else {
			m.status = msg.status
		}
		m.sidebar = m.syncer.Chats()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *appModel) statusForError(err error) string {
	if errors.Is(err, api.ErrUnauthorized) {
		m.client.SetToken("")
		_ = m.store.Delete(prefs.KeyToken)
		m.phase = phaseEmail
		m.input.Placeholder = "email"
		return errorStyle.Render("Session expired. Please log in again.")
	}
	return errorStyle.Render(err.Error())
}

func (m *appModel) submit() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	switch m.phase {
	case phaseEmail:
		if value == "" {
			return m, nil
		}
		m.email = value
		m.phase = phaseLogin
		m.input.Placeholder = "password"
		m.input.EchoMode = textinput.EchoPassword
		return m, nil

	case phaseLogin:
		password := value
		m.input.EchoMode = textinput.EchoNormal
		m.busy = true
		m.status = "Logging in..."
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_, err := m.client.Login(ctx, m.email, password)
			return loginDoneMsg{err: err}
		}

	default:
		if value == "" || m.busy {
			return m, nil
		}
		if strings.HasPrefix(value, "/") {
			return m.runCommand(value)
		}
		m.busy = true
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
			defer cancel()
			err := m.sessions.Send(ctx, value)
			return sendDoneMsg{err: err}
		}
	}
}

func (m *appModel) runCommand(raw string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(raw)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/help":
		m.status = "/new /temp /save /search /voice /like [N] /dislike [N] /chats /open N /rename N title /delete N /theme /lang /logout /quit"
		return m, nil

	case "/quit":
		return m, tea.Quit

	case "/new":
		m.sessions.StartNew()
		m.status = "Started a new chat."
		return m, nil

	case "/temp":
		m.sessions.StartNew()
		m.sessions.SetTemporary(true)
		m.status = "Started a temporary chat (not saved)."
		return m, nil

	case "/save":
		m.busy = true
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := m.sessions.SaveToDB(ctx); err != nil {
				return actionDoneMsg{err: err}
			}
			_, err := m.syncer.Refresh(ctx)
			return actionDoneMsg{status: "Chat saved.", err: err}
		}

	case "/search":
		current := m.modes.Toggle(models.ModeWebSearch)
		if notice := m.notices.take(); notice != "" {
			m.status = noticeStyle.Render(notice)
		} else if current == models.ModeWebSearch {
			m.status = "Web search on for the next messages."
		} else {
			m.status = "Web search off."
		}
		return m, nil

	case "/voice":
		// Terminal builds carry no speech capture backend; the loop
		// surfaces that the same way the browser client does.
		loop := speech.NewConversation(noRecognizer{}, noSynthesizer{}, speech.ConversationHooks{})
		if err := loop.Begin(); err != nil {
			m.status = errorStyle.Render("Voice mode unavailable: " + err.Error())
		}
		return m, nil

	case "/chats":
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			chats, err := m.syncer.Refresh(ctx)
			return refreshDoneMsg{chats: chats, err: err}
		}

	case "/open":
		chat, ok := m.sidebarEntry(args)
		if !ok {
			m.status = errorStyle.Render("Usage: /open N (see /chats)")
			return m, nil
		}
		m.sessions.Load(chat)
		m.status = "Opened: " + chat.Title
		return m, nil

	case "/rename":
		chat, ok := m.sidebarEntry(args)
		if !ok || len(args) < 2 {
			m.status = errorStyle.Render("Usage: /rename N new title")
			return m, nil
		}
		title := strings.Join(args[1:], " ")
		m.busy = true
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			err := m.syncer.Rename(ctx, chat.ID, title)
			return actionDoneMsg{status: "Renamed.", err: err}
		}

	case "/delete":
		chat, ok := m.sidebarEntry(args)
		if !ok {
			m.status = errorStyle.Render("Usage: /delete N (see /chats)")
			return m, nil
		}
		m.busy = true
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			err := m.syncer.Remove(ctx, chat.ID)
			return actionDoneMsg{status: "Deleted.", err: err}
		}

	case "/like":
		return m.react(args, render.ReactionLike)

	case "/dislike":
		return m.react(args, render.ReactionDislike)

	case "/theme":
		return m, m.setPrefCmd(prefs.KeyTheme, "auto", args)

	case "/lang":
		return m, m.setPrefCmd(prefs.KeyLanguage, "en", args)

	case "/logout":
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = m.client.Logout(ctx)
			return actionDoneMsg{err: api.ErrUnauthorized}
		}

	default:
		m.status = errorStyle.Render("Unknown command: " + cmd)
		return m, nil
	}
}

// react presses like or dislike on an AI reply: "/like" targets the latest
// one, "/like N" the N-th. Pressing the active reaction clears it.
func (m *appModel) react(args []string, pressed render.Reaction) (tea.Model, tea.Cmd) {
	n := 0
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed < 1 {
			m.status = errorStyle.Render("Usage: /like [N] or /dislike [N]")
			return m, nil
		}
		n = parsed
	}
	if !m.transcript.toggleReaction(n, pressed) {
		m.status = errorStyle.Render("No such reply to react to.")
	} else {
		m.status = ""
	}
	return m, nil
}

// setPrefCmd reads the preference when called without arguments and writes
// it otherwise. Takes effect on the next start.
func (m *appModel) setPrefCmd(key, fallback string, args []string) tea.Cmd {
	return func() tea.Msg {
		if len(args) == 0 {
			value, err := m.store.Get(key, fallback)
			if err != nil {
				return actionDoneMsg{err: err}
			}
			return actionDoneMsg{status: key + ": " + value}
		}
		value := strings.Join(args, " ")
		if err := m.store.Set(key, value); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: key + " set to " + value + " (applies on next start)."}
	}
}

func (m *appModel) sidebarEntry(args []string) (models.ChatSummary, bool) {
	if len(args) == 0 {
		return models.ChatSummary{}, false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(m.sidebar) {
		return models.ChatSummary{}, false
	}
	return m.sidebar[n-1], true
}

func (m *appModel) View() string {
	var b strings.Builder

	switch m.phase {
	case phaseEmail, phaseLogin:
		b.WriteString("Sofia\n\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
		if m.status != "" {
			b.WriteString("\n" + m.status + "\n")
		}
		return b.String()
	}

	lines, typing := m.transcript.snapshot()
	if len(lines) == 0 {
		b.WriteString(statusStyle.Render("How can I help you today?"))
		b.WriteString("\n")
	}
	for _, line := range lines {
		b.WriteString(line)
	}
	if typing {
		b.WriteString(m.spin.View())
		b.WriteString(statusStyle.Render(" thinking..."))
		b.WriteString("\n")
	}

	if len(m.sidebar) > 0 {
		b.WriteString("\n" + statusStyle.Render("Chats:") + "\n")
		for i, chat := range m.sidebar {
			b.WriteString(statusStyle.Render(fmt.Sprintf("  %d. %s", i+1, chat.Title)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(m.status + "\n")
	}
	return b.String()
}
