// Package render projects message records into styled terminal output. It is
// a pure projection layer: no network calls, no session state beyond the
// configured styles and wrap width.
package render

import (
	"fmt"
	"strings"

	"sofia-backend/internal/models"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	userLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	aiLabelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	sysLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	chipStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	modeTagStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// Renderer converts messages to displayable text. AI messages pass through
// a markdown-to-ANSI transform; user and system messages render verbatim.
type Renderer struct {
	markdown *glamour.TermRenderer
	width    int
}

// NewRenderer builds a Renderer wrapping at the given width. Theme may be a
// glamour style name ("dark", "light", "notty"); anything else, including
// "auto" or empty, picks the style from the terminal background.
func NewRenderer(width int, theme string) (*Renderer, error) {
	if width <= 0 {
		width = 80
	}
	styleOpt := glamour.WithAutoStyle()
	switch theme {
	case "dark", "light", "notty", "ascii", "dracula", "pink":
		styleOpt = glamour.WithStandardStyle(theme)
	}
	md, err := glamour.NewTermRenderer(
		styleOpt,
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("render: creating markdown renderer: %w", err)
	}
	return &Renderer{markdown: md, width: width}, nil
}

// Render returns the display form of one message: a sender label line,
// then the body, then an attachment chip when one is present.
func (r *Renderer) Render(msg models.Message) (string, error) {
	var b strings.Builder

	b.WriteString(r.label(msg))
	b.WriteString("\n")

	switch msg.Sender {
	case models.SenderAI:
		body, err := r.markdown.Render(msg.Text)
		if err != nil {
			// Fall back to the raw text rather than dropping the reply.
			body = msg.Text + "\n"
		}
		b.WriteString(body)
	default:
		b.WriteString(msg.Text)
		b.WriteString("\n")
	}

	if msg.Attachment != nil {
		b.WriteString(chipStyle.Render(attachmentChip(*msg.Attachment)))
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (r *Renderer) label(msg models.Message) string {
	var label string
	switch msg.Sender {
	case models.SenderUser:
		label = userLabelStyle.Render("You")
	case models.SenderAI:
		label = aiLabelStyle.Render("Sofia")
	default:
		label = sysLabelStyle.Render("System")
	}
	if msg.Mode == models.ModeWebSearch {
		label += " " + modeTagStyle.Render("(web search)")
	}
	return label
}

// attachmentChip labels an attached file. Terminal output cannot show
// images inline, so images get a picture glyph instead.
func attachmentChip(a models.Attachment) string {
	if strings.HasPrefix(a.MimeType, "image/") {
		return fmt.Sprintf("[image: %s]", a.Name)
	}
	return fmt.Sprintf("[file: %s (%s)]", a.Name, a.MimeType)
}
