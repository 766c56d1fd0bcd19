package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultGroqModel = "llama-3.3-70b-versatile"
	groqEndpoint     = "https://api.groq.com/openai/v1/chat/completions"
)

// Ensure GroqProvider implements the Provider interface.
var _ Provider = (*GroqProvider)(nil)

// GroqProvider talks to Groq's OpenAI-compatible chat completions API.
// Groq has no file input; attachments are described textually when present.
type GroqProvider struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewGroqProvider creates a Groq-backed provider.
func NewGroqProvider(apiKey, model string) *GroqProvider {
	if model == "" {
		model = defaultGroqModel
	}
	return &GroqProvider{
		apiKey:   apiKey,
		model:    model,
		endpoint: groqEndpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *GroqProvider) Name() string { return "groq" }

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqRequest struct {
	Model    string        `json:"model"`
	Messages []groqMessage `json:"messages"`
}

type groqResponse struct {
	Choices []struct {
		Message groqMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends the conversation to Groq and returns the first choice's content.
func (p *GroqProvider) Generate(ctx context.Context, req Request) (string, error) {
	messages := []groqMessage{}
	if req.System != "" {
		messages = append(messages, groqMessage{Role: "system", Content: req.System})
	}
	for _, turn := range req.History {
		role := "user"
		if turn.Role == "model" {
			role = "assistant"
		}
		messages = append(messages, groqMessage{Role: role, Content: turn.Text})
	}

	text := req.Text
	if req.File != nil {
		text = fmt.Sprintf("%s\n\n[The user attached a file of type %s; its raw content could not be forwarded to this model.]", text, req.File.MimeType)
	}
	messages = append(messages, groqMessage{Role: "user", Content: text})

	payload, err := json.Marshal(groqRequest{Model: p.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("failed to marshal groq request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build groq request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("groq request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read groq response: %w", err)
	}

	var parsed groqResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse groq response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := "unknown error"
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", fmt.Errorf("groq API returned status %d: %s", resp.StatusCode, msg)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("groq API returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
