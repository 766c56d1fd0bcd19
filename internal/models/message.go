package models

import (
	"encoding/json"
	"time"
)

// Sender identifies who produced a chat message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderAI     Sender = "ai"
	SenderSystem Sender = "system"
)

// Mode is the input/behavior tag attached to an outgoing message.
type Mode string

const (
	ModeNone      Mode = "none"
	ModeWebSearch Mode = "web_search"
	ModeMicInput  Mode = "mic_input"
	ModeVoice     Mode = "voice_mode"
)

// Attachment describes a file carried alongside a message. DataReference is
// either base64-encoded content (ad-hoc upload) or a library item ID.
type Attachment struct {
	Name          string `json:"name"`
	MimeType      string `json:"mimeType"`
	DataReference string `json:"dataReference,omitempty"`
}

// Message represents a single turn in a conversation. Messages are immutable
// once appended to a session; ordering is append order.
// This structure is the element type of the JSONB messages array in the 'chats' table.
type Message struct {
	Text       string      `json:"text"`
	Sender     Sender      `json:"sender"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Mode       Mode        `json:"mode,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// MarshalMessages serializes a message slice for JSONB storage. A nil slice
// is stored as an empty array rather than SQL NULL.
func MarshalMessages(messages []Message) (json.RawMessage, error) {
	if messages == nil {
		messages = []Message{}
	}
	return json.Marshal(messages)
}
