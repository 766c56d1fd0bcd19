package models

import (
	"github.com/google/uuid"
)

// --- Auth DTOs ---

// SignupRequest defines the expected body for POST /api/signup.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest defines the expected body for POST /api/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse defines the response body for successful authentication.
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

// UserResponse defines the minimal user information returned on auth calls.
// Never include HashedPassword or AuthSessionID here.
type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// UserInfoResponse defines the body of GET /get_user_info. The client mirrors
// UsageCounts read-only for UX gating; the server remains authoritative.
type UserInfoResponse struct {
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	IsAdmin       bool        `json:"isAdmin"`
	IsPremium     bool        `json:"isPremium"`
	EmailVerified bool        `json:"emailVerified"`
	UsageCounts   UsageCounts `json:"usageCounts"`
}

// --- Chat proxy DTOs ---

// ChatRequest defines the body for POST /chat.
type ChatRequest struct {
	Text        string `json:"text"`
	FileData    string `json:"fileData,omitempty"` // base64 content of an attached file
	FileName    string `json:"fileName,omitempty"`
	FileType    string `json:"fileType,omitempty"` // MIME type
	IsTemporary bool   `json:"isTemporary"`
	Mode        Mode   `json:"mode"`
}

// ChatResponse carries the model's reply text.
type ChatResponse struct {
	Response string `json:"response"`
}

// UpdateUsageRequest defines the body for POST /update_usage. The client
// fires this without waiting; the server acknowledges it but counts only
// on /chat, so one turn never hits the quota twice.
type UpdateUsageRequest struct {
	Type string `json:"type"` // "message" or "search"
}

// --- Chat history DTOs ---

// SaveChatRequest defines the body for POST /api/chats (full-session upsert).
// ID is nil for the first persistence of a new session.
type SaveChatRequest struct {
	ID       *uuid.UUID `json:"id,omitempty"`
	Title    string     `json:"title"`
	Messages []Message  `json:"messages"`
}

// SaveChatResponse returns the (possibly server-assigned) identity.
type SaveChatResponse struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

// ChatSummary is one element of GET /api/chats.
type ChatSummary struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// RenameChatRequest defines the body for PUT /api/chats/{id}.
type RenameChatRequest struct {
	Title string `json:"title"`
}

// --- Library DTOs ---

// LibraryItemResponse is one element of GET /library/files. FileData is the
// decrypted content, base64-encoded for transport.
type LibraryItemResponse struct {
	ID           uuid.UUID    `json:"id"`
	FileName     string       `json:"fileName"`
	FileType     string       `json:"fileType"`
	FileCategory FileCategory `json:"fileCategory"`
	FileData     string       `json:"fileData"`
}

// ListLibraryResponse wraps the library listing.
type ListLibraryResponse struct {
	Files []LibraryItemResponse `json:"files"`
}

// --- Generic DTOs ---

// SuccessResponse is the standard body for opaque pass/fail actions
// (logout, logout-all, delete_account, send_verification_email).
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse defines the standard structure for API errors. Code is an
// optional machine-readable tag ("limit_exceeded") the client switches on.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ErrorCodeLimitExceeded marks quota rejections so the client can surface
// the usage notice instead of a generic failure.
const ErrorCodeLimitExceeded = "limit_exceeded"
