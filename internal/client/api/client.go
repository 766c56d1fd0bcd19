// Package api is a typed HTTP client for the Sofia backend. It covers every
// endpoint the terminal client consumes and normalizes error handling: 401
// always surfaces as ErrUnauthorized so callers can fall back to the login
// surface, and everything else becomes an *APIError carrying the backend's
// error payload.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"sofia-backend/internal/models"

	"github.com/google/uuid"
)

// ErrUnauthorized is returned for any 401 response. The stored token is
// stale (expired, or invalidated by a login on another device).
var ErrUnauthorized = errors.New("api: unauthorized")

// APIError is a non-2xx response other than 401.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %d %s (%s)", e.Status, e.Message, e.Code)
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// IsLimitExceeded reports whether err is a quota rejection from the backend.
func IsLimitExceeded(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == models.ErrorCodeLimitExceeded
}

// Client talks to one backend instance. Safe for use from a single event
// loop; methods are plain blocking calls driven by the caller's context.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// NewClient creates a Client for the given base URL (no trailing slash).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 90 * time.Second, // AI replies can be slow
		},
	}
}

// SetToken installs the bearer token used on authenticated endpoints.
func (c *Client) SetToken(token string) { c.token = token }

// Token returns the currently installed bearer token, if any.
func (c *Client) Token() string { return c.token }

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encoding request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("api: building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp models.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr != nil || errResp.Error == "" {
			errResp.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: errResp.Error, Code: errResp.Code}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decoding response: %w", err)
	}
	return nil
}

// --- Auth ---

func (c *Client) Signup(ctx context.Context, name, email, password string) error {
	body := models.SignupRequest{Name: name, Email: email, Password: password}
	return c.do(ctx, http.MethodPost, "/api/signup", body, nil)
}

// Login exchanges credentials for a token and installs it on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	body := models.LoginRequest{Email: email, Password: password}
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/login", body, &resp); err != nil {
		return nil, err
	}
	c.token = resp.AccessToken
	return &resp, nil
}

func (c *Client) SendVerificationEmail(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/send_verification_email", nil, nil)
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/logout", nil, nil)
	c.token = ""
	return err
}

// LogoutAll rotates the server-side session id, invalidating every issued
// token including this client's.
func (c *Client) LogoutAll(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/logout-all", nil, nil)
	c.token = ""
	return err
}

func (c *Client) DeleteAccount(ctx context.Context) error {
	err := c.do(ctx, http.MethodDelete, "/delete_account", nil, nil)
	c.token = ""
	return err
}

// --- User ---

func (c *Client) GetUserInfo(ctx context.Context) (*models.UserInfoResponse, error) {
	var resp models.UserInfoResponse
	if err := c.do(ctx, http.MethodGet, "/get_user_info", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateUsage mirrors a local counter increment to the backend. Callers
// treat it fire-and-forget; the server keeps the authoritative count.
func (c *Client) UpdateUsage(ctx context.Context, usageType string) error {
	return c.do(ctx, http.MethodPost, "/update_usage", models.UpdateUsageRequest{Type: usageType}, nil)
}

// --- Chat ---

func (c *Client) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	var resp models.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- History ---

func (c *Client) ListChats(ctx context.Context) ([]models.ChatSummary, error) {
	var resp []models.ChatSummary
	if err := c.do(ctx, http.MethodGet, "/api/chats", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) SaveChat(ctx context.Context, req models.SaveChatRequest) (*models.SaveChatResponse, error) {
	var resp models.SaveChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/chats", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) RenameChat(ctx context.Context, id uuid.UUID, title string) error {
	body := models.RenameChatRequest{Title: title}
	return c.do(ctx, http.MethodPut, "/api/chats/"+id.String(), body, nil)
}

func (c *Client) DeleteChat(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/chats/"+id.String(), nil, nil)
}

// --- Library ---

// UploadFile sends one file as multipart form data. mimeType is carried as
// the part's Content-Type header, which the backend uses for categorization.
func (c *Client) UploadFile(ctx context.Context, fileName, mimeType string, content []byte) (*models.LibraryItemResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName)}
	header["Content-Type"] = []string{mimeType}
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("api: building multipart body: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("api: writing multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("api: closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/library/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("api: building request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp models.LibraryItemResponse
	if err := c.send(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListFiles(ctx context.Context) (*models.ListLibraryResponse, error) {
	var resp models.ListLibraryResponse
	if err := c.do(ctx, http.MethodGet, "/library/files", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeleteFile(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/library/files/"+id.String(), nil, nil)
}
