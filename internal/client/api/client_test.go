package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"sofia-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginInstallsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/login", r.URL.Path)
		var req models.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ana@example.com", req.Email)
		json.NewEncoder(w).Encode(models.AuthResponse{AccessToken: "tok-123"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.Login(context.Background(), "ana@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", resp.AccessToken)
	assert.Equal(t, "tok-123", c.Token())
}

func TestAuthorizationHeaderSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(models.UserInfoResponse{Name: "Ana"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.SetToken("tok-123")
	info, err := c.GetUserInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ana", info.Name)
}

func TestUnauthorizedMapsToSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(models.ErrorResponse{Error: "Token has expired"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.GetUserInfo(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestErrorPayloadPreserved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(models.ErrorResponse{
			Error: "daily message limit reached",
			Code:  models.ErrorCodeLimitExceeded,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Chat(context.Background(), models.ChatRequest{Text: "hi"})
	require.Error(t, err)
	assert.True(t, IsLimitExceeded(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Equal(t, "daily message limit reached", apiErr.Message)
}

func TestChatRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, models.ModeWebSearch, req.Mode)
		assert.True(t, req.IsTemporary)
		json.NewEncoder(w).Encode(models.ChatResponse{Response: "found it"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.Chat(context.Background(), models.ChatRequest{
		Text:        "search this",
		IsTemporary: true,
		Mode:        models.ModeWebSearch,
	})
	require.NoError(t, err)
	assert.Equal(t, "found it", resp.Response)
}

func TestUploadFileMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "notes.txt", header.Filename)
		assert.Equal(t, "text/plain", header.Header.Get("Content-Type"))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.LibraryItemResponse{
			ID:       uuid.New(),
			FileName: header.Filename,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	item, err := c.UploadFile(context.Background(), "notes.txt", "text/plain", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", item.FileName)
}

func TestDeleteChatPath(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/chats/"+id.String(), r.URL.Path)
		json.NewEncoder(w).Encode(models.SuccessResponse{Success: true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.NoError(t, c.DeleteChat(context.Background(), id))
}
