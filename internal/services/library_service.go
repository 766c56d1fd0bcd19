package services

import (
	"context"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"

	"sofia-backend/internal/crypto"
	"sofia-backend/internal/models"
	"sofia-backend/internal/store"

	"github.com/google/uuid"
)

// Custom errors for the library service
var (
	ErrLibraryItemNotFound = errors.New("library item not found")
	ErrEmptyUpload         = errors.New("uploaded file is empty")
	ErrFileTooLarge        = errors.New("uploaded file exceeds the size limit")
)

// MaxUploadBytes caps library uploads (content is held in a JSON/DB roundtrip,
// so this stays deliberately small).
const MaxUploadBytes = 10 << 20 // 10 MiB

// LibraryService manages the user's uploaded-file library. File content is
// encrypted with AES-GCM before it reaches the store and decrypted on read.
type LibraryService struct {
	store store.Store
	aead  cipher.AEAD
}

// NewLibraryService creates a new LibraryService.
func NewLibraryService(s store.Store, aead cipher.AEAD) *LibraryService {
	return &LibraryService{store: s, aead: aead}
}

// CategorizeFile buckets a MIME type into the client's library tabs.
func CategorizeFile(mimeType string) models.FileCategory {
	mimeType = strings.ToLower(mimeType)
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.FileCategoryImage
	case strings.HasPrefix(mimeType, "text/x-") ||
		strings.Contains(mimeType, "javascript") ||
		strings.Contains(mimeType, "json") ||
		strings.Contains(mimeType, "xml"):
		return models.FileCategoryCode
	case strings.HasPrefix(mimeType, "text/") ||
		strings.Contains(mimeType, "pdf") ||
		strings.Contains(mimeType, "msword") ||
		strings.Contains(mimeType, "officedocument"):
		return models.FileCategoryDocument
	default:
		return models.FileCategoryOther
	}
}

// Upload encrypts and stores an uploaded file, returning its API shape.
func (s *LibraryService) Upload(ctx context.Context, userID uuid.UUID, fileName, mimeType string, content []byte) (*models.LibraryItemResponse, error) {
	if len(content) == 0 {
		return nil, ErrEmptyUpload
	}
	if len(content) > MaxUploadBytes {
		return nil, ErrFileTooLarge
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	encrypted, err := crypto.Encrypt(s.aead, content)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt file content: %w", err)
	}

	item, err := s.store.CreateLibraryItem(ctx, store.CreateLibraryItemParams{
		ID:            uuid.New(),
		UserID:        userID,
		FileName:      fileName,
		FileType:      mimeType,
		FileCategory:  CategorizeFile(mimeType),
		EncryptedData: encrypted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store library item: %w", err)
	}

	log.Printf("[LibraryService] Stored %s (%s, %d bytes) for user %s", fileName, mimeType, len(content), userID)

	return &models.LibraryItemResponse{
		ID:           item.ID,
		FileName:     item.FileName,
		FileType:     item.FileType,
		FileCategory: item.FileCategory,
		FileData:     base64.StdEncoding.EncodeToString(content),
	}, nil
}

// List returns the user's library with decrypted, base64-encoded content.
func (s *LibraryService) List(ctx context.Context, userID uuid.UUID) ([]models.LibraryItemResponse, error) {
	items, err := s.store.ListLibraryItemsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list library items: %w", err)
	}

	responses := make([]models.LibraryItemResponse, 0, len(items))
	for i := range items {
		plaintext, err := crypto.Decrypt(s.aead, items[i].EncryptedData)
		if err != nil {
			// A single corrupt row must not hide the rest of the library.
			log.Printf("ERROR [LibraryService] Failed to decrypt item %s: %v", items[i].ID, err)
			continue
		}
		responses = append(responses, models.LibraryItemResponse{
			ID:           items[i].ID,
			FileName:     items[i].FileName,
			FileType:     items[i].FileType,
			FileCategory: items[i].FileCategory,
			FileData:     base64.StdEncoding.EncodeToString(plaintext),
		})
	}
	return responses, nil
}

// Delete removes one library item.
func (s *LibraryService) Delete(ctx context.Context, userID, itemID uuid.UUID) error {
	if err := s.store.DeleteLibraryItem(ctx, itemID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrLibraryItemNotFound
		}
		return fmt.Errorf("failed to delete library item: %w", err)
	}
	return nil
}
