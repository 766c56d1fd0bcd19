package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"sofia-backend/internal/models"
	"sofia-backend/internal/services"
	"sofia-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// LibraryHandlers handles the /library file surface.
type LibraryHandlers struct {
	libraryService *services.LibraryService
}

// NewLibraryHandlers creates a new LibraryHandlers instance.
func NewLibraryHandlers(libraryService *services.LibraryService) *LibraryHandlers {
	return &LibraryHandlers{libraryService: libraryService}
}

// HandleUpload handles POST /library/upload (multipart form, field "file").
func (h *LibraryHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromRequest(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(services.MaxUploadBytes); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Missing 'file' form field")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, services.MaxUploadBytes+1))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	item, err := h.libraryService.Upload(r.Context(), userID, header.Filename, mimeType, content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyUpload):
			RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrFileTooLarge):
			RespondWithError(w, http.StatusRequestEntityTooLarge, err.Error())
		default:
			log.Printf("Upload handler failed for user %s: %v", userID, err)
			RespondWithError(w, http.StatusInternalServerError, "Failed to store file")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, item)
}

// HandleListFiles handles GET /library/files.
func (h *LibraryHandlers) HandleListFiles(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromRequest(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	files, err := h.libraryService.List(r.Context(), userID)
	if err != nil {
		log.Printf("ListFiles handler failed for user %s: %v", userID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to list library files")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.ListLibraryResponse{Files: files})
}

// HandleDeleteFile handles DELETE /library/files/{fileID}.
func (h *LibraryHandlers) HandleDeleteFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromRequest(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	fileID, err := uuid.Parse(chi.URLParam(r, "fileID"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid file ID")
		return
	}

	if err := h.libraryService.Delete(r.Context(), userID, fileID); err != nil {
		if errors.Is(err, services.ErrLibraryItemNotFound) {
			RespondWithError(w, http.StatusNotFound, "File not found")
			return
		}
		log.Printf("DeleteFile handler failed for file %s: %v", fileID, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete file")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}
