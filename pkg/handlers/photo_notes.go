package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/examaid-app/examaid-engine/pkg/apperrors"
	"github.com/examaid-app/examaid-engine/pkg/auth"
	"github.com/examaid-app/examaid-engine/pkg/models"
	"github.com/examaid-app/examaid-engine/pkg/services"
)

// CreatePhotoNoteRequest is the request body for saving a photo note
// directly, without going through a draft.
type CreatePhotoNoteRequest struct {
	ImageURI string `json:"imageUri"`
	Subject  string `json:"subject"`
	Reason   string `json:"reason"`
	Note     string `json:"note"`
}

// PhotoNotesHandler handles the archive's HTTP surface: create, list,
// detail and the live snapshot stream.
type PhotoNotesHandler struct {
	photos  services.PhotoNoteService
	archive *services.ArchiveView
	logger  *zap.Logger
}

// NewPhotoNotesHandler creates a new photo-notes handler.
func NewPhotoNotesHandler(photos services.PhotoNoteService, archive *services.ArchiveView, logger *zap.Logger) *PhotoNotesHandler {
	return &PhotoNotesHandler{
		photos:  photos,
		archive: archive,
		logger:  logger,
	}
}

// RegisterRoutes registers the photo-notes handler's routes on the given mux.
func (h *PhotoNotesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/photo-notes", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /api/photo-notes", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET /api/photo-notes/watch", authMiddleware.RequireAuth(h.Watch))
	mux.HandleFunc("GET /api/photo-notes/{id}", authMiddleware.RequireAuth(h.Get))
}

// Create handles POST /api/photo-notes
func (h *PhotoNotesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePhotoNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if req.ImageURI == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_image", "Image reference is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	reason := models.PhotoReason(req.Reason)
	if !models.IsValidPhotoReason(reason) {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_reason", "Unknown photo reason"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	note, err := h.photos.Save(r.Context(), req.ImageURI, req.Subject, reason, models.TruncateNote(req.Note))
	if err != nil {
		h.writeSaveError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, note); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// List handles GET /api/photo-notes
// Returns the archive in reverse-chronological order.
func (h *PhotoNotesHandler) List(w http.ResponseWriter, r *http.Request) {
	notes, err := h.photos.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list photo notes", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "storage_failure", "Failed to load archive"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if notes == nil {
		notes = []*models.PhotoNote{}
	}
	if err := WriteJSON(w, http.StatusOK, notes); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Get handles GET /api/photo-notes/{id}
func (h *PhotoNotesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Invalid photo note id"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	notes, err := h.photos.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to load photo note", zap.Int64("id", id), zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "storage_failure", "Failed to load photo note"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	for _, note := range notes {
		if note.ID == id {
			if err := WriteJSON(w, http.StatusOK, note); err != nil {
				h.logger.Error("Failed to encode response", zap.Error(err))
			}
			return
		}
	}

	if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Photo note not found"); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// Watch handles GET /api/photo-notes/watch
// Streams archive snapshots as server-sent events: the current state
// immediately, then a fresh snapshot after every save. The stream stays
// open until the client disconnects.
func (h *PhotoNotesHandler) Watch(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		if err := ErrorResponse(w, http.StatusInternalServerError, "streaming_unsupported", "Streaming not supported"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	snapshots, err := h.archive.Watch(r.Context())
	if err != nil {
		h.logger.Error("Failed to start archive watch", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "storage_failure", "Failed to open archive stream"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case snapshot, ok := <-snapshots:
			if !ok {
				return
			}
			data, err := json.Marshal(snapshot)
			if err != nil {
				h.logger.Error("Failed to encode snapshot", zap.Error(err))
				return
			}
			if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// writeSaveError maps a save failure to a response, preserving the
// localized message for caller-correctable input.
func (h *PhotoNotesHandler) writeSaveError(w http.ResponseWriter, err error) {
	if apperrors.IsValidation(err) {
		if werr := ErrorResponse(w, http.StatusBadRequest, "validation_failure", err.Error()); werr != nil {
			h.logger.Error("Failed to write error response", zap.Error(werr))
		}
		return
	}

	h.logger.Error("Failed to save photo note", zap.Error(err))
	if werr := ErrorResponse(w, http.StatusInternalServerError, "storage_failure", err.Error()); werr != nil {
		h.logger.Error("Failed to write error response", zap.Error(werr))
	}
}
