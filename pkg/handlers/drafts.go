package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/examaid-app/examaid-engine/pkg/apperrors"
	"github.com/examaid-app/examaid-engine/pkg/auth"
	"github.com/examaid-app/examaid-engine/pkg/models"
	"github.com/examaid-app/examaid-engine/pkg/services"
)

// CreateDraftRequest is the request body for starting a draft.
type CreateDraftRequest struct {
	ImageURI string `json:"imageUri"`
}

// SetImageRequest is the request body for swapping the draft's image.
type SetImageRequest struct {
	ImageURI string `json:"imageUri"`
}

// SetSubjectRequest is the request body for selecting a subject.
type SetSubjectRequest struct {
	Subject string `json:"subject"`
}

// SetReasonRequest is the request body for selecting a reason.
type SetReasonRequest struct {
	Reason string `json:"reason"`
}

// SetNoteRequest is the request body for updating the note text.
type SetNoteRequest struct {
	Note string `json:"note"`
}

// DraftsHandler handles the create-flow HTTP surface.
type DraftsHandler struct {
	drafts services.DraftService
	logger *zap.Logger
}

// NewDraftsHandler creates a new drafts handler.
func NewDraftsHandler(drafts services.DraftService, logger *zap.Logger) *DraftsHandler {
	return &DraftsHandler{
		drafts: drafts,
		logger: logger,
	}
}

// RegisterRoutes registers the drafts handler's routes on the given mux.
func (h *DraftsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/drafts/subjects", authMiddleware.RequireAuth(h.Subjects))
	mux.HandleFunc("POST /api/drafts", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /api/drafts/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PUT /api/drafts/{id}/image", authMiddleware.RequireAuth(h.SetImage))
	mux.HandleFunc("PUT /api/drafts/{id}/subject", authMiddleware.RequireAuth(h.SetSubject))
	mux.HandleFunc("PUT /api/drafts/{id}/reason", authMiddleware.RequireAuth(h.SetReason))
	mux.HandleFunc("PUT /api/drafts/{id}/note", authMiddleware.RequireAuth(h.SetNote))
	mux.HandleFunc("POST /api/drafts/{id}/save", authMiddleware.RequireAuth(h.Save))
	mux.HandleFunc("DELETE /api/drafts/{id}/error", authMiddleware.RequireAuth(h.ConsumeError))
}

// Subjects handles GET /api/drafts/subjects
// Returns the selectable subject vocabulary and reason tags.
func (h *DraftsHandler) Subjects(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"subjects": h.drafts.Subjects(),
		"reasons":  models.PhotoReasons,
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Create handles POST /api/drafts
func (h *DraftsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDraftRequest
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

	draft, err := h.drafts.Create(r.Context(), req.ImageURI)
	if err != nil {
		h.writeDraftError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, draft); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Get handles GET /api/drafts/{id}
func (h *DraftsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.draftID(w, r)
	if !ok {
		return
	}

	draft, err := h.drafts.Get(r.Context(), id)
	if err != nil {
		h.writeDraftError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, draft); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// SetImage handles PUT /api/drafts/{id}/image
// Swapping the image resets every other draft field.
func (h *DraftsHandler) SetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.draftID(w, r)
	if !ok {
		return
	}

	var req SetImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ImageURI == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_image", "Image reference is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	draft, err := h.drafts.ChangeImage(r.Context(), id, req.ImageURI)
	if err != nil {
		h.writeDraftError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, draft); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// SetSubject handles PUT /api/drafts/{id}/subject
func (h *DraftsHandler) SetSubject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.draftID(w, r)
	if !ok {
		return
	}

	var req SetSubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	draft, err := h.drafts.SelectSubject(r.Context(), id, req.Subject)
	if err != nil {
		h.writeDraftError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, draft); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// SetReason handles PUT /api/drafts/{id}/reason
func (h *DraftsHandler) SetReason(w http.ResponseWriter, r *http.Request) {
	id, ok := h.draftID(w, r)
	if !ok {
		return
	}

	var req SetReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	draft, err := h.drafts.SelectReason(r.Context(), id, models.PhotoReason(req.Reason))
	if err != nil {
		h.writeDraftError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, draft); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// SetNote handles PUT /api/drafts/{id}/note
func (h *DraftsHandler) SetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.draftID(w, r)
	if !ok {
		return
	}

	var req SetNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	draft, err := h.drafts.UpdateNote(r.Context(), id, req.Note)
	if err != nil {
		h.writeDraftError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, draft); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Save handles POST /api/drafts/{id}/save
// A validation miss comes back as a 200 with the draft's ErrorMessage
// set; the draft fields always survive so the client can retry.
func (h *DraftsHandler) Save(w http.ResponseWriter, r *http.Request) {
	id, ok := h.draftID(w, r)
	if !ok {
		return
	}

	draft, err := h.drafts.Save(r.Context(), id)
	if err != nil {
		h.writeDraftError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, draft); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// ConsumeError handles DELETE /api/drafts/{id}/error
func (h *DraftsHandler) ConsumeError(w http.ResponseWriter, r *http.Request) {
	id, ok := h.draftID(w, r)
	if !ok {
		return
	}

	draft, err := h.drafts.ConsumeError(r.Context(), id)
	if err != nil {
		h.writeDraftError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, draft); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// draftID parses the {id} path value, writing the error response itself.
func (h *DraftsHandler) draftID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_draft_id", "Invalid draft ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}

// writeDraftError maps a draft operation failure to a response.
func (h *DraftsHandler) writeDraftError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrDraftMissing):
		if werr := ErrorResponse(w, http.StatusNotFound, "draft_not_found", "Draft not found"); werr != nil {
			h.logger.Error("Failed to write error response", zap.Error(werr))
		}
	case errors.Is(err, apperrors.ErrSaveInFlight):
		if werr := ErrorResponse(w, http.StatusConflict, "save_in_flight", "A save is already in progress for this draft"); werr != nil {
			h.logger.Error("Failed to write error response", zap.Error(werr))
		}
	case apperrors.IsValidation(err):
		if werr := ErrorResponse(w, http.StatusBadRequest, "validation_failure", err.Error()); werr != nil {
			h.logger.Error("Failed to write error response", zap.Error(werr))
		}
	default:
		h.logger.Error("Draft operation failed", zap.Error(err))
		if werr := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Draft operation failed"); werr != nil {
			h.logger.Error("Failed to write error response", zap.Error(werr))
		}
	}
}
