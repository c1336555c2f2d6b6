package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/examaid-app/examaid-engine/pkg/apperrors"
	"github.com/examaid-app/examaid-engine/pkg/models"
)

// User-facing messages for the create flow.
const (
	MsgSelectSubjectAndReason = "Lütfen ders ve sebep seçin."
	MsgSaveFailed             = "Fotoğraf kaydedilemedi."
	MsgUnknownSubject         = "Geçersiz ders seçimi."
)

// DraftService drives the create-flow state machine: it holds the draft
// fields for one in-progress capture, enforces field-level limits and
// performs the save. Draft fields survive a failed save so the user can
// retry without re-entering anything.
type DraftService interface {
	// Create starts a fresh draft for the given image.
	Create(ctx context.Context, imageURI string) (*models.Draft, error)

	// Get returns the current draft state.
	Get(ctx context.Context, id uuid.UUID) (*models.Draft, error)

	// ChangeImage swaps the image and resets every other field; a new
	// capture always starts a fresh draft.
	ChangeImage(ctx context.Context, id uuid.UUID, imageURI string) (*models.Draft, error)

	// SelectSubject sets the subject and clears any error message.
	// The subject must come from the configured vocabulary.
	SelectSubject(ctx context.Context, id uuid.UUID, subject string) (*models.Draft, error)

	// SelectReason sets the reason and clears any error message.
	SelectReason(ctx context.Context, id uuid.UUID, reason models.PhotoReason) (*models.Draft, error)

	// UpdateNote replaces the note, silently truncating past the cap.
	UpdateNote(ctx context.Context, id uuid.UUID, note string) (*models.Draft, error)

	// Save persists the draft as a photo-note record. With subject or
	// reason unset it fails fast onto ErrorMessage without touching
	// storage. A save already in flight for the same draft is rejected.
	Save(ctx context.Context, id uuid.UUID) (*models.Draft, error)

	// ConsumeError clears the draft's error message once displayed.
	ConsumeError(ctx context.Context, id uuid.UUID) (*models.Draft, error)

	// Subjects returns the selectable subject vocabulary.
	Subjects() []string
}

// draftService implements DraftService.
type draftService struct {
	store    DraftStore
	photos   PhotoNoteService
	subjects []string
	now      func() time.Time
	logger   *zap.Logger

	mu     sync.Mutex
	saving map[uuid.UUID]struct{}
}

// NewDraftService creates a new draft service with dependencies.
func NewDraftService(store DraftStore, photos PhotoNoteService, subjects []string, logger *zap.Logger) DraftService {
	return &draftService{
		store:    store,
		photos:   photos,
		subjects: subjects,
		now:      time.Now,
		logger:   logger,
		saving:   make(map[uuid.UUID]struct{}),
	}
}

func (s *draftService) Create(ctx context.Context, imageURI string) (*models.Draft, error) {
	draft := &models.Draft{
		ID:        uuid.New(),
		ImageURI:  imageURI,
		UpdatedAt: s.now(),
	}

	if err := s.store.Put(ctx, draft); err != nil {
		return nil, err
	}

	s.logger.Debug("Draft created", zap.String("draft_id", draft.ID.String()))
	return draft, nil
}

func (s *draftService) Get(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	return s.store.Get(ctx, id)
}

func (s *draftService) ChangeImage(ctx context.Context, id uuid.UUID, imageURI string) (*models.Draft, error) {
	return s.mutate(ctx, id, func(draft *models.Draft) error {
		draft.ResetForImage(imageURI)
		return nil
	})
}

func (s *draftService) SelectSubject(ctx context.Context, id uuid.UUID, subject string) (*models.Draft, error) {
	if !s.isKnownSubject(subject) {
		return nil, apperrors.NewValidationError(MsgUnknownSubject)
	}

	return s.mutate(ctx, id, func(draft *models.Draft) error {
		draft.SelectedSubject = &subject
		draft.ErrorMessage = nil
		return nil
	})
}

func (s *draftService) SelectReason(ctx context.Context, id uuid.UUID, reason models.PhotoReason) (*models.Draft, error) {
	if !models.IsValidPhotoReason(reason) {
		return nil, apperrors.NewValidationError(MsgSelectSubjectAndReason)
	}

	return s.mutate(ctx, id, func(draft *models.Draft) error {
		draft.SelectedReason = &reason
		draft.ErrorMessage = nil
		return nil
	})
}

func (s *draftService) UpdateNote(ctx context.Context, id uuid.UUID, note string) (*models.Draft, error) {
	return s.mutate(ctx, id, func(draft *models.Draft) error {
		draft.Note = models.TruncateNote(note)
		return nil
	})
}

func (s *draftService) Save(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	// The guard must win or lose before any store read: two saves racing
	// past the same Get would both see IsSaving unset and both persist.
	if !s.beginSave(id) {
		return nil, apperrors.ErrSaveInFlight
	}
	defer s.endSave(id)

	draft, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if draft.SelectedSubject == nil || draft.SelectedReason == nil {
		msg := MsgSelectSubjectAndReason
		draft.ErrorMessage = &msg
		draft.UpdatedAt = s.now()
		if err := s.store.Put(ctx, draft); err != nil {
			return nil, err
		}
		return draft, nil
	}

	// Persisted marker covers saves routed to another process.
	if draft.IsSaving {
		return nil, apperrors.ErrSaveInFlight
	}

	draft.IsSaving = true
	draft.ErrorMessage = nil
	draft.SavedNote = nil
	draft.UpdatedAt = s.now()
	if err := s.store.Put(ctx, draft); err != nil {
		return nil, err
	}

	saved, saveErr := s.photos.Save(ctx, draft.ImageURI, *draft.SelectedSubject, *draft.SelectedReason, draft.Note)

	draft.IsSaving = false
	if saveErr != nil {
		msg := saveErr.Error()
		if msg == "" {
			msg = MsgSaveFailed
		}
		draft.ErrorMessage = &msg
		s.logger.Warn("Draft save failed",
			zap.String("draft_id", id.String()),
			zap.Error(saveErr))
	} else {
		draft.SavedNote = saved
	}
	draft.UpdatedAt = s.now()

	if err := s.store.Put(ctx, draft); err != nil {
		return nil, err
	}

	return draft, nil
}

func (s *draftService) ConsumeError(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	return s.mutate(ctx, id, func(draft *models.Draft) error {
		draft.ErrorMessage = nil
		return nil
	})
}

func (s *draftService) Subjects() []string {
	return s.subjects
}

// beginSave claims the in-flight slot for a draft. It returns false when a
// save for the same draft is already running.
func (s *draftService) beginSave(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.saving[id]; busy {
		return false
	}
	s.saving[id] = struct{}{}
	return true
}

func (s *draftService) endSave(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saving, id)
}

func (s *draftService) isKnownSubject(subject string) bool {
	for _, known := range s.subjects {
		if known == subject {
			return true
		}
	}
	return false
}

// mutate loads a draft, applies fn and stores the result.
func (s *draftService) mutate(ctx context.Context, id uuid.UUID, fn func(*models.Draft) error) (*models.Draft, error) {
	draft, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(draft); err != nil {
		return nil, err
	}

	draft.UpdatedAt = s.now()
	if err := s.store.Put(ctx, draft); err != nil {
		return nil, err
	}

	return draft, nil
}

// Ensure draftService implements DraftService at compile time.
var _ DraftService = (*draftService)(nil)
