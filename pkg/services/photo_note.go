package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/examaid-app/examaid-engine/pkg/apperrors"
	"github.com/examaid-app/examaid-engine/pkg/logging"
	"github.com/examaid-app/examaid-engine/pkg/models"
	"github.com/examaid-app/examaid-engine/pkg/repositories"
)

// MsgSelectSubject is shown when a save is attempted without a subject.
const MsgSelectSubject = "Lütfen bir ders seçin."

// PhotoNoteService defines the interface for photo-note operations.
type PhotoNoteService interface {
	// Save validates the input and persists a new record. A blank subject
	// fails with a ValidationError before touching storage. The returned
	// record carries the assigned id and creation time.
	Save(ctx context.Context, imageURI, subject string, reason models.PhotoReason, note string) (*models.PhotoNote, error)

	// List returns a one-shot snapshot of all records, newest first.
	List(ctx context.Context) ([]*models.PhotoNote, error)

	// Observe returns a channel of full archive snapshots, newest first:
	// the current state immediately, then a fresh snapshot after every
	// save. Cancelling ctx ends the subscription.
	Observe(ctx context.Context) (<-chan []*models.PhotoNote, error)
}

// photoNoteService implements PhotoNoteService.
type photoNoteService struct {
	repo   repositories.PhotoNoteRepository
	now    func() time.Time
	logger *zap.Logger
}

// NewPhotoNoteService creates a new photo-note service with dependencies.
func NewPhotoNoteService(repo repositories.PhotoNoteRepository, logger *zap.Logger) PhotoNoteService {
	return &photoNoteService{
		repo:   repo,
		now:    time.Now,
		logger: logger,
	}
}

// Save builds a record with the current time and delegates to the store.
func (s *photoNoteService) Save(ctx context.Context, imageURI, subject string, reason models.PhotoReason, note string) (*models.PhotoNote, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, apperrors.NewValidationError(MsgSelectSubject)
	}

	row := &repositories.PhotoNoteRow{
		ImageURI:  imageURI,
		Subject:   subject,
		Reason:    string(reason),
		Note:      models.NormalizeNote(note),
		CreatedAt: s.now(),
	}

	id, err := s.repo.Insert(ctx, row)
	if err != nil {
		s.logger.Error("Failed to save photo note",
			zap.String("subject", subject),
			zap.String("image_uri", logging.TruncateString(imageURI, 80)),
			zap.Error(err))
		return nil, apperrors.NewStorageError(err)
	}

	saved := rowToDomain(row)
	saved.ID = id

	s.logger.Info("Photo note saved",
		zap.Int64("id", id),
		zap.String("subject", subject),
		zap.String("reason", string(reason)))

	return saved, nil
}

// List returns the current archive contents in domain form.
func (s *photoNoteService) List(ctx context.Context) ([]*models.PhotoNote, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}

	notes := make([]*models.PhotoNote, len(rows))
	for i, row := range rows {
		notes[i] = rowToDomain(row)
	}
	return notes, nil
}

// Observe maps the store's live rows into the domain model.
func (s *photoNoteService) Observe(ctx context.Context) (<-chan []*models.PhotoNote, error) {
	rows, err := s.repo.ObserveAll(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}

	out := make(chan []*models.PhotoNote, 1)
	go func() {
		defer close(out)
		for snapshot := range rows {
			notes := make([]*models.PhotoNote, len(snapshot))
			for i, row := range snapshot {
				notes[i] = rowToDomain(row)
			}
			select {
			case out <- notes:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// rowToDomain resolves a persisted row into the domain model. An
// unrecognized reason tag decodes to NEW_LEARNING (lenient-read policy).
func rowToDomain(row *repositories.PhotoNoteRow) *models.PhotoNote {
	return &models.PhotoNote{
		ID:        row.ID,
		ImageURI:  row.ImageURI,
		Subject:   row.Subject,
		Reason:    models.ParsePhotoReason(row.Reason),
		Note:      row.Note,
		CreatedAt: row.CreatedAt,
	}
}

// Ensure photoNoteService implements PhotoNoteService at compile time.
var _ PhotoNoteService = (*photoNoteService)(nil)
