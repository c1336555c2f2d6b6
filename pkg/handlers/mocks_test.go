package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/examaid-app/examaid-engine/pkg/apperrors"
	"github.com/examaid-app/examaid-engine/pkg/models"
	"github.com/examaid-app/examaid-engine/pkg/services"
)

// mockPhotoNoteService is a configurable mock for handler tests.
type mockPhotoNoteService struct {
	mu        sync.Mutex
	notes     []*models.PhotoNote
	nextID    int64
	saveErr   error
	listErr   error
	observers []chan []*models.PhotoNote

	capturedSubject string
	capturedReason  models.PhotoReason
	capturedNote    string
}

func (m *mockPhotoNoteService) Save(ctx context.Context, imageURI, subject string, reason models.PhotoReason, note string) (*models.PhotoNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.capturedSubject = subject
	m.capturedReason = reason
	m.capturedNote = note

	if m.saveErr != nil {
		return nil, m.saveErr
	}

	m.nextID++
	saved := &models.PhotoNote{
		ID:        m.nextID,
		ImageURI:  imageURI,
		Subject:   subject,
		Reason:    reason,
		Note:      models.NormalizeNote(note),
		CreatedAt: time.Now(),
	}
	m.notes = append([]*models.PhotoNote{saved}, m.notes...)
	for _, ch := range m.observers {
		ch <- append([]*models.PhotoNote(nil), m.notes...)
	}
	return saved, nil
}

func (m *mockPhotoNoteService) List(ctx context.Context) ([]*models.PhotoNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]*models.PhotoNote(nil), m.notes...), nil
}

func (m *mockPhotoNoteService) Observe(ctx context.Context) (<-chan []*models.PhotoNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan []*models.PhotoNote, 16)
	ch <- append([]*models.PhotoNote(nil), m.notes...)
	m.observers = append(m.observers, ch)
	return ch, nil
}

var _ services.PhotoNoteService = (*mockPhotoNoteService)(nil)

// mockDraftService is a configurable mock for handler tests. Each
// operation can be overridden; unset operations fall back to a single
// held draft keyed by its id.
type mockDraftService struct {
	mu       sync.Mutex
	draft    *models.Draft
	subjects []string

	createErr error
	getErr    error
	mutateErr error
	saveErr   error
}

func (m *mockDraftService) Create(ctx context.Context, imageURI string) (*models.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return nil, m.createErr
	}
	m.draft = &models.Draft{
		ID:        uuid.New(),
		ImageURI:  imageURI,
		UpdatedAt: time.Now(),
	}
	return m.draft, nil
}

func (m *mockDraftService) Get(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.held(id)
}

func (m *mockDraftService) ChangeImage(ctx context.Context, id uuid.UUID, imageURI string) (*models.Draft, error) {
	return m.mutate(id, func(d *models.Draft) {
		d.ResetForImage(imageURI)
	})
}

func (m *mockDraftService) SelectSubject(ctx context.Context, id uuid.UUID, subject string) (*models.Draft, error) {
	return m.mutate(id, func(d *models.Draft) {
		d.SelectedSubject = &subject
		d.ErrorMessage = nil
	})
}

func (m *mockDraftService) SelectReason(ctx context.Context, id uuid.UUID, reason models.PhotoReason) (*models.Draft, error) {
	return m.mutate(id, func(d *models.Draft) {
		d.SelectedReason = &reason
		d.ErrorMessage = nil
	})
}

func (m *mockDraftService) UpdateNote(ctx context.Context, id uuid.UUID, note string) (*models.Draft, error) {
	return m.mutate(id, func(d *models.Draft) {
		d.Note = models.TruncateNote(note)
	})
}

func (m *mockDraftService) Save(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return nil, m.saveErr
	}
	draft, err := m.held(id)
	if err != nil {
		return nil, err
	}
	if draft.SelectedSubject == nil || draft.SelectedReason == nil {
		msg := services.MsgSelectSubjectAndReason
		draft.ErrorMessage = &msg
		return draft, nil
	}
	draft.SavedNote = &models.PhotoNote{
		ID:        1,
		ImageURI:  draft.ImageURI,
		Subject:   *draft.SelectedSubject,
		Reason:    *draft.SelectedReason,
		CreatedAt: time.Now(),
	}
	return draft, nil
}

func (m *mockDraftService) ConsumeError(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	return m.mutate(id, func(d *models.Draft) {
		d.ErrorMessage = nil
	})
}

func (m *mockDraftService) Subjects() []string {
	return m.subjects
}

func (m *mockDraftService) mutate(id uuid.UUID, fn func(*models.Draft)) (*models.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mutateErr != nil {
		return nil, m.mutateErr
	}
	draft, err := m.held(id)
	if err != nil {
		return nil, err
	}
	fn(draft)
	return draft, nil
}

func (m *mockDraftService) held(id uuid.UUID) (*models.Draft, error) {
	if m.draft == nil || m.draft.ID != id {
		return nil, apperrors.ErrDraftMissing
	}
	return m.draft, nil
}

var _ services.DraftService = (*mockDraftService)(nil)
