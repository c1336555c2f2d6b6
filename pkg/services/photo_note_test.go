package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/examaid-app/examaid-engine/pkg/apperrors"
	"github.com/examaid-app/examaid-engine/pkg/models"
	"github.com/examaid-app/examaid-engine/pkg/repositories"
)

// mockPhotoNoteRepository is a configurable mock for testing PhotoNoteService.
type mockPhotoNoteRepository struct {
	rows      []*repositories.PhotoNoteRow
	nextID    int64
	insertErr error
	listErr   error

	// Capture inputs for verification
	capturedRow *repositories.PhotoNoteRow
	observers   []chan []*repositories.PhotoNoteRow
}

func (m *mockPhotoNoteRepository) Insert(ctx context.Context, row *repositories.PhotoNoteRow) (int64, error) {
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.capturedRow = row
	m.nextID++
	row.ID = m.nextID
	m.rows = append([]*repositories.PhotoNoteRow{row}, m.rows...)
	for _, ch := range m.observers {
		ch <- append([]*repositories.PhotoNoteRow(nil), m.rows...)
	}
	return m.nextID, nil
}

func (m *mockPhotoNoteRepository) ListAll(ctx context.Context) ([]*repositories.PhotoNoteRow, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]*repositories.PhotoNoteRow(nil), m.rows...), nil
}

func (m *mockPhotoNoteRepository) ObserveAll(ctx context.Context) (<-chan []*repositories.PhotoNoteRow, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	ch := make(chan []*repositories.PhotoNoteRow, 16)
	ch <- append([]*repositories.PhotoNoteRow(nil), m.rows...)
	m.observers = append(m.observers, ch)
	go func() {
		<-ctx.Done()
	}()
	return ch, nil
}

func newTestPhotoNoteService(repo *mockPhotoNoteRepository) PhotoNoteService {
	return NewPhotoNoteService(repo, zap.NewNop())
}

func TestPhotoNoteService_Save_Success(t *testing.T) {
	repo := &mockPhotoNoteRepository{}
	service := newTestPhotoNoteService(repo)

	saved, err := service.Save(context.Background(), "file://a.jpg", "Matematik", models.ReasonGoodQuestion, "türev tekrar")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if saved.ID != 1 {
		t.Errorf("expected assigned id 1, got %d", saved.ID)
	}
	if saved.Subject != "Matematik" {
		t.Errorf("expected subject Matematik, got %q", saved.Subject)
	}
	if saved.Reason != models.ReasonGoodQuestion {
		t.Errorf("expected reason GOOD_QUESTION, got %q", saved.Reason)
	}
	if saved.Note == nil || *saved.Note != "türev tekrar" {
		t.Errorf("expected note to survive, got %v", saved.Note)
	}
	if saved.CreatedAt.IsZero() {
		t.Error("expected createdAt to be set")
	}
	if repo.capturedRow == nil || repo.capturedRow.Reason != "GOOD_QUESTION" {
		t.Errorf("expected persisted reason tag GOOD_QUESTION, got %+v", repo.capturedRow)
	}
}

func TestPhotoNoteService_Save_BlankSubject(t *testing.T) {
	repo := &mockPhotoNoteRepository{}
	service := newTestPhotoNoteService(repo)

	_, err := service.Save(context.Background(), "file://a.jpg", "   ", models.ReasonNewLearning, "")
	if err == nil {
		t.Fatal("expected error for blank subject")
	}
	if !apperrors.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if err.Error() != MsgSelectSubject {
		t.Errorf("expected localized message %q, got %q", MsgSelectSubject, err.Error())
	}
	if repo.capturedRow != nil {
		t.Error("store must not be touched on validation failure")
	}
}

func TestPhotoNoteService_Save_WhitespaceNoteAbsent(t *testing.T) {
	repo := &mockPhotoNoteRepository{}
	service := newTestPhotoNoteService(repo)

	saved, err := service.Save(context.Background(), "file://a.jpg", "Matematik", models.ReasonGoodQuestion, "  ")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.Note != nil {
		t.Errorf("whitespace note should persist as absent, got %q", *saved.Note)
	}
}

func TestPhotoNoteService_Save_StorageFailure(t *testing.T) {
	repo := &mockPhotoNoteRepository{insertErr: errors.New("disk full")}
	service := newTestPhotoNoteService(repo)

	_, err := service.Save(context.Background(), "file://a.jpg", "Fizik", models.ReasonCouldNotSolve, "")
	if err == nil {
		t.Fatal("expected error when store rejects the write")
	}
	if !apperrors.IsStorage(err) {
		t.Fatalf("expected StorageError, got %T: %v", err, err)
	}
}

func TestPhotoNoteService_List_MapsDomain(t *testing.T) {
	note := "eski kayıt"
	repo := &mockPhotoNoteRepository{rows: []*repositories.PhotoNoteRow{
		{ID: 2, ImageURI: "file://b.jpg", Subject: "Tarih", Reason: "COULD_NOT_SOLVE", CreatedAt: time.Now()},
		{ID: 1, ImageURI: "file://a.jpg", Subject: "Fizik", Reason: "LEGACY_TAG", Note: &note, CreatedAt: time.Now().Add(-time.Hour)},
	}}
	service := newTestPhotoNoteService(repo)

	notes, err := service.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(notes))
	}
	if notes[0].Reason != models.ReasonCouldNotSolve {
		t.Errorf("expected COULD_NOT_SOLVE, got %q", notes[0].Reason)
	}
	// Lenient read: unrecognized persisted tag decodes to the default.
	if notes[1].Reason != models.ReasonNewLearning {
		t.Errorf("expected legacy tag to decode to NEW_LEARNING, got %q", notes[1].Reason)
	}
	if notes[1].Note == nil || *notes[1].Note != "eski kayıt" {
		t.Errorf("note lost in mapping: %v", notes[1].Note)
	}
}

func TestPhotoNoteService_Observe_DeliversSnapshots(t *testing.T) {
	repo := &mockPhotoNoteRepository{}
	service := newTestPhotoNoteService(repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, err := service.Observe(ctx)
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	// Initial snapshot is empty.
	select {
	case snapshot := <-snapshots:
		if len(snapshot) != 0 {
			t.Fatalf("expected empty initial snapshot, got %d", len(snapshot))
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial snapshot")
	}

	if _, err := service.Save(ctx, "file://a.jpg", "Kimya", models.ReasonNewLearning, ""); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	select {
	case snapshot := <-snapshots:
		if len(snapshot) != 1 {
			t.Fatalf("expected snapshot of 1, got %d", len(snapshot))
		}
		if snapshot[0].Subject != "Kimya" {
			t.Errorf("expected subject Kimya, got %q", snapshot[0].Subject)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot after save")
	}
}
