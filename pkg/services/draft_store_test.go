package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/examaid-app/examaid-engine/pkg/apperrors"
	"github.com/examaid-app/examaid-engine/pkg/models"
)

func TestMemoryDraftStore_RoundTrip(t *testing.T) {
	store := NewMemoryDraftStore()
	ctx := context.Background()

	subject := "Matematik"
	draft := &models.Draft{
		ID:              uuid.New(),
		ImageURI:        "file://a.jpg",
		SelectedSubject: &subject,
		Note:            "kök bulma",
		UpdatedAt:       time.Now(),
	}

	if err := store.Put(ctx, draft); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	loaded, err := store.Get(ctx, draft.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded.ImageURI != draft.ImageURI || loaded.Note != draft.Note {
		t.Errorf("draft did not round-trip: %+v", loaded)
	}
	if loaded.SelectedSubject == nil || *loaded.SelectedSubject != subject {
		t.Errorf("subject lost: %v", loaded.SelectedSubject)
	}
}

func TestMemoryDraftStore_GetReturnsCopy(t *testing.T) {
	store := NewMemoryDraftStore()
	ctx := context.Background()

	draft := &models.Draft{ID: uuid.New(), ImageURI: "file://a.jpg", UpdatedAt: time.Now()}
	if err := store.Put(ctx, draft); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	first, _ := store.Get(ctx, draft.ID)
	first.Note = "mutated"

	second, _ := store.Get(ctx, draft.ID)
	if second.Note != "" {
		t.Error("mutating a loaded draft must not affect the store")
	}
}

func TestMemoryDraftStore_Missing(t *testing.T) {
	store := NewMemoryDraftStore()

	_, err := store.Get(context.Background(), uuid.New())
	if !errors.Is(err, apperrors.ErrDraftMissing) {
		t.Fatalf("expected ErrDraftMissing, got %v", err)
	}
}

func TestMemoryDraftStore_ExpiredDraftDropped(t *testing.T) {
	store := NewMemoryDraftStore()
	ctx := context.Background()

	draft := &models.Draft{
		ID:        uuid.New(),
		ImageURI:  "file://a.jpg",
		UpdatedAt: time.Now().Add(-draftTTL - time.Minute),
	}
	if err := store.Put(ctx, draft); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if _, err := store.Get(ctx, draft.ID); !errors.Is(err, apperrors.ErrDraftMissing) {
		t.Fatalf("expected expired draft treated as missing, got %v", err)
	}
}

func TestMemoryDraftStore_Delete(t *testing.T) {
	store := NewMemoryDraftStore()
	ctx := context.Background()

	draft := &models.Draft{ID: uuid.New(), ImageURI: "file://a.jpg", UpdatedAt: time.Now()}
	if err := store.Put(ctx, draft); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := store.Delete(ctx, draft.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, draft.ID); !errors.Is(err, apperrors.ErrDraftMissing) {
		t.Fatalf("expected ErrDraftMissing after delete, got %v", err)
	}
}
