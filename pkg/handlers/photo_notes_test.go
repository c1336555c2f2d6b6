package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/examaid-app/examaid-engine/pkg/apperrors"
	"github.com/examaid-app/examaid-engine/pkg/models"
	"github.com/examaid-app/examaid-engine/pkg/services"
)

func newPhotoNotesHandler(photos *mockPhotoNoteService) (*PhotoNotesHandler, *services.ArchiveView) {
	archive := services.NewArchiveView(photos, 50*time.Millisecond, zap.NewNop())
	return NewPhotoNotesHandler(photos, archive, zap.NewNop()), archive
}

func TestPhotoNotesHandler_Create_Success(t *testing.T) {
	photos := &mockPhotoNoteService{}
	handler, archive := newPhotoNotesHandler(photos)
	defer archive.Close()

	body := `{"imageUri":"file://a.jpg","subject":"Matematik","reason":"GOOD_QUESTION","note":"türev"}`
	req := httptest.NewRequest(http.MethodPost, "/api/photo-notes", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var note models.PhotoNote
	if err := json.NewDecoder(w.Body).Decode(&note); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if note.ID == 0 {
		t.Error("expected assigned id")
	}
	if note.Subject != "Matematik" || note.Reason != models.ReasonGoodQuestion {
		t.Errorf("unexpected record: %+v", note)
	}
	if note.Note == nil || *note.Note != "türev" {
		t.Errorf("expected note preserved, got %v", note.Note)
	}
}

func TestPhotoNotesHandler_Create_UnknownReasonRejected(t *testing.T) {
	photos := &mockPhotoNoteService{}
	handler, archive := newPhotoNotesHandler(photos)
	defer archive.Close()

	body := `{"imageUri":"file://a.jpg","subject":"Fizik","reason":"NOSTALGIA"}`
	req := httptest.NewRequest(http.MethodPost, "/api/photo-notes", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if len(photos.notes) != 0 {
		t.Error("a typo in the reason must not create a record")
	}
}

func TestPhotoNotesHandler_Create_NoteTruncated(t *testing.T) {
	photos := &mockPhotoNoteService{}
	handler, archive := newPhotoNotesHandler(photos)
	defer archive.Close()

	long := strings.Repeat("a", models.MaxNoteLength+20)
	body := fmt.Sprintf(`{"imageUri":"file://a.jpg","subject":"Fizik","reason":"GOOD_QUESTION","note":%q}`, long)
	req := httptest.NewRequest(http.MethodPost, "/api/photo-notes", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if got := len([]rune(photos.capturedNote)); got != models.MaxNoteLength {
		t.Errorf("expected note capped at %d runes, got %d", models.MaxNoteLength, got)
	}
}

func TestPhotoNotesHandler_Create_MissingImage(t *testing.T) {
	handler, archive := newPhotoNotesHandler(&mockPhotoNoteService{})
	defer archive.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/photo-notes", strings.NewReader(`{"subject":"Fizik"}`))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPhotoNotesHandler_Create_ValidationMessagePassedThrough(t *testing.T) {
	photos := &mockPhotoNoteService{saveErr: apperrors.NewValidationError(services.MsgSelectSubject)}
	handler, archive := newPhotoNotesHandler(photos)
	defer archive.Close()

	body := `{"imageUri":"file://a.jpg","reason":"NEW_LEARNING"}`
	req := httptest.NewRequest(http.MethodPost, "/api/photo-notes", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["message"] != services.MsgSelectSubject {
		t.Errorf("expected localized message, got %q", resp["message"])
	}
}

func TestPhotoNotesHandler_List_EmptyArchiveIsArray(t *testing.T) {
	handler, archive := newPhotoNotesHandler(&mockPhotoNoteService{})
	defer archive.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/photo-notes", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("expected empty JSON array, got %s", got)
	}
}

func TestPhotoNotesHandler_Get(t *testing.T) {
	photos := &mockPhotoNoteService{}
	handler, archive := newPhotoNotesHandler(photos)
	defer archive.Close()

	saved, err := photos.Save(context.Background(), "file://a.jpg", "Tarih", models.ReasonNewLearning, "")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{"found", "1", http.StatusOK},
		{"not found", "99", http.StatusNotFound},
		{"bad id", "abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/photo-notes/"+tt.id, nil)
			req.SetPathValue("id", tt.id)
			w := httptest.NewRecorder()

			handler.Get(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus == http.StatusOK {
				var note models.PhotoNote
				if err := json.NewDecoder(w.Body).Decode(&note); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if note.ID != saved.ID {
					t.Errorf("expected record %d, got %d", saved.ID, note.ID)
				}
			}
		})
	}
}

func TestPhotoNotesHandler_Watch_StreamsSnapshots(t *testing.T) {
	photos := &mockPhotoNoteService{}
	handler, archive := newPhotoNotesHandler(photos)
	defer archive.Close()

	server := httptest.NewServer(http.HandlerFunc(handler.Watch))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %q", ct)
	}

	reader := bufio.NewReader(resp.Body)

	readSnapshot := func() []*models.PhotoNote {
		t.Helper()
		for {
			line, err := reader.ReadBytes('\n')
			if err != nil {
				t.Fatalf("stream read failed: %v", err)
			}
			if !bytes.HasPrefix(line, []byte("data: ")) {
				continue
			}
			var snapshot []*models.PhotoNote
			if err := json.Unmarshal(bytes.TrimPrefix(bytes.TrimSpace(line), []byte("data: ")), &snapshot); err != nil {
				t.Fatalf("failed to decode snapshot: %v", err)
			}
			return snapshot
		}
	}

	if snapshot := readSnapshot(); len(snapshot) != 0 {
		t.Fatalf("expected empty initial snapshot, got %d records", len(snapshot))
	}

	if _, err := photos.Save(context.Background(), "file://a.jpg", "Kimya", models.ReasonCouldNotSolve, ""); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	snapshot := readSnapshot()
	if len(snapshot) != 1 || snapshot[0].Subject != "Kimya" {
		t.Fatalf("expected snapshot with the saved record, got %+v", snapshot)
	}
}
