package models

import (
	"time"

	"github.com/google/uuid"
)

// Draft is the in-progress state of one photo capture: the chosen image
// plus the metadata the user has entered so far. Drafts are held by the
// engine so an interrupted client can resume; nothing here is a stored
// record until Save succeeds.
type Draft struct {
	ID              uuid.UUID    `json:"id"`
	ImageURI        string       `json:"imageUri"`
	SelectedSubject *string      `json:"selectedSubject,omitempty"`
	SelectedReason  *PhotoReason `json:"selectedReason,omitempty"`
	Note            string       `json:"note"`
	IsSaving        bool         `json:"isSaving"`
	SavedNote       *PhotoNote   `json:"savedNote,omitempty"`
	ErrorMessage    *string      `json:"errorMessage,omitempty"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// ResetForImage returns the draft to its initial state for a new image.
// A fresh capture always starts a fresh draft.
func (d *Draft) ResetForImage(imageURI string) {
	d.ImageURI = imageURI
	d.SelectedSubject = nil
	d.SelectedReason = nil
	d.Note = ""
	d.IsSaving = false
	d.SavedNote = nil
	d.ErrorMessage = nil
}
