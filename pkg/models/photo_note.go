package models

import (
	"strings"
	"time"
)

// PhotoNote represents a saved question photo with metadata supplied by
// the user. Records are immutable after creation; there is no update or
// delete path.
type PhotoNote struct {
	ID        int64       `json:"id"`
	ImageURI  string      `json:"imageUri"`
	Subject   string      `json:"subject"`
	Reason    PhotoReason `json:"reason"`
	Note      *string     `json:"note,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// PhotoReason tags why the user captured a question photo.
type PhotoReason string

const (
	ReasonNewLearning   PhotoReason = "NEW_LEARNING"
	ReasonGoodQuestion  PhotoReason = "GOOD_QUESTION"
	ReasonCouldNotSolve PhotoReason = "COULD_NOT_SOLVE"
)

// PhotoReasons contains all valid reason values.
var PhotoReasons = []PhotoReason{ReasonNewLearning, ReasonGoodQuestion, ReasonCouldNotSolve}

// IsValidPhotoReason checks if the given reason is valid.
func IsValidPhotoReason(reason PhotoReason) bool {
	for _, r := range PhotoReasons {
		if r == reason {
			return true
		}
	}
	return false
}

// ParsePhotoReason decodes a persisted reason tag. Unrecognized tags
// (corrupted or legacy rows) decode to ReasonNewLearning instead of
// failing, so one bad row never breaks the archive.
func ParsePhotoReason(tag string) PhotoReason {
	switch PhotoReason(tag) {
	case ReasonNewLearning, ReasonGoodQuestion, ReasonCouldNotSolve:
		return PhotoReason(tag)
	default:
		return ReasonNewLearning
	}
}

// MaxNoteLength is the hard cap on the free-text note, in characters.
// Input beyond the cap is truncated, not rejected.
const MaxNoteLength = 50

// TruncateNote enforces MaxNoteLength on note input, counting runes so a
// multi-byte character is never split.
func TruncateNote(note string) string {
	runes := []rune(note)
	if len(runes) <= MaxNoteLength {
		return note
	}
	return string(runes[:MaxNoteLength])
}

// NormalizeNote trims the note and maps a blank result to absent.
func NormalizeNote(note string) *string {
	trimmed := strings.TrimSpace(note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// DefaultSubjects is the subject vocabulary shipped with the app. The
// effective vocabulary is configurable; these are the defaults.
var DefaultSubjects = []string{
	"Matematik",
	"Geometri",
	"Türkçe",
	"Edebiyat",
	"Tarih",
	"Coğrafya",
	"Felsefe",
	"Din Kültürü",
	"Fizik",
	"Kimya",
	"Biyoloji",
}
