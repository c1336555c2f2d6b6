package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDraftMissing = errors.New("draft not found")
	ErrSaveInFlight = errors.New("save already in progress for this draft")
)

// ValidationError is a caller-correctable input error. Message is the
// user-facing, localized text; validation failures never reach storage.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError with the given user-facing message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StorageError indicates the underlying storage medium rejected or failed
// an operation. The store's error text is preserved so the user sees what
// actually went wrong.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure: %v", e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err as a StorageError.
func NewStorageError(err error) *StorageError {
	return &StorageError{Err: err}
}

// IsStorage reports whether err is a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IdentityError carries a failure message passed through from the external
// identity gateway.
type IdentityError struct {
	Message string
}

func (e *IdentityError) Error() string {
	return e.Message
}

// NewIdentityError creates an IdentityError with the gateway's message.
func NewIdentityError(message string) *IdentityError {
	return &IdentityError{Message: message}
}

// IsIdentity reports whether err is an IdentityError.
func IsIdentity(err error) bool {
	var ie *IdentityError
	return errors.As(err, &ie)
}
