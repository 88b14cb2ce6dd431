package stores

import (
	"errors"
	"fmt"
)

// ErrorKind classifies store errors so callers can react without parsing
// driver messages.
type ErrorKind string

const (
	// KindDuplicateKey indicates an insert collided with an existing id.
	KindDuplicateKey ErrorKind = "duplicate_key"

	// KindFileNotFound indicates an import source is missing, not a regular
	// file, or not readable.
	KindFileNotFound ErrorKind = "file_not_found"

	// KindMalformedRow indicates an import row has fewer than five fields.
	KindMalformedRow ErrorKind = "malformed_row"
)

// StoreError is a classified store error with context.
type StoreError struct {
	// Kind is the error classification.
	Kind ErrorKind `json:"kind"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// ID is the record id involved, if any.
	ID string `json:"id,omitempty"`

	// Path is the import/export location involved, if any.
	Path string `json:"path,omitempty"`

	// Line is the 1-based CSV line of a malformed row.
	Line int `json:"line,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Sentinels for errors.Is comparisons. Only the Kind is compared.
var (
	ErrDuplicateKey = &StoreError{Kind: KindDuplicateKey}
	ErrFileNotFound = &StoreError{Kind: KindFileNotFound}
	ErrMalformedRow = &StoreError{Kind: KindMalformedRow}
)

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	switch {
	case e.ID != "":
		msg += fmt.Sprintf(" (id=%s)", e.ID)
	case e.Path != "" && e.Line > 0:
		msg += fmt.Sprintf(" (path=%s, line=%d)", e.Path, e.Line)
	case e.Path != "":
		msg += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewDuplicateKeyError creates a duplicate key error for id.
func NewDuplicateKeyError(id string, err error) *StoreError {
	return &StoreError{
		Kind:    KindDuplicateKey,
		Message: "record id already exists",
		ID:      id,
		Err:     err,
	}
}

// NewFileNotFoundError creates a file-not-found error for path.
func NewFileNotFoundError(path string, err error) *StoreError {
	return &StoreError{
		Kind:    KindFileNotFound,
		Message: "file not found or not readable",
		Path:    path,
		Err:     err,
	}
}

// NewMalformedRowError creates a malformed row error for line of path.
func NewMalformedRowError(path string, line, fields int) *StoreError {
	return &StoreError{
		Kind:    KindMalformedRow,
		Message: fmt.Sprintf("expected %d fields, got %d", len(Columns), fields),
		Path:    path,
		Line:    line,
	}
}

// KindOf returns the classification of err, or "" for unclassified errors.
func KindOf(err error) ErrorKind {
	var e *StoreError
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsDuplicateKey reports whether err is a duplicate key error.
func IsDuplicateKey(err error) bool {
	return KindOf(err) == KindDuplicateKey
}

// IsFileNotFound reports whether err is a file-not-found error.
func IsFileNotFound(err error) bool {
	return KindOf(err) == KindFileNotFound
}

// IsMalformedRow reports whether err is a malformed row error.
func IsMalformedRow(err error) bool {
	return KindOf(err) == KindMalformedRow
}
