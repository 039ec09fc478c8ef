package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrMissingCredential = errors.New("missing credential")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrInvalidQuery      = errors.New("invalid query")
	ErrInvalidDocument   = errors.New("invalid document")
	ErrEmptyDocument     = errors.New("document has no content")
	ErrEmbeddingFailed   = errors.New("embedding failed")
	ErrGenerationFailed  = errors.New("generation failed")
	ErrSearchFailed      = errors.New("search failed")
	ErrStoreFailed       = errors.New("store failed")
	ErrUnsupportedSource = errors.New("unsupported source type")
)

// ValidationError carries a human readable reason for a rejected input.
type ValidationError struct {
	Kind   error
	Reason string
}

// NewValidationError builds a ValidationError of the given kind.
func NewValidationError(kind error, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string { return e.Kind.Error() + ": " + e.Reason }

func (e *ValidationError) Unwrap() error { return e.Kind }
