package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeUnavailable       = "UNAVAILABLE"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyDocument        = NewDomainError(ErrCodeValidation, "document has no extractable text")
	ErrEmptyQuestion        = NewDomainError(ErrCodeValidation, "question is empty")
	ErrUnsupportedFormat    = NewDomainError(ErrCodeUnsupportedFormat, "unsupported document format")
)

var ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")

var ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")

// Infrastructure errors
var (
	ErrStorageNotConfigured = NewDomainError(ErrCodeUnavailable, "object storage not configured")
)
