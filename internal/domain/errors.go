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
		Err:     nil,
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
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeRetrievalFailed = "RETRIEVAL_FAILED"
	ErrCodeGenerationFail  = "GENERATION_FAILED"
	ErrCodeTicketFailed    = "TICKET_FAILED"
	ErrCodeNotifyFailed    = "NOTIFY_FAILED"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query cannot be empty")
	ErrEmptyEmailBody       = NewDomainError(ErrCodeValidation, "email body is empty or too short")
	ErrSenderNotAllowed     = NewDomainError(ErrCodeValidation, "sender is not in the allowed list")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrTicketNotFound   = NewDomainError(ErrCodeNotFound, "ticket not found")
)

// Pipeline errors
var (
	ErrRetrievalFailed      = NewDomainError(ErrCodeRetrievalFailed, "knowledge retrieval failed")
	ErrGenerationFailed     = NewDomainError(ErrCodeGenerationFail, "incident summary generation failed")
	ErrTicketCreationFailed = NewDomainError(ErrCodeTicketFailed, "ticket creation failed")
	ErrNotificationFailed   = NewDomainError(ErrCodeNotifyFailed, "notification delivery failed")
)
