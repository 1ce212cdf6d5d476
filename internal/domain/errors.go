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
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeConfig           = "CONFIG_ERROR"
	ErrCodeCollaborator     = "COLLABORATOR_ERROR"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Input errors
var (
	ErrDimensionMismatch = NewDomainError(ErrCodeValidation, "embedding dimensions do not match configured dimensionality")
	ErrEmptyEmbedding    = NewDomainError(ErrCodeValidation, "embedding is empty")
	ErrEmptySourceText   = NewDomainError(ErrCodeValidation, "source text is empty")
	ErrInvalidFolderPath = NewDomainError(ErrCodeValidation, "folder path is invalid")
	ErrFolderTooDeep     = NewDomainError(ErrCodeValidation, "folder path exceeds maximum depth")
)

// Not found errors
var (
	ErrArtifactNotFound = NewDomainError(ErrCodeNotFound, "artifact not found")
	ErrFolderNotFound   = NewDomainError(ErrCodeNotFound, "folder not found")
)

// Already exists errors
var (
	ErrFolderAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "folder already exists")
)

// Configuration errors
var (
	ErrThresholdOrder = NewDomainError(ErrCodeConfig, "routing thresholds must satisfy newTopic < lowConfidence <= highConfidence")
)

// Collaborator errors
var (
	ErrDistillationFailed = NewDomainError(ErrCodeCollaborator, "distillation call failed")
	ErrEmbeddingFailed    = NewDomainError(ErrCodeCollaborator, "embedding call failed")
)

// Operation errors
var (
	ErrMergeGroupTooSmall  = NewDomainError(ErrCodeInvalidOperation, "merge group must contain at least two artifacts")
	ErrArtifactNotInFolder = NewDomainError(ErrCodeInvalidOperation, "artifact is not a member of the folder")
	ErrInvalidAPIKey       = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)
