package formadmin

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeInternal      ErrorType = "internal"
	ErrorTypeQuery         ErrorType = "query"
)

// AdminError is the error type returned by controllers, editors and stores.
type AdminError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Model   string         `json:"model,omitempty"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *AdminError) Error() string {
	if e.Model != "" && e.Field != "" {
		return fmt.Sprintf("[%s:%s] %s.%s: %s", e.Type, e.Code, e.Model, e.Field, e.Message)
	}
	if e.Model != "" {
		return fmt.Sprintf("[%s:%s] model %s: %s", e.Type, e.Code, e.Model, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("[%s:%s] field '%s': %s", e.Type, e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *AdminError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a single detail to an AdminError
func (e *AdminError) WithDetail(key string, value any) *AdminError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause adds a cause to an AdminError
func (e *AdminError) WithCause(cause error) *AdminError {
	e.Cause = cause
	return e
}

// WithField adds field context to an AdminError
func (e *AdminError) WithField(field string) *AdminError {
	e.Field = field
	return e
}

// WithModel adds model context to an AdminError
func (e *AdminError) WithModel(model string) *AdminError {
	e.Model = model
	return e
}

const (
	ErrCodeRecordNotFound      = "RECORD_NOT_FOUND"
	ErrCodeMissingIdentifier   = "MISSING_IDENTIFIER"
	ErrCodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	ErrCodeModelNotFound       = "MODEL_NOT_FOUND"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeConstraintViolation = "CONSTRAINT_VIOLATION"
	ErrCodeUploadFailed        = "UPLOAD_FAILED"
	ErrCodeQueryFailed         = "QUERY_FAILED"
	ErrCodeInvalidDefinition   = "INVALID_DEFINITION"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// NewAdminError creates a new AdminError
func NewAdminError(errorType ErrorType, code, message string) *AdminError {
	return &AdminError{
		Type:    errorType,
		Code:    code,
		Message: message,
	}
}

// NewRecordNotFoundError is returned when a record cannot be loaded by identifier.
func NewRecordNotFoundError(model string, id any) *AdminError {
	return &AdminError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeRecordNotFound,
		Message: fmt.Sprintf("record %v not found", id),
		Model:   model,
		Details: map[string]any{"id": id},
	}
}

// NewMissingIdentifierError is returned when an action requiring an identifier got none.
func NewMissingIdentifierError(model string) *AdminError {
	return &AdminError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeMissingIdentifier,
		Message: "identifier is required",
		Model:   model,
	}
}

// NewMethodNotAllowedError signals a request method the action does not serve.
// It is classified as not-found so the caller learns nothing about the route.
func NewMethodNotAllowedError(model, method string) *AdminError {
	return &AdminError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeMethodNotAllowed,
		Message: fmt.Sprintf("method %s not allowed", method),
		Model:   model,
	}
}

func NewModelNotFoundError(model string) *AdminError {
	return &AdminError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeModelNotFound,
		Message: "model is not registered",
		Model:   model,
	}
}

// NewValidationError is returned when the store rejects a record.
func NewValidationError(model, message string) *AdminError {
	return &AdminError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeValidationFailed,
		Message: message,
		Model:   model,
	}
}

func NewConstraintViolationError(model, constraint string, cause error) *AdminError {
	return &AdminError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeConstraintViolation,
		Message: "record violates a database constraint",
		Model:   model,
		Details: map[string]any{"constraint": constraint},
		Cause:   cause,
	}
}

func NewUploadError(model, field string, cause error) *AdminError {
	return &AdminError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeUploadFailed,
		Message: "failed to store uploaded file",
		Model:   model,
		Field:   field,
		Cause:   cause,
	}
}

func NewQueryError(model, message string, cause error) *AdminError {
	return &AdminError{
		Type:    ErrorTypeQuery,
		Code:    ErrCodeQueryFailed,
		Message: message,
		Model:   model,
		Cause:   cause,
	}
}

// NewDefinitionError reports a malformed model or field definition.
func NewDefinitionError(model, field, message string) *AdminError {
	return &AdminError{
		Type:    ErrorTypeConfiguration,
		Code:    ErrCodeInvalidDefinition,
		Message: message,
		Model:   model,
		Field:   field,
	}
}

func NewInternalError(message string, cause error) *AdminError {
	return &AdminError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeInternalError,
		Message: message,
		Cause:   cause,
	}
}

// IsNotFound reports whether err is, or wraps, a not-found AdminError.
func IsNotFound(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsValidation reports whether err is, or wraps, a validation AdminError.
func IsValidation(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsConfiguration reports whether err is, or wraps, a configuration AdminError.
func IsConfiguration(err error) bool {
	return hasType(err, ErrorTypeConfiguration)
}

func hasType(err error, t ErrorType) bool {
	var adminErr *AdminError
	if errors.As(err, &adminErr) {
		return adminErr.Type == t
	}
	return false
}
