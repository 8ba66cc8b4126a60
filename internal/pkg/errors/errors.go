package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code for each error type
type ErrorCode string

const (
	// General errors
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeBadRequest ErrorCode = "BAD_REQUEST"
	ErrCodeConflict   ErrorCode = "CONFLICT"

	// File processing errors
	ErrCodeInvalidFile    ErrorCode = "INVALID_FILE"
	ErrCodeFileTooLarge   ErrorCode = "FILE_TOO_LARGE"
	ErrCodeFileParseError ErrorCode = "FILE_PARSE_ERROR"
	ErrCodeMissingColumn  ErrorCode = "MISSING_COLUMN"
	ErrCodeDuplicateFile  ErrorCode = "DUPLICATE_FILE"

	// Pipeline preconditions
	ErrCodeCompanyNotFound ErrorCode = "COMPANY_NOT_FOUND"
	ErrCodeNoMappings      ErrorCode = "NO_MAPPINGS"
	ErrCodeNoTransactions  ErrorCode = "NO_TRANSACTIONS"

	// Classification errors
	ErrCodeInvalidCategory  ErrorCode = "INVALID_CATEGORY"
	ErrCodeClassifierFailed ErrorCode = "CLASSIFIER_FAILED"

	// Database errors
	ErrCodeDatabaseError  ErrorCode = "DATABASE_ERROR"
	ErrCodeRecordNotFound ErrorCode = "RECORD_NOT_FOUND"

	// Queue errors
	ErrCodeQueueError ErrorCode = "QUEUE_ERROR"
)

// Sentinel values for errors.Is checks. Matching is by code, so a wrapped
// or freshly constructed AppError with the same code also matches.
var (
	ErrCompanyNotFound = New(ErrCodeCompanyNotFound, "company not found", http.StatusNotFound)
	ErrNoMappings      = New(ErrCodeNoMappings, "no account mappings found, run the mapping step first", http.StatusConflict)
	ErrNoTransactions  = New(ErrCodeNoTransactions, "no transactions found", http.StatusConflict)
	ErrInvalidCategory = New(ErrCodeInvalidCategory, "invalid ESG category", http.StatusBadRequest)
)

// AppError represents a structured application error
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetails adds additional context to the error
func (e *AppError) WithDetails(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an existing error with AppError context
func Wrap(err error, code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// Common error constructors

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message, http.StatusInternalServerError)
}

func InternalWrap(err error, message string) *AppError {
	return Wrap(err, ErrCodeInternal, message, http.StatusInternalServerError)
}

func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message, http.StatusNotFound)
}

func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message, http.StatusConflict)
}

// File processing errors

func InvalidFile(message string) *AppError {
	return New(ErrCodeInvalidFile, message, http.StatusBadRequest)
}

func FileTooLarge(maxSize int64) *AppError {
	return New(ErrCodeFileTooLarge,
		fmt.Sprintf("file size exceeds maximum allowed size of %d MB", maxSize),
		http.StatusBadRequest)
}

func FileParseError(err error) *AppError {
	return Wrap(err, ErrCodeFileParseError, "could not parse CSV with any common delimiter", http.StatusUnprocessableEntity)
}

// MissingColumn reports a mandatory column that none of the accepted
// header spellings matched.
func MissingColumn(field string) *AppError {
	return New(ErrCodeMissingColumn,
		fmt.Sprintf("could not find %s column", field),
		http.StatusUnprocessableEntity).WithDetails("field", field)
}

// Pipeline preconditions

func CompanyNotFound(id string) *AppError {
	return New(ErrCodeCompanyNotFound, "company not found", http.StatusNotFound).
		WithDetails("company_id", id)
}

func InvalidCategory(value string) *AppError {
	return New(ErrCodeInvalidCategory,
		fmt.Sprintf("invalid ESG category: %q", value),
		http.StatusBadRequest)
}

func ClassifierFailed(err error) *AppError {
	return Wrap(err, ErrCodeClassifierFailed, "classification request failed", http.StatusBadGateway)
}

// Database errors

func DatabaseError(err error) *AppError {
	return Wrap(err, ErrCodeDatabaseError, "database operation failed", http.StatusInternalServerError)
}

func RecordNotFound(resource string) *AppError {
	return New(ErrCodeRecordNotFound,
		fmt.Sprintf("%s not found", resource),
		http.StatusNotFound)
}

func QueueError(err error) *AppError {
	return Wrap(err, ErrCodeQueueError, "task queue operation failed", http.StatusServiceUnavailable)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// StatusCode returns the HTTP status carried by err, or 500.
func StatusCode(err error) int {
	if appErr, ok := GetAppError(err); ok && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
