package domain

import (
	"errors"
	"net/http"
)

// Error codes for business logic errors.
const (
	CodeNotFound     = 1
	CodeDuplicateKey = 2
	CodeValidation   = 3
	CodeStorage      = 4
)

// AppError represents a business logic error with a code, message, and optional wrapped error.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped error for use with errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined business errors.
//
// Match them with the Is* helpers rather than errors.Is: the helpers compare
// codes, so freshly built errors from NewAppError match as well.
var (
	ErrNotFound     = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrDuplicateKey = &AppError{Code: CodeDuplicateKey, Message: "duplicate key"}
	ErrValidation   = &AppError{Code: CodeValidation, Message: "validation error"}
	ErrStorage      = &AppError{Code: CodeStorage, Message: "storage error"}
)

// NewAppError creates a new AppError with the given code, message, and wrapped error.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsNotFound reports whether err is or wraps an AppError with CodeNotFound.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsDuplicateKey reports whether err is or wraps an AppError with CodeDuplicateKey.
func IsDuplicateKey(err error) bool {
	return hasCode(err, CodeDuplicateKey)
}

// IsValidation reports whether err is or wraps an AppError with CodeValidation.
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsStorage reports whether err is or wraps an AppError with CodeStorage.
func IsStorage(err error) bool {
	return hasCode(err, CodeStorage)
}

func hasCode(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// HTTPStatusCode maps an error to an HTTP status code.
// Errors that are not an *AppError map to http.StatusInternalServerError.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if err != nil && errors.As(err, &appErr) {
		switch appErr.Code {
		case CodeNotFound:
			return http.StatusNotFound
		case CodeDuplicateKey:
			return http.StatusConflict
		case CodeValidation:
			return http.StatusBadRequest
		case CodeStorage:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
