package pkg

import (
	"errors"
	"fmt"
	"net/http"
)

// Custom error types
var (
	// Authentication errors
	ErrInvalidCredentials = NewAppError("INVALID_CREDENTIALS", "Invalid email or password", http.StatusUnauthorized)
	ErrInvalidToken       = NewAppError("INVALID_TOKEN", "Invalid or expired token", http.StatusUnauthorized)
	ErrTokenExpired       = NewAppError("TOKEN_EXPIRED", "Token has expired", http.StatusUnauthorized)
	ErrSessionNotFound    = NewAppError("SESSION_NOT_FOUND", "Session not found or expired", http.StatusUnauthorized)
	ErrAccountSuspended   = NewAppError("ACCOUNT_SUSPENDED", "Account has been suspended", http.StatusForbidden)

	// Authorization errors
	ErrForbidden               = NewAppError("FORBIDDEN", "Access denied", http.StatusForbidden)
	ErrInsufficientPermissions = NewAppError("INSUFFICIENT_PERMISSIONS", "Insufficient permissions", http.StatusForbidden)

	// User errors
	ErrUserNotFound      = NewAppError("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	ErrUserAlreadyExists = NewAppError("USER_ALREADY_EXISTS", "User already exists", http.StatusConflict)

	// Node errors
	ErrNodeNotFound      = NewAppError("NODE_NOT_FOUND", "File or folder not found", http.StatusNotFound)
	ErrInvalidParent     = NewAppError("INVALID_PARENT", "Parent is not an existing folder", http.StatusBadRequest)
	ErrNodeAlreadyExists = NewAppError("NODE_ALREADY_EXISTS", "A sibling with this name already exists", http.StatusConflict)
	ErrRootImmutable     = NewAppError("ROOT_IMMUTABLE", "The root folder cannot be deleted", http.StatusForbidden)
	ErrNodeNotDeleted    = NewAppError("NODE_NOT_DELETED", "File or folder is not in the trash", http.StatusBadRequest)

	// Storage errors
	ErrStorageQuotaExceeded = NewAppError("STORAGE_QUOTA_EXCEEDED", "Storage quota exceeded", http.StatusPaymentRequired)
	ErrStorageNotFound      = NewAppError("STORAGE_NOT_FOUND", "Storage ledger not found", http.StatusNotFound)
	ErrStorageProviderError = NewAppError("STORAGE_PROVIDER_ERROR", "Storage provider error", http.StatusInternalServerError)

	// Permission errors
	ErrPermissionNotFound = NewAppError("PERMISSION_NOT_FOUND", "Permission not found", http.StatusNotFound)

	// Settings errors
	ErrSettingNotFound = NewAppError("SETTING_NOT_FOUND", "Setting not found", http.StatusNotFound)

	// Validation errors
	ErrValidationFailed = NewAppError("VALIDATION_FAILED", "Validation failed", http.StatusBadRequest)
	ErrInvalidInput     = NewAppError("INVALID_INPUT", "Invalid input data", http.StatusBadRequest)

	// System errors
	ErrInternalServer = NewAppError("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
	ErrDatabaseError  = NewAppError("DATABASE_ERROR", "Database error", http.StatusInternalServerError)
)

// AppError represents an application-specific error
type AppError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %s)", e.Code, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is makes sentinel comparisons stable across WithCause/WithDetails copies.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

// WithDetails returns a copy of the error carrying details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// WithCause returns a copy of the error carrying a cause
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// NewAppError creates a new application error
func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// ValidationError represents a single failed validation
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", ve[0].Message)
}

// IsAppError checks if error is an AppError
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// WrapError wraps an error with an AppError
func WrapError(err error, code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      err,
	}
}
