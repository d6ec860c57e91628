package ir

import (
	"errors"
	"fmt"
)

// RepositoryError is the error type returned across package boundaries.
// Callers classify it with the IsXxx helpers, which see through wrapping.
type RepositoryError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the node or property path involved, when there is one.
	Path string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes repository errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a path, identifier or workspace does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeAlreadyExists indicates the target of a create already exists.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// ErrCodeReferentialIntegrity indicates a strong reference would dangle.
	ErrCodeReferentialIntegrity ErrorCode = "REFERENTIAL_INTEGRITY"

	// ErrCodeFormat indicates malformed paths, identifiers, payloads or values.
	ErrCodeFormat ErrorCode = "FORMAT_ERROR"

	// ErrCodeInvalidQuery indicates a query that cannot be executed.
	ErrCodeInvalidQuery ErrorCode = "INVALID_QUERY"

	// ErrCodeNotImplemented indicates an operation this backend does not support.
	ErrCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// ErrCodeRepositoryUnavailable indicates the backend cannot be reached or
	// is missing its schema.
	ErrCodeRepositoryUnavailable ErrorCode = "REPOSITORY_UNAVAILABLE"

	// ErrCodeConstraintViolation indicates a node violates its type definition.
	ErrCodeConstraintViolation ErrorCode = "CONSTRAINT_VIOLATION"
)

// Error implements the error interface.
func (e *RepositoryError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg = fmt.Sprintf("%s (path=%s)", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RepositoryError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var re *RepositoryError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsNotFound reports whether err is a NOT_FOUND repository error.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsAlreadyExists reports whether err is an ALREADY_EXISTS repository error.
func IsAlreadyExists(err error) bool { return hasCode(err, ErrCodeAlreadyExists) }

// IsReferentialIntegrity reports whether err is a REFERENTIAL_INTEGRITY error.
func IsReferentialIntegrity(err error) bool { return hasCode(err, ErrCodeReferentialIntegrity) }

// IsFormatError reports whether err is a FORMAT_ERROR repository error.
func IsFormatError(err error) bool { return hasCode(err, ErrCodeFormat) }

// IsInvalidQuery reports whether err is an INVALID_QUERY repository error.
func IsInvalidQuery(err error) bool { return hasCode(err, ErrCodeInvalidQuery) }

// IsNotImplemented reports whether err is a NOT_IMPLEMENTED repository error.
func IsNotImplemented(err error) bool { return hasCode(err, ErrCodeNotImplemented) }

// IsRepositoryUnavailable reports whether err is a REPOSITORY_UNAVAILABLE error.
func IsRepositoryUnavailable(err error) bool { return hasCode(err, ErrCodeRepositoryUnavailable) }

// IsConstraintViolation reports whether err is a CONSTRAINT_VIOLATION error.
func IsConstraintViolation(err error) bool { return hasCode(err, ErrCodeConstraintViolation) }

// NewNotFoundError creates a NOT_FOUND error for path.
func NewNotFoundError(path, message string) *RepositoryError {
	return &RepositoryError{Code: ErrCodeNotFound, Message: message, Path: path}
}

// NewAlreadyExistsError creates an ALREADY_EXISTS error for path.
func NewAlreadyExistsError(path, message string) *RepositoryError {
	return &RepositoryError{Code: ErrCodeAlreadyExists, Message: message, Path: path}
}

// NewReferentialIntegrityError creates a REFERENTIAL_INTEGRITY error for path.
func NewReferentialIntegrityError(path, message string) *RepositoryError {
	return &RepositoryError{Code: ErrCodeReferentialIntegrity, Message: message, Path: path}
}

// NewFormatError creates a FORMAT_ERROR for path. Path may be empty.
func NewFormatError(path, message string) *RepositoryError {
	return &RepositoryError{Code: ErrCodeFormat, Message: message, Path: path}
}

// NewInvalidQueryError creates an INVALID_QUERY error.
func NewInvalidQueryError(message string) *RepositoryError {
	return &RepositoryError{Code: ErrCodeInvalidQuery, Message: message}
}

// NewNotImplementedError creates a NOT_IMPLEMENTED error naming the operation.
func NewNotImplementedError(operation string) *RepositoryError {
	return &RepositoryError{Code: ErrCodeNotImplemented, Message: operation + " is not implemented"}
}

// NewUnavailableError creates a REPOSITORY_UNAVAILABLE error wrapping cause.
func NewUnavailableError(message string, cause error) *RepositoryError {
	return &RepositoryError{Code: ErrCodeRepositoryUnavailable, Message: message, Err: cause}
}

// NewConstraintViolationError creates a CONSTRAINT_VIOLATION error for path.
func NewConstraintViolationError(path, message string) *RepositoryError {
	return &RepositoryError{Code: ErrCodeConstraintViolation, Message: message, Path: path}
}
