package services

import "errors"

type ErrorCode string

const (
	ErrorInvalid            ErrorCode = "invalid"
	ErrorInvalidRange       ErrorCode = "invalid_range"
	ErrorInvalidAnswer      ErrorCode = "invalid_answer"
	ErrorOutOfRange         ErrorCode = "out_of_range"
	ErrorNotFound           ErrorCode = "not_found"
	ErrorNoAssignment       ErrorCode = "no_assignment"
	ErrorConflict           ErrorCode = "conflict"
	ErrorAssignmentInactive ErrorCode = "assignment_inactive"
	ErrorAssignmentComplete ErrorCode = "assignment_complete"
	ErrorUnauthorized       ErrorCode = "unauthorized"
	ErrorForbidden          ErrorCode = "forbidden"
	ErrorStorage            ErrorCode = "storage"
)

// ServiceError carries a stable code for boundary translation. Err, when
// set, preserves the underlying cause for logs and errors.Is/As chains.
type ServiceError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error { return e.Err }

func NewInvalidError(msg string) error   { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewNotFoundError(msg string) error  { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error  { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewForbiddenError(msg string) error { return &ServiceError{Code: ErrorForbidden, Message: msg} }

func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func NewInvalidRangeError(msg string) error {
	return &ServiceError{Code: ErrorInvalidRange, Message: msg}
}

func NewInvalidAnswerError(msg string) error {
	return &ServiceError{Code: ErrorInvalidAnswer, Message: msg}
}

func NewOutOfRangeError(msg string) error {
	return &ServiceError{Code: ErrorOutOfRange, Message: msg}
}

func NewNoAssignmentError(msg string) error {
	return &ServiceError{Code: ErrorNoAssignment, Message: msg}
}

func NewAssignmentInactiveError(msg string) error {
	return &ServiceError{Code: ErrorAssignmentInactive, Message: msg}
}

func NewAssignmentCompleteError(msg string) error {
	return &ServiceError{Code: ErrorAssignmentComplete, Message: msg}
}

// NewStorageError wraps a store failure with the operation that hit it.
func NewStorageError(op string, err error) error {
	return &ServiceError{Code: ErrorStorage, Message: "error " + op, Err: err}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// CodeOf extracts the error code, defaulting to storage for untyped errors.
func CodeOf(err error) ErrorCode {
	if se, ok := AsServiceError(err); ok {
		return se.Code
	}
	return ErrorStorage
}
