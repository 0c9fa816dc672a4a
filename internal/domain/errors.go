package domain

import (
	"errors"
	"net/http"
)

// ErrorKind classifies application errors so that a single responder can map
// them to HTTP statuses.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindForbidden
	KindUnauthenticated
)

var errorKindHTTPStatus = map[ErrorKind]int{
	KindInternal:        http.StatusInternalServerError,
	KindValidation:      http.StatusBadRequest,
	KindConflict:        http.StatusBadRequest,
	KindNotFound:        http.StatusNotFound,
	KindForbidden:       http.StatusForbidden,
	KindUnauthenticated: http.StatusUnauthorized,
}

var errorKindName = map[ErrorKind]string{
	KindInternal:        "internal",
	KindValidation:      "validation",
	KindConflict:        "conflict",
	KindNotFound:        "not_found",
	KindForbidden:       "forbidden",
	KindUnauthenticated: "unauthenticated",
}

// HTTPStatus returns the response status for the kind.
func (k ErrorKind) HTTPStatus() int {
	if status, ok := errorKindHTTPStatus[k]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func (k ErrorKind) String() string {
	if name, ok := errorKindName[k]; ok {
		return name
	}
	return "internal"
}

// Error is an expected, client-facing failure. Message is safe to return to
// the caller; Err is kept for logs only.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func NewValidation(message string) *Error      { return newError(KindValidation, message) }
func NewConflict(message string) *Error        { return newError(KindConflict, message) }
func NewNotFound(message string) *Error        { return newError(KindNotFound, message) }
func NewForbidden(message string) *Error       { return newError(KindForbidden, message) }
func NewUnauthenticated(message string) *Error { return newError(KindUnauthenticated, message) }

// Wrap attaches a cause to an application error.
func Wrap(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) ErrorKind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
