package domain

import "errors"

// Error kinds. Handlers map them to HTTP statuses with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("resource already exists")
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("not authorized")
)

// Error carries a caller-facing message on top of an error kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Caller-facing errors of the bookmark service.
var (
	ErrURLRequired      = newError(ErrValidation, "Please provide a URL")
	ErrQueryRequired    = newError(ErrValidation, "Please provide a search query")
	ErrBookmarkExists   = newError(ErrConflict, "Bookmark already exists")
	ErrBookmarkNotFound = newError(ErrNotFound, "Bookmark not found")
	ErrNotBookmarkOwner = newError(ErrUnauthorized, "Not authorized to delete this bookmark")
)

// Message returns the caller-facing message of err, or fallback when
// err is not a domain error.
func Message(err error, fallback string) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return fallback
}
