package workflow

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure kinds. Every typed error returned by the engine matches exactly one of
// these with errors.Is.
var (
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("not found")
	ErrInvalidState   = errors.New("invalid state")
	ErrAuthorization  = errors.New("not authorized")
	ErrTransientStore = errors.New("transient store error")
)

// Error carries a failure kind, a caller-facing message and an optional cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

func invalidStatef(format string, args ...any) error {
	return &Error{Kind: ErrInvalidState, Msg: fmt.Sprintf(format, args...)}
}

func unauthorizedf(format string, args ...any) error {
	return &Error{Kind: ErrAuthorization, Msg: fmt.Sprintf(format, args...)}
}

// Validationf builds a ValidationError outside the engine (HTTP decoding, signup).
func Validationf(format string, args ...any) error { return validationf(format, args...) }

// Unauthorizedf builds an AuthorizationError outside the engine.
func Unauthorizedf(format string, args ...any) error { return unauthorizedf(format, args...) }

// Conflictf builds an InvalidStateError outside the engine, for writes that
// collide with existing records.
func Conflictf(format string, args ...any) error { return invalidStatef(format, args...) }

// NotFoundf builds a NotFoundError outside the engine.
func NotFoundf(format string, args ...any) error { return notFoundf(format, args...) }

// KindError wraps err with the given kind.
func KindError(kind error, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// storeFailure wraps a storage error as TransientStoreError unless it already
// carries a workflow kind.
func storeFailure(msg string, err error) error {
	var werr *Error
	if errors.As(err, &werr) {
		return err
	}
	return &Error{Kind: ErrTransientStore, Msg: msg, Err: err}
}

// KindOf returns the failure kind of err, or nil for untyped errors.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrInvalidState, ErrAuthorization, ErrTransientStore} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// KindLabel is the metrics label for err's kind.
func KindLabel(err error) string {
	switch KindOf(err) {
	case ErrValidation:
		return "validation"
	case ErrNotFound:
		return "not_found"
	case ErrInvalidState:
		return "invalid_state"
	case ErrAuthorization:
		return "authorization"
	case ErrTransientStore:
		return "transient_store"
	}
	return "internal"
}

// HTTPStatus maps err to the status code the API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrInvalidState:
		return http.StatusConflict
	case ErrAuthorization:
		return http.StatusForbidden
	case ErrTransientStore:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
