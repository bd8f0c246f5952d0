package publisher

import (
	"fmt"

	"github.com/pkg/errors"
)

// Postmark returns this code when a template id does not exist.
const PostmarkTemplateNotFound = 1101

type ErrorKind uint

const (
	KindNotFound ErrorKind = iota + 1
	KindRemote
	KindValidation
	KindIO
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindRemote:
		return "remote"
	case KindValidation:
		return "validation"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is returned for every failure the publisher distinguishes between.
// Validation and IO errors abort the run; NotFound and Remote errors only
// affect the template being published.
type Error struct {
	Kind ErrorKind

	// Field names the missing configuration key for validation errors.
	Field string
	// Path is the file involved in an IO error.
	Path string

	// Code and Message are reported by the remote service.
	Code    int
	Message string

	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindValidation:
		return fmt.Sprintf("Missing required property %q", e.Field)

	case KindIO:
		return fmt.Sprintf("%s: %v", e.Path, e.Err)

	case KindNotFound, KindRemote:
		if e.Message != "" {
			return e.Message
		}

		if e.Err != nil {
			return e.Err.Error()
		}

		return fmt.Sprintf("remote error code %d", e.Code)

	default:
		if e.Err != nil {
			return e.Err.Error()
		}

		return "unknown error"
	}
}

// Cause lets errors.Cause unwrap to the underlying failure.
func (e *Error) Cause() error {
	return e.Err
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewValidationError(field string) error {
	return &Error{Kind: KindValidation, Field: field}
}

func NewIOError(path string, err error) error {
	return &Error{Kind: KindIO, Path: path, Err: err}
}

// NewRemoteError classifies an error reported by the remote service.
func NewRemoteError(code int, message string) error {
	kind := KindRemote
	if code == PostmarkTemplateNotFound {
		kind = KindNotFound
	}

	return &Error{Kind: kind, Code: code, Message: message}
}

func NewNotFoundError(message string, err error) error {
	return &Error{Kind: KindNotFound, Message: message, Err: err}
}

// AsError finds the first *Error in the chain of err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}

	return nil, false
}

func IsNotFound(err error) bool {
	e, ok := AsError(err)
	return ok && e.Kind == KindNotFound
}

// IsFatal reports whether err must abort the whole run. Errors that are
// not *Error are treated as remote failures.
func IsFatal(err error) bool {
	e, ok := AsError(err)
	return ok && (e.Kind == KindValidation || e.Kind == KindIO)
}
