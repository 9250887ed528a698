package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies failures for callers that map them to responses.
type ErrorKind string

const (
	InvalidIdentifier ErrorKind = "invalid_identifier"
	SourceUnavailable ErrorKind = "source_unavailable"
	EncodingNotFound  ErrorKind = "encoding_not_found"
	TransferError     ErrorKind = "transfer_error"
	MuxFailure        ErrorKind = "mux_failure"
)

// Error is a classified failure. Err keeps the underlying cause reachable for
// errors.Is and errors.As.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a classified error.
func E(kind ErrorKind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error with a formatted cause.
func Errorf(kind ErrorKind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: errors.Errorf(format, args...)}
}

// KindOf returns the outermost classification of err, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HasKind reports whether any error in the chain carries kind.
func HasKind(err error, kind ErrorKind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
