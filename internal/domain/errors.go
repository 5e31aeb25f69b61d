package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers that map errors to responses.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindStore
	KindAuthentication
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindStore:
		return "store"
	case KindAuthentication:
		return "authentication"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrValidation     = &Error{Kind: KindValidation, Msg: "validation failed"}
	ErrConflict       = &Error{Kind: KindConflict, Msg: "not enough rooms available"}
	ErrStore          = &Error{Kind: KindStore, Msg: "store failure"}
	ErrAuthentication = &Error{Kind: KindAuthentication, Msg: "authentication required"}
)

type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func Authentication(msg string) error {
	return &Error{Kind: KindAuthentication, Msg: msg}
}

// StoreFailure wraps cause as a store failure. A cause that already carries
// a kind is returned unchanged.
func StoreFailure(msg string, cause error) error {
	var e *Error
	if errors.As(cause, &e) {
		return cause
	}
	return &Error{Kind: KindStore, Msg: msg, Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or zero.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
