// Package apperr defines the error kinds the access-control engine reports.
// Gating denials (deadline expired, attempt limit, locked states) are
// expected business outcomes; callers branch on the kind rather than
// treating them as failures.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindForbidden
	KindDeadlineExpired
	KindAttemptLimitReached
	KindAlreadyLocked
	KindAlreadyUnlocked
	KindConflictingUpdate
	KindInvalidTransition
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindDeadlineExpired:
		return "deadline_expired"
	case KindAttemptLimitReached:
		return "attempt_limit_reached"
	case KindAlreadyLocked:
		return "already_locked"
	case KindAlreadyUnlocked:
		return "already_unlocked"
	case KindConflictingUpdate:
		return "conflicting_update"
	case KindInvalidTransition:
		return "invalid_transition"
	default:
		return "unknown"
	}
}

// MarshalJSON renders kinds as their string names so payload kinds match
// error-response kinds.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap keeps the cause reachable through errors.Is / errors.As.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return New(KindForbidden, format, args...)
}

func DeadlineExpired(format string, args ...interface{}) *Error {
	return New(KindDeadlineExpired, format, args...)
}

func AttemptLimitReached(format string, args ...interface{}) *Error {
	return New(KindAttemptLimitReached, format, args...)
}

func AlreadyLocked(format string, args ...interface{}) *Error {
	return New(KindAlreadyLocked, format, args...)
}

func AlreadyUnlocked(format string, args ...interface{}) *Error {
	return New(KindAlreadyUnlocked, format, args...)
}

func ConflictingUpdate(format string, args ...interface{}) *Error {
	return New(KindConflictingUpdate, format, args...)
}

func InvalidTransition(format string, args ...interface{}) *Error {
	return New(KindInvalidTransition, format, args...)
}

// KindOf reports the kind carried by err, or KindUnknown for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, k Kind) bool { return KindOf(err) == k }
