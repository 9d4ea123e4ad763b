package service

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-checkable class of a failed operation.
type Kind string

const (
	KindNotFound         Kind = "NotFound"
	KindAlreadyAssigned  Kind = "AlreadyAssigned"
	KindInvalidInput     Kind = "InvalidInput"
	KindNoPreviousMentor Kind = "NoPreviousMentor"
	KindEmptyRoster      Kind = "EmptyRoster"
	KindStoreUnavailable Kind = "StoreUnavailable"
)

// Sentinels for errors.Is. Any *Error matches the sentinel of its Kind.
var (
	ErrNotFound         = &Error{Kind: KindNotFound, Message: "not found"}
	ErrAlreadyAssigned  = &Error{Kind: KindAlreadyAssigned, Message: "already assigned"}
	ErrInvalidInput     = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrNoPreviousMentor = &Error{Kind: KindNoPreviousMentor, Message: "no previous mentor"}
	ErrEmptyRoster      = &Error{Kind: KindEmptyRoster, Message: "empty roster"}
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable, Message: "store unavailable"}
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	// Step names the write that failed in a multi-record operation.
	Step string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Step != "" {
		msg = fmt.Sprintf("%s (step %s)", msg, e.Step)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind carried by err, or "" when err is not a service error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func notFound(op, format string, args ...interface{}) *Error {
	return newError(KindNotFound, op, format, args...)
}

func invalidInput(op, format string, args ...interface{}) *Error {
	return newError(KindInvalidInput, op, format, args...)
}

func alreadyAssigned(op, format string, args ...interface{}) *Error {
	return newError(KindAlreadyAssigned, op, format, args...)
}

// storeUnavailable normalizes a raw store failure at the operation boundary.
func storeUnavailable(op, step string, err error) *Error {
	return &Error{
		Kind:    KindStoreUnavailable,
		Op:      op,
		Message: "record store is unavailable, please try again later",
		Step:    step,
		Err:     err,
	}
}
