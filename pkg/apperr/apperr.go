// Package apperr is the error taxonomy shared by the booking, event and approval services.
//
// Domain packages declare sentinel errors with New and compare them with errors.Is. A sentinel can
// carry the error that caused it (WithCause), which keeps the cause visible to errors.Is while the
// sentinel identity stays stable. Transport code turns any error into a status with HTTPStatus.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	NotFound
	Validation
	Conflict
	PermissionDenied
	ConfigFault
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Validation:
		return "validation"
	case Conflict:
		return "conflict"
	case PermissionDenied:
		return "permission_denied"
	case ConfigFault:
		return "config_fault"
	case Unavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

type Error struct {
	Kind  Kind
	Code  string
	Msg   string
	cause error
}

func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Msg + ": " + e.cause.Error()
	}
	return e.Msg
}

// Is matches on Code so a sentinel still matches after WithCause copied it.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *Error) Unwrap() error { return e.cause }

// WithCause returns a copy of e wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	c := *e
	c.cause = cause
	return &c
}

// KindOf reports the kind of the outermost *Error in err's chain, Internal if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// CodeOf reports the code of the outermost *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "INTERNAL"
}

// HasKind reports whether any *Error in err's chain has kind k.
func HasKind(err error, k Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == k {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// HTTPStatus maps err to a response status. An Unavailable anywhere in the chain wins over the
// outer kind so a dependency outage is never reported as a client mistake.
func HTTPStatus(err error) int {
	if HasKind(err, Unavailable) {
		return http.StatusServiceUnavailable
	}
	switch KindOf(err) {
	case NotFound:
		return http.StatusNotFound
	case Validation:
		return http.StatusBadRequest
	case Conflict:
		return http.StatusConflict
	case PermissionDenied:
		return http.StatusForbidden
	case Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the message safe to send to a caller. Config faults and internal errors are
// flattened so configuration gaps and driver errors never reach clients.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal error"
	}
	switch e.Kind {
	case ConfigFault, Internal:
		return "internal error"
	}
	if HasKind(err, Unavailable) {
		return e.Msg + ": dependency unavailable, try again later"
	}
	return e.Msg
}
