// Package apperr is the error taxonomy shared by every funnel module. The
// HTTP layer turns a Kind into a status code; everything else is 500.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure by who has to act on it.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound: the named record does not exist in the CRM.
	KindNotFound
	// KindValidation: the caller sent something we refuse to act on.
	KindValidation
	// KindConflict: the request contradicts current state, e.g. an invoice
	// that is already paid.
	KindConflict
	// KindUpstream: the CRM, pricing engine or payment gateway failed on a
	// step the request cannot complete without.
	KindUpstream
)

var kindNames = map[Kind]string{
	KindUnknown:    "unknown",
	KindNotFound:   "not_found",
	KindValidation: "validation",
	KindConflict:   "conflict",
	KindUpstream:   "upstream",
}

func (k Kind) String() string { return kindNames[k] }

// Error carries a client-safe Message; Err stays server side.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	Details any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the kind to the response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func NotFound(message string) *Error { return &Error{Kind: KindNotFound, Message: message} }

func Validation(message string) *Error { return &Error{Kind: KindValidation, Message: message} }

func Conflict(message string) *Error { return &Error{Kind: KindConflict, Message: message} }

// Upstream wraps a collaborator failure that aborts the request.
func Upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
