package assignment

import "errors"

// Kind classifies the expected, user-facing failures of the assignment
// workflow. Anything else coming out of the service is a storage fault.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindInvalidState Kind = "invalid_state"
	KindBadRequest   Kind = "bad_request"
	KindConflict     Kind = "conflict"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func notFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func forbidden(msg string) *Error    { return &Error{Kind: KindForbidden, Message: msg} }
func invalidState(msg string) *Error { return &Error{Kind: KindInvalidState, Message: msg} }
func badRequest(msg string) *Error   { return &Error{Kind: KindBadRequest, Message: msg} }
func conflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }

// AsError unwraps err into a workflow *Error, or nil for unexpected faults.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
