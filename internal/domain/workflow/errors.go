package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when a guard condition fails
	ErrGuardFailed = errors.New("guard condition failed")
)

// Kind tags an error with the name callers and the error field of a failed request use
type Kind string

const (
	KindPendingUpdateRequest   Kind = "PendingUpdateRequestError"
	KindMissingOrInvalidData   Kind = "MissingOrInvalidDataError"
	KindMethodNotDefined       Kind = "MethodNotDefinedError"
	KindMissingRevertData      Kind = "MissingRevertDataError"
	KindInvalidActor           Kind = "InvalidActorError"
	KindInvalidFieldTransition Kind = "InvalidFieldTransitionError"
	KindValidation             Kind = "ValidationError"
	KindPendingApproval        Kind = "PendingApprovalError"
	KindAlreadyProcessed       Kind = "AlreadyProcessedError"
	KindNotRevertible          Kind = "NotRevertibleError"
	KindNotLatestRequest       Kind = "NotLatestRequestError"
	KindNotFound               Kind = "NotFoundError"
	KindAuthorization          Kind = "AuthorizationError"
	KindInvalidPayload         Kind = "InvalidPayloadError"
	KindConflict               Kind = "ConflictError"
	KindInternal               Kind = "InternalError"
)

// Error is a tagged workflow error. Two errors match under errors.Is when their kinds match.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels carrying the default message for each kind
var (
	ErrPendingUpdateRequest   = &Error{Kind: KindPendingUpdateRequest, Message: "Can't proceed with the update. Previous update request needs to be processed"}
	ErrMissingOrInvalidData   = &Error{Kind: KindMissingOrInvalidData, Message: "Data is missing or invalid for the child row operation"}
	ErrMethodNotDefined       = &Error{Kind: KindMethodNotDefined, Message: "Field's method not defined for the target document"}
	ErrMissingRevertData      = &Error{Kind: KindMissingRevertData, Message: "Method does not return revert data. Make sure the function returns the relevant data"}
	ErrInvalidActor           = &Error{Kind: KindInvalidActor, Message: "Invalid actor"}
	ErrInvalidFieldTransition = &Error{Kind: KindInvalidFieldTransition, Message: "Invalid field transition"}
	ErrValidation             = &Error{Kind: KindValidation, Message: "Validation failed"}
	ErrPendingApproval        = &Error{Kind: KindPendingApproval, Message: "Update Request is Pending Approval"}
	ErrAlreadyProcessed       = &Error{Kind: KindAlreadyProcessed, Message: "Update Request processed. Create a new one for updates"}
	ErrNotRevertible          = &Error{Kind: KindNotRevertible, Message: "Only successful update requests can be reverted"}
	ErrNotLatestRequest       = &Error{Kind: KindNotLatestRequest, Message: "Update Request is not the latest successful request for the document"}
	ErrNotFound               = &Error{Kind: KindNotFound, Message: "Not found"}
	ErrAuthorization          = &Error{Kind: KindAuthorization, Message: "Not permitted"}
	ErrInvalidPayload         = &Error{Kind: KindInvalidPayload, Message: "Payload is not valid JSON"}
	ErrConflict               = &Error{Kind: KindConflict, Message: "Update Request was modified concurrently"}
)

// NewError creates a tagged error with a custom message
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags err with kind, keeping err in the chain
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NewInvalidActorError reports an approval or rejection by someone other than the approval party
func NewInvalidActorError(wrongActor, correctActor string) *Error {
	return NewError(KindInvalidActor, "Invalid Actor, must be %s; got %s instead", correctActor, wrongActor)
}

// NewInvalidFieldTransitionError reports an illegal value change detected by a field handler
func NewInvalidFieldTransitionError(transition string) *Error {
	return NewError(KindInvalidFieldTransition, "Can't transition to %s", transition)
}

// NewValidationError reports a rejected update request
func NewValidationError(format string, args ...interface{}) *Error {
	return NewError(KindValidation, format, args...)
}

// NewNotFoundError reports a missing document or request
func NewNotFoundError(what, id string) *Error {
	return NewError(KindNotFound, "%s %s not found", what, id)
}

// KindOf returns the tag of the first *Error in err's chain, or KindInternal
func KindOf(err error) Kind {
	var wfErr *Error
	if errors.As(err, &wfErr) {
		return wfErr.Kind
	}
	return KindInternal
}

// Describe renders err the way it is stored on a failed update request
func Describe(err error) string {
	return fmt.Sprintf("%s: %s", KindOf(err), err.Error())
}
