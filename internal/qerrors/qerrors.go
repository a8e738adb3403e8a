package qerrors

import (
	"errors"
	"fmt"
)

var (
	// Store errors
	EntityNotFound       = errors.New("entity not found")
	TooMuchContention    = errors.New("transaction aborted after too many conflicting writes")
	RemoteUnavailableErr = errors.New("the service is temporarily unavailable, please try again")

	// Meeting errors
	MeetingNotFoundError = errors.New("meeting not found")
	AlreadyMemberError   = errors.New("you are already in this meeting")
	MeetingFullError     = errors.New("meeting is full")
	ForbiddenError       = errors.New("you are not allowed to do that")
	CreatorCannotLeave   = fmt.Errorf("%w: you cannot leave a meeting you've created, delete it instead", ForbiddenError)
	OnlyCreatorCanDelete = fmt.Errorf("%w: only the meeting creator can delete the meeting", ForbiddenError)

	// User errors
	UnauthenticatedError  = errors.New("you must be authenticated to access this resource")
	InvalidEmailError     = errors.New("please use a valid .edu email address")
	EmailNotVerifiedError = errors.New("please verify your email before logging in")
	UserNotFoundError     = errors.New("user not found")
	EmailExistsError      = errors.New("a user with that email address already exists")

	// Request errors
	InvalidBody = errors.New("the request body is not valid")
)

// ValidationError reports bad input on a single field. It is raised before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid is shorthand for a *ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// RemoteError is an infrastructure failure of the document store or the identity provider.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Is makes every RemoteError match RemoteUnavailableErr.
func (e *RemoteError) Is(target error) bool {
	return target == RemoteUnavailableErr
}

// Remote wraps err as a RemoteError unless it is nil or already one.
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return err
	}
	return &RemoteError{Op: op, Err: err}
}
