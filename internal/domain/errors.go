package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when an operation needs an identity and none was supplied.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the caller is not allowed to act on the quiz.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is the parent of every "entity absent" error.
	ErrNotFound = errors.New("not found")
	// ErrQuizNotFound indicates the quiz does not exist or is not visible to the caller.
	ErrQuizNotFound = fmt.Errorf("quiz %w", ErrNotFound)
	// ErrNoSubmission indicates the caller has not answered the quiz yet.
	ErrNoSubmission = fmt.Errorf("submission %w: you haven't taken this quiz yet", ErrNotFound)
	// ErrAlreadySubmitted is returned for a second answer set on the same quiz.
	ErrAlreadySubmitted = errors.New("you have already taken this quiz")
	// ErrPayloadTooLarge is returned when the request body exceeds the size limit.
	ErrPayloadTooLarge = errors.New("request body too large, maximum size is 10MB")
)

// ValidationError carries the human-readable reason a payload was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Invalid builds a ValidationError from a format string.
func Invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
