package notification

import (
	"errors"
	"fmt"
)

// Validation errors, reported before any write.
var (
	ErrEmptyTitle         = errors.New("title must not be empty")
	ErrEmptyBody          = errors.New("body must not be empty")
	ErrUnknownCategory    = errors.New("unknown notification category")
	ErrNoBases            = errors.New("at least one base must be selected")
	ErrTooManyAttachments = errors.New("at most 3 attachments are allowed")
)

// Lookup errors.
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrRecipientNotFound    = errors.New("recipient delivery not found")
)

// IsValidationError reports whether err is a compose-time draft check failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyTitle) ||
		errors.Is(err, ErrEmptyBody) ||
		errors.Is(err, ErrUnknownCategory) ||
		errors.Is(err, ErrNoBases) ||
		errors.Is(err, ErrTooManyAttachments)
}

// ResolutionError marks a recipient-resolver query failure. A compose that
// hits one aborts with no writes performed.
type ResolutionError struct {
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("recipient resolution failed: %v", e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// PersistenceError marks a store insert/update failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
