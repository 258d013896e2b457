// Package errs defines the error taxonomy shared by the service layer and
// the HTTP surface.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAttached means no backing document resolved; the user must run
	// the build/setup flow first.
	ErrNotAttached = errors.New("no document attached: run Build Sheets first")

	// ErrLockTimeout means exclusive access could not be acquired in time.
	// Retryable.
	ErrLockTimeout = errors.New("could not acquire document lock in time")

	// ErrNoValidEntries means every submitted entry was dropped during
	// validation.
	ErrNoValidEntries = errors.New("no valid entries to log")

	// ErrNoMatch means the undo scan found no matching log row.
	ErrNoMatch = errors.New("no matching log entry found")
)

// LimitReachedError is a policy rejection: the student hit the daily
// bathroom trip cap. Not a bug, surfaced with the name and limit so the
// caller can format a message.
type LimitReachedError struct {
	Student string
	Limit   int
}

func (e *LimitReachedError) Error() string {
	return fmt.Sprintf("%s has already taken %d bathroom trips today", e.Student, e.Limit)
}

// NotFoundError means a scanned student id has no roster row.
type NotFoundError struct {
	StudentID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("student id %q not found in roster", e.StudentID)
}
