// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"errors"
	"fmt"

	"github.com/pdiddy/pdf-organizer/internal/document"
	"github.com/pdiddy/pdf-organizer/internal/oplog"
)

// Sentinel errors for session operations.
var (
	// ErrNoDocument is returned when an action needs a loaded document.
	ErrNoDocument = errors.New("no document loaded")

	// ErrSubmitInFlight is wrapped by every ConcurrencyError.
	ErrSubmitInFlight = errors.New("a submission is already in flight")

	// ErrSuperseded is returned by a load whose result arrived after a newer
	// load or reset started. The stale result is discarded.
	ErrSuperseded = errors.New("load superseded by a newer document")

	// ErrInvalidTransition means the status machine refused an event.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// LoadError reports unreadable or corrupt document bytes.
type LoadError = document.LoadError

// ValidationError reports an operation rejected before it reached the log.
type ValidationError = oplog.ValidationError

// ConcurrencyError reports an action refused because a submission is in
// flight. It has no side effect on the session.
type ConcurrencyError struct {
	// Action is the refused action: load, mark, reset, or submit.
	Action string
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("cannot %s: %v", e.Action, ErrSubmitInFlight)
}

func (e *ConcurrencyError) Unwrap() error { return ErrSubmitInFlight }

// SubmissionError reports a failed exchange with the remote processor. The
// operation log and document are kept so the submission can be retried.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }
