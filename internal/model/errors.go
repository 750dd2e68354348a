// Package model holds the domain types shared by every component of the
// orchestrator: work items, organizational entities, and the error kinds
// the core raises.
package model

import (
	"errors"
	"fmt"
)

// ErrKind is a stable, user-facing error classification. Every error the
// core surfaces carries one of these so callers can branch on kind instead
// of parsing messages.
type ErrKind string

const (
	ErrNotFound                ErrKind = "NotFound"
	ErrValidation              ErrKind = "ValidationError"
	ErrIntegrity               ErrKind = "IntegrityError"
	ErrConflict                ErrKind = "ConflictError"
	ErrBusy                    ErrKind = "Busy"
	ErrLimitExceeded           ErrKind = "LimitExceeded"
	ErrMissingMilestone        ErrKind = "MissingMilestone"
	ErrUnknownTheme            ErrKind = "UnknownTheme"
	ErrUnknownFlowReference    ErrKind = "UnknownFlowReference"
	ErrStateTransitionForbidden ErrKind = "StateTransitionForbidden"
	ErrConcurrentTask          ErrKind = "ConcurrentTask"
	ErrGitDirty                ErrKind = "GitDirty"
	ErrMergeConflict           ErrKind = "MergeConflict"
	ErrReconciliationRequired  ErrKind = "ReconciliationRequired"
	ErrSessionExpired          ErrKind = "SessionExpired"
)

// Error is the structured error every core operation returns on failure.
// It carries a stable Kind, a short human-readable Message, a Details
// payload for programmatic consumers, and an optional Suggestion — the
// "recoverable errors include a suggested next step" contract from spec §7.
type Error struct {
	Kind       ErrKind
	Message    string
	Details    map[string]any
	Suggestion []string
	cause      error
}

func (e *Error) Error() string {
	if e.Suggestion != nil {
		return fmt.Sprintf("%s: %s (try: %v)", e.Kind, e.Message, e.Suggestion)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error with the given kind and message.
func New(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error that wraps an underlying cause, preserving it for
// errors.Is/errors.As while still exposing a stable Kind to callers.
func Wrap(kind ErrKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// WithDetails attaches a structured details payload and returns the error
// for chaining.
func (e *Error) WithDetails(d map[string]any) *Error {
	e.Details = d
	return e
}

// WithSuggestion attaches suggested next steps and returns the error for
// chaining — used for LimitExceeded's four resolutions, among others.
func (e *Error) WithSuggestion(steps ...string) *Error {
	e.Suggestion = steps
	return e
}

// AsError unwraps err looking for a *Error, the form every tool handler
// uses to decide between a structured ErrorResult and a raw RPC failure.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// LimitExceededResolutions are the four advisory resolutions spec.md §4.2
// requires every sidequest LimitExceeded error to carry.
var LimitExceededResolutions = []string{"wait", "modify_existing", "replace", "raise_limit"}
