package workflow

import "errors"

// Domain error taxonomy for the assignment workflow. Handlers map these
// onto HTTP statuses; services wrap them with context via %w so callers
// can still match with errors.Is.
var (
	// ErrInvalidState means a stored request state is outside the closed
	// enum. It indicates corrupt data, not a user mistake.
	ErrInvalidState = errors.New("invalid request state")

	// ErrTerminalState means the request is RECHAZADO and accepts no
	// further transition of any kind.
	ErrTerminalState = errors.New("request is in a terminal state")

	// ErrInvalidTransition means the outcome is not legal from the
	// current state (e.g. an instructor verdict on an unassigned request).
	ErrInvalidTransition = errors.New("transition not allowed from current state")

	// ErrActorNotAllowed means the actor's role cannot initiate the
	// requested outcome.
	ErrActorNotAllowed = errors.New("actor role not allowed for this operation")

	// ErrBlockedByInstructorRejection gates coordinator pre-approval when
	// the ledger holds an instructor-authored rejection marker.
	ErrBlockedByInstructorRejection = errors.New("pre-approval blocked by instructor rejection")

	// ErrValidation covers missing instructor, empty reason and other
	// request-shape problems caught before any side effect.
	ErrValidation = errors.New("validation failed")

	ErrEmptyContent   = errors.New("message content is empty")
	ErrContentTooLong = errors.New("message content exceeds maximum length")

	// ErrLimitBelowHeadroom rejects a capacity-limit edit that leaves less
	// than the mandatory headroom above current load.
	ErrLimitBelowHeadroom = errors.New("new limit is below assigned learners plus headroom")

	// ErrCapacityExhausted means the guarded increment found the
	// instructor already at their ceiling.
	ErrCapacityExhausted = errors.New("instructor has no remaining capacity")

	// ErrVersionConflict means another actor transitioned the request
	// after this client last read it.
	ErrVersionConflict = errors.New("request was modified concurrently")

	// ErrPartialFailure marks a transition whose persisted effects could
	// not be confirmed as one atomic unit and needs reconciliation.
	ErrPartialFailure = errors.New("transition partially applied")

	ErrRequestNotFound    = errors.New("request not found")
	ErrInstructorNotFound = errors.New("instructor not found")
)
