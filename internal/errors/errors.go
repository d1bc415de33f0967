package errors

import (
	"errors"
)

// Sentinel errors for different categories
var (
	// ErrValidation - malformed input to a mutation (reject synchronously, no state change)
	ErrValidation = errors.New("validation error")

	// ErrNotFound - action/source/template id unresolvable (reject synchronously, no state change)
	ErrNotFound = errors.New("not found")

	// ErrStateConflict - confirming/rejecting a non-pending action (reject synchronously, no state change)
	ErrStateConflict = errors.New("state conflict")

	// ErrCollaborator - feed/delivery/external API unreachable or erroring (isolate per source, degrade)
	ErrCollaborator = errors.New("collaborator failure")

	// ErrPersistence - store write failed (fatal for the request, in-memory may diverge from disk)
	ErrPersistence = errors.New("persistence failure")

	// ErrInternal - anything else; request scoped, never fatal for the process
	ErrInternal = errors.New("internal error")
)
