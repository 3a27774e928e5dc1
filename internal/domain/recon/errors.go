// Package recon owns the mutable state of one reconciliation session: the
// matched/unmatched bookkeeping, the balance difference, and the approval
// workflow state machine.
package recon

import "errors"

// Business-rule violations. All are local validation failures returned
// synchronously to the caller; none are retried.
var (
	// ErrNotFound indicates a missing session, statement line, or transaction
	ErrNotFound = errors.New("not found")

	// ErrAlreadyMatched indicates a side already consumed by an active matched item
	ErrAlreadyMatched = errors.New("already matched")

	// ErrNotMatched indicates an unmatch attempt on a non-matched item
	ErrNotMatched = errors.New("not matched")

	// ErrNotBalanced indicates a completion attempt while the difference is non-zero
	ErrNotBalanced = errors.New("reconciliation not balanced")

	// ErrInvalidTransition indicates a lifecycle transition out of order
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrImmutable indicates a mutation attempt on an approved session
	ErrImmutable = errors.New("reconciliation approved and immutable")

	// ErrCrossAccount indicates a manual match referencing another account's transaction
	ErrCrossAccount = errors.New("transaction belongs to another account")
)
