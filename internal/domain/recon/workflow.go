package recon

import (
	"fmt"
	"time"

	"github.com/crestbooks/reconcile-backend/internal/infrastructure/storage"
)

// The lifecycle moves strictly forward:
//
//	in_progress -> completed -> reviewed -> approved
//
// No transition skips a state and none reverses. Callers must re-load the
// session under the session lock immediately before invoking a transition so
// guards never act on a stale status.

// Complete transitions in_progress -> completed. The session must be
// balanced; otherwise it stays in_progress and ErrNotBalanced is returned.
func Complete(session *storage.BankReconciliation, balanced bool, by string, at time.Time) error {
	if session.Status != storage.ReconciliationInProgress {
		return transitionErr(session.Status, storage.ReconciliationCompleted)
	}
	if !balanced {
		return fmt.Errorf("%w: difference is %s", ErrNotBalanced, session.Difference.String())
	}
	session.Status = storage.ReconciliationCompleted
	session.CompletedBy = by
	session.CompletedAt = &at
	return nil
}

// Review transitions completed -> reviewed, recording the reviewer.
func Review(session *storage.BankReconciliation, by string, at time.Time) error {
	if session.Status != storage.ReconciliationCompleted {
		return transitionErr(session.Status, storage.ReconciliationReviewed)
	}
	session.Status = storage.ReconciliationReviewed
	session.ReviewedBy = by
	session.ReviewedAt = &at
	return nil
}

// Approve transitions reviewed -> approved, the terminal state.
func Approve(session *storage.BankReconciliation, by string, at time.Time) error {
	if session.Status != storage.ReconciliationReviewed {
		return transitionErr(session.Status, storage.ReconciliationApproved)
	}
	session.Status = storage.ReconciliationApproved
	session.ApprovedBy = by
	session.ApprovedAt = &at
	return nil
}

// EnsureDeletable fails with ErrImmutable if the session is approved.
// Deletion is permitted in every earlier state.
func EnsureDeletable(session *storage.BankReconciliation) error {
	if session.Status == storage.ReconciliationApproved {
		return fmt.Errorf("%w: cannot delete", ErrImmutable)
	}
	return nil
}

// EnsureMatchable fails with ErrInvalidTransition unless the session is
// still in_progress. Once a session completes, its matched set is frozen
// unless the session is deleted.
func EnsureMatchable(session *storage.BankReconciliation) error {
	if session.Status != storage.ReconciliationInProgress {
		return fmt.Errorf("%w: session is %s, matching requires in_progress", ErrInvalidTransition, session.Status)
	}
	return nil
}

func transitionErr(from, to storage.ReconciliationStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
