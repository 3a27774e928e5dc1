package recon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crestbooks/reconcile-backend/internal/infrastructure/storage"
)

func TestWorkflow_HappyPath(t *testing.T) {
	session := newSession()
	at := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, Complete(session, true, "accountant", at))
	assert.Equal(t, storage.ReconciliationCompleted, session.Status)
	assert.Equal(t, "accountant", session.CompletedBy)
	require.NotNil(t, session.CompletedAt)

	require.NoError(t, Review(session, "controller", at.Add(time.Hour)))
	assert.Equal(t, storage.ReconciliationReviewed, session.Status)
	assert.Equal(t, "controller", session.ReviewedBy)

	require.NoError(t, Approve(session, "cfo", at.Add(2*time.Hour)))
	assert.Equal(t, storage.ReconciliationApproved, session.Status)
	assert.Equal(t, "cfo", session.ApprovedBy)
	require.NotNil(t, session.ApprovedAt)
}

func TestWorkflow_CompleteRequiresBalance(t *testing.T) {
	session := newSession()

	err := Complete(session, false, "accountant", time.Now())
	assert.ErrorIs(t, err, ErrNotBalanced)

	// Failed completion leaves the session untouched
	assert.Equal(t, storage.ReconciliationInProgress, session.Status)
	assert.Empty(t, session.CompletedBy)
	assert.Nil(t, session.CompletedAt)
}

func TestWorkflow_NoSkippingStates(t *testing.T) {
	t.Run("review before complete", func(t *testing.T) {
		session := newSession()
		assert.ErrorIs(t, Review(session, "controller", time.Now()), ErrInvalidTransition)
		assert.Equal(t, storage.ReconciliationInProgress, session.Status)
	})

	t.Run("approve before review", func(t *testing.T) {
		session := newSession()
		require.NoError(t, Complete(session, true, "accountant", time.Now()))
		assert.ErrorIs(t, Approve(session, "cfo", time.Now()), ErrInvalidTransition)
		assert.Equal(t, storage.ReconciliationCompleted, session.Status)
	})

	t.Run("complete twice", func(t *testing.T) {
		session := newSession()
		require.NoError(t, Complete(session, true, "accountant", time.Now()))
		assert.ErrorIs(t, Complete(session, true, "accountant", time.Now()), ErrInvalidTransition)
	})
}

func TestWorkflow_Deletable(t *testing.T) {
	session := newSession()
	assert.NoError(t, EnsureDeletable(session))

	require.NoError(t, Complete(session, true, "a", time.Now()))
	assert.NoError(t, EnsureDeletable(session))

	require.NoError(t, Review(session, "b", time.Now()))
	assert.NoError(t, EnsureDeletable(session))

	require.NoError(t, Approve(session, "c", time.Now()))
	assert.ErrorIs(t, EnsureDeletable(session), ErrImmutable)
}

func TestWorkflow_MatchingOnlyWhileInProgress(t *testing.T) {
	session := newSession()
	assert.NoError(t, EnsureMatchable(session))

	require.NoError(t, Complete(session, true, "a", time.Now()))
	assert.ErrorIs(t, EnsureMatchable(session), ErrInvalidTransition)
}
