package storage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedAccount(t *testing.T, s *Storage) *Account {
	t.Helper()
	a := &Account{ID: "acct-1", Name: "Operating", Type: "asset", Balance: decimal.Zero}
	require.NoError(t, s.SaveAccount(a))
	return a
}

func seedStatement(t *testing.T, s *Storage) *BankStatement {
	t.Helper()
	st := &BankStatement{
		ID:             "stmt-1",
		AccountID:      "acct-1",
		PeriodStart:    date(2024, 3, 1),
		PeriodEnd:      date(2024, 3, 31),
		OpeningBalance: dec("1000.00"),
		ClosingBalance: dec("850.00"),
		Status:         StatementCompleted,
	}
	require.NoError(t, s.SaveStatement(st))
	return st
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestStatementRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	seedAccount(t, s)
	seedStatement(t, s)

	got, err := s.GetStatement("stmt-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StatementCompleted, got.Status)
	assert.True(t, got.OpeningBalance.Equal(dec("1000.00")))
	assert.Nil(t, got.ReconciliationID)

	missing, err := s.GetStatement("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListEligibleTransactions(t *testing.T) {
	s := newTestStorage(t)
	seedAccount(t, s)

	txns := []*BookTransaction{
		{ID: "txn-1", AccountID: "acct-1", TransactionDate: date(2024, 3, 5), Amount: dec("-150.00"), Status: TransactionCompleted},
		{ID: "txn-2", AccountID: "acct-1", TransactionDate: date(2024, 3, 10), Amount: dec("-20.00"), Status: TransactionPending},
		{ID: "txn-3", AccountID: "acct-1", TransactionDate: date(2024, 4, 2), Amount: dec("-30.00"), Status: TransactionCompleted},
		{ID: "txn-4", AccountID: "acct-1", TransactionDate: date(2024, 3, 7), Amount: dec("-40.00"), Status: TransactionCompleted, IsReconciled: true},
	}
	for _, txn := range txns {
		require.NoError(t, s.SaveTransaction(txn))
	}

	eligible, err := s.ListEligibleTransactions("acct-1", date(2024, 3, 1), date(2024, 3, 31))
	require.NoError(t, err)

	// Pending, out-of-period, and already reconciled are excluded
	require.Len(t, eligible, 1)
	assert.Equal(t, "txn-1", eligible[0].ID)
}

func TestSaveMatchIsAtomic(t *testing.T) {
	s := newTestStorage(t)
	seedAccount(t, s)
	st := seedStatement(t, s)

	line := &BankStatementLine{
		ID: "line-1", StatementID: st.ID,
		TransactionDate: date(2024, 3, 5), Amount: dec("-150.00"),
		Description: "Check 1021", ReferenceNumber: "CHK1021",
	}
	require.NoError(t, s.SaveStatementLine(line))

	txn := &BookTransaction{
		ID: "txn-1", AccountID: "acct-1",
		TransactionDate: date(2024, 3, 5), Amount: dec("-150.00"),
		Status: TransactionCompleted,
	}
	require.NoError(t, s.SaveTransaction(txn))

	session := &BankReconciliation{
		ID: "rec-1", AccountID: "acct-1", StatementID: st.ID,
		PeriodStart: st.PeriodStart, PeriodEnd: st.PeriodEnd,
		StatementOpening: st.OpeningBalance, StatementClosing: st.ClosingBalance,
		BookOpening: st.OpeningBalance, BookClosing: dec("850.00"),
		Difference: decimal.Zero, Status: ReconciliationInProgress,
		UnmatchedBankCount: 1, UnmatchedBookCount: 1,
	}
	require.NoError(t, s.CreateReconciliation(session))

	confidence := 95.0
	item := &ReconciliationItem{
		ID:                "item-1",
		ReconciliationID:  session.ID,
		StatementLineID:   &line.ID,
		BookTransactionID: &txn.ID,
		MatchType:         MatchTypeMatched,
		MatchMethod:       MatchMethodAuto,
		MatchConfidence:   &confidence,
		AmountDifference:  decimal.Zero,
		IsCleared:         true,
		MatchedBy:         "user-1",
		MatchedAt:         time.Now().UTC(),
	}
	session.MatchedCount = 1
	session.UnmatchedBankCount = 0
	session.UnmatchedBookCount = 0
	require.NoError(t, s.SaveMatch(item, session))

	gotTxn, err := s.GetTransaction("txn-1")
	require.NoError(t, err)
	assert.True(t, gotTxn.IsReconciled)
	require.NotNil(t, gotTxn.ReconciliationID)
	assert.Equal(t, "rec-1", *gotTxn.ReconciliationID)
	assert.Equal(t, "user-1", gotTxn.ReconciledBy)

	gotSession, err := s.GetReconciliation("rec-1")
	require.NoError(t, err)
	assert.Equal(t, 1, gotSession.MatchedCount)

	unmatched, err := s.ListUnmatchedStatementLines(st.ID, session.ID)
	require.NoError(t, err)
	assert.Empty(t, unmatched)

	// Unmatch reverts everything
	session.MatchedCount = 0
	session.UnmatchedBankCount = 1
	session.UnmatchedBookCount = 1
	require.NoError(t, s.DeleteMatch(item, session))

	gotTxn, err = s.GetTransaction("txn-1")
	require.NoError(t, err)
	assert.False(t, gotTxn.IsReconciled)
	assert.Nil(t, gotTxn.ReconciliationID)

	unmatched, err = s.ListUnmatchedStatementLines(st.ID, session.ID)
	require.NoError(t, err)
	require.Len(t, unmatched, 1)
	assert.Equal(t, "line-1", unmatched[0].ID)
}

func TestDeleteReconciliationCascades(t *testing.T) {
	s := newTestStorage(t)
	seedAccount(t, s)
	st := seedStatement(t, s)

	line := &BankStatementLine{ID: "line-1", StatementID: st.ID, TransactionDate: date(2024, 3, 5), Amount: dec("-150.00")}
	require.NoError(t, s.SaveStatementLine(line))
	txn := &BookTransaction{ID: "txn-1", AccountID: "acct-1", TransactionDate: date(2024, 3, 5), Amount: dec("-150.00"), Status: TransactionCompleted}
	require.NoError(t, s.SaveTransaction(txn))

	session := &BankReconciliation{
		ID: "rec-1", AccountID: "acct-1", StatementID: st.ID,
		PeriodStart: st.PeriodStart, PeriodEnd: st.PeriodEnd,
		Status: ReconciliationInProgress,
	}
	require.NoError(t, s.CreateReconciliation(session))
	require.NoError(t, s.CompleteReconciliation(session))

	item := &ReconciliationItem{
		ID: "item-1", ReconciliationID: session.ID,
		StatementLineID: &line.ID, BookTransactionID: &txn.ID,
		MatchType: MatchTypeMatched, MatchMethod: MatchMethodManual,
		AmountDifference: decimal.Zero, MatchedBy: "user-1", MatchedAt: time.Now().UTC(),
	}
	require.NoError(t, s.SaveMatch(item, session))

	require.NoError(t, s.DeleteReconciliation(session))

	gotSession, err := s.GetReconciliation("rec-1")
	require.NoError(t, err)
	assert.Nil(t, gotSession)

	gotItem, err := s.GetItem("item-1")
	require.NoError(t, err)
	assert.Nil(t, gotItem)

	gotTxn, err := s.GetTransaction("txn-1")
	require.NoError(t, err)
	assert.False(t, gotTxn.IsReconciled)

	gotStmt, err := s.GetStatement(st.ID)
	require.NoError(t, err)
	assert.Nil(t, gotStmt.ReconciliationID)
}

func TestCompleteReconciliationMarksStatement(t *testing.T) {
	s := newTestStorage(t)
	seedAccount(t, s)
	st := seedStatement(t, s)

	session := &BankReconciliation{
		ID: "rec-1", AccountID: "acct-1", StatementID: st.ID,
		PeriodStart: st.PeriodStart, PeriodEnd: st.PeriodEnd,
		Status: ReconciliationInProgress,
	}
	require.NoError(t, s.CreateReconciliation(session))

	session.Status = ReconciliationCompleted
	session.CompletedBy = "user-1"
	now := time.Now().UTC()
	session.CompletedAt = &now
	require.NoError(t, s.CompleteReconciliation(session))

	gotSession, err := s.GetReconciliation("rec-1")
	require.NoError(t, err)
	require.NotNil(t, gotSession)
	assert.Equal(t, ReconciliationCompleted, gotSession.Status)
	assert.Equal(t, "user-1", gotSession.CompletedBy)

	gotStmt, err := s.GetStatement(st.ID)
	require.NoError(t, err)
	require.NotNil(t, gotStmt.ReconciliationID)
	assert.Equal(t, "rec-1", *gotStmt.ReconciliationID)
}

func TestRecomputeAccountBalance(t *testing.T) {
	s := newTestStorage(t)
	seedAccount(t, s)

	require.NoError(t, s.SaveTransaction(&BookTransaction{
		ID: "txn-1", AccountID: "acct-1", TransactionDate: date(2024, 3, 5),
		Amount: dec("100.00"), Status: TransactionCompleted,
	}))
	require.NoError(t, s.SaveTransaction(&BookTransaction{
		ID: "txn-2", AccountID: "acct-1", TransactionDate: date(2024, 3, 6),
		Amount: dec("-30.50"), Status: TransactionCompleted,
	}))
	require.NoError(t, s.SaveTransaction(&BookTransaction{
		ID: "txn-3", AccountID: "acct-1", TransactionDate: date(2024, 3, 7),
		Amount: dec("-999.00"), Status: TransactionCancelled,
	}))

	require.NoError(t, s.RecomputeAccountBalance("acct-1"))

	a, err := s.GetAccount("acct-1")
	require.NoError(t, err)
	assert.True(t, a.Balance.Equal(dec("69.50")), "got %s", a.Balance)
}
