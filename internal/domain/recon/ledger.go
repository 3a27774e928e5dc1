package recon

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crestbooks/reconcile-backend/internal/infrastructure/storage"
)

// Ledger owns the session-scoped counters and the authoritative "what is
// matched" set for one reconciliation session. It mutates the session struct
// in memory; persistence is the caller's transactional responsibility.
type Ledger struct {
	session       *storage.BankReconciliation
	tolerance     decimal.Decimal
	consumedLines map[string]bool
	consumedTxns  map[string]bool
}

// NewLedger builds a ledger for the session, deriving the consumed sets from
// its existing active matched items.
func NewLedger(session *storage.BankReconciliation, items []storage.ReconciliationItem, tolerance decimal.Decimal) *Ledger {
	l := &Ledger{
		session:       session,
		tolerance:     tolerance,
		consumedLines: make(map[string]bool),
		consumedTxns:  make(map[string]bool),
	}
	for _, item := range items {
		if item.MatchType != storage.MatchTypeMatched {
			continue
		}
		if item.StatementLineID != nil {
			l.consumedLines[*item.StatementLineID] = true
		}
		if item.BookTransactionID != nil {
			l.consumedTxns[*item.BookTransactionID] = true
		}
	}
	return l
}

// Session returns the session this ledger mutates.
func (l *Ledger) Session() *storage.BankReconciliation {
	return l.session
}

// RecordMatch creates a matched item for the pair and updates counters and
// sums. Fails with ErrAlreadyMatched if either side is already consumed by an
// active matched item.
func (l *Ledger) RecordMatch(line storage.BankStatementLine, txn storage.BookTransaction,
	method storage.MatchMethod, confidence *float64, by string, at time.Time) (*storage.ReconciliationItem, error) {

	if l.consumedLines[line.ID] {
		return nil, fmt.Errorf("%w: statement line %s", ErrAlreadyMatched, line.ID)
	}
	if l.consumedTxns[txn.ID] || txn.IsReconciled {
		return nil, fmt.Errorf("%w: book transaction %s", ErrAlreadyMatched, txn.ID)
	}

	lineID, txnID := line.ID, txn.ID
	item := &storage.ReconciliationItem{
		ID:                uuid.NewString(),
		ReconciliationID:  l.session.ID,
		StatementLineID:   &lineID,
		BookTransactionID: &txnID,
		MatchType:         storage.MatchTypeMatched,
		MatchMethod:       method,
		MatchConfidence:   confidence,
		AmountDifference:  line.Amount.Sub(txn.Amount),
		IsCleared:         true,
		MatchedBy:         by,
		MatchedAt:         at,
	}

	l.consumedLines[line.ID] = true
	l.consumedTxns[txn.ID] = true

	s := l.session
	s.MatchedCount++
	s.UnmatchedBankCount--
	s.UnmatchedBookCount--
	s.MatchedAmount = s.MatchedAmount.Add(line.Amount)
	s.UnmatchedBankAmount = s.UnmatchedBankAmount.Sub(line.Amount)
	s.UnmatchedBookAmount = s.UnmatchedBookAmount.Sub(txn.Amount)
	// BookClosing is the cleared book balance: it advances as matches clear
	// book transactions, so the difference converges to zero as the
	// statement is accounted for.
	s.BookClosing = s.BookClosing.Add(txn.Amount)
	l.RecomputeDifference()

	return item, nil
}

// RecordUnmatch reverts a matched item, releasing both sides and restoring
// counters and sums. Fails with ErrNotMatched if the item is not of type
// matched.
func (l *Ledger) RecordUnmatch(item storage.ReconciliationItem, line storage.BankStatementLine, txn storage.BookTransaction) error {
	if item.MatchType != storage.MatchTypeMatched {
		return fmt.Errorf("%w: item %s has type %s", ErrNotMatched, item.ID, item.MatchType)
	}

	delete(l.consumedLines, line.ID)
	delete(l.consumedTxns, txn.ID)

	s := l.session
	s.MatchedCount--
	s.UnmatchedBankCount++
	s.UnmatchedBookCount++
	s.MatchedAmount = s.MatchedAmount.Sub(line.Amount)
	s.UnmatchedBankAmount = s.UnmatchedBankAmount.Add(line.Amount)
	s.UnmatchedBookAmount = s.UnmatchedBookAmount.Add(txn.Amount)
	s.BookClosing = s.BookClosing.Sub(txn.Amount)
	l.RecomputeDifference()

	return nil
}

// RecomputeDifference recalculates the difference from the four balance
// fields. Pure and idempotent:
//
//	difference = (statement_closing - statement_opening) - (book_closing - book_opening)
func (l *Ledger) RecomputeDifference() {
	s := l.session
	statementNet := s.StatementClosing.Sub(s.StatementOpening)
	bookNet := s.BookClosing.Sub(s.BookOpening)
	s.Difference = statementNet.Sub(bookNet)
}

// IsBalanced reports whether the difference is zero within the same rounding
// tolerance the scorer uses for amounts.
func (l *Ledger) IsBalanced() bool {
	return l.session.Difference.Abs().LessThanOrEqual(l.tolerance)
}
