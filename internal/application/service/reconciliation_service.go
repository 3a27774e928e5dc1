// Package service wires the matching engine, the session ledger, and the
// workflow to the storage layer. All operations are synchronous
// request/response; every mutating operation on a session is serialized by a
// per-session lock.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crestbooks/reconcile-backend/internal/domain/match"
	"github.com/crestbooks/reconcile-backend/internal/domain/recon"
	"github.com/crestbooks/reconcile-backend/internal/infrastructure/storage"
)

// ReconciliationService is the orchestration facade over the reconciliation
// engine. Acting user IDs are threaded explicitly into every call; there is
// no ambient identity state.
type ReconciliationService struct {
	repo      storage.Repository
	matcher   *match.AutoMatcher
	tolerance decimal.Decimal
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewReconciliationService creates the service with the given matching config.
func NewReconciliationService(repo storage.Repository, cfg match.Config, logger *slog.Logger) *ReconciliationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconciliationService{
		repo:      repo,
		matcher:   match.NewAutoMatcher(cfg),
		tolerance: cfg.AmountTolerance,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the mutex serializing mutations of one session,
// creating it on first use.
func (s *ReconciliationService) sessionLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// Create starts a reconciliation session for a completed, not-yet-reconciled
// statement. Balances and counters are seeded from the statement and the
// eligible book transactions of the period.
func (s *ReconciliationService) Create(ctx context.Context, accountID, statementID, createdBy string) (*storage.BankReconciliation, error) {
	account, err := s.repo.GetAccount(accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("%w: account %s", recon.ErrNotFound, accountID)
	}

	stmt, err := s.repo.GetStatement(statementID)
	if err != nil {
		return nil, err
	}
	if stmt == nil {
		return nil, fmt.Errorf("%w: statement %s", recon.ErrNotFound, statementID)
	}
	if stmt.AccountID != accountID {
		return nil, fmt.Errorf("%w: statement %s belongs to account %s", recon.ErrCrossAccount, statementID, stmt.AccountID)
	}
	if stmt.Status != storage.StatementCompleted {
		return nil, fmt.Errorf("%w: statement %s is %s, only completed statements are reconcilable",
			recon.ErrInvalidTransition, statementID, stmt.Status)
	}
	if stmt.ReconciliationID != nil {
		return nil, fmt.Errorf("%w: statement %s already reconciled by %s",
			recon.ErrInvalidTransition, statementID, *stmt.ReconciliationID)
	}

	lines, err := s.repo.ListStatementLines(statementID)
	if err != nil {
		return nil, err
	}
	txns, err := s.repo.ListEligibleTransactions(accountID, stmt.PeriodStart, stmt.PeriodEnd)
	if err != nil {
		return nil, err
	}

	bankSum := decimal.Zero
	for _, l := range lines {
		bankSum = bankSum.Add(l.Amount)
	}
	bookSum := decimal.Zero
	for _, t := range txns {
		bookSum = bookSum.Add(t.Amount)
	}

	session := &storage.BankReconciliation{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		StatementID: statementID,
		PeriodStart: stmt.PeriodStart,
		PeriodEnd:   stmt.PeriodEnd,

		StatementOpening: stmt.OpeningBalance,
		StatementClosing: stmt.ClosingBalance,
		// BookClosing is the cleared book balance; nothing is cleared yet.
		BookOpening: stmt.OpeningBalance,
		BookClosing: stmt.OpeningBalance,

		UnmatchedBankCount:  len(lines),
		UnmatchedBookCount:  len(txns),
		MatchedAmount:       decimal.Zero,
		UnmatchedBankAmount: bankSum,
		UnmatchedBookAmount: bookSum,

		Status:    storage.ReconciliationInProgress,
		CreatedBy: createdBy,
	}
	recon.NewLedger(session, nil, s.tolerance).RecomputeDifference()

	if err := s.repo.CreateReconciliation(session); err != nil {
		return nil, err
	}

	s.logger.Info("reconciliation created",
		"reconciliation_id", session.ID,
		"account_id", accountID,
		"statement_id", statementID,
		"bank_lines", len(lines),
		"book_transactions", len(txns),
		"difference", session.Difference.String())
	return session, nil
}

// Get returns a session snapshot with its items.
func (s *ReconciliationService) Get(ctx context.Context, id string) (*storage.BankReconciliation, []storage.ReconciliationItem, error) {
	session, err := s.repo.GetReconciliation(id)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, fmt.Errorf("%w: reconciliation %s", recon.ErrNotFound, id)
	}
	items, err := s.repo.ListItems(id)
	if err != nil {
		return nil, nil, err
	}
	return session, items, nil
}

// List returns sessions, optionally filtered by account.
func (s *ReconciliationService) List(ctx context.Context, accountID string) ([]storage.BankReconciliation, error) {
	return s.repo.ListReconciliations(accountID)
}

// AutoMatch runs the greedy assignment over the session's unmatched sets and
// commits every auto-eligible pair. Returns the count of newly matched pairs.
// The session lock is held for the entire load-score-commit run, and re-runs
// with no intervening changes commit nothing.
func (s *ReconciliationService) AutoMatch(ctx context.Context, id, matchedBy string) (int, *storage.BankReconciliation, error) {
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	session, ledger, err := s.loadLedger(id)
	if err != nil {
		return 0, nil, err
	}
	if err := recon.EnsureMatchable(session); err != nil {
		return 0, nil, err
	}

	lines, err := s.repo.ListUnmatchedStatementLines(session.StatementID, session.ID)
	if err != nil {
		return 0, nil, err
	}
	txns, err := s.repo.ListEligibleTransactions(session.AccountID, session.PeriodStart, session.PeriodEnd)
	if err != nil {
		return 0, nil, err
	}

	matched := 0
	for _, pair := range s.matcher.Plan(lines, txns) {
		confidence := pair.Score
		item, err := ledger.RecordMatch(pair.Line, pair.Txn, storage.MatchMethodAuto, &confidence, matchedBy, time.Now().UTC())
		if err != nil {
			// The plan never double-consumes within a pass, so a conflict
			// here means the pair was consumed before this run started.
			continue
		}
		if err := s.repo.SaveMatch(item, session); err != nil {
			return matched, nil, err
		}
		matched++
	}

	if err := s.repo.RecomputeAccountBalance(session.AccountID); err != nil {
		return matched, nil, err
	}

	s.logger.Info("auto-match finished",
		"reconciliation_id", id,
		"matched", matched,
		"difference", session.Difference.String())
	return matched, session, nil
}

// ManualMatch records a user-chosen pair. No confidence is recorded for
// manual matches, and the pair's amounts need not agree; the amount
// difference is stored on the item.
func (s *ReconciliationService) ManualMatch(ctx context.Context, id, lineID, txnID, matchedBy string) (*storage.BankReconciliation, error) {
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	session, ledger, err := s.loadLedger(id)
	if err != nil {
		return nil, err
	}
	if err := recon.EnsureMatchable(session); err != nil {
		return nil, err
	}

	line, err := s.repo.GetStatementLine(lineID)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, fmt.Errorf("%w: statement line %s", recon.ErrNotFound, lineID)
	}
	if line.StatementID != session.StatementID {
		return nil, fmt.Errorf("%w: line %s belongs to statement %s", recon.ErrCrossAccount, lineID, line.StatementID)
	}

	txn, err := s.repo.GetTransaction(txnID)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, fmt.Errorf("%w: book transaction %s", recon.ErrNotFound, txnID)
	}
	if txn.AccountID != session.AccountID {
		return nil, fmt.Errorf("%w: transaction %s belongs to account %s", recon.ErrCrossAccount, txnID, txn.AccountID)
	}
	if txn.Status != storage.TransactionCompleted {
		return nil, fmt.Errorf("%w: transaction %s is %s, only completed transactions can be matched",
			recon.ErrInvalidTransition, txnID, txn.Status)
	}
	// Out-of-period transactions were never counted into the session's
	// unmatched set at creation, so matching one would corrupt the counters.
	if txn.TransactionDate.Before(session.PeriodStart) || txn.TransactionDate.After(session.PeriodEnd) {
		return nil, fmt.Errorf("%w: transaction %s dated %s is outside the statement period",
			recon.ErrInvalidTransition, txnID, txn.TransactionDate.Format("2006-01-02"))
	}

	item, err := ledger.RecordMatch(*line, *txn, storage.MatchMethodManual, nil, matchedBy, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveMatch(item, session); err != nil {
		return nil, err
	}
	if err := s.repo.RecomputeAccountBalance(session.AccountID); err != nil {
		return nil, err
	}

	s.logger.Info("manual match recorded",
		"reconciliation_id", id,
		"line_id", lineID,
		"transaction_id", txnID,
		"difference", session.Difference.String())
	return session, nil
}

// Unmatch reverts a matched item, freeing both sides for re-matching.
func (s *ReconciliationService) Unmatch(ctx context.Context, id, itemID, unmatchedBy string) (*storage.BankReconciliation, error) {
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	session, ledger, err := s.loadLedger(id)
	if err != nil {
		return nil, err
	}
	if err := recon.EnsureMatchable(session); err != nil {
		return nil, err
	}

	item, err := s.repo.GetItem(itemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.ReconciliationID != id {
		return nil, fmt.Errorf("%w: item %s", recon.ErrNotFound, itemID)
	}
	if item.MatchType != storage.MatchTypeMatched {
		return nil, fmt.Errorf("%w: item %s has type %s", recon.ErrNotMatched, itemID, item.MatchType)
	}

	var line storage.BankStatementLine
	if item.StatementLineID != nil {
		l, err := s.repo.GetStatementLine(*item.StatementLineID)
		if err != nil {
			return nil, err
		}
		if l != nil {
			line = *l
		}
	}
	var txn storage.BookTransaction
	if item.BookTransactionID != nil {
		t, err := s.repo.GetTransaction(*item.BookTransactionID)
		if err != nil {
			return nil, err
		}
		if t != nil {
			txn = *t
		}
	}

	if err := ledger.RecordUnmatch(*item, line, txn); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteMatch(item, session); err != nil {
		return nil, err
	}
	if err := s.repo.RecomputeAccountBalance(session.AccountID); err != nil {
		return nil, err
	}

	s.logger.Info("match reverted",
		"reconciliation_id", id,
		"item_id", itemID,
		"by", unmatchedBy)
	return session, nil
}

// SuggestedMatches scores one statement line against the remaining unmatched
// book transactions and returns candidates in the suggest range, best first.
// Read-only: it takes no session lock, and tolerates a concurrent auto-match
// by re-reading the unmatched sets at call time instead of caching.
func (s *ReconciliationService) SuggestedMatches(ctx context.Context, id, lineID string) ([]match.Suggestion, error) {
	session, err := s.repo.GetReconciliation(id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: reconciliation %s", recon.ErrNotFound, id)
	}

	line, err := s.repo.GetStatementLine(lineID)
	if err != nil {
		return nil, err
	}
	if line == nil || line.StatementID != session.StatementID {
		return nil, fmt.Errorf("%w: statement line %s", recon.ErrNotFound, lineID)
	}

	// A line that is already consumed has no candidates.
	unmatched, err := s.repo.ListUnmatchedStatementLines(session.StatementID, session.ID)
	if err != nil {
		return nil, err
	}
	stillUnmatched := false
	for _, l := range unmatched {
		if l.ID == lineID {
			stillUnmatched = true
			break
		}
	}
	if !stillUnmatched {
		return nil, nil
	}

	txns, err := s.repo.ListEligibleTransactions(session.AccountID, session.PeriodStart, session.PeriodEnd)
	if err != nil {
		return nil, err
	}
	return s.matcher.Scorer().Suggest(*line, txns), nil
}

// Complete transitions the session to completed. The session must balance to
// zero within the amount tolerance; the statement is then marked reconciled
// so no second session can be opened for it. Status and marker are persisted
// in one repository transaction.
func (s *ReconciliationService) Complete(ctx context.Context, id, completedBy string) (*storage.BankReconciliation, error) {
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	session, ledger, err := s.loadLedger(id)
	if err != nil {
		return nil, err
	}
	ledger.RecomputeDifference()

	if err := recon.Complete(session, ledger.IsBalanced(), completedBy, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.repo.CompleteReconciliation(session); err != nil {
		return nil, err
	}

	s.logger.Info("reconciliation completed",
		"reconciliation_id", id,
		"by", completedBy,
		"matched", session.MatchedCount)
	return session, nil
}

// Review transitions completed -> reviewed.
func (s *ReconciliationService) Review(ctx context.Context, id, reviewedBy string) (*storage.BankReconciliation, error) {
	return s.transition(id, func(session *storage.BankReconciliation) error {
		return recon.Review(session, reviewedBy, time.Now().UTC())
	})
}

// Approve transitions reviewed -> approved, the terminal state.
func (s *ReconciliationService) Approve(ctx context.Context, id, approvedBy string) (*storage.BankReconciliation, error) {
	return s.transition(id, func(session *storage.BankReconciliation) error {
		return recon.Approve(session, approvedBy, time.Now().UTC())
	})
}

// Delete removes the session. Every matched item is unmatched first,
// restoring the book transactions, then items and session are removed and
// the statement marker cleared. Approved sessions are immutable.
func (s *ReconciliationService) Delete(ctx context.Context, id, deletedBy string) error {
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.repo.GetReconciliation(id)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("%w: reconciliation %s", recon.ErrNotFound, id)
	}
	if err := recon.EnsureDeletable(session); err != nil {
		return err
	}

	if err := s.repo.DeleteReconciliation(session); err != nil {
		return err
	}
	if err := s.repo.RecomputeAccountBalance(session.AccountID); err != nil {
		return err
	}

	s.logger.Info("reconciliation deleted",
		"reconciliation_id", id,
		"by", deletedBy,
		"status_was", string(session.Status))
	return nil
}

// loadLedger re-reads the session and rebuilds its ledger. Callers hold the
// session lock, so the status read here is never stale for the mutation that
// follows.
func (s *ReconciliationService) loadLedger(id string) (*storage.BankReconciliation, *recon.Ledger, error) {
	session, err := s.repo.GetReconciliation(id)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, fmt.Errorf("%w: reconciliation %s", recon.ErrNotFound, id)
	}
	items, err := s.repo.ListItems(id)
	if err != nil {
		return nil, nil, err
	}
	return session, recon.NewLedger(session, items, s.tolerance), nil
}

func (s *ReconciliationService) transition(id string, apply func(*storage.BankReconciliation) error) (*storage.BankReconciliation, error) {
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.repo.GetReconciliation(id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: reconciliation %s", recon.ErrNotFound, id)
	}
	if err := apply(session); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateReconciliation(session); err != nil {
		return nil, err
	}
	return session, nil
}
