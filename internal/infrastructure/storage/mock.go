package storage

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps, making tests fast and isolated.
type MockRepository struct {
	accounts        map[string]*Account
	statements      map[string]*BankStatement
	lines           map[string]*BankStatementLine
	transactions    map[string]*BookTransaction
	reconciliations map[string]*BankReconciliation
	items           map[string]*ReconciliationItem

	// Hooks for test assertions
	SaveMatchCalled        bool
	DeleteMatchCalled      bool
	DeleteSessionCalled    bool
	CompleteSessionCalled  bool
	RecomputeBalanceCalled bool
	RecomputeBalanceCount  int
	LastSavedItem          *ReconciliationItem

	// Error injection for testing error paths
	SaveMatchErr        error
	DeleteMatchErr      error
	DeleteSessionErr    error
	CompleteSessionErr  error
	RecomputeBalanceErr error
	UpdateSessionErr    error
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		accounts:        make(map[string]*Account),
		statements:      make(map[string]*BankStatement),
		lines:           make(map[string]*BankStatementLine),
		transactions:    make(map[string]*BookTransaction),
		reconciliations: make(map[string]*BankReconciliation),
		items:           make(map[string]*ReconciliationItem),
	}
}

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

func (m *MockRepository) GetAccount(id string) (*Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (m *MockRepository) SaveAccount(a *Account) error {
	copied := *a
	m.accounts[a.ID] = &copied
	return nil
}

func (m *MockRepository) RecomputeAccountBalance(accountID string) error {
	m.RecomputeBalanceCalled = true
	m.RecomputeBalanceCount++
	if m.RecomputeBalanceErr != nil {
		return m.RecomputeBalanceErr
	}
	a, ok := m.accounts[accountID]
	if !ok {
		return nil
	}
	balance := decimal.Zero
	for _, t := range m.transactions {
		if t.AccountID == accountID && t.Status == TransactionCompleted {
			balance = balance.Add(t.Amount)
		}
	}
	a.Balance = balance
	return nil
}

func (m *MockRepository) GetStatement(id string) (*BankStatement, error) {
	s, ok := m.statements[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (m *MockRepository) SaveStatement(s *BankStatement) error {
	copied := *s
	m.statements[s.ID] = &copied
	return nil
}

func (m *MockRepository) SaveStatementLine(l *BankStatementLine) error {
	copied := *l
	m.lines[l.ID] = &copied
	return nil
}

func (m *MockRepository) GetStatementLine(id string) (*BankStatementLine, error) {
	l, ok := m.lines[id]
	if !ok {
		return nil, nil
	}
	copied := *l
	return &copied, nil
}

func (m *MockRepository) ListStatementLines(statementID string) ([]BankStatementLine, error) {
	var lines []BankStatementLine
	for _, l := range m.lines {
		if l.StatementID == statementID {
			lines = append(lines, *l)
		}
	}
	sortLines(lines)
	return lines, nil
}

func (m *MockRepository) ListUnmatchedStatementLines(statementID, reconciliationID string) ([]BankStatementLine, error) {
	consumed := make(map[string]bool)
	for _, item := range m.items {
		if item.ReconciliationID == reconciliationID &&
			item.MatchType == MatchTypeMatched && item.StatementLineID != nil {
			consumed[*item.StatementLineID] = true
		}
	}
	var lines []BankStatementLine
	for _, l := range m.lines {
		if l.StatementID == statementID && !consumed[l.ID] {
			lines = append(lines, *l)
		}
	}
	sortLines(lines)
	return lines, nil
}

func (m *MockRepository) GetTransaction(id string) (*BookTransaction, error) {
	t, ok := m.transactions[id]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (m *MockRepository) SaveTransaction(t *BookTransaction) error {
	copied := *t
	m.transactions[t.ID] = &copied
	return nil
}

func (m *MockRepository) ListEligibleTransactions(accountID string, from, to time.Time) ([]BookTransaction, error) {
	var txns []BookTransaction
	for _, t := range m.transactions {
		if t.AccountID != accountID || t.Status != TransactionCompleted || t.IsReconciled {
			continue
		}
		if t.TransactionDate.Before(from) || t.TransactionDate.After(to) {
			continue
		}
		txns = append(txns, *t)
	}
	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].TransactionDate.Equal(txns[j].TransactionDate) {
			return txns[i].TransactionDate.Before(txns[j].TransactionDate)
		}
		return txns[i].ID < txns[j].ID
	})
	return txns, nil
}

func (m *MockRepository) GetReconciliation(id string) (*BankReconciliation, error) {
	r, ok := m.reconciliations[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (m *MockRepository) ListReconciliations(accountID string) ([]BankReconciliation, error) {
	var sessions []BankReconciliation
	for _, r := range m.reconciliations {
		if accountID == "" || r.AccountID == accountID {
			sessions = append(sessions, *r)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions, nil
}

func (m *MockRepository) CreateReconciliation(r *BankReconciliation) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.UpdatedAt = time.Now().UTC()
	copied := *r
	m.reconciliations[r.ID] = &copied
	return nil
}

func (m *MockRepository) UpdateReconciliation(r *BankReconciliation) error {
	if m.UpdateSessionErr != nil {
		return m.UpdateSessionErr
	}
	r.UpdatedAt = time.Now().UTC()
	copied := *r
	m.reconciliations[r.ID] = &copied
	return nil
}

func (m *MockRepository) CompleteReconciliation(r *BankReconciliation) error {
	m.CompleteSessionCalled = true
	if m.CompleteSessionErr != nil {
		return m.CompleteSessionErr
	}
	if s, ok := m.statements[r.StatementID]; ok {
		id := r.ID
		s.ReconciliationID = &id
	}
	return m.UpdateReconciliation(r)
}

func (m *MockRepository) GetItem(id string) (*ReconciliationItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (m *MockRepository) ListItems(reconciliationID string) ([]ReconciliationItem, error) {
	var items []ReconciliationItem
	for _, item := range m.items {
		if item.ReconciliationID == reconciliationID {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].MatchedAt.Equal(items[j].MatchedAt) {
			return items[i].MatchedAt.Before(items[j].MatchedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (m *MockRepository) SaveMatch(item *ReconciliationItem, session *BankReconciliation) error {
	m.SaveMatchCalled = true
	m.LastSavedItem = item
	if m.SaveMatchErr != nil {
		return m.SaveMatchErr
	}
	copied := *item
	m.items[item.ID] = &copied
	if item.BookTransactionID != nil {
		if t, ok := m.transactions[*item.BookTransactionID]; ok {
			t.IsReconciled = true
			t.ReconciliationID = &item.ReconciliationID
			at := item.MatchedAt
			t.ReconciledAt = &at
			t.ReconciledBy = item.MatchedBy
		}
	}
	return m.UpdateReconciliation(session)
}

func (m *MockRepository) DeleteMatch(item *ReconciliationItem, session *BankReconciliation) error {
	m.DeleteMatchCalled = true
	if m.DeleteMatchErr != nil {
		return m.DeleteMatchErr
	}
	delete(m.items, item.ID)
	if item.BookTransactionID != nil {
		m.clearReconciled(*item.BookTransactionID)
	}
	return m.UpdateReconciliation(session)
}

func (m *MockRepository) DeleteReconciliation(session *BankReconciliation) error {
	m.DeleteSessionCalled = true
	if m.DeleteSessionErr != nil {
		return m.DeleteSessionErr
	}
	for id, item := range m.items {
		if item.ReconciliationID != session.ID {
			continue
		}
		if item.MatchType == MatchTypeMatched && item.BookTransactionID != nil {
			m.clearReconciled(*item.BookTransactionID)
		}
		delete(m.items, id)
	}
	if s, ok := m.statements[session.StatementID]; ok {
		if s.ReconciliationID != nil && *s.ReconciliationID == session.ID {
			s.ReconciliationID = nil
		}
	}
	delete(m.reconciliations, session.ID)
	return nil
}

func (m *MockRepository) clearReconciled(txnID string) {
	if t, ok := m.transactions[txnID]; ok {
		t.IsReconciled = false
		t.ReconciliationID = nil
		t.ReconciledAt = nil
		t.ReconciledBy = ""
	}
}

func sortLines(lines []BankStatementLine) {
	sort.Slice(lines, func(i, j int) bool {
		if !lines[i].TransactionDate.Equal(lines[j].TransactionDate) {
			return lines[i].TransactionDate.Before(lines[j].TransactionDate)
		}
		return lines[i].ID < lines[j].ID
	})
}
