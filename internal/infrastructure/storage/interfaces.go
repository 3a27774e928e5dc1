package storage

import "time"

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, PostgreSQL, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	AccountRepository
	StatementRepository
	TransactionRepository
	ReconciliationRepository
	Close() error
}

// AccountRepository handles account operations
type AccountRepository interface {
	// GetAccount retrieves an account by ID, nil if not found
	GetAccount(id string) (*Account, error)

	// SaveAccount inserts or updates an account
	SaveAccount(a *Account) error

	// RecomputeAccountBalance recalculates the account's running balance
	// from its completed book transactions
	RecomputeAccountBalance(accountID string) error
}

// StatementRepository handles imported bank statements and their lines.
// Statements enter the store through external import; the engine only reads
// them and flips the reconciled marker.
type StatementRepository interface {
	// GetStatement retrieves a statement by ID, nil if not found
	GetStatement(id string) (*BankStatement, error)

	// SaveStatement inserts or updates a statement
	SaveStatement(s *BankStatement) error

	// SaveStatementLine inserts a statement line
	SaveStatementLine(l *BankStatementLine) error

	// ListStatementLines returns all lines of a statement ordered by
	// transaction date, then ID
	ListStatementLines(statementID string) ([]BankStatementLine, error)

	// GetStatementLine retrieves a line by ID, nil if not found
	GetStatementLine(id string) (*BankStatementLine, error)

	// ListUnmatchedStatementLines returns the statement's lines not consumed
	// by an active matched item of the given reconciliation
	ListUnmatchedStatementLines(statementID, reconciliationID string) ([]BankStatementLine, error)
}

// TransactionRepository handles book transactions
type TransactionRepository interface {
	// GetTransaction retrieves a transaction by ID, nil if not found
	GetTransaction(id string) (*BookTransaction, error)

	// SaveTransaction inserts or updates a transaction
	SaveTransaction(t *BookTransaction) error

	// ListEligibleTransactions returns completed, unreconciled transactions
	// for the account within [from, to], ordered by date then ID
	ListEligibleTransactions(accountID string, from, to time.Time) ([]BookTransaction, error)
}

// ReconciliationRepository handles reconciliation sessions and their items.
// Multi-row mutations (SaveMatch, DeleteMatch, DeleteReconciliation) are
// single SQL transactions so a failed call leaves no partial state.
type ReconciliationRepository interface {
	// GetReconciliation retrieves a session by ID, nil if not found
	GetReconciliation(id string) (*BankReconciliation, error)

	// ListReconciliations returns sessions, optionally filtered by account,
	// newest first
	ListReconciliations(accountID string) ([]BankReconciliation, error)

	// CreateReconciliation inserts a new session
	CreateReconciliation(r *BankReconciliation) error

	// UpdateReconciliation persists counters, balances, status and stamps
	UpdateReconciliation(r *BankReconciliation) error

	// CompleteReconciliation atomically persists the completed session and
	// records it as the statement's reconciled marker. Both rows change in
	// one transaction so a statement can never reference a session that was
	// not persisted as completed, or vice versa
	CompleteReconciliation(r *BankReconciliation) error

	// GetItem retrieves a reconciliation item by ID, nil if not found
	GetItem(id string) (*ReconciliationItem, error)

	// ListItems returns all items of a session ordered by matched_at then ID
	ListItems(reconciliationID string) ([]ReconciliationItem, error)

	// SaveMatch atomically inserts the item, marks the book transaction
	// reconciled, and updates the session row
	SaveMatch(item *ReconciliationItem, session *BankReconciliation) error

	// DeleteMatch atomically deletes the item, clears the book transaction's
	// reconciled fields, and updates the session row
	DeleteMatch(item *ReconciliationItem, session *BankReconciliation) error

	// DeleteReconciliation atomically clears reconciled flags on every book
	// transaction referenced by the session's matched items, deletes the
	// items and the session, and clears the statement marker
	DeleteReconciliation(session *BankReconciliation) error
}
