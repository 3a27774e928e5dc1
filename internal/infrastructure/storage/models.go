package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatementStatus is the import lifecycle of a bank statement.
type StatementStatus string

const (
	StatementPending    StatementStatus = "pending"
	StatementProcessing StatementStatus = "processing"
	StatementCompleted  StatementStatus = "completed"
	StatementFailed     StatementStatus = "failed"
)

// TransactionStatus is the lifecycle of a book transaction.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionCancelled TransactionStatus = "cancelled"
)

// ReconciliationStatus is the approval lifecycle of a reconciliation session.
type ReconciliationStatus string

const (
	ReconciliationInProgress ReconciliationStatus = "in_progress"
	ReconciliationCompleted  ReconciliationStatus = "completed"
	ReconciliationReviewed   ReconciliationStatus = "reviewed"
	ReconciliationApproved   ReconciliationStatus = "approved"
)

// MatchType classifies a reconciliation item.
type MatchType string

const (
	MatchTypeMatched          MatchType = "matched"
	MatchTypeUnmatchedBank    MatchType = "unmatched_bank"
	MatchTypeUnmatchedBook    MatchType = "unmatched_book"
	MatchTypeManualAdjustment MatchType = "manual_adjustment"
)

// MatchMethod records how a matched item was produced.
type MatchMethod string

const (
	MatchMethodAuto      MatchMethod = "auto"
	MatchMethodManual    MatchMethod = "manual"
	MatchMethodSuggested MatchMethod = "suggested"
)

// Account is a financial account owning a running balance. The engine never
// mutates it directly; the balance is refreshed by RecomputeAccountBalance
// after match changes.
type Account struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BankStatement is one imported statement for an account. Only completed
// statements are reconcilable. ReconciliationID is set once a reconciliation
// referencing the statement reaches completed, which blocks a second session
// for the same statement.
type BankStatement struct {
	ID               string          `json:"id"`
	AccountID        string          `json:"account_id"`
	PeriodStart      time.Time       `json:"period_start"`
	PeriodEnd        time.Time       `json:"period_end"`
	OpeningBalance   decimal.Decimal `json:"opening_balance"`
	ClosingBalance   decimal.Decimal `json:"closing_balance"`
	Status           StatementStatus `json:"status"`
	ReconciliationID *string         `json:"reconciliation_id,omitempty"`
}

// BankStatementLine is one statement row. Amounts are signed: negative for
// debits (outflow), positive for credits (inflow). Lines are created at
// import and never mutated by the engine.
type BankStatementLine struct {
	ID              string           `json:"id"`
	StatementID     string           `json:"statement_id"`
	TransactionDate time.Time        `json:"transaction_date"`
	Amount          decimal.Decimal  `json:"amount"`
	Description     string           `json:"description"`
	ReferenceNumber string           `json:"reference_number,omitempty"`
	RunningBalance  *decimal.Decimal `json:"running_balance,omitempty"`
}

// BookTransaction is an internal ledger entry. Only completed, unreconciled
// entries are eligible match candidates. The engine mutates only the
// reconciled fields.
type BookTransaction struct {
	ID               string            `json:"id"`
	AccountID        string            `json:"account_id"`
	TransactionDate  time.Time         `json:"transaction_date"`
	Amount           decimal.Decimal   `json:"amount"`
	Description      string            `json:"description"`
	ReferenceNumber  string            `json:"reference_number,omitempty"`
	Status           TransactionStatus `json:"status"`
	IsReconciled     bool              `json:"is_reconciled"`
	ReconciliationID *string           `json:"reconciliation_id,omitempty"`
	ReconciledAt     *time.Time        `json:"reconciled_at,omitempty"`
	ReconciledBy     string            `json:"reconciled_by,omitempty"`
}

// BankReconciliation is one reconciliation session: the aggregate root tying
// an account to a statement, with running counters and the derived
// difference.
type BankReconciliation struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	StatementID string    `json:"statement_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	StatementOpening decimal.Decimal `json:"statement_opening"`
	StatementClosing decimal.Decimal `json:"statement_closing"`
	BookOpening      decimal.Decimal `json:"book_opening"`
	BookClosing      decimal.Decimal `json:"book_closing"`
	Difference       decimal.Decimal `json:"difference"`

	MatchedCount        int             `json:"matched_count"`
	UnmatchedBankCount  int             `json:"unmatched_bank_count"`
	UnmatchedBookCount  int             `json:"unmatched_book_count"`
	MatchedAmount       decimal.Decimal `json:"matched_amount"`
	UnmatchedBankAmount decimal.Decimal `json:"unmatched_bank_amount"`
	UnmatchedBookAmount decimal.Decimal `json:"unmatched_book_amount"`

	Status      ReconciliationStatus `json:"status"`
	CreatedBy   string               `json:"created_by"`
	CompletedBy string               `json:"completed_by,omitempty"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
	ReviewedBy  string               `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time           `json:"reviewed_at,omitempty"`
	ApprovedBy  string               `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time           `json:"approved_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// ReconciliationItem is one statement-line/book-transaction association (or
// explicit unmatched marker). A statement line or book transaction may appear
// in at most one matched item at any time.
type ReconciliationItem struct {
	ID                string          `json:"id"`
	ReconciliationID  string          `json:"reconciliation_id"`
	StatementLineID   *string         `json:"statement_line_id,omitempty"`
	BookTransactionID *string         `json:"book_transaction_id,omitempty"`
	MatchType         MatchType       `json:"match_type"`
	MatchMethod       MatchMethod     `json:"match_method"`
	MatchConfidence   *float64        `json:"match_confidence,omitempty"` // 0-100, nil for manual
	AmountDifference  decimal.Decimal `json:"amount_difference"`
	IsCleared         bool            `json:"is_cleared"`
	MatchedBy         string          `json:"matched_by"`
	MatchedAt         time.Time       `json:"matched_at"`
}
