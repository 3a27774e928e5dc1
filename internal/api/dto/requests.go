package dto

// CreateReconciliationRequest starts a session for one statement.
type CreateReconciliationRequest struct {
	AccountID   string `json:"account_id" binding:"required"`
	StatementID string `json:"statement_id" binding:"required"`
}

// ManualMatchRequest pairs one statement line with one book transaction.
type ManualMatchRequest struct {
	StatementLineID   string `json:"statement_line_id" binding:"required"`
	BookTransactionID string `json:"book_transaction_id" binding:"required"`
}
