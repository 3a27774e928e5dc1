package storage

import (
	"database/sql"
	"fmt"
	"time"
)

const transactionColumns = `id, account_id, transaction_date, amount, description, reference_number, status, is_reconciled, reconciliation_id, reconciled_at, reconciled_by`

// GetTransaction retrieves a book transaction by ID. Returns nil if not found.
func (s *Storage) GetTransaction(id string) (*BookTransaction, error) {
	row := s.db.QueryRow(`
		SELECT `+transactionColumns+` FROM book_transactions WHERE id = ?
	`, id)
	txn, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query transaction: %w", err)
	}
	return txn, nil
}

// SaveTransaction inserts or updates a book transaction.
func (s *Storage) SaveTransaction(t *BookTransaction) error {
	var reconciledAt sql.NullTime
	if t.ReconciledAt != nil {
		reconciledAt = sql.NullTime{Time: *t.ReconciledAt, Valid: true}
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO book_transactions
		(id, account_id, transaction_date, amount, description, reference_number,
		 status, is_reconciled, reconciliation_id, reconciled_at, reconciled_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.AccountID, t.TransactionDate, t.Amount.String(), t.Description,
		t.ReferenceNumber, string(t.Status), t.IsReconciled,
		nullStr(t.ReconciliationID), reconciledAt, t.ReconciledBy)
	if err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}
	return nil
}

// ListEligibleTransactions returns completed, unreconciled transactions for
// the account within [from, to], ordered by date then ID.
func (s *Storage) ListEligibleTransactions(accountID string, from, to time.Time) ([]BookTransaction, error) {
	rows, err := s.db.Query(`
		SELECT `+transactionColumns+`
		FROM book_transactions
		WHERE account_id = ?
		  AND status = ?
		  AND is_reconciled = 0
		  AND transaction_date >= ?
		  AND transaction_date <= ?
		ORDER BY transaction_date, id
	`, accountID, string(TransactionCompleted), from, to)
	if err != nil {
		return nil, fmt.Errorf("query eligible transactions: %w", err)
	}
	defer rows.Close()

	var txns []BookTransaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

func scanTransaction(row rowScanner) (*BookTransaction, error) {
	t := &BookTransaction{}
	var amount, status string
	var reconID sql.NullString
	var reconciledAt sql.NullTime
	if err := row.Scan(&t.ID, &t.AccountID, &t.TransactionDate, &amount,
		&t.Description, &t.ReferenceNumber, &status, &t.IsReconciled,
		&reconID, &reconciledAt, &t.ReconciledBy); err != nil {
		return nil, err
	}
	var err error
	if t.Amount, err = parseDecimal(amount); err != nil {
		return nil, err
	}
	t.Status = TransactionStatus(status)
	t.ReconciliationID = strPtr(reconID)
	if reconciledAt.Valid {
		at := reconciledAt.Time
		t.ReconciledAt = &at
	}
	return t, nil
}
