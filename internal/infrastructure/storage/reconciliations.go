package storage

import (
	"database/sql"
	"fmt"
	"time"
)

const reconciliationColumns = `id, account_id, statement_id, period_start, period_end,
	statement_opening, statement_closing, book_opening, book_closing, difference,
	matched_count, unmatched_bank_count, unmatched_book_count,
	matched_amount, unmatched_bank_amount, unmatched_book_amount,
	status, created_by, completed_by, completed_at, reviewed_by, reviewed_at,
	approved_by, approved_at, created_at, updated_at`

const itemColumns = `id, reconciliation_id, statement_line_id, book_transaction_id,
	match_type, match_method, match_confidence, amount_difference, is_cleared,
	matched_by, matched_at`

// GetReconciliation retrieves a session by ID. Returns nil if not found.
func (s *Storage) GetReconciliation(id string) (*BankReconciliation, error) {
	row := s.db.QueryRow(`
		SELECT `+reconciliationColumns+` FROM bank_reconciliations WHERE id = ?
	`, id)
	r, err := scanReconciliation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query reconciliation: %w", err)
	}
	return r, nil
}

// ListReconciliations returns sessions newest first, optionally filtered by
// account.
func (s *Storage) ListReconciliations(accountID string) ([]BankReconciliation, error) {
	query := `SELECT ` + reconciliationColumns + ` FROM bank_reconciliations`
	args := []any{}
	if accountID != "" {
		query += ` WHERE account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reconciliations: %w", err)
	}
	defer rows.Close()

	var sessions []BankReconciliation
	for rows.Next() {
		r, err := scanReconciliation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reconciliation: %w", err)
		}
		sessions = append(sessions, *r)
	}
	return sessions, rows.Err()
}

// CreateReconciliation inserts a new session.
func (s *Storage) CreateReconciliation(r *BankReconciliation) error {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO bank_reconciliations (`+reconciliationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, reconciliationArgs(r)...)
	if err != nil {
		return fmt.Errorf("insert reconciliation: %w", err)
	}
	return nil
}

// UpdateReconciliation persists counters, balances, status and stamps.
func (s *Storage) UpdateReconciliation(r *BankReconciliation) error {
	r.UpdatedAt = time.Now().UTC()
	if err := updateReconciliationExec(s.db, r); err != nil {
		return fmt.Errorf("update reconciliation: %w", err)
	}
	return nil
}

// CompleteReconciliation atomically persists the completed session and sets
// the statement's reconciled marker.
func (s *Storage) CompleteReconciliation(r *BankReconciliation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin complete reconciliation: %w", err)
	}

	r.UpdatedAt = time.Now().UTC()
	if err := updateReconciliationExec(tx, r); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update reconciliation: %w", err)
	}
	if _, err := tx.Exec(`UPDATE bank_statements SET reconciliation_id = ? WHERE id = ?`,
		r.ID, r.StatementID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("mark statement reconciled: %w", err)
	}

	return tx.Commit()
}

// GetItem retrieves a reconciliation item by ID. Returns nil if not found.
func (s *Storage) GetItem(id string) (*ReconciliationItem, error) {
	row := s.db.QueryRow(`
		SELECT `+itemColumns+` FROM reconciliation_items WHERE id = ?
	`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return item, nil
}

// ListItems returns all items of a session ordered by matched_at then ID.
func (s *Storage) ListItems(reconciliationID string) ([]ReconciliationItem, error) {
	rows, err := s.db.Query(`
		SELECT `+itemColumns+` FROM reconciliation_items
		WHERE reconciliation_id = ?
		ORDER BY matched_at, id
	`, reconciliationID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []ReconciliationItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// SaveMatch atomically inserts the item, marks the book transaction
// reconciled, and updates the session row.
func (s *Storage) SaveMatch(item *ReconciliationItem, session *BankReconciliation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save match: %w", err)
	}

	var confidence sql.NullFloat64
	if item.MatchConfidence != nil {
		confidence = sql.NullFloat64{Float64: *item.MatchConfidence, Valid: true}
	}
	_, err = tx.Exec(`
		INSERT INTO reconciliation_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.ReconciliationID, nullStr(item.StatementLineID),
		nullStr(item.BookTransactionID), string(item.MatchType),
		string(item.MatchMethod), confidence, item.AmountDifference.String(),
		item.IsCleared, item.MatchedBy, item.MatchedAt)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert item: %w", err)
	}

	if item.BookTransactionID != nil {
		_, err = tx.Exec(`
			UPDATE book_transactions
			SET is_reconciled = 1, reconciliation_id = ?, reconciled_at = ?, reconciled_by = ?
			WHERE id = ?
		`, item.ReconciliationID, item.MatchedAt, item.MatchedBy, *item.BookTransactionID)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("mark transaction reconciled: %w", err)
		}
	}

	session.UpdatedAt = time.Now().UTC()
	if err := updateReconciliationExec(tx, session); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update session: %w", err)
	}

	return tx.Commit()
}

// DeleteMatch atomically deletes the item, clears the book transaction's
// reconciled fields, and updates the session row.
func (s *Storage) DeleteMatch(item *ReconciliationItem, session *BankReconciliation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete match: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM reconciliation_items WHERE id = ?`, item.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete item: %w", err)
	}

	if item.BookTransactionID != nil {
		if err := clearTransactionReconciled(tx, *item.BookTransactionID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("clear transaction reconciled: %w", err)
		}
	}

	session.UpdatedAt = time.Now().UTC()
	if err := updateReconciliationExec(tx, session); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update session: %w", err)
	}

	return tx.Commit()
}

// DeleteReconciliation atomically clears reconciled flags on every book
// transaction referenced by the session's matched items, deletes the items
// and the session row, and clears the statement marker.
func (s *Storage) DeleteReconciliation(session *BankReconciliation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete reconciliation: %w", err)
	}

	rows, err := tx.Query(`
		SELECT book_transaction_id FROM reconciliation_items
		WHERE reconciliation_id = ? AND match_type = ? AND book_transaction_id IS NOT NULL
	`, session.ID, string(MatchTypeMatched))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("query matched items: %w", err)
	}
	var txnIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			_ = tx.Rollback()
			return fmt.Errorf("scan item transaction: %w", err)
		}
		txnIDs = append(txnIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		_ = tx.Rollback()
		return err
	}
	rows.Close()

	for _, id := range txnIDs {
		if err := clearTransactionReconciled(tx, id); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("clear transaction reconciled: %w", err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM reconciliation_items WHERE reconciliation_id = ?`, session.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete items: %w", err)
	}
	if _, err := tx.Exec(`UPDATE bank_statements SET reconciliation_id = NULL WHERE id = ? AND reconciliation_id = ?`,
		session.StatementID, session.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear statement marker: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM bank_reconciliations WHERE id = ?`, session.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete reconciliation: %w", err)
	}

	return tx.Commit()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func clearTransactionReconciled(e execer, txnID string) error {
	_, err := e.Exec(`
		UPDATE book_transactions
		SET is_reconciled = 0, reconciliation_id = NULL, reconciled_at = NULL, reconciled_by = ''
		WHERE id = ?
	`, txnID)
	return err
}

func updateReconciliationExec(e execer, r *BankReconciliation) error {
	_, err := e.Exec(`
		UPDATE bank_reconciliations SET
			statement_opening = ?, statement_closing = ?, book_opening = ?, book_closing = ?,
			difference = ?,
			matched_count = ?, unmatched_bank_count = ?, unmatched_book_count = ?,
			matched_amount = ?, unmatched_bank_amount = ?, unmatched_book_amount = ?,
			status = ?, completed_by = ?, completed_at = ?, reviewed_by = ?, reviewed_at = ?,
			approved_by = ?, approved_at = ?, updated_at = ?
		WHERE id = ?
	`, r.StatementOpening.String(), r.StatementClosing.String(),
		r.BookOpening.String(), r.BookClosing.String(), r.Difference.String(),
		r.MatchedCount, r.UnmatchedBankCount, r.UnmatchedBookCount,
		r.MatchedAmount.String(), r.UnmatchedBankAmount.String(), r.UnmatchedBookAmount.String(),
		string(r.Status), r.CompletedBy, nullTime(r.CompletedAt),
		r.ReviewedBy, nullTime(r.ReviewedAt),
		r.ApprovedBy, nullTime(r.ApprovedAt), r.UpdatedAt, r.ID)
	return err
}

func reconciliationArgs(r *BankReconciliation) []any {
	return []any{
		r.ID, r.AccountID, r.StatementID, r.PeriodStart, r.PeriodEnd,
		r.StatementOpening.String(), r.StatementClosing.String(),
		r.BookOpening.String(), r.BookClosing.String(), r.Difference.String(),
		r.MatchedCount, r.UnmatchedBankCount, r.UnmatchedBookCount,
		r.MatchedAmount.String(), r.UnmatchedBankAmount.String(), r.UnmatchedBookAmount.String(),
		string(r.Status), r.CreatedBy, r.CompletedBy, nullTime(r.CompletedAt),
		r.ReviewedBy, nullTime(r.ReviewedAt), r.ApprovedBy, nullTime(r.ApprovedAt),
		r.CreatedAt, r.UpdatedAt,
	}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func scanReconciliation(row rowScanner) (*BankReconciliation, error) {
	r := &BankReconciliation{}
	var stOpen, stClose, bkOpen, bkClose, diff string
	var matched, unBank, unBook, status string
	var completedAt, reviewedAt, approvedAt sql.NullTime
	err := row.Scan(&r.ID, &r.AccountID, &r.StatementID, &r.PeriodStart, &r.PeriodEnd,
		&stOpen, &stClose, &bkOpen, &bkClose, &diff,
		&r.MatchedCount, &r.UnmatchedBankCount, &r.UnmatchedBookCount,
		&matched, &unBank, &unBook,
		&status, &r.CreatedBy, &r.CompletedBy, &completedAt,
		&r.ReviewedBy, &reviewedAt, &r.ApprovedBy, &approvedAt,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if r.StatementOpening, err = parseDecimal(stOpen); err != nil {
		return nil, err
	}
	if r.StatementClosing, err = parseDecimal(stClose); err != nil {
		return nil, err
	}
	if r.BookOpening, err = parseDecimal(bkOpen); err != nil {
		return nil, err
	}
	if r.BookClosing, err = parseDecimal(bkClose); err != nil {
		return nil, err
	}
	if r.Difference, err = parseDecimal(diff); err != nil {
		return nil, err
	}
	if r.MatchedAmount, err = parseDecimal(matched); err != nil {
		return nil, err
	}
	if r.UnmatchedBankAmount, err = parseDecimal(unBank); err != nil {
		return nil, err
	}
	if r.UnmatchedBookAmount, err = parseDecimal(unBook); err != nil {
		return nil, err
	}

	r.Status = ReconciliationStatus(status)
	if completedAt.Valid {
		at := completedAt.Time
		r.CompletedAt = &at
	}
	if reviewedAt.Valid {
		at := reviewedAt.Time
		r.ReviewedAt = &at
	}
	if approvedAt.Valid {
		at := approvedAt.Time
		r.ApprovedAt = &at
	}
	return r, nil
}

func scanItem(row rowScanner) (*ReconciliationItem, error) {
	item := &ReconciliationItem{}
	var lineID, txnID sql.NullString
	var matchType, matchMethod, amountDiff string
	var confidence sql.NullFloat64
	if err := row.Scan(&item.ID, &item.ReconciliationID, &lineID, &txnID,
		&matchType, &matchMethod, &confidence, &amountDiff, &item.IsCleared,
		&item.MatchedBy, &item.MatchedAt); err != nil {
		return nil, err
	}
	var err error
	if item.AmountDifference, err = parseDecimal(amountDiff); err != nil {
		return nil, err
	}
	item.StatementLineID = strPtr(lineID)
	item.BookTransactionID = strPtr(txnID)
	item.MatchType = MatchType(matchType)
	item.MatchMethod = MatchMethod(matchMethod)
	if confidence.Valid {
		c := confidence.Float64
		item.MatchConfidence = &c
	}
	return item, nil
}
