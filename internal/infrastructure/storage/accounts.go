package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// GetAccount retrieves an account by ID. Returns nil if not found.
func (s *Storage) GetAccount(id string) (*Account, error) {
	a := &Account{}
	var balance string
	err := s.db.QueryRow(`
		SELECT id, name, type, balance, created_at, updated_at
		FROM accounts WHERE id = ?
	`, id).Scan(&a.ID, &a.Name, &a.Type, &balance, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}
	if a.Balance, err = parseDecimal(balance); err != nil {
		return nil, fmt.Errorf("parse account balance: %w", err)
	}
	return a, nil
}

// SaveAccount inserts or updates an account.
func (s *Storage) SaveAccount(a *Account) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO accounts (id, name, type, balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.Name, a.Type, a.Balance.String(), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

// RecomputeAccountBalance recalculates the account's running balance from
// its completed book transactions and stores the result.
func (s *Storage) RecomputeAccountBalance(accountID string) error {
	rows, err := s.db.Query(`
		SELECT amount FROM book_transactions
		WHERE account_id = ? AND status = ?
	`, accountID, string(TransactionCompleted))
	if err != nil {
		return fmt.Errorf("query balance amounts: %w", err)
	}
	defer rows.Close()

	balance := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return fmt.Errorf("scan amount: %w", err)
		}
		d, err := parseDecimal(amount)
		if err != nil {
			return fmt.Errorf("parse amount: %w", err)
		}
		balance = balance.Add(d)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = s.db.Exec(`
		UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?
	`, balance.String(), time.Now().UTC(), accountID)
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	return nil
}
