package storage

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up:      migration001InitialSchema,
	},
	{
		Version: 2,
		Name:    "add_indexes",
		Up:      migration002AddIndexes,
	},
}

// runMigrations executes all pending migrations
func (s *Storage) runMigrations() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue
		}

		log.Printf("Running migration %d: %s", migration.Version, migration.Name)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		_, err = tx.Exec(`
			INSERT INTO schema_migrations (version, name) VALUES (?, ?)
		`, migration.Version, migration.Name)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// ensureMigrationsTable creates the schema_migrations table
func (s *Storage) ensureMigrationsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	_, err := s.db.Exec(query)
	return err
}

// getAppliedMigrations returns a set of applied migration versions
func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

func migration001InitialSchema(tx *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT 'asset',
			balance TEXT NOT NULL DEFAULT '0',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS bank_statements (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL REFERENCES accounts(id),
			period_start TIMESTAMP NOT NULL,
			period_end TIMESTAMP NOT NULL,
			opening_balance TEXT NOT NULL,
			closing_balance TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			reconciliation_id TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS bank_statement_lines (
			id TEXT PRIMARY KEY,
			statement_id TEXT NOT NULL REFERENCES bank_statements(id) ON DELETE CASCADE,
			transaction_date TIMESTAMP NOT NULL,
			amount TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			reference_number TEXT NOT NULL DEFAULT '',
			running_balance TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS book_transactions (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL REFERENCES accounts(id),
			transaction_date TIMESTAMP NOT NULL,
			amount TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			reference_number TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			is_reconciled INTEGER NOT NULL DEFAULT 0,
			reconciliation_id TEXT,
			reconciled_at TIMESTAMP,
			reconciled_by TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS bank_reconciliations (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL REFERENCES accounts(id),
			statement_id TEXT NOT NULL REFERENCES bank_statements(id),
			period_start TIMESTAMP NOT NULL,
			period_end TIMESTAMP NOT NULL,
			statement_opening TEXT NOT NULL,
			statement_closing TEXT NOT NULL,
			book_opening TEXT NOT NULL,
			book_closing TEXT NOT NULL,
			difference TEXT NOT NULL,
			matched_count INTEGER NOT NULL DEFAULT 0,
			unmatched_bank_count INTEGER NOT NULL DEFAULT 0,
			unmatched_book_count INTEGER NOT NULL DEFAULT 0,
			matched_amount TEXT NOT NULL DEFAULT '0',
			unmatched_bank_amount TEXT NOT NULL DEFAULT '0',
			unmatched_book_amount TEXT NOT NULL DEFAULT '0',
			status TEXT NOT NULL DEFAULT 'in_progress',
			created_by TEXT NOT NULL DEFAULT '',
			completed_by TEXT NOT NULL DEFAULT '',
			completed_at TIMESTAMP,
			reviewed_by TEXT NOT NULL DEFAULT '',
			reviewed_at TIMESTAMP,
			approved_by TEXT NOT NULL DEFAULT '',
			approved_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS reconciliation_items (
			id TEXT PRIMARY KEY,
			reconciliation_id TEXT NOT NULL REFERENCES bank_reconciliations(id) ON DELETE CASCADE,
			statement_line_id TEXT REFERENCES bank_statement_lines(id),
			book_transaction_id TEXT REFERENCES book_transactions(id),
			match_type TEXT NOT NULL,
			match_method TEXT NOT NULL,
			match_confidence REAL,
			amount_difference TEXT NOT NULL DEFAULT '0',
			is_cleared INTEGER NOT NULL DEFAULT 0,
			matched_by TEXT NOT NULL DEFAULT '',
			matched_at TIMESTAMP NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

func migration002AddIndexes(tx *sql.Tx) error {
	queries := []string{
		`CREATE INDEX IF NOT EXISTS idx_statement_lines_statement ON bank_statement_lines(statement_id)`,
		`CREATE INDEX IF NOT EXISTS idx_book_transactions_account_date ON book_transactions(account_id, transaction_date)`,
		`CREATE INDEX IF NOT EXISTS idx_book_transactions_reconciled ON book_transactions(is_reconciled)`,
		`CREATE INDEX IF NOT EXISTS idx_reconciliations_account ON bank_reconciliations(account_id)`,
		`CREATE INDEX IF NOT EXISTS idx_items_reconciliation ON reconciliation_items(reconciliation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_items_line ON reconciliation_items(statement_line_id)`,
		`CREATE INDEX IF NOT EXISTS idx_items_transaction ON reconciliation_items(book_transaction_id)`,
	}

	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return err
		}
	}
	return nil
}
