package storage

import (
	"database/sql"
	"fmt"
)

const statementColumns = `id, account_id, period_start, period_end, opening_balance, closing_balance, status, reconciliation_id`

// GetStatement retrieves a statement by ID. Returns nil if not found.
func (s *Storage) GetStatement(id string) (*BankStatement, error) {
	row := s.db.QueryRow(`
		SELECT `+statementColumns+` FROM bank_statements WHERE id = ?
	`, id)
	stmt, err := scanStatement(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query statement: %w", err)
	}
	return stmt, nil
}

// SaveStatement inserts or updates a statement.
func (s *Storage) SaveStatement(st *BankStatement) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO bank_statements
		(id, account_id, period_start, period_end, opening_balance, closing_balance, status, reconciliation_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, st.ID, st.AccountID, st.PeriodStart, st.PeriodEnd,
		st.OpeningBalance.String(), st.ClosingBalance.String(),
		string(st.Status), nullStr(st.ReconciliationID))
	if err != nil {
		return fmt.Errorf("save statement: %w", err)
	}
	return nil
}

// SaveStatementLine inserts a statement line.
func (s *Storage) SaveStatementLine(l *BankStatementLine) error {
	var running sql.NullString
	if l.RunningBalance != nil {
		running = sql.NullString{String: l.RunningBalance.String(), Valid: true}
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO bank_statement_lines
		(id, statement_id, transaction_date, amount, description, reference_number, running_balance)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.StatementID, l.TransactionDate, l.Amount.String(),
		l.Description, l.ReferenceNumber, running)
	if err != nil {
		return fmt.Errorf("save statement line: %w", err)
	}
	return nil
}

// GetStatementLine retrieves a line by ID. Returns nil if not found.
func (s *Storage) GetStatementLine(id string) (*BankStatementLine, error) {
	row := s.db.QueryRow(`
		SELECT id, statement_id, transaction_date, amount, description, reference_number, running_balance
		FROM bank_statement_lines WHERE id = ?
	`, id)
	line, err := scanStatementLine(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query statement line: %w", err)
	}
	return line, nil
}

// ListStatementLines returns all lines of a statement ordered by date then ID.
func (s *Storage) ListStatementLines(statementID string) ([]BankStatementLine, error) {
	rows, err := s.db.Query(`
		SELECT id, statement_id, transaction_date, amount, description, reference_number, running_balance
		FROM bank_statement_lines
		WHERE statement_id = ?
		ORDER BY transaction_date, id
	`, statementID)
	if err != nil {
		return nil, fmt.Errorf("query statement lines: %w", err)
	}
	defer rows.Close()
	return collectStatementLines(rows)
}

// ListUnmatchedStatementLines returns the statement's lines not consumed by
// an active matched item of the given reconciliation.
func (s *Storage) ListUnmatchedStatementLines(statementID, reconciliationID string) ([]BankStatementLine, error) {
	rows, err := s.db.Query(`
		SELECT l.id, l.statement_id, l.transaction_date, l.amount, l.description, l.reference_number, l.running_balance
		FROM bank_statement_lines l
		WHERE l.statement_id = ?
		  AND NOT EXISTS (
			SELECT 1 FROM reconciliation_items i
			WHERE i.reconciliation_id = ?
			  AND i.statement_line_id = l.id
			  AND i.match_type = ?
		  )
		ORDER BY l.transaction_date, l.id
	`, statementID, reconciliationID, string(MatchTypeMatched))
	if err != nil {
		return nil, fmt.Errorf("query unmatched statement lines: %w", err)
	}
	defer rows.Close()
	return collectStatementLines(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatement(row rowScanner) (*BankStatement, error) {
	st := &BankStatement{}
	var opening, closing, status string
	var reconID sql.NullString
	if err := row.Scan(&st.ID, &st.AccountID, &st.PeriodStart, &st.PeriodEnd,
		&opening, &closing, &status, &reconID); err != nil {
		return nil, err
	}
	var err error
	if st.OpeningBalance, err = parseDecimal(opening); err != nil {
		return nil, err
	}
	if st.ClosingBalance, err = parseDecimal(closing); err != nil {
		return nil, err
	}
	st.Status = StatementStatus(status)
	st.ReconciliationID = strPtr(reconID)
	return st, nil
}

func scanStatementLine(row rowScanner) (*BankStatementLine, error) {
	l := &BankStatementLine{}
	var amount string
	var running sql.NullString
	if err := row.Scan(&l.ID, &l.StatementID, &l.TransactionDate, &amount,
		&l.Description, &l.ReferenceNumber, &running); err != nil {
		return nil, err
	}
	var err error
	if l.Amount, err = parseDecimal(amount); err != nil {
		return nil, err
	}
	if l.RunningBalance, err = parseNullDecimal(running); err != nil {
		return nil, err
	}
	return l, nil
}

func collectStatementLines(rows *sql.Rows) ([]BankStatementLine, error) {
	var lines []BankStatementLine
	for rows.Next() {
		line, err := scanStatementLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan statement line: %w", err)
		}
		lines = append(lines, *line)
	}
	return lines, rows.Err()
}
