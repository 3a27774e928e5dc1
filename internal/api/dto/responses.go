package dto

import (
	"time"

	"github.com/crestbooks/reconcile-backend/internal/domain/match"
	"github.com/crestbooks/reconcile-backend/internal/infrastructure/storage"
)

// Monetary amounts are serialized as decimal strings to keep exact values on
// the wire; clients must not parse them as floats.

// ReconciliationResponse is the full session view.
type ReconciliationResponse struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	StatementID string `json:"statement_id"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`

	StatementOpening string `json:"statement_opening"`
	StatementClosing string `json:"statement_closing"`
	BookOpening      string `json:"book_opening"`
	BookClosing      string `json:"book_closing"`
	Difference       string `json:"difference"`

	MatchedCount        int    `json:"matched_count"`
	UnmatchedBankCount  int    `json:"unmatched_bank_count"`
	UnmatchedBookCount  int    `json:"unmatched_book_count"`
	MatchedAmount       string `json:"matched_amount"`
	UnmatchedBankAmount string `json:"unmatched_bank_amount"`
	UnmatchedBookAmount string `json:"unmatched_book_amount"`

	Status      string  `json:"status"`
	CreatedBy   string  `json:"created_by"`
	CompletedBy string  `json:"completed_by,omitempty"`
	CompletedAt *string `json:"completed_at,omitempty"`
	ReviewedBy  string  `json:"reviewed_by,omitempty"`
	ReviewedAt  *string `json:"reviewed_at,omitempty"`
	ApprovedBy  string  `json:"approved_by,omitempty"`
	ApprovedAt  *string `json:"approved_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`

	Items []ItemResponse `json:"items,omitempty"`
}

// ItemResponse is one match record within a session.
type ItemResponse struct {
	ID                string   `json:"id"`
	StatementLineID   *string  `json:"statement_line_id,omitempty"`
	BookTransactionID *string  `json:"book_transaction_id,omitempty"`
	MatchType         string   `json:"match_type"`
	MatchMethod       string   `json:"match_method"`
	MatchConfidence   *float64 `json:"match_confidence,omitempty"`
	AmountDifference  string   `json:"amount_difference"`
	MatchedBy         string   `json:"matched_by"`
	MatchedAt         string   `json:"matched_at"`
}

// SuggestionResponse is one ranked candidate for a statement line.
type SuggestionResponse struct {
	BookTransactionID string  `json:"book_transaction_id"`
	TransactionDate   string  `json:"transaction_date"`
	Amount            string  `json:"amount"`
	Description       string  `json:"description"`
	ReferenceNumber   string  `json:"reference_number,omitempty"`
	Score             float64 `json:"score"`
	DateDiffDays      int     `json:"date_diff_days"`
	AmountDifference  string  `json:"amount_difference"`
}

// AutoMatchResponse reports one auto-match run.
type AutoMatchResponse struct {
	MatchedCount   int                    `json:"matched_count"`
	Reconciliation ReconciliationResponse `json:"reconciliation"`
}

// FromReconciliation converts a session (and optionally its items) to the
// wire form.
func FromReconciliation(r *storage.BankReconciliation, items []storage.ReconciliationItem) ReconciliationResponse {
	resp := ReconciliationResponse{
		ID:          r.ID,
		AccountID:   r.AccountID,
		StatementID: r.StatementID,
		PeriodStart: r.PeriodStart.Format("2006-01-02"),
		PeriodEnd:   r.PeriodEnd.Format("2006-01-02"),

		StatementOpening: r.StatementOpening.String(),
		StatementClosing: r.StatementClosing.String(),
		BookOpening:      r.BookOpening.String(),
		BookClosing:      r.BookClosing.String(),
		Difference:       r.Difference.String(),

		MatchedCount:        r.MatchedCount,
		UnmatchedBankCount:  r.UnmatchedBankCount,
		UnmatchedBookCount:  r.UnmatchedBookCount,
		MatchedAmount:       r.MatchedAmount.String(),
		UnmatchedBankAmount: r.UnmatchedBankAmount.String(),
		UnmatchedBookAmount: r.UnmatchedBookAmount.String(),

		Status:      string(r.Status),
		CreatedBy:   r.CreatedBy,
		CompletedBy: r.CompletedBy,
		CompletedAt: formatTimePtr(r.CompletedAt),
		ReviewedBy:  r.ReviewedBy,
		ReviewedAt:  formatTimePtr(r.ReviewedAt),
		ApprovedBy:  r.ApprovedBy,
		ApprovedAt:  formatTimePtr(r.ApprovedAt),
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.Format(time.RFC3339),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, FromItem(item))
	}
	return resp
}

// FromItem converts one reconciliation item to the wire form.
func FromItem(item storage.ReconciliationItem) ItemResponse {
	return ItemResponse{
		ID:                item.ID,
		StatementLineID:   item.StatementLineID,
		BookTransactionID: item.BookTransactionID,
		MatchType:         string(item.MatchType),
		MatchMethod:       string(item.MatchMethod),
		MatchConfidence:   item.MatchConfidence,
		AmountDifference:  item.AmountDifference.String(),
		MatchedBy:         item.MatchedBy,
		MatchedAt:         item.MatchedAt.Format(time.RFC3339),
	}
}

// FromSuggestions converts scored candidates to the wire form.
func FromSuggestions(suggestions []match.Suggestion) []SuggestionResponse {
	out := make([]SuggestionResponse, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, SuggestionResponse{
			BookTransactionID: s.Txn.ID,
			TransactionDate:   s.Txn.TransactionDate.Format("2006-01-02"),
			Amount:            s.Txn.Amount.String(),
			Description:       s.Txn.Description,
			ReferenceNumber:   s.Txn.ReferenceNumber,
			Score:             s.Score,
			DateDiffDays:      s.DateDiff,
			AmountDifference:  s.AmountDifference.String(),
		})
	}
	return out
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.Format(time.RFC3339)
	return &formatted
}
