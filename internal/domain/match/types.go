// Package match scores bank statement lines against book transactions and
// performs the greedy auto-match assignment for a reconciliation session.
//
// Scores are on a 0-100 scale:
//   - >= Config.AutoThreshold: eligible for automatic commit
//   - [Config.SuggestThreshold, AutoThreshold): surfaced as suggestions only
//   - below SuggestThreshold: not a candidate
package match

import (
	"github.com/shopspring/decimal"

	"github.com/crestbooks/reconcile-backend/internal/infrastructure/storage"
)

// Config holds scoring and matching tuning
type Config struct {
	AutoThreshold    float64         // score at or above which pairs auto-commit (default 90)
	SuggestThreshold float64         // score at or above which pairs are suggested (default 60)
	DateWindowDays   int             // days of date credit decay (default 5)
	AmountTolerance  decimal.Decimal // currency-unit rounding tolerance (default 0.005)
	AmountWeight     float64         // credit for an exact amount match (default 60)
	DateWeight       float64         // max credit for date proximity (default 25)
	ReferenceBonus   float64         // credit for an exact reference match (default 10)
	DescriptionBonus float64         // credit for description similarity (default 5)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		AutoThreshold:    90,
		SuggestThreshold: 60,
		DateWindowDays:   5,
		AmountTolerance:  decimal.RequireFromString("0.005"),
		AmountWeight:     60,
		DateWeight:       25,
		ReferenceBonus:   10,
		DescriptionBonus: 5,
	}
}

// Pair is one scored (statement line, book transaction) candidate
type Pair struct {
	Line     storage.BankStatementLine
	Txn      storage.BookTransaction
	Score    float64
	DateDiff int // days between the two transaction dates
}

// Suggestion is one ranked candidate for a single statement line
type Suggestion struct {
	Txn              storage.BookTransaction
	Score            float64
	DateDiff         int
	AmountDifference decimal.Decimal // bank minus book
}
