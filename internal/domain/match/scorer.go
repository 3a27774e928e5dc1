package match

import (
	"math"
	"strings"

	"github.com/crestbooks/reconcile-backend/internal/infrastructure/storage"
)

// Scorer computes a 0-100 confidence score for one (statement line, book
// transaction) pair.
type Scorer struct {
	config Config
}

// NewScorer creates a scorer with the given config
func NewScorer(config Config) *Scorer {
	return &Scorer{config: config}
}

// Score returns the confidence for the pair, and whether the pair is a
// candidate at all. Pairs whose amounts sit on incompatible sides (a bank
// debit against a book inflow, or vice versa) are not candidates, nor are
// pairs scoring below the suggest threshold.
//
// An amount mismatch beyond the tolerance zeroes the amount credit, which
// caps the score at DateWeight+ReferenceBonus+DescriptionBonus — below the
// suggest floor with default weights. Amount equality is therefore a hard
// prerequisite; the reference bonus only supplements amount and date, it
// cannot substitute for them.
func (s *Scorer) Score(line storage.BankStatementLine, txn storage.BookTransaction) (float64, bool) {
	// Polarity gate: bank debit pairs with book outflow, credit with inflow.
	if line.Amount.Sign() != txn.Amount.Sign() {
		return 0, false
	}

	score := 0.0

	if line.Amount.Sub(txn.Amount).Abs().LessThanOrEqual(s.config.AmountTolerance) {
		score += s.config.AmountWeight
	}

	days := dateDiffDays(line, txn)
	if window := s.config.DateWindowDays; window > 0 && days <= window {
		score += s.config.DateWeight * (1 - float64(days)/float64(window))
	}

	if line.ReferenceNumber != "" && line.ReferenceNumber == txn.ReferenceNumber {
		score += s.config.ReferenceBonus
	}

	if descriptionsSimilar(line.Description, txn.Description) {
		score += s.config.DescriptionBonus
	}

	if score < s.config.SuggestThreshold {
		return 0, false
	}
	return score, true
}

// AutoEligible reports whether the score clears the automatic-commit threshold
func (s *Scorer) AutoEligible(score float64) bool {
	return score >= s.config.AutoThreshold
}

// Suggest scores one statement line against the given unmatched transactions
// and returns candidates in [SuggestThreshold, 100), highest score first.
// Auto-eligible pairs are included: a suggestion list answers "what could this
// line match", not "what would auto-match do".
func (s *Scorer) Suggest(line storage.BankStatementLine, txns []storage.BookTransaction) []Suggestion {
	var out []Suggestion
	for _, txn := range txns {
		score, ok := s.Score(line, txn)
		if !ok {
			continue
		}
		out = append(out, Suggestion{
			Txn:              txn,
			Score:            score,
			DateDiff:         dateDiffDays(line, txn),
			AmountDifference: line.Amount.Sub(txn.Amount),
		})
	}
	sortSuggestions(out)
	return out
}

func dateDiffDays(line storage.BankStatementLine, txn storage.BookTransaction) int {
	hours := line.TransactionDate.Sub(txn.TransactionDate).Hours()
	return int(math.Abs(hours) / 24)
}

// descriptionsSimilar reports token overlap or substring containment between
// the two descriptions. Short tokens carry no signal and are ignored.
func descriptionsSimilar(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if strings.Contains(la, lb) || strings.Contains(lb, la) {
		return true
	}
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(la) {
		if len(tok) >= 3 {
			tokens[tok] = true
		}
	}
	for _, tok := range strings.Fields(lb) {
		if len(tok) >= 3 && tokens[tok] {
			return true
		}
	}
	return false
}
