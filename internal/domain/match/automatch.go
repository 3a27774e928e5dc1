package match

import (
	"sort"

	"github.com/crestbooks/reconcile-backend/internal/infrastructure/storage"
)

// AutoMatcher plans the automatic assignment of statement lines to book
// transactions for one reconciliation session.
type AutoMatcher struct {
	scorer *Scorer
	config Config
}

// NewAutoMatcher creates an auto-matcher with the given config
func NewAutoMatcher(config Config) *AutoMatcher {
	return &AutoMatcher{
		scorer: NewScorer(config),
		config: config,
	}
}

// Scorer returns the underlying scorer, shared with suggestion lookups so
// both paths apply identical scoring.
func (m *AutoMatcher) Scorer() *Scorer {
	return m.scorer
}

// Plan computes the full candidate matrix and returns the pairs an automatic
// run would commit, in commit order.
//
// Assignment is greedy: candidates at or above the auto threshold are sorted
// by score descending, date distance ascending, then line ID and transaction
// ID ascending, and each is committed unless either side was already consumed
// earlier in the pass. Greedy-by-score is the deliberate policy — simpler and
// explainable, not an optimal bipartite matching — and the full ordering
// makes a run deterministic for identical inputs regardless of input order.
func (m *AutoMatcher) Plan(lines []storage.BankStatementLine, txns []storage.BookTransaction) []Pair {
	var candidates []Pair
	for _, line := range lines {
		for _, txn := range txns {
			// Cheap pre-filter before scoring: the date credit is the only
			// score component that varies inside the window, so pairs far
			// outside it can never reach the auto threshold.
			if m.config.DateWindowDays > 0 && dateDiffDays(line, txn) > 2*m.config.DateWindowDays {
				continue
			}
			score, ok := m.scorer.Score(line, txn)
			if !ok || !m.scorer.AutoEligible(score) {
				continue
			}
			candidates = append(candidates, Pair{
				Line:     line,
				Txn:      txn,
				Score:    score,
				DateDiff: dateDiffDays(line, txn),
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.DateDiff != b.DateDiff {
			return a.DateDiff < b.DateDiff
		}
		if a.Line.ID != b.Line.ID {
			return a.Line.ID < b.Line.ID
		}
		return a.Txn.ID < b.Txn.ID
	})

	usedLines := make(map[string]bool)
	usedTxns := make(map[string]bool)
	var plan []Pair
	for _, c := range candidates {
		if usedLines[c.Line.ID] || usedTxns[c.Txn.ID] {
			continue
		}
		usedLines[c.Line.ID] = true
		usedTxns[c.Txn.ID] = true
		plan = append(plan, c)
	}
	return plan
}

func sortSuggestions(suggestions []Suggestion) {
	sort.Slice(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.DateDiff != b.DateDiff {
			return a.DateDiff < b.DateDiff
		}
		return a.Txn.ID < b.Txn.ID
	})
}
