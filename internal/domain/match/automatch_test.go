package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crestbooks/reconcile-backend/internal/infrastructure/storage"
)

func TestAutoMatcher_CommitsOnlyAutoEligiblePairs(t *testing.T) {
	m := NewAutoMatcher(DefaultConfig())

	lines := []storage.BankStatementLine{
		line("l1", "-150.00", day(5), "Check 1021", "CHK1021"),
		line("l2", "-200.00", day(1), "", ""), // best counterpart is 8 days away: suggested only
	}
	txns := []storage.BookTransaction{
		txn("t1", "-150.00", day(5), "Office chairs", "CHK1021"),
		txn("t2", "-200.00", day(9), "", ""),
	}

	plan := m.Plan(lines, txns)

	require.Len(t, plan, 1)
	assert.Equal(t, "l1", plan[0].Line.ID)
	assert.Equal(t, "t1", plan[0].Txn.ID)
	assert.GreaterOrEqual(t, plan[0].Score, 90.0)
}

func TestAutoMatcher_NoDoubleConsumption(t *testing.T) {
	m := NewAutoMatcher(DefaultConfig())

	// Two identical lines compete for one transaction; only one may win.
	lines := []storage.BankStatementLine{
		line("l1", "-75.00", day(10), "", "INV-9"),
		line("l2", "-75.00", day(10), "", "INV-9"),
	}
	txns := []storage.BookTransaction{
		txn("t1", "-75.00", day(10), "", "INV-9"),
	}

	plan := m.Plan(lines, txns)

	require.Len(t, plan, 1)
	// Deterministic tie-break: lower line ID wins
	assert.Equal(t, "l1", plan[0].Line.ID)
}

func TestAutoMatcher_DeterministicAcrossInputOrder(t *testing.T) {
	m := NewAutoMatcher(DefaultConfig())

	lines := []storage.BankStatementLine{
		line("l1", "-40.00", day(3), "", "REF-1"),
		line("l2", "-40.00", day(4), "", "REF-2"),
		line("l3", "-90.00", day(6), "", "REF-3"),
	}
	txns := []storage.BookTransaction{
		txn("t1", "-40.00", day(3), "", "REF-1"),
		txn("t2", "-40.00", day(4), "", "REF-2"),
		txn("t3", "-90.00", day(6), "", "REF-3"),
	}

	forward := m.Plan(lines, txns)

	reversedLines := []storage.BankStatementLine{lines[2], lines[1], lines[0]}
	reversedTxns := []storage.BookTransaction{txns[2], txns[1], txns[0]}
	backward := m.Plan(reversedLines, reversedTxns)

	require.Equal(t, len(forward), len(backward))
	for i := range forward {
		assert.Equal(t, forward[i].Line.ID, backward[i].Line.ID)
		assert.Equal(t, forward[i].Txn.ID, backward[i].Txn.ID)
		assert.Equal(t, forward[i].Score, backward[i].Score)
	}
}

func TestAutoMatcher_PrefersCloserDateOnEqualScore(t *testing.T) {
	m := NewAutoMatcher(DefaultConfig())

	// Both candidates score exactly 90: the same-day one earns full date
	// credit without a reference, the two-day one makes the difference up
	// with a reference match. The closer date must win the tie.
	lines := []storage.BankStatementLine{
		line("l1", "-60.00", day(10), "Acme supplies", "CHK7"),
	}
	txns := []storage.BookTransaction{
		txn("t-far", "-60.00", day(12), "Acme supplies", "CHK7"),
		txn("t-near", "-60.00", day(10), "Acme supplies", ""),
	}

	plan := m.Plan(lines, txns)

	require.Len(t, plan, 1)
	assert.Equal(t, "t-near", plan[0].Txn.ID)
}

func TestAutoMatcher_EmptyInputs(t *testing.T) {
	m := NewAutoMatcher(DefaultConfig())

	assert.Empty(t, m.Plan(nil, nil))
	assert.Empty(t, m.Plan([]storage.BankStatementLine{line("l1", "-5.00", day(1), "", "")}, nil))
	assert.Empty(t, m.Plan(nil, []storage.BookTransaction{txn("t1", "-5.00", day(1), "", "")}))
}
