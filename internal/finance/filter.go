package finance

import "financas/internal/core"

// Criteria selects a subset of transactions. Zero-valued fields do not
// constrain: an empty Type or Category matches anything and a zero Start or
// End leaves that side of the date range open. Both ends are inclusive.
type Criteria struct {
	Type     core.TransactionType
	Category string
	Start    core.Date
	End      core.Date
}

// IsZero reports whether c constrains nothing.
func (c Criteria) IsZero() bool {
	return c.Type == "" && c.Category == "" && c.Start.IsZero() && c.End.IsZero()
}

// Match reports whether t satisfies every set criterion.
func (c Criteria) Match(t core.Transaction) bool {
	if c.Type != "" && t.Type != c.Type {
		return false
	}
	if c.Category != "" && t.Category != c.Category {
		return false
	}
	if !c.Start.IsZero() && t.Date.Before(c.Start.Time) {
		return false
	}
	if !c.End.IsZero() && t.Date.After(c.End.Time) {
		return false
	}
	return true
}

// FilterTransactions returns the transactions matching c in their original
// order. The result never aliases txs.
func FilterTransactions(txs []core.Transaction, c Criteria) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if c.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// InMonth returns criteria covering the whole calendar month.
func InMonth(year, month int) Criteria {
	start := core.NewDate(year, month, 1)
	end := core.Date{Time: start.AddDate(0, 1, -1)}
	return Criteria{Start: start, End: end}
}
