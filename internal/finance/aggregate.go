// Package finance turns a list of transactions into the derived values shown
// on dashboards: totals, balance, per-category spending and monthly trend.
//
// Every function here is pure. Amounts are not validated: negative, NaN or
// infinite values flow into the totals exactly as given. Callers that need
// clean input validate at the form boundary with core.Transaction.Validate.
package finance

import (
	"cmp"
	"slices"

	"financas/internal/categories"
	"financas/internal/core"
)

// Summary aggregates a set of transactions.
type Summary struct {
	TotalIncome      float64 `json:"total_income"`
	TotalExpenses    float64 `json:"total_expenses"`
	Balance          float64 `json:"balance"`
	TransactionCount int     `json:"transaction_count"`
}

// CategorySpending is the share of total expenses spent in one category.
type CategorySpending struct {
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

// MonthTotal holds the income and expenses of one calendar month.
type MonthTotal struct {
	Year     int     `json:"year"`
	Month    int     `json:"month"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Balance  float64 `json:"balance"`
}

// ComputeSummary sums income and expenses. Balance is always
// TotalIncome - TotalExpenses and may be negative.
func ComputeSummary(txs []core.Transaction) Summary {
	var s Summary
	for _, t := range txs {
		switch t.Type {
		case core.Income:
			s.TotalIncome += t.Amount
		case core.Expense:
			s.TotalExpenses += t.Amount
		}
	}
	s.Balance = s.TotalIncome - s.TotalExpenses
	s.TransactionCount = len(txs)
	return s
}

// ComputeCategorySpending groups expenses by category name. Entries are
// sorted by amount, largest first; ties keep first-seen order. When total
// expenses are zero every percentage is 0.
func ComputeCategorySpending(txs []core.Transaction) []CategorySpending {
	out := []CategorySpending{}
	index := map[string]int{}
	var total float64

	for _, t := range txs {
		if t.Type != core.Expense {
			continue
		}
		total += t.Amount
		i, ok := index[t.Category]
		if !ok {
			i = len(out)
			index[t.Category] = i
			out = append(out, CategorySpending{
				Category: t.Category,
				Color:    categories.Color(t.Category),
			})
		}
		out[i].Amount += t.Amount
	}

	for i := range out {
		if total != 0 {
			out[i].Percentage = out[i].Amount / total * 100
		}
	}

	slices.SortStableFunc(out, func(a, b CategorySpending) int {
		return cmp.Compare(b.Amount, a.Amount)
	})
	return out
}

// MonthlyTotals buckets transactions by calendar month, oldest first.
// Transactions without a date are skipped.
func MonthlyTotals(txs []core.Transaction) []MonthTotal {
	type key struct{ year, month int }
	buckets := map[key]*MonthTotal{}
	for _, t := range txs {
		if t.Date.IsZero() {
			continue
		}
		k := key{t.Date.Year(), t.Date.Month()}
		mt, ok := buckets[k]
		if !ok {
			mt = &MonthTotal{Year: k.year, Month: k.month}
			buckets[k] = mt
		}
		switch t.Type {
		case core.Income:
			mt.Income += t.Amount
		case core.Expense:
			mt.Expenses += t.Amount
		}
	}

	out := make([]MonthTotal, 0, len(buckets))
	for _, mt := range buckets {
		mt.Balance = mt.Income - mt.Expenses
		out = append(out, *mt)
	}
	slices.SortFunc(out, func(a, b MonthTotal) int {
		if c := cmp.Compare(a.Year, b.Year); c != 0 {
			return c
		}
		return cmp.Compare(a.Month, b.Month)
	})
	return out
}

// FixedExpensesTotal sums the monthly amount of active fixed expenses.
func FixedExpensesTotal(items []core.FixedExpense) float64 {
	var total float64
	for _, fe := range items {
		if fe.Active {
			total += fe.Amount
		}
	}
	return total
}
