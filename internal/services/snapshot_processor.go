package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/finance"
	"financas/internal/ledger"
)

// SnapshotProcessor keeps ledger.MonthlySummary rows in step with the
// transactions they summarize.
type SnapshotProcessor struct {
	lister    ledger.TransactionLister
	snapshots ledger.SnapshotStore
	now       func() time.Time
}

func NewSnapshotProcessor(lister ledger.TransactionLister, snapshots ledger.SnapshotStore) *SnapshotProcessor {
	return &SnapshotProcessor{lister: lister, snapshots: snapshots, now: time.Now}
}

// HandleEvent recomputes the month named by ev. It matches the handler
// signature of amqp.Client.ConsumeTransactionEvents.
func (p *SnapshotProcessor) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	_, err := p.Recompute(ctx, ev.OwnerID, ev.Year, ev.Month)
	return err
}

// Recompute summarizes one owner's month and stores the result. A month with
// no transactions is stored as an all-zero summary.
func (p *SnapshotProcessor) Recompute(ctx context.Context, ownerID string, year, month int) (ledger.MonthlySummary, error) {
	txs, err := p.monthTransactions(ctx, ownerID, year, month)
	if err != nil {
		return ledger.MonthlySummary{}, err
	}

	ms := ledger.MonthlySummary{
		OwnerID:    ownerID,
		Year:       year,
		Month:      month,
		Summary:    finance.ComputeSummary(txs),
		ComputedAt: p.now().UTC(),
	}
	if err := p.snapshots.UpsertMonthlySummary(ctx, ms); err != nil {
		return ledger.MonthlySummary{}, fmt.Errorf("store snapshot %04d-%02d: %w", year, month, err)
	}

	slog.InfoContext(ctx, "Monthly summary updated",
		"owner_id", ownerID,
		"year", year,
		"month", month,
		"transactions", ms.Summary.TransactionCount)
	return ms, nil
}

// Rebuild recomputes every month in which the owner has transactions or a
// stored snapshot and returns how many snapshots were written. Months whose
// transactions were all deleted are written back as zero.
func (p *SnapshotProcessor) Rebuild(ctx context.Context, ownerID string) (int, error) {
	checks, err := p.Verify(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	for _, c := range checks {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if _, err := p.Recompute(ctx, ownerID, c.Year, c.Month); err != nil {
			return 0, err
		}
	}
	return len(checks), nil
}

// Snapshot states reported by Verify.
const (
	SnapshotCurrent = "current"
	SnapshotStale   = "stale"
	SnapshotMissing = "missing"
)

// SnapshotCheck compares one stored month with the live transactions.
type SnapshotCheck struct {
	Year   int
	Month  int
	State  string
	Stored finance.Summary
	Live   finance.Summary
}

// Verify lists every month that has transactions or a snapshot, oldest
// first, with the stored and live summaries side by side.
func (p *SnapshotProcessor) Verify(ctx context.Context, ownerID string) ([]SnapshotCheck, error) {
	txs, err := p.lister.ListTransactions(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	stored, err := p.snapshots.ListMonthlySummaries(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	type key struct{ year, month int }
	checks := map[key]*SnapshotCheck{}
	for _, ms := range stored {
		checks[key{ms.Year, ms.Month}] = &SnapshotCheck{Year: ms.Year, Month: ms.Month, State: SnapshotStale, Stored: ms.Summary}
	}
	for _, m := range finance.MonthlyTotals(txs) {
		k := key{m.Year, m.Month}
		c, ok := checks[k]
		if !ok {
			c = &SnapshotCheck{Year: m.Year, Month: m.Month, State: SnapshotMissing}
			checks[k] = c
		}
		c.Live = finance.ComputeSummary(finance.FilterTransactions(txs, finance.InMonth(m.Year, m.Month)))
	}

	out := make([]SnapshotCheck, 0, len(checks))
	for _, c := range checks {
		if c.State == SnapshotStale && sameSummary(c.Stored, c.Live) {
			c.State = SnapshotCurrent
		}
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b SnapshotCheck) int {
		if d := cmp.Compare(a.Year, b.Year); d != 0 {
			return d
		}
		return cmp.Compare(a.Month, b.Month)
	})
	return out, nil
}

// sameSummary compares to the cent.
func sameSummary(a, b finance.Summary) bool {
	near := func(x, y float64) bool { return math.Abs(x-y) < 0.005 }
	return a.TransactionCount == b.TransactionCount &&
		near(a.TotalIncome, b.TotalIncome) &&
		near(a.TotalExpenses, b.TotalExpenses) &&
		near(a.Balance, b.Balance)
}

func (p *SnapshotProcessor) monthTransactions(ctx context.Context, ownerID string, year, month int) ([]core.Transaction, error) {
	if ml, ok := p.lister.(ledger.MonthTransactionLister); ok {
		txs, err := ml.ListTransactionsInMonth(ctx, ownerID, year, month)
		if err != nil {
			return nil, fmt.Errorf("list month transactions: %w", err)
		}
		return txs, nil
	}
	txs, err := p.lister.ListTransactions(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return finance.FilterTransactions(txs, finance.InMonth(year, month)), nil
}
