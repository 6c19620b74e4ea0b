package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"financas/internal/core"
	"financas/internal/finance"
	"financas/internal/ledger"
	"financas/internal/plan"

	_ "modernc.org/sqlite"
)

// Fixed width so created_at sorts lexicographically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateTransaction implements ledger.TransactionWriter
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.OwnerID == "" {
		return core.Transaction{}, ledger.ErrMissingOwner
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	cents, err := core.ToCents(t.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	t.ID = uuid.NewString()
	t.CreatedAt = r.now().UTC()

	err = r.queries.CreateTransaction(ctx, TransactionRow{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Type:        string(t.Type),
		AmountCents: cents,
		Description: t.Description,
		Category:    t.Category,
		OccurredOn:  t.Date.String(),
		CreatedAt:   t.CreatedAt.Format(timestampLayout),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"type", t.Type,
		"amount_cents", cents,
		"date", t.Date.String())
	return t, nil
}

// DeleteTransaction implements ledger.TransactionWriter
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	row, err := r.queries.DeleteTransaction(ctx, id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("delete transaction: %w", err)
	}
	out, err := transactionsFromRows([]TransactionRow{row})
	if err != nil {
		return core.Transaction{}, err
	}
	return out[0], nil
}

// ListOwners implements ledger.OwnerLister
func (r *SQLiteRepository) ListOwners(ctx context.Context) ([]string, error) {
	owners, err := r.queries.ListOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	return owners, nil
}

// ListTransactions implements ledger.TransactionLister
func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return transactionsFromRows(rows)
}

// ListTransactionsInMonth implements ledger.MonthTransactionLister
func (r *SQLiteRepository) ListTransactionsInMonth(ctx context.Context, ownerID string, year, month int) ([]core.Transaction, error) {
	c := finance.InMonth(year, month)
	rows, err := r.queries.ListTransactionsBetween(ctx, ownerID, c.Start.String(), c.End.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions for %04d-%02d: %w", year, month, err)
	}
	return transactionsFromRows(rows)
}

func transactionsFromRows(rows []TransactionRow) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		date, err := core.ParseDate(row.OccurredOn)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: bad date %q: %w", row.ID, row.OccurredOn, err)
		}
		created, err := time.Parse(timestampLayout, row.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: bad created_at %q: %w", row.ID, row.CreatedAt, err)
		}
		out = append(out, core.Transaction{
			ID:          row.ID,
			OwnerID:     row.OwnerID,
			Type:        core.TransactionType(row.Type),
			Amount:      core.FromCents(row.AmountCents),
			Description: row.Description,
			Category:    row.Category,
			Date:        date,
			CreatedAt:   created,
		})
	}
	return out, nil
}

// CreateFixedExpense implements ledger.FixedExpenseStore
func (r *SQLiteRepository) CreateFixedExpense(ctx context.Context, fe core.FixedExpense) (core.FixedExpense, error) {
	if fe.OwnerID == "" {
		return core.FixedExpense{}, ledger.ErrMissingOwner
	}
	if err := fe.Validate(); err != nil {
		return core.FixedExpense{}, err
	}
	cents, err := core.ToCents(fe.Amount)
	if err != nil {
		return core.FixedExpense{}, err
	}
	fe.ID = uuid.NewString()
	fe.CreatedAt = r.now().UTC()

	err = r.queries.CreateFixedExpense(ctx, FixedExpenseRow{
		ID:          fe.ID,
		OwnerID:     fe.OwnerID,
		Description: fe.Description,
		AmountCents: cents,
		Category:    fe.Category,
		DueDay:      int64(fe.DueDay),
		Active:      fe.Active,
		CreatedAt:   fe.CreatedAt.Format(timestampLayout),
	})
	if err != nil {
		return core.FixedExpense{}, fmt.Errorf("create fixed expense: %w", err)
	}
	return fe, nil
}

// ListFixedExpenses implements ledger.FixedExpenseStore
func (r *SQLiteRepository) ListFixedExpenses(ctx context.Context, ownerID string) ([]core.FixedExpense, error) {
	rows, err := r.queries.ListFixedExpensesByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list fixed expenses: %w", err)
	}
	out := make([]core.FixedExpense, 0, len(rows))
	for _, row := range rows {
		created, err := time.Parse(timestampLayout, row.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("fixed expense %s: bad created_at %q: %w", row.ID, row.CreatedAt, err)
		}
		out = append(out, core.FixedExpense{
			ID:          row.ID,
			OwnerID:     row.OwnerID,
			Description: row.Description,
			Amount:      core.FromCents(row.AmountCents),
			Category:    row.Category,
			DueDay:      int(row.DueDay),
			Active:      row.Active,
			CreatedAt:   created,
		})
	}
	return out, nil
}

// DeleteFixedExpense implements ledger.FixedExpenseStore
func (r *SQLiteRepository) DeleteFixedExpense(ctx context.Context, ownerID, id string) error {
	n, err := r.queries.DeleteFixedExpense(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete fixed expense: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// GetTier implements ledger.PlanStore
func (r *SQLiteRepository) GetTier(ctx context.Context, ownerID string) (plan.Tier, error) {
	raw, err := r.queries.GetUserTier(ctx, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ledger.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get tier: %w", err)
	}
	// Legacy values are passed through; SelectDashboard degrades them to free.
	return plan.Tier(raw), nil
}

// SetTier implements ledger.PlanStore
func (r *SQLiteRepository) SetTier(ctx context.Context, ownerID string, tier plan.Tier) error {
	if ownerID == "" {
		return ledger.ErrMissingOwner
	}
	if !tier.Valid() {
		return plan.ErrUnknownTier
	}
	if err := r.queries.UpsertUserTier(ctx, ownerID, string(tier), r.now().UTC().Format(timestampLayout)); err != nil {
		return fmt.Errorf("set tier: %w", err)
	}
	slog.InfoContext(ctx, "Plan tier updated", "owner_id", ownerID, "tier", tier)
	return nil
}

// UpsertMonthlySummary implements ledger.SnapshotStore
func (r *SQLiteRepository) UpsertMonthlySummary(ctx context.Context, ms ledger.MonthlySummary) error {
	if ms.OwnerID == "" {
		return ledger.ErrMissingOwner
	}
	income, err := core.ToCents(ms.Summary.TotalIncome)
	if err != nil {
		return fmt.Errorf("snapshot income: %w", err)
	}
	expenses, err := core.ToCents(ms.Summary.TotalExpenses)
	if err != nil {
		return fmt.Errorf("snapshot expenses: %w", err)
	}
	computed := ms.ComputedAt
	if computed.IsZero() {
		computed = r.now()
	}
	err = r.queries.UpsertMonthlySummary(ctx, MonthlySummaryRow{
		OwnerID:          ms.OwnerID,
		Year:             int64(ms.Year),
		Month:            int64(ms.Month),
		IncomeCents:      income,
		ExpensesCents:    expenses,
		BalanceCents:     income - expenses,
		TransactionCount: int64(ms.Summary.TransactionCount),
		ComputedAt:       computed.UTC().Format(timestampLayout),
	})
	if err != nil {
		return fmt.Errorf("upsert monthly summary: %w", err)
	}
	return nil
}

// ListMonthlySummaries implements ledger.SnapshotStore
func (r *SQLiteRepository) ListMonthlySummaries(ctx context.Context, ownerID string) ([]ledger.MonthlySummary, error) {
	rows, err := r.queries.ListMonthlySummaries(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list monthly summaries: %w", err)
	}
	out := make([]ledger.MonthlySummary, 0, len(rows))
	for _, row := range rows {
		computed, err := time.Parse(timestampLayout, row.ComputedAt)
		if err != nil {
			return nil, fmt.Errorf("monthly summary %d-%d: bad computed_at: %w", row.Year, row.Month, err)
		}
		out = append(out, ledger.MonthlySummary{
			OwnerID: row.OwnerID,
			Year:    int(row.Year),
			Month:   int(row.Month),
			Summary: finance.Summary{
				TotalIncome:      core.FromCents(row.IncomeCents),
				TotalExpenses:    core.FromCents(row.ExpensesCents),
				Balance:          core.FromCents(row.BalanceCents),
				TransactionCount: int(row.TransactionCount),
			},
			ComputedAt: computed,
		})
	}
	return out, nil
}

var (
	_ ledger.Store                  = (*SQLiteRepository)(nil)
	_ ledger.MonthTransactionLister = (*SQLiteRepository)(nil)
)
