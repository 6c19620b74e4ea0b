// Package ledger declares the persistence ports the application depends on.
// Every call is scoped to one owner; a row owned by someone else is reported
// as ErrNotFound, never as an authorization error.
package ledger

import (
	"context"
	"errors"
	"time"

	"financas/internal/core"
	"financas/internal/finance"
	"financas/internal/plan"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrMissingOwner = errors.New("missing owner id")
)

// MonthlySummary is a persisted snapshot of one owner's month.
type MonthlySummary struct {
	OwnerID    string          `json:"owner_id"`
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	Summary    finance.Summary `json:"summary"`
	ComputedAt time.Time       `json:"computed_at"`
}

// Ports for outbound adapters.
type (
	TransactionWriter interface {
		// CreateTransaction assigns ID and CreatedAt and returns the stored row.
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		// DeleteTransaction returns the row it removed.
		DeleteTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error)
	}

	// TransactionLister returns an owner's transactions, newest date first,
	// ties broken by creation time, newest first.
	TransactionLister interface {
		ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error)
	}

	// MonthTransactionLister is an optional fast path for backends that can
	// select one calendar month without loading every row.
	MonthTransactionLister interface {
		ListTransactionsInMonth(ctx context.Context, ownerID string, year, month int) ([]core.Transaction, error)
	}

	FixedExpenseStore interface {
		CreateFixedExpense(ctx context.Context, fe core.FixedExpense) (core.FixedExpense, error)
		ListFixedExpenses(ctx context.Context, ownerID string) ([]core.FixedExpense, error)
		DeleteFixedExpense(ctx context.Context, ownerID, id string) error
	}

	// PlanStore persists the tier of each owner. GetTier returns ErrNotFound
	// for an owner that was never assigned one.
	PlanStore interface {
		GetTier(ctx context.Context, ownerID string) (plan.Tier, error)
		SetTier(ctx context.Context, ownerID string, tier plan.Tier) error
	}

	// SnapshotStore keeps precomputed monthly summaries, oldest month first.
	SnapshotStore interface {
		UpsertMonthlySummary(ctx context.Context, s MonthlySummary) error
		ListMonthlySummaries(ctx context.Context, ownerID string) ([]MonthlySummary, error)
	}

	// OwnerLister returns every owner with transactions or snapshots.
	OwnerLister interface {
		ListOwners(ctx context.Context) ([]string, error)
	}

	// Store is everything a full backend provides.
	Store interface {
		TransactionWriter
		TransactionLister
		FixedExpenseStore
		PlanStore
		SnapshotStore
		OwnerLister
	}
)
