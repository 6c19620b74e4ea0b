package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// Row types mirror the tables in migrations/.
type (
	TransactionRow struct {
		ID          string
		OwnerID     string
		Type        string
		AmountCents int64
		Description string
		Category    string
		OccurredOn  string
		CreatedAt   string
	}

	FixedExpenseRow struct {
		ID          string
		OwnerID     string
		Description string
		AmountCents int64
		Category    string
		DueDay      int64
		Active      bool
		CreatedAt   string
	}

	MonthlySummaryRow struct {
		OwnerID          string
		Year             int64
		Month            int64
		IncomeCents      int64
		ExpensesCents    int64
		BalanceCents     int64
		TransactionCount int64
		ComputedAt       string
	}
)
