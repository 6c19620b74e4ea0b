package storage

import "context"

const createTransaction = `
INSERT INTO transactions (id, owner_id, type, amount_cents, description, category, occurred_on, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, r TransactionRow) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		r.ID, r.OwnerID, r.Type, r.AmountCents, r.Description, r.Category, r.OccurredOn, r.CreatedAt)
	return err
}

const deleteTransaction = `
DELETE FROM transactions WHERE id = ? AND owner_id = ?
RETURNING id, owner_id, type, amount_cents, description, category, occurred_on, created_at`

func (q *Queries) DeleteTransaction(ctx context.Context, id, ownerID string) (TransactionRow, error) {
	var i TransactionRow
	err := q.db.QueryRowContext(ctx, deleteTransaction, id, ownerID).Scan(
		&i.ID, &i.OwnerID, &i.Type, &i.AmountCents, &i.Description, &i.Category, &i.OccurredOn, &i.CreatedAt)
	return i, err
}

const listOwners = `
SELECT owner_id FROM transactions
UNION
SELECT owner_id FROM monthly_summaries
ORDER BY owner_id`

func (q *Queries) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listOwners)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		items = append(items, owner)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listTransactionsByOwner = `
SELECT id, owner_id, type, amount_cents, description, category, occurred_on, created_at
FROM transactions
WHERE owner_id = ?
ORDER BY occurred_on DESC, created_at DESC`

func (q *Queries) ListTransactionsByOwner(ctx context.Context, ownerID string) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByOwner, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		var i TransactionRow
		if err := rows.Scan(&i.ID, &i.OwnerID, &i.Type, &i.AmountCents, &i.Description, &i.Category, &i.OccurredOn, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listTransactionsBetween = `
SELECT id, owner_id, type, amount_cents, description, category, occurred_on, created_at
FROM transactions
WHERE owner_id = ? AND occurred_on >= ? AND occurred_on <= ?
ORDER BY occurred_on DESC, created_at DESC`

func (q *Queries) ListTransactionsBetween(ctx context.Context, ownerID, from, to string) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsBetween, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		var i TransactionRow
		if err := rows.Scan(&i.ID, &i.OwnerID, &i.Type, &i.AmountCents, &i.Description, &i.Category, &i.OccurredOn, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createFixedExpense = `
INSERT INTO fixed_expenses (id, owner_id, description, amount_cents, category, due_day, active, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateFixedExpense(ctx context.Context, r FixedExpenseRow) error {
	_, err := q.db.ExecContext(ctx, createFixedExpense,
		r.ID, r.OwnerID, r.Description, r.AmountCents, r.Category, r.DueDay, r.Active, r.CreatedAt)
	return err
}

const listFixedExpensesByOwner = `
SELECT id, owner_id, description, amount_cents, category, due_day, active, created_at
FROM fixed_expenses
WHERE owner_id = ?
ORDER BY due_day, created_at`

func (q *Queries) ListFixedExpensesByOwner(ctx context.Context, ownerID string) ([]FixedExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, listFixedExpensesByOwner, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FixedExpenseRow
	for rows.Next() {
		var i FixedExpenseRow
		if err := rows.Scan(&i.ID, &i.OwnerID, &i.Description, &i.AmountCents, &i.Category, &i.DueDay, &i.Active, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteFixedExpense = `DELETE FROM fixed_expenses WHERE id = ? AND owner_id = ?`

func (q *Queries) DeleteFixedExpense(ctx context.Context, id, ownerID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteFixedExpense, id, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getUserTier = `SELECT tier FROM user_plans WHERE owner_id = ?`

func (q *Queries) GetUserTier(ctx context.Context, ownerID string) (string, error) {
	var tier string
	err := q.db.QueryRowContext(ctx, getUserTier, ownerID).Scan(&tier)
	return tier, err
}

const upsertUserTier = `
INSERT INTO user_plans (owner_id, tier, updated_at) VALUES (?, ?, ?)
ON CONFLICT (owner_id) DO UPDATE SET tier = excluded.tier, updated_at = excluded.updated_at`

func (q *Queries) UpsertUserTier(ctx context.Context, ownerID, tier, updatedAt string) error {
	_, err := q.db.ExecContext(ctx, upsertUserTier, ownerID, tier, updatedAt)
	return err
}

const upsertMonthlySummary = `
INSERT INTO monthly_summaries (owner_id, year, month, income_cents, expenses_cents, balance_cents, transaction_count, computed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (owner_id, year, month) DO UPDATE SET
    income_cents = excluded.income_cents,
    expenses_cents = excluded.expenses_cents,
    balance_cents = excluded.balance_cents,
    transaction_count = excluded.transaction_count,
    computed_at = excluded.computed_at`

func (q *Queries) UpsertMonthlySummary(ctx context.Context, r MonthlySummaryRow) error {
	_, err := q.db.ExecContext(ctx, upsertMonthlySummary,
		r.OwnerID, r.Year, r.Month, r.IncomeCents, r.ExpensesCents, r.BalanceCents, r.TransactionCount, r.ComputedAt)
	return err
}

const listMonthlySummaries = `
SELECT owner_id, year, month, income_cents, expenses_cents, balance_cents, transaction_count, computed_at
FROM monthly_summaries
WHERE owner_id = ?
ORDER BY year, month`

func (q *Queries) ListMonthlySummaries(ctx context.Context, ownerID string) ([]MonthlySummaryRow, error) {
	rows, err := q.db.QueryContext(ctx, listMonthlySummaries, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MonthlySummaryRow
	for rows.Next() {
		var i MonthlySummaryRow
		if err := rows.Scan(&i.OwnerID, &i.Year, &i.Month, &i.IncomeCents, &i.ExpensesCents, &i.BalanceCents, &i.TransactionCount, &i.ComputedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
