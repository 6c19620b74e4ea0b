package services

import (
	"context"
	"errors"
	"slices"
	"testing"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/finance"
	"financas/internal/ledger/memory"
	"financas/internal/plan"
)

func TestSnapshotProcessor_Recompute(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	for _, tx := range []core.Transaction{
		{OwnerID: "alice", Type: core.Income, Amount: 5000, Description: "s", Category: "Salário", Date: core.NewDate(2025, 3, 1)},
		{OwnerID: "alice", Type: core.Expense, Amount: 800, Description: "a", Category: "Moradia", Date: core.NewDate(2025, 3, 5)},
		{OwnerID: "alice", Type: core.Expense, Amount: 150, Description: "m", Category: "Alimentação", Date: core.NewDate(2025, 3, 31)},
		{OwnerID: "alice", Type: core.Expense, Amount: 70, Description: "x", Category: "Lazer", Date: core.NewDate(2025, 4, 1)},
	} {
		if _, err := store.CreateTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}

	p := NewSnapshotProcessor(store, store)
	err := p.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventTransactionCreated, "alice", "x", 2025, 3))
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	snaps, _ := store.ListMonthlySummaries(ctx, "alice")
	if len(snaps) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(snaps))
	}
	want := finance.Summary{TotalIncome: 5000, TotalExpenses: 950, Balance: 4050, TransactionCount: 3}
	if snaps[0].Summary != want {
		t.Fatalf("summary = %+v, want %+v", snaps[0].Summary, want)
	}
}

func TestSnapshotProcessor_EmptyMonth(t *testing.T) {
	store := memory.New()
	ms, err := NewSnapshotProcessor(store, store).Recompute(context.Background(), "alice", 2025, 6)
	if err != nil {
		t.Fatal(err)
	}
	if ms.Summary != (finance.Summary{}) {
		t.Fatalf("empty month should summarize to zero, got %+v", ms.Summary)
	}
}

func TestSnapshotProcessor_Rebuild(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	for _, d := range []core.Date{core.NewDate(2024, 12, 1), core.NewDate(2025, 1, 1), core.NewDate(2025, 1, 15)} {
		if _, err := store.CreateTransaction(ctx, expense("alice", 10, d)); err != nil {
			t.Fatal(err)
		}
	}
	n, err := NewSnapshotProcessor(store, store).Rebuild(ctx, "alice")
	if err != nil || n != 2 {
		t.Fatalf("Rebuild = %d, %v; want 2", n, err)
	}
	snaps, _ := store.ListMonthlySummaries(ctx, "alice")
	if len(snaps) != 2 || snaps[1].Summary.TotalExpenses != 20 {
		t.Fatalf("unexpected snapshots %+v", snaps)
	}
}

func TestSnapshotProcessor_VerifyAndRebuildDeletedMonth(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	jan, _ := store.CreateTransaction(ctx, expense("alice", 10, core.NewDate(2025, 1, 10)))
	if _, err := store.CreateTransaction(ctx, expense("alice", 20, core.NewDate(2025, 2, 10))); err != nil {
		t.Fatal(err)
	}
	p := NewSnapshotProcessor(store, store)
	if _, err := p.Rebuild(ctx, "alice"); err != nil {
		t.Fatal(err)
	}

	if _, err := store.DeleteTransaction(ctx, "alice", jan.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateTransaction(ctx, expense("alice", 5, core.NewDate(2025, 2, 11))); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateTransaction(ctx, expense("alice", 7, core.NewDate(2025, 3, 1))); err != nil {
		t.Fatal(err)
	}

	checks, err := p.Verify(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	var states []string
	for _, c := range checks {
		states = append(states, c.State)
	}
	if want := []string{SnapshotStale, SnapshotStale, SnapshotMissing}; !slices.Equal(states, want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	if checks[1].Live.TotalExpenses != 25 || checks[1].Stored.TotalExpenses != 20 {
		t.Fatalf("february check = %+v", checks[1])
	}

	n, err := p.Rebuild(ctx, "alice")
	if err != nil || n != 3 {
		t.Fatalf("Rebuild = %d, %v; want 3", n, err)
	}
	snaps, _ := store.ListMonthlySummaries(ctx, "alice")
	if len(snaps) != 3 || snaps[0].Summary != (finance.Summary{}) {
		t.Fatalf("emptied month should be zeroed, got %+v", snaps)
	}
	checks, _ = p.Verify(ctx, "alice")
	for _, c := range checks {
		if c.State != SnapshotCurrent {
			t.Fatalf("after rebuild %04d-%02d is %s", c.Year, c.Month, c.State)
		}
	}
}

func TestPlanService(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewPlanService(store, plan.Free)

	for _, want := range []plan.Tier{plan.Bronze, plan.Silver, plan.Gold} {
		got, err := svc.Upgrade(ctx, "alice")
		if err != nil || got != want {
			t.Fatalf("Upgrade = %s, %v; want %s", got, err, want)
		}
	}
	got, err := svc.Upgrade(ctx, "alice")
	if !errors.Is(err, plan.ErrNoUpgrade) || got != plan.Gold {
		t.Fatalf("Upgrade at gold = %s, %v", got, err)
	}

	if err := svc.Assign(ctx, "bob", plan.Enterprise); err != nil {
		t.Fatal(err)
	}
	st, _ := svc.State(ctx, "bob")
	if st.Tier() != plan.Enterprise || st.CanUpgrade() {
		t.Fatalf("enterprise state = %s", st.Tier())
	}
	if err := svc.Assign(ctx, "bob", "platinum"); !errors.Is(err, plan.ErrUnknownTier) {
		t.Fatalf("Assign unknown: %v", err)
	}
}

func TestPlanServiceDefaultTier(t *testing.T) {
	svc := NewPlanService(memory.New(), plan.Silver)
	st, err := svc.State(context.Background(), "newcomer")
	if err != nil || st.Tier() != plan.Silver {
		t.Fatalf("State = %v, %v", st, err)
	}
}

func TestPlanServiceStoredFreeBeatsDefault(t *testing.T) {
	ctx := context.Background()
	svc := NewPlanService(memory.New(), plan.Silver)

	if err := svc.Assign(ctx, "alice", plan.Free); err != nil {
		t.Fatal(err)
	}
	st, err := svc.State(ctx, "alice")
	if err != nil || st.Tier() != plan.Free {
		t.Fatalf("State after assigning free = %v, %v", st, err)
	}
	got, err := svc.Upgrade(ctx, "alice")
	if err != nil || got != plan.Bronze {
		t.Fatalf("Upgrade from stored free = %s, %v; want bronze", got, err)
	}
}
