// Package memory is an in-process ledger.Store used for development and tests.
package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"financas/internal/core"
	"financas/internal/ledger"
	"financas/internal/plan"
)

type Store struct {
	mu        sync.Mutex
	now       func() time.Time
	txs       []core.Transaction
	fixed     []core.FixedExpense
	tiers     map[string]plan.Tier
	snapshots map[snapshotKey]ledger.MonthlySummary
}

type snapshotKey struct {
	owner       string
	year, month int
}

func New() *Store {
	return &Store{
		now:       time.Now,
		tiers:     map[string]plan.Tier{},
		snapshots: map[snapshotKey]ledger.MonthlySummary{},
	}
}

// NewFromFiles returns a store seeded from base/seed_transactions.json. A
// missing file yields an empty store; an unreadable one is an error. Seeded
// rows keep their owner; rows without one go to defaultOwner. Invalid rows
// are skipped with a warning.
func NewFromFiles(base, defaultOwner string) (*Store, error) {
	s := New()
	path := filepath.Join(base, "seed_transactions.json")
	txs, err := ledger.ReadTransactionsFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	for i, t := range txs {
		if t.OwnerID == "" {
			t.OwnerID = defaultOwner
		}
		if _, err := s.CreateTransaction(context.Background(), t); err != nil {
			slog.Warn("Skipping invalid seed transaction", "path", path, "index", i, "error", err)
		}
	}
	return s, nil
}

// SetClock replaces the time source used for CreatedAt.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if t.OwnerID == "" {
		return core.Transaction{}, ledger.ErrMissingOwner
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = uuid.NewString()
	t.CreatedAt = s.now().UTC()
	s.txs = append(s.txs, t)
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, ownerID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.txs {
		if t.ID == id && t.OwnerID == ownerID {
			s.txs = slices.Delete(s.txs, i, i+1)
			return t, nil
		}
	}
	return core.Transaction{}, ledger.ErrNotFound
}

func (s *Store) ListTransactions(_ context.Context, ownerID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Transaction{}
	for _, t := range s.txs {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		if c := b.Date.Compare(a.Date.Time); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *Store) CreateFixedExpense(_ context.Context, fe core.FixedExpense) (core.FixedExpense, error) {
	if fe.OwnerID == "" {
		return core.FixedExpense{}, ledger.ErrMissingOwner
	}
	if err := fe.Validate(); err != nil {
		return core.FixedExpense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fe.ID = uuid.NewString()
	fe.CreatedAt = s.now().UTC()
	s.fixed = append(s.fixed, fe)
	return fe, nil
}

func (s *Store) ListFixedExpenses(_ context.Context, ownerID string) ([]core.FixedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.FixedExpense{}
	for _, fe := range s.fixed {
		if fe.OwnerID == ownerID {
			out = append(out, fe)
		}
	}
	slices.SortStableFunc(out, func(a, b core.FixedExpense) int {
		return cmp.Compare(a.DueDay, b.DueDay)
	})
	return out, nil
}

func (s *Store) DeleteFixedExpense(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, fe := range s.fixed {
		if fe.ID == id && fe.OwnerID == ownerID {
			s.fixed = slices.Delete(s.fixed, i, i+1)
			return nil
		}
	}
	return ledger.ErrNotFound
}

func (s *Store) GetTier(_ context.Context, ownerID string) (plan.Tier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tiers[ownerID]; ok {
		return t, nil
	}
	return "", ledger.ErrNotFound
}

func (s *Store) SetTier(_ context.Context, ownerID string, tier plan.Tier) error {
	if ownerID == "" {
		return ledger.ErrMissingOwner
	}
	if !tier.Valid() {
		return plan.ErrUnknownTier
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers[ownerID] = tier
	return nil
}

func (s *Store) UpsertMonthlySummary(_ context.Context, ms ledger.MonthlySummary) error {
	if ms.OwnerID == "" {
		return ledger.ErrMissingOwner
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshotKey{ms.OwnerID, ms.Year, ms.Month}] = ms
	return nil
}

func (s *Store) ListMonthlySummaries(_ context.Context, ownerID string) ([]ledger.MonthlySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []ledger.MonthlySummary{}
	for k, ms := range s.snapshots {
		if k.owner == ownerID {
			out = append(out, ms)
		}
	}
	slices.SortFunc(out, func(a, b ledger.MonthlySummary) int {
		if c := cmp.Compare(a.Year, b.Year); c != 0 {
			return c
		}
		return cmp.Compare(a.Month, b.Month)
	})
	return out, nil
}

func (s *Store) ListOwners(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	for _, t := range s.txs {
		seen[t.OwnerID] = struct{}{}
	}
	for k := range s.snapshots {
		seen[k.owner] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for o := range seen {
		out = append(out, o)
	}
	slices.Sort(out)
	return out, nil
}

var _ ledger.Store = (*Store)(nil)
