package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"financas/internal/ledger"
	"financas/internal/plan"
)

// PlanService loads and persists the per-owner plan.State. Billing is not
// involved: an upgrade only moves the stored tier.
type PlanService struct {
	store       ledger.PlanStore
	defaultTier plan.Tier
}

// NewPlanService uses defaultTier for owners with no stored tier, which lets
// development setups start everyone higher. A stored tier always wins, free
// included.
func NewPlanService(store ledger.PlanStore, defaultTier plan.Tier) *PlanService {
	if !defaultTier.Valid() {
		defaultTier = plan.Free
	}
	return &PlanService{store: store, defaultTier: defaultTier}
}

// State returns the owner's tier wrapped in a fresh plan.State.
func (s *PlanService) State(ctx context.Context, ownerID string) (*plan.State, error) {
	tier, err := s.store.GetTier(ctx, ownerID)
	if errors.Is(err, ledger.ErrNotFound) {
		return plan.NewState(s.defaultTier), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	return plan.NewState(tier), nil
}

// Upgrade moves the owner one step up the chain and persists the result.
// It returns plan.ErrNoUpgrade at the end of the chain.
func (s *PlanService) Upgrade(ctx context.Context, ownerID string) (plan.Tier, error) {
	st, err := s.State(ctx, ownerID)
	if err != nil {
		return "", err
	}
	from := st.Tier()
	next, ok := st.Upgrade()
	if !ok {
		return from, plan.ErrNoUpgrade
	}
	if err := s.store.SetTier(ctx, ownerID, next); err != nil {
		return from, fmt.Errorf("save plan: %w", err)
	}
	slog.InfoContext(ctx, "Plan upgraded", "owner_id", ownerID, "from", from, "to", next)
	return next, nil
}

// Assign sets any known tier, enterprise included. It is the administrative
// path used by finctl.
func (s *PlanService) Assign(ctx context.Context, ownerID string, tier plan.Tier) error {
	st := plan.NewState(plan.Free)
	if err := st.Set(tier); err != nil {
		return err
	}
	if err := s.store.SetTier(ctx, ownerID, st.Tier()); err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}
