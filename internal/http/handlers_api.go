package http

import (
	"net/http"
	"strings"

	"financas/internal/categories"
	"financas/internal/core"
	"financas/internal/finance"
	applog "financas/internal/log"
	"financas/internal/plan"
)

type planResponse struct {
	Tier       plan.Tier    `json:"tier"`
	Label      string       `json:"label"`
	CanUpgrade bool         `json:"can_upgrade"`
	NextTier   plan.Tier    `json:"next_tier,omitempty"`
	Dashboard  plan.Variant `json:"dashboard"`
}

// trendResponse is always recomputed from the transaction list. Stored
// snapshots lag behind writes until the worker catches up.
type trendResponse struct {
	Months []finance.MonthTotal `json:"months"`
}

func (s *Server) planBody(st *plan.State) planResponse {
	next, _ := st.NextTier()
	return planResponse{
		Tier:       st.Tier(),
		Label:      st.Tier().Label(),
		CanUpgrade: st.CanUpgrade(),
		NextTier:   next,
		Dashboard:  plan.SelectDashboard(st.Tier()),
	}
}

// apiTransactions selects the transactions an /api query names. year and
// month are free on every tier; the other filters need FeatureFilters. With
// no parameters every transaction is returned.
func (s *Server) apiTransactions(w http.ResponseWriter, r *http.Request, ownerID string, v plan.Variant) ([]core.Transaction, bool) {
	query := r.URL.Query()
	var criteria finance.Criteria
	if month := ParseMonthParams(query, s.now()); month.Explicit {
		criteria = finance.InMonth(month.Year, month.Month)
	}
	if HasFilterParams(query) {
		if !s.gate(w, r, ownerID, v, plan.FeatureFilters) {
			return nil, false
		}
		c, err := ParseCriteria(query)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return nil, false
		}
		if c.Start.IsZero() && c.End.IsZero() {
			c.Start, c.End = criteria.Start, criteria.End
		}
		criteria = c
	}

	ctx, cancel := storeContext(r)
	defer cancel()
	all, err := s.txs.List(ctx, ownerID)
	if err != nil {
		s.events.LogError(r.Context(), "Failed to list transactions", err, applog.ComponentLedger, applog.OpList,
			applog.NewFields().WithOwner(ownerID))
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if criteria.IsZero() {
		return all, true
	}
	return finance.FilterTransactions(all, criteria), true
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request, ownerID string) {
	v, ok := s.loadVariant(w, r, ownerID)
	if !ok {
		return
	}
	txs, ok := s.apiTransactions(w, r, ownerID, v)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, finance.ComputeSummary(txs))
}

func (s *Server) handleAPICategorySpending(w http.ResponseWriter, r *http.Request, ownerID string) {
	v, ok := s.loadVariant(w, r, ownerID)
	if !ok || !s.gate(w, r, ownerID, v, plan.FeatureCategoryBreakdown) {
		return
	}
	txs, ok := s.apiTransactions(w, r, ownerID, v)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, finance.ComputeCategorySpending(txs))
}

// handleAPICategories lists the registry, optionally narrowed by type.
func (s *Server) handleAPICategories(w http.ResponseWriter, r *http.Request, _ string) {
	raw := strings.TrimSpace(r.URL.Query().Get("type"))
	if raw == "" {
		writeJSON(w, http.StatusOK, categories.All())
		return
	}
	t, err := core.ParseTransactionType(raw)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "type must be income or expense")
		return
	}
	writeJSON(w, http.StatusOK, categories.ByType(t))
}

func (s *Server) handleAPITrend(w http.ResponseWriter, r *http.Request, ownerID string) {
	v, ok := s.loadVariant(w, r, ownerID)
	if !ok || !s.gate(w, r, ownerID, v, plan.FeatureTrend) {
		return
	}

	ctx, cancel := storeContext(r)
	defer cancel()

	all, err := s.txs.List(ctx, ownerID)
	if err != nil {
		s.events.LogError(r.Context(), "Failed to list transactions", err, applog.ComponentLedger, applog.OpList,
			applog.NewFields().WithOwner(ownerID))
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, trendResponse{Months: finance.MonthlyTotals(all)})
}

func (s *Server) handleAPIPlan(w http.ResponseWriter, r *http.Request, ownerID string) {
	ctx, cancel := storeContext(r)
	defer cancel()
	st, err := s.plans.State(ctx, ownerID)
	if err != nil {
		s.events.LogError(r.Context(), "Failed to load plan", err, applog.ComponentPlan, applog.OpList,
			applog.NewFields().WithOwner(ownerID))
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, s.planBody(st))
}
