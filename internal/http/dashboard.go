package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"

	"financas/internal/categories"
	"financas/internal/core"
	"financas/internal/finance"
	applog "financas/internal/log"
	"financas/internal/plan"
)

// dashboardView is the data every dashboard template renders from. Fields
// for cards the variant lacks stay empty.
type dashboardView struct {
	Variant plan.Variant
	Month   MonthParams
	Prev    MonthParams
	Next    MonthParams
	Today   string

	Summary       finance.Summary
	Recent        []core.Transaction
	Categories    []finance.CategorySpending
	FixedExpenses []core.FixedExpense
	FixedTotal    float64
	Trend         []finance.MonthTotal

	// Filters echoes the raw filter form values.
	Filters        url.Values
	FiltersApplied bool

	IncomeCategories  []categories.Category
	ExpenseCategories []categories.Category
}

var errBadFilter = errors.New("bad filter")

// loadDashboard reads everything the owner's variant shows for the selected
// month. Transactions and fixed expenses load concurrently.
func (s *Server) loadDashboard(ctx context.Context, ownerID string, query url.Values) (*dashboardView, error) {
	v, err := s.variantFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	month := ParseMonthParams(query, s.now())
	view := &dashboardView{
		Variant:           v,
		Month:             month,
		Prev:              shiftMonth(month, -1),
		Next:              shiftMonth(month, 1),
		Today:             core.DateOf(s.now()).String(),
		Filters:           url.Values{},
		IncomeCategories:  categories.ByType(core.Income),
		ExpenseCategories: categories.ByType(core.Expense),
	}

	var all []core.Transaction
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = s.txs.List(gctx, ownerID)
		return err
	})
	if v.Allows(plan.FeatureFixedExpenses) && s.fixed != nil {
		g.Go(func() error {
			items, err := s.fixed.ListFixedExpenses(gctx, ownerID)
			if err != nil {
				return fmt.Errorf("list fixed expenses: %w", err)
			}
			view.FixedExpenses = items
			view.FixedTotal = finance.FixedExpensesTotal(items)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	criteria := finance.InMonth(month.Year, month.Month)
	if v.Allows(plan.FeatureFilters) && HasFilterParams(query) {
		c, err := ParseCriteria(query)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errBadFilter, err)
		}
		// an explicit date range replaces the month window
		if c.Start.IsZero() && c.End.IsZero() {
			c.Start, c.End = criteria.Start, criteria.End
		}
		criteria = c
		view.FiltersApplied = true
		for _, k := range filterKeys {
			view.Filters.Set(k, sanitizeInput(query.Get(k)))
		}
	}
	selected := finance.FilterTransactions(all, criteria)

	view.Summary = finance.ComputeSummary(selected)
	view.Recent = selected[:min(len(selected), v.RecentLimit)]
	if v.Allows(plan.FeatureCategoryBreakdown) {
		view.Categories = finance.ComputeCategorySpending(selected)
	}
	if v.Allows(plan.FeatureTrend) {
		view.Trend = finance.MonthlyTotals(all)
	}
	return view, nil
}

func shiftMonth(p MonthParams, delta int) MonthParams {
	m := p.Month - 1 + delta
	y := p.Year + m/12
	m %= 12
	if m < 0 {
		m += 12
		y--
	}
	return MonthParams{Year: y, Month: m + 1, Explicit: true}
}

// renderDashboard loads the view and executes the named template.
func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, ownerID, name string) {
	if s.templates == nil {
		InternalServerError("Templates indisponíveis").Write(w)
		return
	}
	ctx, cancel := storeContext(r)
	defer cancel()

	view, err := s.loadDashboard(ctx, ownerID, r.URL.Query())
	if errors.Is(err, errBadFilter) {
		BadRequestError("Filtro inválido").Write(w)
		return
	}
	if err != nil {
		s.events.LogError(r.Context(), "Failed to load dashboard", err, applog.ComponentLedger, applog.OpList,
			applog.NewFields().WithOwner(ownerID))
		InternalServerError("Não foi possível carregar o painel").Write(w)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, view); err != nil {
		s.events.LogError(r.Context(), "Template render failed", err, applog.ComponentTemplate, applog.OpRender,
			applog.NewFields().WithOwner(ownerID))
		InternalServerError("Erro ao renderizar").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
