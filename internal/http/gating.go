package http

import (
	"context"
	"fmt"
	"net/http"

	applog "financas/internal/log"
	"financas/internal/plan"
)

var featureLabels = map[plan.Feature]string{
	plan.FeatureCategoryBreakdown: "Gastos por categoria",
	plan.FeatureFixedExpenses:     "Despesas fixas",
	plan.FeatureTrend:             "Tendência mensal",
	plan.FeatureFilters:           "Filtros de transações",
}

// variantFor resolves the dashboard the owner's tier unlocks.
func (s *Server) variantFor(ctx context.Context, ownerID string) (plan.Variant, error) {
	st, err := s.plans.State(ctx, ownerID)
	if err != nil {
		return plan.Variant{}, err
	}
	return plan.SelectDashboard(st.Tier()), nil
}

// gate reports whether v allows f. On refusal it has already written a 403
// naming the lowest tier that would.
func (s *Server) gate(w http.ResponseWriter, r *http.Request, ownerID string, v plan.Variant, f plan.Feature) bool {
	if v.Allows(f) {
		return true
	}
	required := plan.RequiredTier(f)
	s.appMetrics.gateDenials.Add(1)
	s.events.LogGateDenied(r.Context(), ownerID, string(v.Tier), string(required), string(f))

	if wantsJSON(r) {
		writeJSON(w, http.StatusForbidden, errorBody{
			Error:        fmt.Sprintf("feature %s requires the %s plan", f, required),
			RequiredTier: required,
		})
		return false
	}
	ForbiddenError(fmt.Sprintf("%s está disponível a partir do plano %s", featureLabels[f], required.Label()),
		string(required)).Write(w)
	return false
}

// loadVariant writes a 500 and returns false when the plan cannot be read.
func (s *Server) loadVariant(w http.ResponseWriter, r *http.Request, ownerID string) (plan.Variant, bool) {
	ctx, cancel := storeContext(r)
	defer cancel()
	v, err := s.variantFor(ctx, ownerID)
	if err != nil {
		s.events.LogError(r.Context(), "Failed to load plan", err, applog.ComponentPlan, applog.OpList,
			applog.NewFields().WithOwner(ownerID))
		s.writeInternalError(w, r, "Não foi possível carregar o plano")
		return plan.Variant{}, false
	}
	return v, true
}

func (s *Server) writeInternalError(w http.ResponseWriter, r *http.Request, msg string) {
	if wantsJSON(r) {
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	InternalServerError(msg).Write(w)
}
