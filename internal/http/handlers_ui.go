package http

import (
	"net/http"

	"financas/internal/plan"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, ownerID string) {
	s.renderDashboard(w, r, ownerID, "dashboard.html")
}

func (s *Server) handleSummaryCard(w http.ResponseWriter, r *http.Request, ownerID string) {
	s.renderDashboard(w, r, ownerID, "card_summary")
}

func (s *Server) handleTransactionsCard(w http.ResponseWriter, r *http.Request, ownerID string) {
	s.renderDashboard(w, r, ownerID, "card_recent")
}

func (s *Server) handleCategoriesCard(w http.ResponseWriter, r *http.Request, ownerID string) {
	s.renderGatedCard(w, r, ownerID, plan.FeatureCategoryBreakdown, "card_categories")
}

func (s *Server) handleFixedExpensesCard(w http.ResponseWriter, r *http.Request, ownerID string) {
	s.renderGatedCard(w, r, ownerID, plan.FeatureFixedExpenses, "card_fixed")
}

func (s *Server) handleTrendCard(w http.ResponseWriter, r *http.Request, ownerID string) {
	s.renderGatedCard(w, r, ownerID, plan.FeatureTrend, "card_trend")
}

func (s *Server) renderGatedCard(w http.ResponseWriter, r *http.Request, ownerID string, f plan.Feature, name string) {
	v, ok := s.loadVariant(w, r, ownerID)
	if !ok || !s.gate(w, r, ownerID, v, f) {
		return
	}
	s.renderDashboard(w, r, ownerID, name)
}
