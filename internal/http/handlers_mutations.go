package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"financas/internal/core"
	"financas/internal/ledger"
	applog "financas/internal/log"
	"financas/internal/plan"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, ownerID string) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.writeBodyError(w, r, err)
		return
	}

	tx, err := ParseTransactionForm(p, ownerID, core.DateOf(s.now()))
	if err != nil {
		s.writeFieldError(w, r, err)
		return
	}

	ctx, cancel := storeContext(r)
	defer cancel()
	created, err := s.txs.Create(ctx, tx)
	if err != nil {
		s.events.LogError(r.Context(), "Failed to create transaction", err, applog.ComponentLedger, applog.OpCreate,
			applog.NewFields().WithOwner(ownerID))
		s.writeInternalError(w, r, "Não foi possível salvar a transação")
		return
	}

	s.appMetrics.transactionsCreated.Add(1)
	cents, _ := core.ToCents(created.Amount)
	s.events.LogTransactionCreated(r.Context(), ownerID, created.ID, string(created.Type), cents, created.Category)

	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, created)
		return
	}
	kind := "Despesa"
	if created.Type == core.Income {
		kind = "Receita"
	}
	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerTransactionChanged(created.Date.Year(), created.Date.Month()).
		TriggerFormReset().
		TriggerSuccessNotification(fmt.Sprintf("%s de %s registrada", kind, formatMoney(created.Amount))).
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, ownerID string) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		s.writeBadRequest(w, r, "ID obrigatório")
		return
	}

	ctx, cancel := storeContext(r)
	defer cancel()
	removed, err := s.txs.Delete(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			s.writeNotFound(w, r, "Transação não encontrada")
			return
		}
		s.events.LogError(r.Context(), "Failed to delete transaction", err, applog.ComponentLedger, applog.OpDelete,
			applog.NewFields().WithOwner(ownerID))
		s.writeInternalError(w, r, "Não foi possível excluir a transação")
		return
	}
	s.appMetrics.transactionsDeleted.Add(1)

	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	NewHTMXResponse().
		TriggerTransactionChanged(removed.Date.Year(), removed.Date.Month()).
		TriggerSuccessNotification("Transação excluída").
		Write(w)
}

func (s *Server) handleCreateFixedExpense(w http.ResponseWriter, r *http.Request, ownerID string) {
	v, ok := s.loadVariant(w, r, ownerID)
	if !ok || !s.gate(w, r, ownerID, v, plan.FeatureFixedExpenses) {
		return
	}

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.writeBodyError(w, r, err)
		return
	}
	fe, err := ParseFixedExpenseForm(p, ownerID)
	if err != nil {
		s.writeFieldError(w, r, err)
		return
	}

	ctx, cancel := storeContext(r)
	defer cancel()
	created, err := s.fixed.CreateFixedExpense(ctx, fe)
	if err != nil {
		s.events.LogError(r.Context(), "Failed to create fixed expense", err, applog.ComponentLedger, applog.OpCreate,
			applog.NewFields().WithOwner(ownerID))
		s.writeInternalError(w, r, "Não foi possível salvar a despesa fixa")
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, created)
		return
	}
	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerFixedExpenseChanged().
		TriggerFormReset().
		TriggerSuccessNotification("Despesa fixa adicionada").
		Write(w)
}

func (s *Server) handleDeleteFixedExpense(w http.ResponseWriter, r *http.Request, ownerID string) {
	v, ok := s.loadVariant(w, r, ownerID)
	if !ok || !s.gate(w, r, ownerID, v, plan.FeatureFixedExpenses) {
		return
	}

	ctx, cancel := storeContext(r)
	defer cancel()
	if err := s.fixed.DeleteFixedExpense(ctx, ownerID, r.PathValue("id")); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			s.writeNotFound(w, r, "Despesa fixa não encontrada")
			return
		}
		s.events.LogError(r.Context(), "Failed to delete fixed expense", err, applog.ComponentLedger, applog.OpDelete,
			applog.NewFields().WithOwner(ownerID))
		s.writeInternalError(w, r, "Não foi possível excluir a despesa fixa")
		return
	}

	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	NewHTMXResponse().TriggerFixedExpenseChanged().Write(w)
}

// handleUpgrade moves the owner one tier up. The dashboard layout changes,
// so HTMX clients reload the page.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request, ownerID string) {
	ctx, cancel := storeContext(r)
	defer cancel()

	tier, err := s.plans.Upgrade(ctx, ownerID)
	if errors.Is(err, plan.ErrNoUpgrade) {
		if wantsJSON(r) {
			writeJSONError(w, http.StatusConflict, "no upgrade available")
			return
		}
		ConflictError(fmt.Sprintf("O plano %s não possui upgrade disponível", tier.Label())).Write(w)
		return
	}
	if err != nil {
		s.events.LogError(r.Context(), "Failed to upgrade plan", err, applog.ComponentPlan, applog.OpUpgrade,
			applog.NewFields().WithOwner(ownerID))
		s.writeInternalError(w, r, "Não foi possível atualizar o plano")
		return
	}
	s.appMetrics.planUpgrades.Add(1)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, s.planBody(plan.NewState(tier)))
		return
	}
	NewHTMXResponse().
		TriggerPlanChanged(string(tier)).
		TriggerSuccessNotification("Plano atualizado para " + tier.Label()).
		Refresh().
		Write(w)
}

func (s *Server) writeFieldError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *FieldError
	msg := "Dados inválidos"
	if errors.As(err, &fe) {
		msg = fe.Message
	}
	if wantsJSON(r) {
		writeJSONError(w, http.StatusUnprocessableEntity, msg)
		return
	}
	UnprocessableEntityError(msg).Write(w)
}

// writeBodyError answers 413 for a body over maxBodyBytes and 400 otherwise.
func (s *Server) writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		s.writeBadRequest(w, r, "Requisição inválida")
		return
	}
	const msg = "Requisição grande demais"
	if wantsJSON(r) {
		writeJSONError(w, http.StatusRequestEntityTooLarge, msg)
		return
	}
	ErrorResponse(http.StatusRequestEntityTooLarge, msg).Write(w)
}

func (s *Server) writeBadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	if wantsJSON(r) {
		writeJSONError(w, http.StatusBadRequest, msg)
		return
	}
	BadRequestError(msg).Write(w)
}

func (s *Server) writeNotFound(w http.ResponseWriter, r *http.Request, msg string) {
	if wantsJSON(r) {
		writeJSONError(w, http.StatusNotFound, msg)
		return
	}
	NotFoundError(msg).Write(w)
}
