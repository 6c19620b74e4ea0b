package http

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financas/internal/auth"
	"financas/internal/cache"
	"financas/internal/core"
	"financas/internal/finance"
	"financas/internal/ledger"
	"financas/internal/ledger/memory"
	applog "financas/internal/log"
	"financas/internal/plan"
	"financas/internal/services"
)

const testOwner = "alice"

var testNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

type testServer struct {
	*Server
	store *memory.Store
}

type serverOption func(*Deps)

func withVerifier(v *auth.Verifier) serverOption { return func(d *Deps) { d.Verifier = v } }
func withRateLimit(n int) serverOption           { return func(d *Deps) { d.RateLimitPerMinute = n } }

func newTestServer(t *testing.T, tier plan.Tier, opts ...serverOption) *testServer {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.SetTier(context.Background(), testOwner, tier))

	listCache := cache.NewLRUCache[[]core.Transaction](16, time.Minute)
	deps := Deps{
		Transactions:       services.NewTransactionService(store, nil, listCache),
		Plans:              services.NewPlanService(store, plan.Free),
		FixedExpenses:      store,
		ListCache:          listCache,
		Verifier:           auth.NewVerifier("", "", testOwner),
		Logger:             applog.New(applog.Config{Level: applog.DefaultConfig().Level, Output: io.Discard}),
		RateLimitPerMinute: 1000,
		Now:                func() time.Time { return testNow },
	}
	for _, opt := range opts {
		opt(&deps)
	}
	srv := NewServer(":0", deps)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{Server: srv, store: store}
}

func (ts *testServer) do(method, path, body, contentType string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) get(path string) *httptest.ResponseRecorder {
	return ts.do(http.MethodGet, path, "", "")
}

func (ts *testServer) postForm(path, body string) *httptest.ResponseRecorder {
	return ts.do(http.MethodPost, path, body, "application/x-www-form-urlencoded")
}

func (ts *testServer) seed(t *testing.T, typ core.TransactionType, amount float64, category, date string) core.Transaction {
	t.Helper()
	d, err := core.ParseDate(date)
	require.NoError(t, err)
	tx, err := ts.txs.Create(context.Background(), core.Transaction{
		OwnerID:     testOwner,
		Type:        typ,
		Amount:      amount,
		Description: "seed " + category,
		Category:    category,
		Date:        d,
	})
	require.NoError(t, err)
	return tx
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, plan.Free)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := ts.get(path)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	rr := ts.get("/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "transactions_created_total 0")
	assert.Contains(t, rr.Body.String(), "cache_hits_total")
}

func TestReadyReportsStoreFailure(t *testing.T) {
	ts := newTestServer(t, plan.Free)
	ts.pinger = failingPinger{}

	rr := ts.get("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "not_ready")
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return context.DeadlineExceeded }

type downBus struct{}

func (downBus) Healthy() bool { return false }

func TestReadyToleratesBrokerOutage(t *testing.T) {
	ts := newTestServer(t, plan.Free)
	ts.bus = downBus{}

	rr := ts.get("/readyz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"events":"degraded"`)
}

func TestIndexRendersTierVariant(t *testing.T) {
	tests := []struct {
		tier    plan.Tier
		present []string
		absent  []string
	}{
		{plan.Free, []string{"Painel Gratuito", "Resumo", "Transações recentes", "Fazer upgrade para Bronze"}, []string{"Gastos por categoria", "Despesas fixas", "Filtros"}},
		{plan.Bronze, []string{"Painel Bronze", "Gastos por categoria"}, []string{"Tendência mensal"}},
		{plan.Silver, []string{"Despesas fixas", "Tendência mensal"}, []string{"Filtros"}},
		{plan.Gold, []string{"Painel Ouro", "Filtros"}, []string{"Fazer upgrade", "Gerente de conta"}},
		{plan.Enterprise, []string{"Gerente de conta"}, []string{"Fazer upgrade"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			ts := newTestServer(t, tt.tier)
			ts.seed(t, core.Expense, 42.5, "Alimentação", "2025-03-02")

			rr := ts.get("/")
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			body := rr.Body.String()
			for _, s := range tt.present {
				assert.Contains(t, body, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, body, s)
			}
			assert.Contains(t, body, "Março de 2025")
			assert.Contains(t, body, "R$ 42,50")
		})
	}
}

func TestDashboardDefaultsToCurrentMonth(t *testing.T) {
	ts := newTestServer(t, plan.Free)
	ts.seed(t, core.Income, 1000, "Salário", "2025-03-05")
	ts.seed(t, core.Income, 777, "Salário", "2025-02-05")

	rr := ts.get("/ui/summary")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "R$ 1000,00")
	assert.NotContains(t, rr.Body.String(), "777")

	rr = ts.get("/ui/summary?year=2025&month=2")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "R$ 777,00")
}

func TestRecentTransactionsRespectTierLimit(t *testing.T) {
	ts := newTestServer(t, plan.Free)
	for i := 0; i < 7; i++ {
		ts.seed(t, core.Expense, float64(i+1), "Lazer", "2025-03-10")
	}

	rr := ts.get("/ui/transactions")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, strings.Count(rr.Body.String(), "hx-delete=\"/transactions/"))
}

func TestGatedCardsAndAPI(t *testing.T) {
	ts := newTestServer(t, plan.Free)

	rr := ts.get("/ui/categories")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "bronze", rr.Header().Get("X-Required-Tier"))

	rr = ts.get("/api/categories/spending")
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, plan.Bronze, decodeError(t, rr).RequiredTier)

	rr = ts.get("/api/trend")
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, plan.Silver, decodeError(t, rr).RequiredTier)

	rr = ts.get("/metrics")
	assert.Contains(t, rr.Body.String(), "plan_gate_denials_total 3")
}

func TestCategorySpendingAPI(t *testing.T) {
	ts := newTestServer(t, plan.Bronze)
	ts.seed(t, core.Expense, 75, "Moradia", "2025-03-01")
	ts.seed(t, core.Expense, 25, "Lazer", "2025-03-02")
	ts.seed(t, core.Income, 500, "Salário", "2025-03-03")

	rr := ts.get("/api/categories/spending")
	require.Equal(t, http.StatusOK, rr.Code)

	var got []finance.CategorySpending
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Moradia", got[0].Category)
	assert.InDelta(t, 75.0, got[0].Percentage, 1e-9)
	assert.InDelta(t, 25.0, got[1].Percentage, 1e-9)
}

func TestSummaryAPIFilters(t *testing.T) {
	free := newTestServer(t, plan.Free)
	free.seed(t, core.Income, 100, "Salário", "2025-01-10")
	free.seed(t, core.Expense, 30, "Lazer", "2025-03-10")

	rr := free.get("/api/summary")
	require.Equal(t, http.StatusOK, rr.Code)
	var s finance.Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &s))
	assert.Equal(t, 2, s.TransactionCount, "no parameters summarizes everything")
	assert.InDelta(t, 70.0, s.Balance, 1e-9)

	rr = free.get("/api/summary?year=2025&month=3")
	require.Equal(t, http.StatusOK, rr.Code, "month selection is free")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &s))
	assert.Equal(t, 1, s.TransactionCount)

	rr = free.get("/api/summary?type=income")
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, plan.Gold, decodeError(t, rr).RequiredTier)

	gold := newTestServer(t, plan.Gold)
	gold.seed(t, core.Income, 100, "Salário", "2025-01-10")
	gold.seed(t, core.Expense, 30, "Lazer", "2025-03-10")

	rr = gold.get("/api/summary?type=income")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &s))
	assert.Equal(t, 1, s.TransactionCount)
	assert.InDelta(t, 100.0, s.TotalIncome, 1e-9)

	rr = gold.get("/api/summary?from=2025-03-01&to=2025-01-01")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTrendAPI(t *testing.T) {
	ts := newTestServer(t, plan.Silver)
	ts.seed(t, core.Income, 100, "Salário", "2025-01-10")
	ts.seed(t, core.Expense, 40, "Lazer", "2025-02-10")

	rr := ts.get("/api/trend")
	require.Equal(t, http.StatusOK, rr.Code)
	var got trendResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got.Months, 2)
	assert.Equal(t, 1, got.Months[0].Month)
}

func TestTrendIgnoresStaleSnapshots(t *testing.T) {
	ts := newTestServer(t, plan.Silver)
	ts.seed(t, core.Expense, 40, "Lazer", "2025-02-10")

	_, err := services.NewSnapshotProcessor(ts.store, ts.store).Rebuild(context.Background(), testOwner)
	require.NoError(t, err)

	rr := ts.postForm("/transactions", "type=expense&amount=60&description=Cinema&category=Lazer&date=2025-02-12")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	ts.seed(t, core.Income, 500, "Salário", "2025-03-05")

	rr = ts.get("/api/trend")
	require.Equal(t, http.StatusOK, rr.Code)
	var got trendResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got.Months, 2)
	assert.InDelta(t, 100.0, got.Months[0].Expenses, 1e-9)
	assert.InDelta(t, 500.0, got.Months[1].Income, 1e-9)

	rr = ts.get("/ui/trend")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Março/2025")
}

// brokenSnapshots fails every snapshot read. Nothing on the request path may
// depend on it.
type brokenSnapshots struct {
	*memory.Store
}

func (brokenSnapshots) ListMonthlySummaries(context.Context, string) ([]ledger.MonthlySummary, error) {
	return nil, context.DeadlineExceeded
}

func TestDashboardSurvivesSnapshotFailure(t *testing.T) {
	ts := newTestServer(t, plan.Gold)
	store := brokenSnapshots{ts.store}
	listCache := cache.NewLRUCache[[]core.Transaction](16, time.Minute)
	ts.txs = services.NewTransactionService(store, nil, listCache)
	ts.fixed = store
	ts.seed(t, core.Expense, 40, "Lazer", "2025-03-10")

	for _, path := range []string{"/", "/ui/summary", "/ui/trend", "/api/trend"} {
		rr := ts.get(path)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestCreateTransaction(t *testing.T) {
	ts := newTestServer(t, plan.Free)

	rr := ts.postForm("/transactions", "type=expense&amount=12,34&description=Almo%C3%A7o&category=Alimenta%C3%A7%C3%A3o&date=2025-03-14")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	trigger := rr.Header().Get("HX-Trigger")
	assert.Contains(t, trigger, `"transaction:changed":{"month":3,"year":2025}`)
	assert.Contains(t, trigger, "form:reset")

	txs, err := ts.store.ListTransactions(context.Background(), testOwner)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.InDelta(t, 12.34, txs[0].Amount, 1e-9)

	rr = ts.do(http.MethodPost, "/transactions",
		`{"type":"income","amount":"2500","description":"Salário","category":"salário"}`, "application/json")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created core.Transaction
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Salário", created.Category, "category is stored under its registry name")
	assert.Equal(t, "2025-03-15", created.Date.String(), "missing date defaults to today")

	rr = ts.get("/metrics")
	assert.Contains(t, rr.Body.String(), "transactions_created_total 2")
}

func TestCreateTransactionValidation(t *testing.T) {
	ts := newTestServer(t, plan.Free)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid type", "type=gift&amount=10&description=x&category=Lazer", "Tipo inválido"},
		{"invalid amount", "type=expense&amount=abc&description=x&category=Lazer", "Valor inválido"},
		{"zero amount", "type=expense&amount=0&description=x&category=Lazer", "Valor inválido"},
		{"bad date", "type=expense&amount=10&description=x&category=Lazer&date=2025-13-01", "Data inválida"},
		{"missing description", "type=expense&amount=10&description=&category=Lazer", "Dados inválidos"},
		{"unknown category", "type=expense&amount=10&description=x&category=Lazr", "Você quis dizer Lazer?"},
		{"category of the other type", "type=income&amount=10&description=x&category=Lazer", "Categoria desconhecida"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.postForm("/transactions", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.want)
		})
	}

	txs, err := ts.store.ListTransactions(context.Background(), testOwner)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestCreateTransactionRejectsOversizedBody(t *testing.T) {
	ts := newTestServer(t, plan.Free)
	body := "type=expense&amount=10&category=Lazer&date=2025-03-14&description=" + strings.Repeat("a", maxBodyBytes)

	rr := ts.postForm("/transactions", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)

	txs, err := ts.store.ListTransactions(context.Background(), testOwner)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestDeleteTransaction(t *testing.T) {
	ts := newTestServer(t, plan.Free)
	tx := ts.seed(t, core.Expense, 10, "Lazer", "2024-11-20")

	// warm the list cache so the delete has something to invalidate
	require.Equal(t, http.StatusOK, ts.get("/api/summary").Code)

	// the page is on March; the event names the month the row was in
	rr := ts.do(http.MethodDelete, "/transactions/"+tx.ID+"?year=2025&month=3", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), `"transaction:changed":{"month":11,"year":2024}`)

	rr = ts.get("/api/summary")
	var s finance.Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &s))
	assert.Zero(t, s.TransactionCount)

	rr = ts.do(http.MethodDelete, "/transactions/"+tx.ID, "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestFixedExpenses(t *testing.T) {
	free := newTestServer(t, plan.Free)
	rr := free.postForm("/fixed-expenses", "description=Aluguel&amount=1500&category=Moradia&due_day=5")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "silver", rr.Header().Get("X-Required-Tier"))

	silver := newTestServer(t, plan.Silver)
	rr = silver.postForm("/fixed-expenses", "description=Aluguel&amount=1500&category=Moradia&due_day=5")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "fixed-expense:changed")

	rr = silver.postForm("/fixed-expenses", "description=Aluguel&amount=1500&category=Moradia&due_day=40")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = silver.get("/ui/fixed-expenses")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "R$ 1500,00")
	assert.Contains(t, rr.Body.String(), "vence dia 5")
}

func TestUpgradePlan(t *testing.T) {
	ts := newTestServer(t, plan.Free)

	rr := ts.do(http.MethodPost, "/plan/upgrade", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "true", rr.Header().Get("HX-Refresh"))
	assert.Contains(t, rr.Header().Get("HX-Trigger"), `"plan:changed":{"tier":"bronze"}`)

	rr = ts.get("/api/plan")
	require.Equal(t, http.StatusOK, rr.Code)
	var p planResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Equal(t, plan.Bronze, p.Tier)
	assert.Equal(t, plan.Silver, p.NextTier)
	assert.True(t, p.CanUpgrade)
	assert.True(t, p.Dashboard.Has(plan.CardCategories))

	gold := newTestServer(t, plan.Gold)
	rr = gold.do(http.MethodPost, "/plan/upgrade", "", "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = gold.do(http.MethodPost, "/plan/upgrade", "{}", "application/json")
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "no upgrade available", decodeError(t, rr).Error)
}

func TestAuthentication(t *testing.T) {
	verifier := auth.NewVerifier(strings.Repeat("k", 32), "financas", "")
	ts := newTestServer(t, plan.Free, withVerifier(verifier))

	rr := ts.get("/api/plan")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rr).Error)

	rr = ts.get("/")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	assert.Equal(t, http.StatusOK, ts.get("/healthz").Code, "health checks are public")

	token, err := verifier.Issue(testOwner, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/plan", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimitAppliesToMutations(t *testing.T) {
	ts := newTestServer(t, plan.Free, withRateLimit(1))

	first := ts.postForm("/transactions", "type=expense&amount=1&description=x&category=Lazer")
	require.Equal(t, http.StatusCreated, first.Code)

	second := ts.postForm("/transactions", "type=expense&amount=1&description=x&category=Lazer")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, ts.get("/api/plan").Code, "reads are not limited")
}

func TestCategoriesAPI(t *testing.T) {
	ts := newTestServer(t, plan.Free)

	rr := ts.get("/api/categories?type=income")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Salário")
	assert.NotContains(t, rr.Body.String(), "Moradia")

	assert.Equal(t, http.StatusBadRequest, ts.get("/api/categories?type=gift").Code)
}

func TestWriteJSONRejectsNonFinite(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusOK, finance.Summary{TotalIncome: math.NaN()})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "non-finite")

	rr = httptest.NewRecorder()
	writeJSON(rr, http.StatusOK, finance.Summary{TotalIncome: math.Inf(1)})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestSecurityHeaders(t *testing.T) {
	ts := newTestServer(t, plan.Free)
	rr := ts.get("/healthz")
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Empty(t, rr.Header().Get("Strict-Transport-Security"), "HSTS only over TLS")
}
