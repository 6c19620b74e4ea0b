package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"financas/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2025, time.July, 4, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name         string
		query        url.Values
		wantYear     int
		wantMonth    int
		wantExplicit bool
	}{
		{"both values provided", url.Values{"year": {"2024"}, "month": {"12"}}, 2024, 12, true},
		{"only year", url.Values{"year": {"2023"}}, 2023, 7, true},
		{"only month", url.Values{"month": {"5"}}, 2025, 5, true},
		{"empty query uses clock", url.Values{}, 2025, 7, false},
		{"invalid values are ignored", url.Values{"year": {"abc"}, "month": {"13"}}, 2025, 7, false},
		{"zero month is ignored", url.Values{"month": {"0"}}, 2025, 7, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseMonthParams(tt.query, now)
			if got.Year != tt.wantYear || got.Month != tt.wantMonth || got.Explicit != tt.wantExplicit {
				t.Errorf("ParseMonthParams() = %+v, want %d-%d explicit=%v", got, tt.wantYear, tt.wantMonth, tt.wantExplicit)
			}
		})
	}
}

func TestShiftMonth(t *testing.T) {
	tests := []struct {
		from         MonthParams
		delta        int
		wantY, wantM int
	}{
		{MonthParams{Year: 2025, Month: 1}, -1, 2024, 12},
		{MonthParams{Year: 2025, Month: 12}, 1, 2026, 1},
		{MonthParams{Year: 2025, Month: 6}, 1, 2025, 7},
		{MonthParams{Year: 2025, Month: 3}, -15, 2023, 12},
	}
	for _, tt := range tests {
		got := shiftMonth(tt.from, tt.delta)
		if got.Year != tt.wantY || got.Month != tt.wantM {
			t.Errorf("shiftMonth(%d-%d, %d) = %d-%d, want %d-%d",
				tt.from.Year, tt.from.Month, tt.delta, got.Year, got.Month, tt.wantY, tt.wantM)
		}
	}
}

func TestParseCriteria(t *testing.T) {
	c, err := ParseCriteria(url.Values{"type": {"expense"}, "category": {" Lazer "}, "from": {"2025-01-01"}, "to": {"2025-01-31"}})
	if err != nil {
		t.Fatalf("ParseCriteria() error = %v", err)
	}
	if c.Type != core.Expense || c.Category != "Lazer" {
		t.Errorf("unexpected criteria %+v", c)
	}
	if c.Start.String() != "2025-01-01" || c.End.String() != "2025-01-31" {
		t.Errorf("unexpected range %s..%s", c.Start, c.End)
	}

	c, err = ParseCriteria(url.Values{})
	if err != nil || !c.IsZero() {
		t.Errorf("empty query should give zero criteria, got %+v, %v", c, err)
	}

	bad := []url.Values{
		{"type": {"gift"}},
		{"from": {"01/02/2025"}},
		{"to": {"2025-02-30"}},
		{"from": {"2025-03-01"}, "to": {"2025-02-01"}},
	}
	for _, q := range bad {
		if _, err := ParseCriteria(q); err == nil {
			t.Errorf("ParseCriteria(%v) expected error", q)
		}
	}
}

func TestHasFilterParams(t *testing.T) {
	if HasFilterParams(url.Values{"year": {"2025"}, "month": {"2"}}) {
		t.Error("year and month are not filters")
	}
	if !HasFilterParams(url.Values{"category": {"Lazer"}}) {
		t.Error("category is a filter")
	}
	if HasFilterParams(url.Values{"type": {"  "}}) {
		t.Error("blank values do not count")
	}
}

func newParser(t *testing.T, body, contentType string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return p
}

func TestRequestBodyParser_JSON(t *testing.T) {
	p := newParser(t, `{"description": "Mercado", "amount": 42.5, "recurring": true}`, "application/json")

	if !p.IsJSON() {
		t.Error("IsJSON() = false, want true")
	}
	if got := p.Get("description"); got != "Mercado" {
		t.Errorf("Get(description) = %q", got)
	}
	if got := p.Get("amount"); got != "42.5" {
		t.Errorf("Get(amount) = %q, want 42.5", got)
	}
	if got := p.Get("recurring"); got != "true" {
		t.Errorf("Get(recurring) = %q", got)
	}
	if got := p.Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q, want empty", got)
	}
}

func TestRequestBodyParser_Form(t *testing.T) {
	p := newParser(t, "description=Caf%C3%A9%01&amount=3,50", "application/x-www-form-urlencoded")

	if p.IsJSON() {
		t.Error("IsJSON() = true, want false")
	}
	if got := p.Get("description"); got != "Café" {
		t.Errorf("control characters should be stripped, got %q", got)
	}
	if got := p.Get("amount"); got != "3,50" {
		t.Errorf("Get(amount) = %q", got)
	}
}

func TestRequestBodyParser_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"broken"`))
	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	if err := p.Parse(); err == nil {
		t.Error("Parse() expected error for malformed JSON")
	}
	if err := p.Parse(); err == nil {
		t.Error("second Parse() should return the same error")
	}
}

func TestRequestBodyParser_Oversized(t *testing.T) {
	body := "description=" + strings.Repeat("a", maxBodyBytes)
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	p := NewRequestBodyParser(httptest.NewRecorder(), req)

	var tooLarge *http.MaxBytesError
	if err := p.Parse(); !errors.As(err, &tooLarge) {
		t.Fatalf("Parse() = %v, want *http.MaxBytesError", err)
	}
	if p.Get("description") != "" {
		t.Error("a truncated body must not yield values")
	}
}

func TestParseTransactionForm(t *testing.T) {
	today := core.NewDate(2025, 3, 15)

	p := newParser(t, "type=income&amount=1.234,50&description=Sal%C3%A1rio&category=SAL%C3%81RIO", "application/x-www-form-urlencoded")
	tx, err := ParseTransactionForm(p, "alice", today)
	if err != nil {
		t.Fatalf("ParseTransactionForm() error = %v", err)
	}
	if tx.OwnerID != "alice" || tx.Type != core.Income || tx.Amount != 1234.5 {
		t.Errorf("unexpected transaction %+v", tx)
	}
	if tx.Category != "Salário" {
		t.Errorf("category = %q, want registry name", tx.Category)
	}
	if tx.Date != today {
		t.Errorf("date = %s, want today", tx.Date)
	}

	tests := []struct {
		name    string
		body    string
		wantMsg string
		wantErr error
	}{
		{"bad type", "type=x&amount=1&description=d&category=Lazer", "Tipo inválido", core.ErrInvalidType},
		{"negative amount", "type=expense&amount=-1&description=d&category=Lazer", "Valor inválido", core.ErrInvalidAmount},
		{"bad date", "type=expense&amount=1&description=d&category=Lazer&date=15/03/2025", "Data inválida", core.ErrInvalidDate},
		{"no category", "type=expense&amount=1&description=d", "Categoria obrigatória", core.ErrEmptyCategory},
		{"typo", "type=expense&amount=1&description=d&category=Transprte", "Você quis dizer Transporte?", errUnknownCategory},
		{"no description", "type=expense&amount=1&category=Lazer", "Dados inválidos", core.ErrEmptyDescription},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTransactionForm(newParser(t, tt.body, "application/x-www-form-urlencoded"), "alice", today)
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("error = %v, want *FieldError", err)
			}
			if !strings.Contains(fe.Message, tt.wantMsg) {
				t.Errorf("message = %q, want to contain %q", fe.Message, tt.wantMsg)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantErr)
			}
		})
	}
}

func TestParseFixedExpenseForm(t *testing.T) {
	p := newParser(t, "description=Aluguel&amount=1500&category=Moradia&due_day=31", "application/x-www-form-urlencoded")
	fe, err := ParseFixedExpenseForm(p, "alice")
	if err != nil {
		t.Fatalf("ParseFixedExpenseForm() error = %v", err)
	}
	if !fe.Active || fe.DueDay != 31 || fe.Amount != 1500 || fe.Category != "Moradia" {
		t.Errorf("unexpected fixed expense %+v", fe)
	}

	for _, body := range []string{
		"description=Aluguel&amount=1500&category=Moradia&due_day=x",
		"description=Aluguel&amount=1500&category=Moradia&due_day=0",
		"description=Aluguel&amount=1500&category=Sal%C3%A1rio&due_day=5",
	} {
		if _, err := ParseFixedExpenseForm(newParser(t, body, "application/x-www-form-urlencoded"), "alice"); err == nil {
			t.Errorf("ParseFixedExpenseForm(%q) expected error", body)
		}
	}
}
