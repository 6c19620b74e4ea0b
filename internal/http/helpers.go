package http

import (
	"encoding/json"
	"errors"
	"html/template"
	"math"
	"net/http"
	"strings"

	"financas/internal/categories"
	"financas/internal/core"
	"financas/internal/plan"
)

const currencySymbol = "R$"

// errorBody is the JSON error shape for /api routes.
type errorBody struct {
	Error        string    `json:"error"`
	RequiredTier plan.Tier `json:"required_tier,omitempty"`
}

// writeJSON encodes v, or answers 500 when v carries a NaN or infinite
// amount, which encoding/json refuses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		var unsupported *json.UnsupportedValueError
		msg := "encoding failed"
		if errors.As(err, &unsupported) {
			msg = "result contains a non-finite amount"
		}
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorBody{Error: msg})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// wantsJSON is true for /api routes and for clients that ask for JSON.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func formatMoney(v float64) string {
	return core.FormatAmount(currencySymbol, v)
}

func formatPercent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/d"
	}
	return strings.Replace(core.FormatAmount("", v), " ", "", 1) + "%"
}

// barWidth clamps a percentage for inline bar widths, with a 2% floor so
// tiny categories stay visible.
func barWidth(pct float64) int {
	if math.IsNaN(pct) || pct <= 0 {
		return 0
	}
	w := int(math.Round(pct))
	if w < 2 {
		return 2
	}
	return min(w, 100)
}

var templateFuncs = template.FuncMap{
	"money":     formatMoney,
	"percent":   formatPercent,
	"barWidth":  barWidth,
	"icon":      categories.Icon,
	"color":     categories.Color,
	"tierLabel": func(t plan.Tier) string { return t.Label() },
	"has":       func(v plan.Variant, c string) bool { return v.Has(plan.Card(c)) },
	"isIncome":  func(t core.TransactionType) bool { return t == core.Income },
	"monthName": monthName,
}

var monthNames = [...]string{"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro"}

func monthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return monthNames[m-1]
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, then trims.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
