// Package http provides HTTP server and handler implementations.
//
// This file holds the request parsing helpers: month selection, filter
// criteria, and the transaction and fixed expense forms.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"financas/internal/categories"
	"financas/internal/core"
	"financas/internal/finance"
)

const maxBodyBytes = 64 << 10

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
	// Explicit is false when both values came from the clock.
	Explicit bool
}

// ParseMonthParams falls back to the current month for missing or invalid
// values.
func ParseMonthParams(query url.Values, now time.Time) MonthParams {
	p := MonthParams{Year: now.Year(), Month: int(now.Month())}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y > 0 {
			p.Year = y
			p.Explicit = true
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			p.Month = m
			p.Explicit = true
		}
	}
	return p
}

// filterKeys are the query parameters gated behind the filters feature.
var filterKeys = []string{"type", "category", "from", "to"}

// HasFilterParams reports whether any gated filter parameter is set.
func HasFilterParams(query url.Values) bool {
	for _, k := range filterKeys {
		if strings.TrimSpace(query.Get(k)) != "" {
			return true
		}
	}
	return false
}

// ParseCriteria reads type, category, from and to. Empty values leave the
// criterion open.
func ParseCriteria(query url.Values) (finance.Criteria, error) {
	var c finance.Criteria
	if v := strings.TrimSpace(query.Get("type")); v != "" {
		t, err := core.ParseTransactionType(v)
		if err != nil {
			return c, err
		}
		c.Type = t
	}
	c.Category = sanitizeInput(query.Get("category"))
	if v := strings.TrimSpace(query.Get("from")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return c, fmt.Errorf("from: %w", err)
		}
		c.Start = d
	}
	if v := strings.TrimSpace(query.Get("to")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return c, fmt.Errorf("to: %w", err)
		}
		c.End = d
	}
	if !c.Start.IsZero() && !c.End.IsZero() && c.End.Before(c.Start.Time) {
		return c, fmt.Errorf("%w: range ends before it starts", core.ErrInvalidDate)
	}
	return c, nil
}

// RequestBodyParser reads a form-encoded or JSON body once. HTMX posts
// forms; API clients may post JSON objects with the same keys.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads at most maxBodyBytes. A larger body makes Parse
// fail with *http.MaxBytesError.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}
	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}
	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		p.err = json.Unmarshal(p.body, &p.jsonData)
		return p.err
	}
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized value from whichever encoding was parsed.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// FieldError is a user-facing validation failure. Message is Portuguese UI
// copy; Err is the sentinel for errors.Is.
type FieldError struct {
	Message string
	Err     error
}

func (e *FieldError) Error() string { return e.Message }
func (e *FieldError) Unwrap() error { return e.Err }

var errUnknownCategory = errors.New("unknown category")

// ParseTransactionForm builds an unsaved transaction for ownerID. Categories
// must be registered for the type; the error suggests the closest name.
func ParseTransactionForm(p *RequestBodyParser, ownerID string, today core.Date) (core.Transaction, error) {
	t, err := core.ParseTransactionType(p.Get("type"))
	if err != nil {
		return core.Transaction{}, &FieldError{Message: "Tipo inválido", Err: err}
	}
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.Transaction{}, &FieldError{Message: "Valor inválido", Err: err}
	}
	date := today
	if v := p.Get("date"); v != "" {
		if date, err = core.ParseDate(v); err != nil {
			return core.Transaction{}, &FieldError{Message: "Data inválida", Err: err}
		}
	}
	category, err := registeredCategory(p.Get("category"), t)
	if err != nil {
		return core.Transaction{}, err
	}

	tx := core.Transaction{
		OwnerID:     ownerID,
		Type:        t,
		Amount:      amount,
		Description: p.Get("description"),
		Category:    category,
		Date:        date,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, &FieldError{Message: "Dados inválidos: " + err.Error(), Err: err}
	}
	return tx, nil
}

// ParseFixedExpenseForm builds an active fixed expense. Fixed expenses are
// always of the expense type.
func ParseFixedExpenseForm(p *RequestBodyParser, ownerID string) (core.FixedExpense, error) {
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.FixedExpense{}, &FieldError{Message: "Valor inválido", Err: err}
	}
	dueDay, err := strconv.Atoi(p.Get("due_day"))
	if err != nil {
		return core.FixedExpense{}, &FieldError{Message: "Dia de vencimento inválido", Err: core.ErrInvalidDueDay}
	}
	category, err := registeredCategory(p.Get("category"), core.Expense)
	if err != nil {
		return core.FixedExpense{}, err
	}

	fe := core.FixedExpense{
		OwnerID:     ownerID,
		Description: p.Get("description"),
		Amount:      amount,
		Category:    category,
		DueDay:      dueDay,
		Active:      true,
	}
	if err := fe.Validate(); err != nil {
		return core.FixedExpense{}, &FieldError{Message: "Dados inválidos: " + err.Error(), Err: err}
	}
	return fe, nil
}

// registeredCategory returns the canonical registry name for name.
func registeredCategory(name string, t core.TransactionType) (string, error) {
	if name == "" {
		return "", &FieldError{Message: "Categoria obrigatória", Err: core.ErrEmptyCategory}
	}
	if c, ok := categories.ByName(name); ok && c.Type == t {
		return c.Name, nil
	}
	msg := "Categoria desconhecida"
	if s, ok := categories.Suggest(name, t); ok {
		msg += ". Você quis dizer " + s.Name + "?"
	}
	return "", &FieldError{Message: msg, Err: errUnknownCategory}
}
