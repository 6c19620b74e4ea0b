package core

import (
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DateLayout is the ISO-8601 calendar date layout used on forms and in storage.
const DateLayout = "2006-01-02"

type (
	TransactionType string

	Date struct {
		time.Time
	}

	Transaction struct {
		ID          string          `json:"id"`
		OwnerID     string          `json:"owner_id,omitempty"`
		Type        TransactionType `json:"type"`
		Amount      float64         `json:"amount"`
		Description string          `json:"description"`
		Category    string          `json:"category"`
		Date        Date            `json:"date"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	// FixedExpense is a monthly commitment, e.g. rent or a subscription.
	FixedExpense struct {
		ID          string    `json:"id"`
		OwnerID     string    `json:"owner_id,omitempty"`
		Description string    `json:"description"`
		Amount      float64   `json:"amount"`
		Category    string    `json:"category"`
		DueDay      int       `json:"due_day"` // 1-31
		Active      bool      `json:"active"`
		CreatedAt   time.Time `json:"created_at"`
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidDueDay    = errors.New("invalid due day")
)

const maxDescriptionLen = 200

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// ParseTransactionType normalizes s and returns the matching type.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO-8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func validAmount(a float64) bool {
	return a > 0 && a <= MaxAmount && !math.IsNaN(a)
}

func validateDescription(desc string) error {
	if len(strings.TrimSpace(desc)) == 0 {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

// Validate checks the transaction as submitted by a form. The aggregation
// functions in package finance do not call it.
func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !validAmount(t.Amount) {
		return ErrInvalidAmount
	}
	if err := validateDescription(t.Description); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return t.Date.Validate()
}

func (fe FixedExpense) Validate() error {
	if err := validateDescription(fe.Description); err != nil {
		return err
	}
	if !validAmount(fe.Amount) {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(fe.Category) == "" {
		return ErrEmptyCategory
	}
	if fe.DueDay < 1 || fe.DueDay > 31 {
		return ErrInvalidDueDay
	}
	return nil
}

// NextDue returns the next date, on or after now, on which the fixed expense
// falls due. A due day past the end of a month is clamped to its last day.
func (fe FixedExpense) NextDue(now time.Time) Date {
	today := DateOf(now)
	due := dueIn(today.Year(), today.Time.Month(), fe.DueDay)
	if due.Before(today.Time) {
		next := today.AddDate(0, 0, -today.Day()+1).AddDate(0, 1, 0)
		due = dueIn(next.Year(), next.Month(), fe.DueDay)
	}
	return due
}

func dueIn(year int, month time.Month, day int) Date {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		day = lastDay
	}
	return NewDate(year, int(month), day)
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD" or an empty string.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
