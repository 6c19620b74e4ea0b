// Package categories holds the static registry of income and expense
// categories shown in forms and charts.
//
// Transactions reference categories by name. Names that are not in the
// registry are tolerated: they resolve to a fallback icon and a color picked
// deterministically from Palette.
package categories

import (
	"hash/fnv"
	"strings"

	"financas/internal/core"
)

// Category is a named bucket for transactions of one type.
type Category struct {
	ID    string               `json:"id"`
	Name  string               `json:"name"`
	Type  core.TransactionType `json:"type"`
	Color string               `json:"color"`
	Icon  string               `json:"icon"`
}

// FallbackIcon is used for category names missing from the registry.
const FallbackIcon = "🏷️"

// Palette is the set of colors fallback categories are drawn from.
var Palette = []string{
	"#6366F1", "#F59E0B", "#10B981", "#EF4444", "#3B82F6",
	"#8B5CF6", "#EC4899", "#14B8A6", "#F97316", "#84CC16",
}

var incomeCategories = []Category{
	{ID: "salary", Name: "Salário", Type: core.Income, Color: "#10B981", Icon: "💼"},
	{ID: "freelance", Name: "Freelance", Type: core.Income, Color: "#3B82F6", Icon: "💻"},
	{ID: "investments", Name: "Investimentos", Type: core.Income, Color: "#8B5CF6", Icon: "📈"},
	{ID: "rent-income", Name: "Aluguéis", Type: core.Income, Color: "#14B8A6", Icon: "🏘️"},
	{ID: "sales", Name: "Vendas", Type: core.Income, Color: "#F59E0B", Icon: "🛒"},
	{ID: "other-income", Name: "Outras Receitas", Type: core.Income, Color: "#84CC16", Icon: "💰"},
}

var expenseCategories = []Category{
	{ID: "housing", Name: "Moradia", Type: core.Expense, Color: "#EF4444", Icon: "🏠"},
	{ID: "food", Name: "Alimentação", Type: core.Expense, Color: "#F97316", Icon: "🍽️"},
	{ID: "transport", Name: "Transporte", Type: core.Expense, Color: "#F59E0B", Icon: "🚗"},
	{ID: "health", Name: "Saúde", Type: core.Expense, Color: "#EC4899", Icon: "🩺"},
	{ID: "education", Name: "Educação", Type: core.Expense, Color: "#6366F1", Icon: "📚"},
	{ID: "leisure", Name: "Lazer", Type: core.Expense, Color: "#8B5CF6", Icon: "🎬"},
	{ID: "shopping", Name: "Compras", Type: core.Expense, Color: "#3B82F6", Icon: "🛍️"},
	{ID: "bills", Name: "Contas", Type: core.Expense, Color: "#14B8A6", Icon: "🧾"},
	{ID: "taxes", Name: "Impostos", Type: core.Expense, Color: "#64748B", Icon: "🏛️"},
	{ID: "other-expense", Name: "Outras Despesas", Type: core.Expense, Color: "#94A3B8", Icon: "📦"},
}

var (
	all    []Category
	byID   = map[string]Category{}
	byName = map[string]Category{}
)

func init() {
	all = make([]Category, 0, len(incomeCategories)+len(expenseCategories))
	all = append(all, incomeCategories...)
	all = append(all, expenseCategories...)
	for _, c := range all {
		byID[c.ID] = c
		byName[normalize(c.Name)] = c
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// All returns every category, income first.
func All() []Category {
	return append([]Category(nil), all...)
}

// ByType returns the categories of the given type. Unknown types yield nil.
func ByType(t core.TransactionType) []Category {
	switch t {
	case core.Income:
		return append([]Category(nil), incomeCategories...)
	case core.Expense:
		return append([]Category(nil), expenseCategories...)
	default:
		return nil
	}
}

// ByID looks a category up by its id.
func ByID(id string) (Category, bool) {
	c, ok := byID[id]
	return c, ok
}

// ByName looks a category up by name, ignoring case and surrounding spaces.
func ByName(name string) (Category, bool) {
	c, ok := byName[normalize(name)]
	return c, ok
}

// Valid reports whether name is a registered category of type t.
func Valid(name string, t core.TransactionType) bool {
	c, ok := ByName(name)
	return ok && c.Type == t
}

// Resolve returns the registered category for name, or a synthetic one
// carrying the fallback icon and color when the name is unknown.
func Resolve(name string) Category {
	if c, ok := ByName(name); ok {
		return c
	}
	return Category{
		Name:  name,
		Color: FallbackColor(name),
		Icon:  FallbackIcon,
	}
}

// Color returns the chart color for name.
func Color(name string) string {
	return Resolve(name).Color
}

// Icon returns the glyph for name.
func Icon(name string) string {
	return Resolve(name).Icon
}

// FallbackColor picks a palette color from the FNV hash of the normalized name.
func FallbackColor(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name)))
	return Palette[h.Sum32()%uint32(len(Palette))]
}
