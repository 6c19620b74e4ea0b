package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"financas/internal/categories"
	"financas/internal/core"
	"financas/internal/finance"
	"financas/internal/ledger"
	"financas/internal/plan"
)

const currencySymbol = "R$"

type reportFlags struct {
	file     string
	month    string
	typ      string
	category string
	from     string
	to       string
}

func (f *reportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "JSON file with an array of transactions (required)")
	cmd.Flags().StringVar(&f.month, "month", "", "restrict to one month (YYYY-MM)")
	cmd.Flags().StringVar(&f.typ, "type", "", "income or expense")
	cmd.Flags().StringVar(&f.category, "category", "", "category name")
	cmd.Flags().StringVar(&f.from, "from", "", "first date, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "last date, inclusive (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("file")
}

func (f *reportFlags) criteria() (finance.Criteria, error) {
	var c finance.Criteria
	if f.month != "" {
		m, err := time.Parse("2006-01", f.month)
		if err != nil {
			return c, fmt.Errorf("invalid --month %q: want YYYY-MM", f.month)
		}
		c = finance.InMonth(m.Year(), int(m.Month()))
	}
	if f.typ != "" {
		t, err := core.ParseTransactionType(f.typ)
		if err != nil {
			return c, fmt.Errorf("invalid --type %q: %w", f.typ, err)
		}
		c.Type = t
	}
	if f.category != "" {
		c.Category = categories.Resolve(f.category).Name
	}
	var err error
	if f.from != "" {
		if c.Start, err = core.ParseDate(f.from); err != nil {
			return c, fmt.Errorf("invalid --from %q: %w", f.from, err)
		}
	}
	if f.to != "" {
		if c.End, err = core.ParseDate(f.to); err != nil {
			return c, fmt.Errorf("invalid --to %q: %w", f.to, err)
		}
	}
	if !c.Start.IsZero() && !c.End.IsZero() && c.End.Before(c.Start.Time) {
		return c, errors.New("--to is before --from")
	}
	return c, nil
}

// load reads the file and applies the filters.
func (f *reportFlags) load() ([]core.Transaction, error) {
	c, err := f.criteria()
	if err != nil {
		return nil, err
	}
	txs, err := ledger.ReadTransactionsFile(f.file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.file, err)
	}
	return finance.FilterTransactions(txs, c), nil
}

func money(v float64) string {
	return core.FormatAmount(currencySymbol, v)
}

func summaryCmd() *cobra.Command {
	var flags reportFlags
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Total income, expenses and balance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			txs, err := flags.load()
			if err != nil {
				return err
			}
			s := finance.ComputeSummary(txs)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Resumo"))
			fmt.Fprintf(out, "  Receitas:  %s\n", incomeStyle.Render(money(s.TotalIncome)))
			fmt.Fprintf(out, "  Despesas:  %s\n", expenseStyle.Render(money(s.TotalExpenses)))
			fmt.Fprintf(out, "  Saldo:     %s\n", signed(s.Balance, money(s.Balance)))
			fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("  %d transações", s.TransactionCount)))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func spendingCmd() *cobra.Command {
	var flags reportFlags
	cmd := &cobra.Command{
		Use:   "spending",
		Short: "Expenses grouped by category, largest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			txs, err := flags.load()
			if err != nil {
				return err
			}
			spending := finance.ComputeCategorySpending(txs)
			out := cmd.OutOrStdout()
			if len(spending) == 0 {
				fmt.Fprintln(out, mutedStyle.Render("Sem despesas no período."))
				return nil
			}

			rows := make([][]string, 0, len(spending))
			for _, cs := range spending {
				pct := strconv.FormatFloat(cs.Percentage, 'f', 1, 64) + "%"
				bar := shareBar(cs.Color, cs.Percentage)
				rows = append(rows, []string{categories.Icon(cs.Category) + " " + cs.Category, money(cs.Amount), pct, bar})
			}
			fmt.Fprintln(out, titleStyle.Render("Gastos por categoria"))
			return table(out, []string{"Categoria", "Valor", "%", ""}, rows)
		},
	}
	flags.register(cmd)
	return cmd
}

func trendCmd() *cobra.Command {
	var flags reportFlags
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Income and expenses per calendar month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			txs, err := flags.load()
			if err != nil {
				return err
			}
			months := finance.MonthlyTotals(txs)
			rows := make([][]string, 0, len(months))
			for _, m := range months {
				rows = append(rows, []string{
					fmt.Sprintf("%04d-%02d", m.Year, m.Month),
					money(m.Income),
					money(m.Expenses),
					signed(m.Balance, money(m.Balance)),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Tendência mensal"))
			return table(out, []string{"Mês", "Receitas", "Despesas", "Saldo"}, rows)
		},
	}
	flags.register(cmd)
	return cmd
}

// plansCmd prints what every tier's dashboard shows.
func plansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List plan tiers and the dashboard each unlocks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows := make([][]string, 0, len(plan.Tiers))
			for _, t := range plan.Tiers {
				v := plan.SelectDashboard(t)
				cards := make([]string, len(v.Cards))
				for i, c := range v.Cards {
					cards[i] = string(c)
				}
				upgrade := mutedStyle.Render("-")
				if v.CanUpgrade() {
					upgrade = v.Upgrade.Label()
				}
				rows = append(rows, []string{t.Label(), v.Title, strconv.Itoa(v.RecentLimit), upgrade, strings.Join(cards, ", ")})
			}
			return table(cmd.OutOrStdout(), []string{"Plano", "Painel", "Recentes", "Upgrade", "Cartões"}, rows)
		},
	}
}
