package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"financas/internal/cli"
	"financas/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "finctl",
	Short: "Reports and administration for financas",
	Long: `finctl computes dashboard reports from a transactions file and runs the
administrative tasks of a financas deployment: migrations, snapshot rebuilds,
plan assignment and development tokens.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(spendingCmd())
	rootCmd.AddCommand(trendCmd())
	rootCmd.AddCommand(plansCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(snapshotsCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(tokenCmd())
}

func main() {
	cli.LoadEnvFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

// loadConfig reads the environment without validating it: each command
// checks only the settings it uses.
func loadConfig() *config.Config {
	return config.Load()
}
