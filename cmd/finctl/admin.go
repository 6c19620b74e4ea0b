package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"financas/internal/auth"
	"financas/internal/plan"
	"financas/internal/services"
	"financas/internal/storage"
)

// dbFlag registers --db, defaulting to SQLITE_DB_PATH.
func dbFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVar(path, "db", loadConfig().SQLiteDBPath, "SQLite database path")
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQLite schema",
	}

	var upPath string
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := storage.RunMigrations(upPath); err != nil {
				return err
			}
			return printVersion(cmd, upPath)
		},
	}
	dbFlag(up, &upPath)

	var (
		downPath string
		steps    int
	)
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := storage.RollbackMigrations(downPath, steps); err != nil {
				return err
			}
			return printVersion(cmd, downPath)
		},
	}
	dbFlag(down, &downPath)
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to revert")

	var versionPath string
	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printVersion(cmd, versionPath)
		},
	}
	dbFlag(version, &versionPath)

	cmd.AddCommand(up, down, version)
	return cmd
}

func printVersion(cmd *cobra.Command, path string) error {
	v, dirty, err := storage.SchemaVersion(path)
	if err != nil {
		return err
	}
	line := fmt.Sprintf("schema version %d", v)
	if dirty {
		line += errorStyle.Render(" (dirty)")
	}
	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ ")+line)
	return nil
}

func snapshotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Maintain monthly summary snapshots",
	}

	var (
		dbPath string
		owner  string
	)
	rebuild := &cobra.Command{
		Use:   "rebuild",
		Short: "Recompute every month of one owner",
		Long: `Recompute the stored monthly summaries of an owner from their transactions.
Use it after restoring a backup or when the worker was down for a long time.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := storage.NewSQLiteRepository(dbPath)
			if err != nil {
				return err
			}
			defer repo.Close()

			n, err := services.NewSnapshotProcessor(repo, repo).Rebuild(cmd.Context(), owner)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ ")+fmt.Sprintf("rebuilt %d months for %s", n, owner))
			return nil
		},
	}
	dbFlag(rebuild, &dbPath)
	rebuild.Flags().StringVar(&owner, "owner", "", "owner id (required)")
	_ = rebuild.MarkFlagRequired("owner")

	var statusPath, statusOwner string
	status := &cobra.Command{
		Use:   "status",
		Short: "Compare stored snapshots with the live transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := storage.NewSQLiteRepository(statusPath)
			if err != nil {
				return err
			}
			defer repo.Close()

			checks, err := services.NewSnapshotProcessor(repo, repo).Verify(cmd.Context(), statusOwner)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(checks))
			for _, c := range checks {
				state := successStyle.Render(c.State)
				if c.State != services.SnapshotCurrent {
					state = errorStyle.Render(c.State)
				}
				rows = append(rows, []string{
					fmt.Sprintf("%04d-%02d", c.Year, c.Month),
					money(c.Stored.Balance),
					money(c.Live.Balance),
					state,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Snapshots de "+statusOwner))
			return table(out, []string{"Mês", "Salvo", "Atual", "Estado"}, rows)
		},
	}
	dbFlag(status, &statusPath)
	status.Flags().StringVar(&statusOwner, "owner", "", "owner id (required)")
	_ = status.MarkFlagRequired("owner")

	cmd.AddCommand(rebuild, status)
	return cmd
}

// planCmd assigns tiers out of band, enterprise included.
func planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Inspect or assign an owner's plan",
	}

	var (
		dbPath string
		owner  string
	)
	set := &cobra.Command{
		Use:   "set <tier>",
		Short: "Assign a tier to an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, err := plan.ParseTier(args[0])
			if err != nil {
				return fmt.Errorf("%w: %q", err, args[0])
			}
			repo, err := storage.NewSQLiteRepository(dbPath)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := services.NewPlanService(repo, plan.Free).Assign(cmd.Context(), owner, tier); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ ")+fmt.Sprintf("%s is now on %s", owner, tier.Label()))
			return nil
		},
	}
	dbFlag(set, &dbPath)
	set.Flags().StringVar(&owner, "owner", "", "owner id (required)")
	_ = set.MarkFlagRequired("owner")

	var showPath, showOwner string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print an owner's tier and dashboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := storage.NewSQLiteRepository(showPath)
			if err != nil {
				return err
			}
			defer repo.Close()

			cfg := loadConfig()
			st, err := services.NewPlanService(repo, cfg.Tier()).State(cmd.Context(), showOwner)
			if err != nil {
				return err
			}
			v := plan.SelectDashboard(st.Tier())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", titleStyle.Render(v.Title), mutedStyle.Render("("+string(st.Tier())+")"))
			for _, c := range v.Cards {
				fmt.Fprintf(out, "  • %s\n", c)
			}
			if next, ok := st.NextTier(); ok {
				fmt.Fprintln(out, mutedStyle.Render("  upgrade available: "+next.Label()))
			}
			return nil
		},
	}
	dbFlag(show, &showPath)
	show.Flags().StringVar(&showOwner, "owner", "", "owner id (required)")
	_ = show.MarkFlagRequired("owner")

	cmd.AddCommand(set, show)
	return cmd
}

// tokenCmd issues a bearer token signed with AUTH_JWT_SECRET, for local
// testing against a server running with auth enabled.
func tokenCmd() *cobra.Command {
	var (
		owner string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token for an owner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig()
			if len(cfg.AuthJWTSecret) < 32 {
				return errors.New("AUTH_JWT_SECRET must be set and at least 32 bytes")
			}
			tok, err := auth.NewVerifier(cfg.AuthJWTSecret, cfg.AuthIssuer, "").Issue(owner, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner id (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
