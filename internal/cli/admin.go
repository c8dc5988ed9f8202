package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"cotizador/internal/config"
	"cotizador/internal/core"
	applog "cotizador/internal/log"
	"cotizador/internal/seed"
	"cotizador/internal/services"
	"cotizador/internal/storage"

	"github.com/spf13/cobra"
)

// Admin holds what the operator commands need.
type Admin struct {
	Config *config.Config
	Logger *applog.Logger
}

// NewAdminCmd creates the top-level "cotizador-admin" command.
func NewAdminCmd(app *Admin) *cobra.Command {
	root := &cobra.Command{
		Use:           "cotizador-admin",
		Short:         "Operator tasks for the cotizador database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&app.Config.SQLiteDBPath, "db", app.Config.SQLiteDBPath, "path to the SQLite database")

	root.AddCommand(
		newMigrateCmd(app),
		newSeedCmd(app),
		newStatsCmd(app),
	)
	return root
}

func newMigrateCmd(app *Admin) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage schema migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.RunMigrations(app.Config.SQLiteDBPath); err != nil {
				return err
			}
			return printVersion(cmd.OutOrStdout(), app.Config.SQLiteDBPath)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.RollbackMigrations(app.Config.SQLiteDBPath, steps); err != nil {
				return err
			}
			app.Logger.Warn("Migrations rolled back", "steps", steps, "path", app.Config.SQLiteDBPath)
			return printVersion(cmd.OutOrStdout(), app.Config.SQLiteDBPath)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to revert, 0 for all")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printVersion(cmd.OutOrStdout(), app.Config.SQLiteDBPath)
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func printVersion(w io.Writer, dbPath string) error {
	status, err := storage.CurrentMigration(dbPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "schema version %d", status.Version)
	if status.Dirty {
		fmt.Fprint(w, " (dirty)")
	}
	fmt.Fprintln(w)
	return nil
}

func newSeedCmd(app *Admin) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the sample catalog and quotes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := storage.NewSQLiteRepository(app.Config.SQLiteDBPath)
			if err != nil {
				return err
			}
			defer repo.Close()

			sc, err := QuoteServiceConfig(app.Config)
			if err != nil {
				return err
			}
			res, err := seed.Run(cmd.Context(), repo,
				services.NewMaterialService(repo, time.Now),
				services.NewQuoteService(repo, nil, sc),
				seed.Options{Reset: reset})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Skipped {
				fmt.Fprintln(out, "catalog already populated, use --reset to replace it")
				return nil
			}
			fmt.Fprintf(out, "seeded %d materials and %d quotes\n", res.Materials, res.Quotes)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "delete existing quotes and materials first")
	return cmd
}

func newStatsCmd(app *Admin) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print quote and material statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := storage.NewSQLiteRepository(app.Config.SQLiteDBPath)
			if err != nil {
				return err
			}
			defer repo.Close()

			loc, err := app.Config.Location()
			if err != nil {
				return err
			}
			stats, err := services.NewDashboardService(repo, time.Now, loc).Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			writeStats(out, stats)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func writeStats(w io.Writer, s core.DashboardStats) {
	fmt.Fprintf(w, "Quotes: %d (this month %d)\n", s.Quotes.Count, s.Quotes.ThisMonth)
	fmt.Fprintf(w, "Billed: %s (average %s)\n", core.FormatMoney(s.Quotes.Billed), core.FormatMoney(s.Quotes.Average))
	for _, b := range s.ByStatus {
		fmt.Fprintf(w, "  %-10s %4d  %s\n", b.Status, b.Count, core.FormatMoney(b.Total))
	}
	fmt.Fprintf(w, "Materials: %d (%d active, %d inactive)\n", s.Materials.Total, s.Materials.Active, s.Materials.Inactive)
	if len(s.TopClients) > 0 {
		fmt.Fprintln(w, "Top clients:")
		for _, c := range s.TopClients {
			fmt.Fprintf(w, "  %-24s %4d  %s\n", c.Client, c.Count, core.FormatMoney(c.Total))
		}
	}
}
