package cli

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/plannerd/internal/config"
	"github.com/sandeepkv93/plannerd/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or revert SQLite schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(cmd, "up", storage.MigrateUp)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert every migration, dropping all data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("migrate down drops every table; rerun with --yes")
		}
		return runMigration(cmd, "down", storage.MigrateDown)
	},
}

func init() {
	migrateDownCmd.Flags().Bool("yes", false, "Confirm dropping all data")
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

func runMigration(cmd *cobra.Command, direction string, apply func(*sql.DB) error) (err error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if storage.Backend(cfg.Storage.Backend) == storage.BackendBolt {
		return fmt.Errorf("migrations only apply to the sqlite backend, configured backend is %q", cfg.Storage.Backend)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	store, err := storage.OpenSQLite(cfg.Storage.Path, loc)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := apply(store.DB()); err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "migrations %s applied to %s\n", direction, cfg.Storage.Path)
	return nil
}
