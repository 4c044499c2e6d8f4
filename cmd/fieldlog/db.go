package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/unowned-ai/fieldlog/pkg/config"
	pkgdb "github.com/unowned-ai/fieldlog/pkg/db"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the FieldLog database",
	Long:  `Provides commands for managing the FieldLog SQLite database, including schema upgrades.`,
}

var dbUpgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Upgrade the FieldLog database schema to the latest version",
	Long:  `Connects to the SQLite database and applies any necessary schema migrations to bring the fieldlogdb component up to the current application schema version. If the database does not exist or is uninitialized, it will be created and initialized with the latest schema.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		walEnabled, _ := cmd.Flags().GetBool("wal")
		syncMode, _ := cmd.Flags().GetString("sync")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		path := dbPath
		if path == "" {
			path = cfg.DBPath
		}
		resolved, err := config.ResolveAndEnsureDBPath(path)
		if err != nil {
			return err
		}

		fmt.Printf("Attempting to upgrade fieldlogdb component in database at: %s (WAL: %t, Sync: %s)\n", resolved, walEnabled, syncMode)

		dbConn, err := pkgdb.OpenDBConnection(resolved, walEnabled, syncMode)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		if err := pkgdb.UpgradeDB(dbConn, resolved, pkgdb.TargetSchemaVersion); err != nil {
			return err
		}
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop every FieldLog table, destroying all stored data",
	Long:  `Drops all notes, tags, location history, settings, and schema bookkeeping tables. The database file itself is kept. Requires the --yes flag as confirmation.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		confirmed, _ := cmd.Flags().GetBool("yes")
		if !confirmed {
			return fmt.Errorf("refusing to reset the database without the --yes flag")
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		if err := pkgdb.ResetAll(dbConn); err != nil {
			return fmt.Errorf("failed to reset database: %w", err)
		}

		fmt.Println("All FieldLog tables dropped.")
		return nil
	},
}

func initDBCmd() {
	dbUpgradeCmd.Flags().Bool("wal", true, "Enable SQLite WAL (Write-Ahead Logging) mode.")
	dbUpgradeCmd.Flags().String("sync", "NORMAL", "SQLite synchronous pragma (OFF, NORMAL, FULL, EXTRA).")
	dbResetCmd.Flags().Bool("yes", false, "Confirm that all stored data should be destroyed")
	dbCmd.AddCommand(dbUpgradeCmd, dbResetCmd)
}
