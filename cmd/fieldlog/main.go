package main

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	fieldlog "github.com/unowned-ai/fieldlog/pkg"
	"github.com/unowned-ai/fieldlog/pkg/config"
	pkgdb "github.com/unowned-ai/fieldlog/pkg/db"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:     "fieldlog",
	Short:   "A local-first store for geotagged field notes, with location history and JSON backups.",
	Long:    ``,
	Version: fmt.Sprintf("v%s", fieldlog.Version),
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

var completionCmd = &cobra.Command{
	Use:   fmt.Sprintf("completion %s", strings.Join(completionShells, "|")),
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for fieldlog.

The command prints a completion script to stdout. You can source it in your shell
or install it to the appropriate location for your shell to enable completions permanently.

Examples:

  Bash (current shell):
    $ source <(fieldlog completion bash)

  Bash (persist):
    $ fieldlog completion bash > /etc/bash_completion.d/fieldlog

  Zsh:
    $ fieldlog completion zsh > "${fpath[1]}/_fieldlog"

  Fish:
    $ fieldlog completion fish | source
    $ fieldlog completion fish > ~/.config/fish/completions/fieldlog.fish

  PowerShell:
    PS> fieldlog completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             completionShells,
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			return rootCmd.GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(cmd.OutOrStdout())
		default:
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of fieldlog",
	Long:  `All software has versions. This is fieldlog's`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(fieldlog.Version)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the fieldlog configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file with the defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Init()
		if err != nil {
			return err
		}
		fmt.Printf("Wrote config file to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		path, err := config.Path()
		if err != nil {
			return err
		}
		fmt.Printf("Config file:               %s\n", path)
		fmt.Printf("db_path:                   %s\n", cfg.DBPath)
		fmt.Printf("backup_dir:                %s\n", cfg.BackupDir)
		fmt.Printf("enable_wal:                %t\n", cfg.EnableWAL)
		fmt.Printf("sync_mode:                 %s\n", cfg.SyncMode)
		fmt.Printf("tracking_interval_minutes: %d\n", cfg.TrackingIntervalMinutes)
		return nil
	},
}

// openDB resolves the database path (the --dbpath flag wins over the config
// file) and opens a connection with the configured pragmas.
func openDB() (*sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	path := dbPath
	if path == "" {
		path = cfg.DBPath
	}
	resolved, err := config.ResolveAndEnsureDBPath(path)
	if err != nil {
		return nil, err
	}

	dbConn, err := pkgdb.OpenDBConnection(resolved, cfg.EnableWAL, cfg.SyncMode)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return dbConn, nil
}

func defaultBackupDir() string {
	cfg, err := config.Load()
	if err != nil {
		return config.Default().BackupDir
	}
	return cfg.BackupDir
}

func initCmd() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "dbpath", "", "Path to the fieldlog SQLite database file (defaults to the configured db_path)")

	configCmd.AddCommand(configInitCmd, configShowCmd)

	initDBCmd()
	initNotesCmd()
	initTagsCmd()
	initLocationsCmd()
	initBackupCmd()

	rootCmd.AddCommand(completionCmd, versionCmd, configCmd, dbCmd, notesCmd, tagsCmd, locationsCmd, backupCmd, serveCmd)
}

func main() {
	initCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
