package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/unowned-ai/fieldlog/pkg/backup"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export and import JSON backups",
	Long:  `Provides commands for writing the full dataset to a JSON backup file and loading it back, either merged into the current data or replacing it.`,
}

func printImportSummary(result backup.ImportResult) {
	fmt.Printf("Notes imported:     %d (skipped: %d, failed: %d)\n", result.NotesImported, result.NotesSkipped, result.NotesFailed)
	fmt.Printf("Locations imported: %d (failed: %d)\n", result.LocationsImported, result.LocationsFailed)
	fmt.Printf("Settings applied:   %d\n", result.SettingsApplied)
	for _, failure := range result.Failures {
		ref := failure.Key
		if ref == "" {
			ref = fmt.Sprintf("%d", failure.ID)
		}
		fmt.Printf("  failed %s %s: %s\n", failure.Kind, ref, failure.Err)
	}
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the full dataset to a JSON backup file",
	Long:  `Exports every note (with tags), the location history, and all settings into a uniquely named JSON file. Existing backup files are never overwritten.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		label, _ := cmd.Flags().GetString("label")
		if dir == "" {
			dir = defaultBackupDir()
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		result, err := backup.Export(context.Background(), dbConn, dir, label)
		if err != nil {
			return fmt.Errorf("failed to export backup: %w", err)
		}

		fmt.Printf("Backup written to %s (%d notes, %d locations, %d settings).\n",
			result.FilePath, result.NoteCount, result.LocationCount, result.SettingCount)
		return nil
	},
}

var backupImportCmd = &cobra.Command{
	Use:   "import [path]",
	Short: "Merge a JSON backup into the current data",
	Long:  `Loads the given backup file. Notes upsert by their original id, locations are inserted when absent, and settings are applied verbatim. Records that fail individually are reported without aborting the rest.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		result, err := backup.Import(context.Background(), dbConn, args[0])
		if err != nil {
			var partial *backup.PartialImportError
			if errors.As(err, &partial) {
				printImportSummary(result)
				return fmt.Errorf("backup imported with %d failure(s)", len(partial.Failures))
			}
			return fmt.Errorf("failed to import backup: %w", err)
		}

		printImportSummary(result)
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore [path]",
	Short: "Replace the current data with a JSON backup",
	Long:  `Validates the given backup file, then wipes all notes, tags, and location history before loading the file's contents. Requires the --yes flag as confirmation.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confirmed, _ := cmd.Flags().GetBool("yes")
		if !confirmed {
			return fmt.Errorf("refusing to replace the current data without the --yes flag")
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		result, err := backup.Restore(context.Background(), dbConn, args[0])
		if err != nil {
			var partial *backup.PartialImportError
			if errors.As(err, &partial) {
				printImportSummary(result)
				return fmt.Errorf("backup restored with %d failure(s)", len(partial.Failures))
			}
			return fmt.Errorf("failed to restore backup: %w", err)
		}

		printImportSummary(result)
		return nil
	},
}

func initBackupCmd() {
	backupExportCmd.Flags().String("dir", "", "Directory for the backup file (defaults to the configured backup_dir)")
	backupExportCmd.Flags().String("label", "", "File name label (defaults to 'fieldlog_backup')")
	backupRestoreCmd.Flags().Bool("yes", false, "Confirm that the current data should be replaced")
	backupCmd.AddCommand(backupExportCmd, backupImportCmd, backupRestoreCmd)
}
