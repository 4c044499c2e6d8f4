package main

import (
	"fmt"

	"github.com/spf13/cobra"
	pkgmcp "github.com/unowned-ai/fieldlog/pkg/mcp"
)

// serveCmd starts the FieldLog MCP server as part of the main CLI.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the FieldLog MCP server (stdio transport)",
	Long:  `Launches the MCP stdio server so that external AI agents can call FieldLog tools.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Starting FieldLog MCP Server…")

		backupDir, _ := cmd.Flags().GetString("backup-dir")
		if backupDir == "" {
			backupDir = defaultBackupDir()
		}

		// Build the server instance
		mcpServer, err := pkgmcp.NewFieldLogMCPServer(dbPath, backupDir)
		if err != nil {
			return fmt.Errorf("failed to create FieldLog MCP server: %w", err)
		}
		defer mcpServer.Close()

		fmt.Printf("Using database: %s\n", mcpServer.DbPath)

		// Register all available MCP tools
		mcpServer.RegisterAllTools()

		fmt.Println("FieldLog MCP Server tools registered. Starting stdio listener…")
		if err := mcpServer.Start(); err != nil {
			return fmt.Errorf("FieldLog MCP server error: %w", err)
		}

		fmt.Println("FieldLog MCP Server stopped.")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("backup-dir", "", "Directory for backups created via the export_backup tool (defaults to the configured backup_dir)")
}
