package mcp

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	fieldlog "github.com/unowned-ai/fieldlog/pkg"
	"github.com/unowned-ai/fieldlog/pkg/config"
	pkgdb "github.com/unowned-ai/fieldlog/pkg/db"
)

type FieldLogMCPServer struct {
	mcpServer *server.MCPServer
	db        *sql.DB
	DbPath    string
	BackupDir string
}

// NewFieldLogMCPServer spins up an MCP server backed by the SQLite database at
// dbPath. Empty dbPath or backupDir fall back to the configured defaults.
func NewFieldLogMCPServer(dbPath, backupDir string) (*FieldLogMCPServer, error) {
	resolvedPath, err := config.ResolveAndEnsureDBPath(dbPath)
	if err != nil {
		return nil, err
	}

	if backupDir == "" {
		backupDir = config.Default().BackupDir
	}

	// Create base MCP server.
	s := server.NewMCPServer(
		"FieldLog MCP Server",
		fieldlog.Version,
		server.WithResourceCapabilities(true, true),
		server.WithLogging(),
		server.WithRecovery(),
	)

	// Open database (WAL + FULL).
	dbConn, err := pkgdb.OpenDBConnection(resolvedPath, true, "FULL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Automatically initialize or migrate the database schema.
	if err := pkgdb.UpgradeDB(dbConn, resolvedPath, pkgdb.TargetSchemaVersion); err != nil {
		// Attempt to close the DB connection if upgrade fails.
		dbConn.Close()
		return nil, fmt.Errorf("failed to initialize/upgrade database schema for '%s': %w", resolvedPath, err)
	}

	return &FieldLogMCPServer{
		mcpServer: s,
		db:        dbConn,
		DbPath:    resolvedPath,
		BackupDir: backupDir,
	}, nil
}

// RegisterAllTools wires every FieldLog tool onto the server.
func (s *FieldLogMCPServer) RegisterAllTools() {
	RegisterPingTool(s.mcpServer)
	RegisterCreateNoteTool(s.mcpServer, s.db)
	RegisterGetNoteTool(s.mcpServer, s.db)
	RegisterListNotesTool(s.mcpServer, s.db)
	RegisterSearchNotesTool(s.mcpServer, s.db)
	RegisterUpdateNoteTool(s.mcpServer, s.db)
	RegisterDeleteNoteTool(s.mcpServer, s.db)
	RegisterListTagsTool(s.mcpServer, s.db)
	RegisterRecordLocationTool(s.mcpServer, s.db)
	RegisterLatestLocationTool(s.mcpServer, s.db)
	RegisterLocationHistoryTool(s.mcpServer, s.db)
	RegisterExportBackupTool(s.mcpServer, s.db, s.BackupDir)
	RegisterImportBackupTool(s.mcpServer, s.db)
}

// Start runs the stdio event loop. Make sure to register tools beforehand.
func (s *FieldLogMCPServer) Start() error {
	return server.ServeStdio(s.mcpServer)
}

// DB returns the underlying *sql.DB.
func (s *FieldLogMCPServer) DB() *sql.DB {
	return s.db
}

// MCPRawServer exposes the raw mcp-go server (useful for additional configuration).
func (s *FieldLogMCPServer) MCPRawServer() *server.MCPServer {
	return s.mcpServer
}

// Close cleans up allocated resources.
func (s *FieldLogMCPServer) Close() error {
	if s.db != nil {
		// TRUNCATE mode waits for transactions and writes the WAL back to the main DB.
		_, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE);")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: WAL checkpoint failed during close: %v\n", err)
		}
		return s.db.Close()
	}
	return nil
}
