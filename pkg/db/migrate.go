package db

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	// TargetSchemaVersion is the highest schema version this version of the code
	// supports for the fieldlogdb component.
	TargetSchemaVersion int64 = 1
	// FieldLogDBComponent is the name for the main FieldLog database component.
	FieldLogDBComponent = "fieldlogdb"
)

// GetComponentSchemaVersion retrieves the schema version for a given component.
// Returns 0 if the component is not found, the versions table is uninitialized, or the table doesn't exist.
func GetComponentSchemaVersion(conn *sql.DB, componentName string) (int64, error) {
	query := `SELECT version FROM fieldlog_versions WHERE component = ?;`
	row := conn.QueryRow(query, componentName)

	var version int64
	err := row.Scan(&version)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		if strings.Contains(err.Error(), "no such table") && strings.Contains(err.Error(), "fieldlog_versions") {
			// The versions table itself doesn't exist, so definitely version 0.
			return 0, nil
		}
		return 0, fmt.Errorf("failed to scan version for component '%s': %w", componentName, err)
	}
	return version, nil
}

// InitializeSchema creates the database schema (all tables for fieldlogdb)
// and sets the specified schema version for the fieldlogdb component.
// Safe to call on every startup: all statements are CREATE TABLE IF NOT EXISTS.
func InitializeSchema(conn *sql.DB, schemaVersionToSet int64) error {
	_, err := conn.Exec(SchemaV1)
	if err != nil {
		return fmt.Errorf("failed to execute schema v1 SQL: %w", err)
	}

	insertVersionSQL := `
INSERT INTO fieldlog_versions (component, version) VALUES (?, ?)
ON CONFLICT(component) DO UPDATE SET version = excluded.version, created_at = unixepoch();`

	_, err = conn.Exec(insertVersionSQL, FieldLogDBComponent, schemaVersionToSet)
	if err != nil {
		return fmt.Errorf("failed to insert/update version for component %s to %d: %w", FieldLogDBComponent, schemaVersionToSet, err)
	}

	return nil
}

// UpgradeDB applies necessary migrations to bring the database, represented by the *sql.DB connection,
// for the FieldLogDBComponent to the appTargetSchemaVersion.
// dbIdentifierForLog is used for logging purposes only.
func UpgradeDB(conn *sql.DB, dbIdentifierForLog string, appTargetSchemaVersion int64) error {
	currentDBVersion, err := GetComponentSchemaVersion(conn, FieldLogDBComponent)
	if err != nil {
		return err
	}

	if currentDBVersion == 0 { // 0 indicates component not versioned or new DB
		fmt.Fprintf(os.Stderr, "Component %s in database '%s' appears to be uninitialized. Initializing to schema version %d...\n", FieldLogDBComponent, dbIdentifierForLog, appTargetSchemaVersion)
		err = InitializeSchema(conn, appTargetSchemaVersion)
		if err != nil {
			return fmt.Errorf("failed to initialize component %s in database '%s': %w", FieldLogDBComponent, dbIdentifierForLog, err)
		}
		return nil
	} else if currentDBVersion == appTargetSchemaVersion {
		return nil
	} else if currentDBVersion < appTargetSchemaVersion {
		return fmt.Errorf("component %s in database '%s' has schema version %d, which is older than application's target schema version %d. Automatic migration from this older version is not yet supported", FieldLogDBComponent, dbIdentifierForLog, currentDBVersion, appTargetSchemaVersion)
	} else { // currentDBVersion > appTargetSchemaVersion
		return fmt.Errorf("component %s in database '%s' has schema version %d, which is newer than application's target schema version %d. Please upgrade the application", FieldLogDBComponent, dbIdentifierForLog, currentDBVersion, appTargetSchemaVersion)
	}
}

// ResetAll drops every FieldLog table, relation tables first so foreign keys
// never dangle mid-reset. Destructive, intended for development and tests only.
func ResetAll(conn *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS note_tags;`,
		`DROP TABLE IF EXISTS tags;`,
		`DROP TABLE IF EXISTS notes;`,
		`DROP TABLE IF EXISTS location_history;`,
		`DROP TABLE IF EXISTS settings;`,
		`DROP TABLE IF EXISTS fieldlog_versions;`,
	}

	for _, stmt := range dropStatements {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to drop table during reset: %w", err)
		}
	}
	return nil
}
