// Package backup serializes the full FieldLog dataset (notes with tags,
// location history, settings) to a single JSON document and reconstructs it
// back. Export never mutates the live stores; Import merges record by record;
// Restore wipes first.
package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	fieldlog "github.com/unowned-ai/fieldlog/pkg"
	"github.com/unowned-ai/fieldlog/pkg/fieldnotes"
)

// DefaultLabel names export files when the caller does not supply a label.
const DefaultLabel = "fieldlog_backup"

// Document is the authoritative interchange format between app instances.
// Notes carry their tag names inline; relations are re-resolved on import.
type Document struct {
	ID              uuid.UUID                   `json:"id"`
	Version         string                      `json:"version"`
	Timestamp       int64                       `json:"timestamp"`
	Notes           []fieldnotes.Note           `json:"notes"`
	LocationHistory []fieldnotes.LocationRecord `json:"locationHistory"`
	Settings        map[string]string           `json:"settings,omitempty"`
}

// documentEnvelope is the lenient read-side shape: a nil Notes pointer tells a
// missing key apart from an empty array, and the legacy asyncStorage key is
// still accepted for the settings map.
type documentEnvelope struct {
	ID              uuid.UUID                   `json:"id"`
	Version         string                      `json:"version"`
	Timestamp       int64                       `json:"timestamp"`
	Notes           *[]fieldnotes.Note          `json:"notes"`
	LocationHistory []fieldnotes.LocationRecord `json:"locationHistory"`
	Settings        map[string]string           `json:"settings"`
	AsyncStorage    map[string]string           `json:"asyncStorage"`
}

// ExportResult reports where the document landed and what it contains.
type ExportResult struct {
	FilePath      string `json:"file_path"`
	NoteCount     int    `json:"note_count"`
	LocationCount int    `json:"location_count"`
	SettingCount  int    `json:"setting_count"`
}

// Export reads the full dataset and writes it as a uniquely named JSON file
// under dir (created if absent). The file name combines the label with a UTC
// generation timestamp so prior backups are never overwritten. Read-only with
// respect to the stores; ordering inside the document is the stores' own
// deterministic order.
func Export(ctx context.Context, db *sql.DB, dir, label string) (ExportResult, error) {
	if label == "" {
		label = DefaultLabel
	}

	notes, err := fieldnotes.ListNotes(ctx, db)
	if err != nil {
		return ExportResult{}, fmt.Errorf("failed to read notes for export: %w", err)
	}
	locations, err := fieldnotes.QueryLocations(ctx, db, nil, nil)
	if err != nil {
		return ExportResult{}, fmt.Errorf("failed to read location history for export: %w", err)
	}
	settings, err := fieldnotes.AllSettings(ctx, db)
	if err != nil {
		return ExportResult{}, fmt.Errorf("failed to read settings for export: %w", err)
	}

	doc := Document{
		ID:              uuid.New(),
		Version:         fieldlog.Version,
		Timestamp:       time.Now().UnixMilli(),
		Notes:           notes,
		LocationHistory: locations,
		Settings:        settings,
	}
	if doc.Notes == nil {
		doc.Notes = []fieldnotes.Note{}
	}
	if doc.LocationHistory == nil {
		doc.LocationHistory = []fieldnotes.LocationRecord{}
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return ExportResult{}, fmt.Errorf("failed to serialize backup document: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return ExportResult{}, fmt.Errorf("failed to create backup directory '%s': %w", dir, err)
	}

	fileName := fmt.Sprintf("%s_%s.json", label, time.Now().UTC().Format("20060102-150405"))
	filePath := filepath.Join(dir, fileName)

	if err := os.WriteFile(filePath, payload, 0644); err != nil {
		return ExportResult{}, fmt.Errorf("failed to write backup file '%s': %w", filePath, err)
	}

	return ExportResult{
		FilePath:      filePath,
		NoteCount:     len(doc.Notes),
		LocationCount: len(doc.LocationHistory),
		SettingCount:  len(settings),
	}, nil
}

// Import reads a backup document and merges it into the live stores.
//
// Notes are upserted by their source id: existing rows are fully overwritten
// (audit timestamps included, so import never bumps updated_at), absent ids are
// inserted preserving the id. Tag relations are re-resolved through the tag
// store's get-or-create path. Location records are insert-if-absent by id.
// Settings are written back verbatim.
//
// Individual record failures do not abort the import: they are collected into
// the result, and when any occurred the returned error is a
// *PartialImportError carrying them. Re-importing an unmodified export is a
// no-op.
func Import(ctx context.Context, db *sql.DB, path string) (ImportResult, error) {
	env, err := readDocument(path)
	if err != nil {
		return ImportResult{}, err
	}
	return importEnvelope(ctx, db, env)
}

// Restore validates the document, then clears notes, tags, relations, and
// location history in one transaction before loading the document's contents.
// Destructive on purpose; Import is the merging alternative.
func Restore(ctx context.Context, db *sql.DB, path string) (ImportResult, error) {
	env, err := readDocument(path)
	if err != nil {
		return ImportResult{}, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return ImportResult{}, err
	}
	defer tx.Rollback()

	// Relation table first so foreign keys never dangle mid-wipe.
	for _, stmt := range []string{
		`DELETE FROM note_tags;`,
		`DELETE FROM tags;`,
		`DELETE FROM notes;`,
		`DELETE FROM location_history;`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return ImportResult{}, fmt.Errorf("failed to clear existing data for restore: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ImportResult{}, err
	}

	return importEnvelope(ctx, db, env)
}

func readDocument(path string) (*documentEnvelope, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file '%s': %w", path, err)
	}

	var env documentEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &MalformedDocumentError{Path: path, Reason: err.Error()}
	}
	if env.Notes == nil {
		return nil, &MalformedDocumentError{Path: path, Reason: "missing required 'notes' array"}
	}
	if env.Settings == nil {
		env.Settings = env.AsyncStorage
	}
	return &env, nil
}

const upsertNoteStatement = `
INSERT INTO notes (
	id, title, content, timestamp, latitude, longitude, location_name,
	color, is_favorite, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	content = excluded.content,
	timestamp = excluded.timestamp,
	latitude = excluded.latitude,
	longitude = excluded.longitude,
	location_name = excluded.location_name,
	color = excluded.color,
	is_favorite = excluded.is_favorite,
	created_at = excluded.created_at,
	updated_at = excluded.updated_at
`

// importNote upserts one note row plus its full tag relation set in a single
// transaction, so a crash mid-record cannot leave a note with half its tags.
func importNote(ctx context.Context, db *sql.DB, note fieldnotes.Note) error {
	if note.ID <= 0 {
		return fmt.Errorf("note is missing a usable id")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		upsertNoteStatement,
		note.ID,
		note.Title,
		note.Content,
		note.Timestamp,
		note.Latitude,
		note.Longitude,
		note.LocationName,
		note.Color,
		note.IsFavorite,
		note.CreatedAt,
		note.UpdatedAt,
	)
	if err != nil {
		return err
	}

	tags := note.Tags
	if tags == nil {
		tags = []string{}
	}
	if err := fieldnotes.ReplaceNoteTags(ctx, tx, note.ID, tags); err != nil {
		return err
	}

	return tx.Commit()
}

func importEnvelope(ctx context.Context, db *sql.DB, env *documentEnvelope) (ImportResult, error) {
	var result ImportResult

	for _, note := range *env.Notes {
		// The original app skipped fully empty notes rather than failing them.
		if note.Title == "" && note.Content == "" {
			result.NotesSkipped++
			continue
		}
		if err := importNote(ctx, db, note); err != nil {
			result.NotesFailed++
			result.Failures = append(result.Failures, ImportFailure{
				Kind: "note", ID: note.ID, Err: err.Error(),
			})
			continue
		}
		result.NotesImported++
	}

	for _, loc := range env.LocationHistory {
		if loc.ID <= 0 {
			result.LocationsFailed++
			result.Failures = append(result.Failures, ImportFailure{
				Kind: "location", ID: loc.ID, Err: "location record is missing a usable id",
			})
			continue
		}
		if _, err := fieldnotes.AppendLocation(ctx, db, loc); err != nil {
			result.LocationsFailed++
			result.Failures = append(result.Failures, ImportFailure{
				Kind: "location", ID: loc.ID, Err: err.Error(),
			})
			continue
		}
		result.LocationsImported++
	}

	for key, value := range env.Settings {
		if err := fieldnotes.SetSetting(ctx, db, key, value); err != nil {
			result.Failures = append(result.Failures, ImportFailure{
				Kind: "setting", Key: key, Err: err.Error(),
			})
			continue
		}
		result.SettingsApplied++
	}

	if len(result.Failures) > 0 {
		return result, &PartialImportError{Failures: result.Failures}
	}
	return result, nil
}
