package fieldnotes

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const (
	insertNoteStatement = `
	INSERT INTO notes (
		title, content, timestamp, latitude, longitude, location_name,
		color, is_favorite, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	getNoteStatement = `
	SELECT id, title, content, timestamp, latitude, longitude, location_name,
		color, is_favorite, created_at, updated_at
	FROM notes
	WHERE id = ?
	`

	listNotesStatement = `
	SELECT id, title, content, timestamp, latitude, longitude, location_name,
		color, is_favorite, created_at, updated_at
	FROM notes
	ORDER BY timestamp DESC
	`

	listFavoriteNotesStatement = `
	SELECT id, title, content, timestamp, latitude, longitude, location_name,
		color, is_favorite, created_at, updated_at
	FROM notes
	WHERE is_favorite = 1
	ORDER BY timestamp DESC
	`

	searchNotesStatement = `
	SELECT DISTINCT n.id, n.title, n.content, n.timestamp, n.latitude, n.longitude,
		n.location_name, n.color, n.is_favorite, n.created_at, n.updated_at
	FROM notes n
	LEFT JOIN note_tags nt ON n.id = nt.note_id
	LEFT JOIN tags t ON nt.tag_id = t.id
	WHERE n.title LIKE ? OR n.content LIKE ? OR n.location_name LIKE ? OR t.name LIKE ?
	ORDER BY n.timestamp DESC
	`

	updateNoteStatement = `
	UPDATE notes SET
		title = ?, content = ?, timestamp = ?, latitude = ?, longitude = ?,
		location_name = ?, color = ?, is_favorite = ?, updated_at = ?
	WHERE id = ?
	`

	deleteNoteStatement = `
	DELETE FROM notes WHERE id = ?
	`

	deleteAllNotesStatement = `
	DELETE FROM notes
	`

	insertNoteTagStatement = `
	INSERT OR IGNORE INTO note_tags (note_id, tag_id) VALUES (?, ?)
	`
)

// attachTags resolves each tag name through the get-or-create path and inserts
// the relation rows, all on the caller's transaction.
func attachTags(ctx context.Context, q Querier, noteID int64, tags []string) error {
	for _, name := range tags {
		tagID, err := EnsureTag(ctx, q, name)
		if err != nil {
			return fmt.Errorf("failed to resolve tag %q: %w", name, err)
		}
		if _, err := q.ExecContext(ctx, insertNoteTagStatement, noteID, tagID); err != nil {
			return fmt.Errorf("failed to attach tag %q: %w", name, err)
		}
	}
	return nil
}

// ValidateNoteInput applies the note creation rules: content must be non-empty
// (whitespace does not count), while the title may be empty — display layers
// substitute a placeholder. CreateNote deliberately does not call this; the
// import path writes notes as the document recorded them.
func ValidateNoteInput(in NoteInput) error {
	if strings.TrimSpace(in.Content) == "" {
		return ErrEmptyContent
	}
	return nil
}

// CreateNote inserts a note together with its tag relations in one transaction.
// A failure attaching tags rolls back the note row, so a committed note always
// carries its full requested tag set. Timestamp, CreatedAt, and UpdatedAt
// default to now unless supplied on the input.
func CreateNote(ctx context.Context, db *sql.DB, in NoteInput) (Note, error) {
	now := time.Now().UnixMilli()
	if in.Timestamp == 0 {
		in.Timestamp = now
	}
	createdAt := in.CreatedAt
	if createdAt == 0 {
		createdAt = now
	}
	updatedAt := in.UpdatedAt
	if updatedAt == 0 {
		updatedAt = now
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Note{}, classifyStorageErr(err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(
		ctx,
		insertNoteStatement,
		in.Title,
		in.Content,
		in.Timestamp,
		in.Latitude,
		in.Longitude,
		in.LocationName,
		in.Color,
		in.IsFavorite,
		createdAt,
		updatedAt,
	)
	if err != nil {
		return Note{}, classifyStorageErr(err)
	}

	noteID, err := res.LastInsertId()
	if err != nil {
		return Note{}, err
	}

	if len(in.Tags) > 0 {
		if err := attachTags(ctx, tx, noteID, in.Tags); err != nil {
			return Note{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Note{}, err
	}

	return GetNote(ctx, db, noteID)
}

// GetNote retrieves one note with its resolved tag set.
func GetNote(ctx context.Context, db *sql.DB, id int64) (Note, error) {
	var note Note

	err := db.QueryRowContext(ctx, getNoteStatement, id).Scan(
		&note.ID,
		&note.Title,
		&note.Content,
		&note.Timestamp,
		&note.Latitude,
		&note.Longitude,
		&note.LocationName,
		&note.Color,
		&note.IsFavorite,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return Note{}, ErrNoteNotFound
		}
		return Note{}, classifyStorageErr(err)
	}

	note.Tags, err = TagsForNote(ctx, db, note.ID)
	if err != nil {
		return Note{}, err
	}

	return note, nil
}

func scanNotes(ctx context.Context, db *sql.DB, rows *sql.Rows) ([]Note, error) {
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var note Note
		err := rows.Scan(
			&note.ID,
			&note.Title,
			&note.Content,
			&note.Timestamp,
			&note.Latitude,
			&note.Longitude,
			&note.LocationName,
			&note.Color,
			&note.IsFavorite,
			&note.CreatedAt,
			&note.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Release the cursor before issuing the per-note tag queries so they never
	// need a second pooled connection.
	rows.Close()

	for i := range notes {
		tags, err := TagsForNote(ctx, db, notes[i].ID)
		if err != nil {
			return nil, err
		}
		notes[i].Tags = tags
	}

	return notes, nil
}

// ListNotes returns every note ordered by the logical timestamp, newest first.
func ListNotes(ctx context.Context, db *sql.DB) ([]Note, error) {
	rows, err := db.QueryContext(ctx, listNotesStatement)
	if err != nil {
		return nil, classifyStorageErr(err)
	}
	return scanNotes(ctx, db, rows)
}

// ListFavoriteNotes returns favorited notes in the same order as ListNotes.
func ListFavoriteNotes(ctx context.Context, db *sql.DB) ([]Note, error) {
	rows, err := db.QueryContext(ctx, listFavoriteNotesStatement)
	if err != nil {
		return nil, classifyStorageErr(err)
	}
	return scanNotes(ctx, db, rows)
}

// SearchNotes matches a case-insensitive substring against title, content,
// location name, or any attached tag name, distinct by note id, newest first.
// The empty query matches every note; tag-only filtering builds on that.
func SearchNotes(ctx context.Context, db *sql.DB, query string) ([]Note, error) {
	searchTerm := "%" + query + "%"
	rows, err := db.QueryContext(ctx, searchNotesStatement, searchTerm, searchTerm, searchTerm, searchTerm)
	if err != nil {
		return nil, classifyStorageErr(err)
	}
	return scanNotes(ctx, db, rows)
}

// UpdateNote overwrites the note row and always refreshes updated_at, even when
// no other field changed. CreatedAt is immutable and never written. A nil Tags
// slice leaves the stored tag relations untouched; a non-nil slice (including
// an empty one) replaces the full relation set.
func UpdateNote(ctx context.Context, db *sql.DB, n Note) (Note, error) {
	if n.ID == 0 {
		return Note{}, fmt.Errorf("note id is required for update")
	}

	now := time.Now().UnixMilli()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Note{}, classifyStorageErr(err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(
		ctx,
		updateNoteStatement,
		n.Title,
		n.Content,
		n.Timestamp,
		n.Latitude,
		n.Longitude,
		n.LocationName,
		n.Color,
		n.IsFavorite,
		now,
		n.ID,
	)
	if err != nil {
		return Note{}, classifyStorageErr(err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return Note{}, err
	}
	if rowsAffected == 0 {
		return Note{}, ErrNoteNotFound
	}

	if n.Tags != nil {
		if err := ReplaceNoteTags(ctx, tx, n.ID, n.Tags); err != nil {
			return Note{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Note{}, err
	}

	return GetNote(ctx, db, n.ID)
}

// DeleteNote removes a note. Its relation rows go with it via the foreign key
// cascade; the tag rows themselves survive.
func DeleteNote(ctx context.Context, db *sql.DB, id int64) error {
	res, err := db.ExecContext(ctx, deleteNoteStatement, id)
	if err != nil {
		return classifyStorageErr(err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNoteNotFound
	}

	return nil
}

// DeleteAllNotes removes every note and, via cascade, every note-tag relation.
func DeleteAllNotes(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, deleteAllNotesStatement)
	return classifyStorageErr(err)
}
