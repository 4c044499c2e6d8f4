package fieldnotes

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is satisfied by both *sql.DB and *sql.Tx. Tag operations accept it so
// the note store and the import path can run them inside their own transactions.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	insertTagStatement = `
	INSERT OR IGNORE INTO tags (name) VALUES (?)
	`

	selectTagIDStatement = `
	SELECT id FROM tags WHERE name = ?
	`

	tagsForNoteStatement = `
	SELECT t.name FROM tags t
	JOIN note_tags nt ON t.id = nt.tag_id
	WHERE nt.note_id = ?
	`

	removeNoteTagsStatement = `
	DELETE FROM note_tags WHERE note_id = ?
	`

	listTagsStatement = `
	SELECT name FROM tags ORDER BY name ASC
	`

	pruneTagsStatement = `
	DELETE FROM tags
	WHERE id NOT IN (SELECT DISTINCT tag_id FROM note_tags)
	`
)

// EnsureTag resolves a tag name to its id, creating the tag row if needed.
// Insert-or-ignore followed by a lookup, so concurrent callers racing on the
// same name converge on one id and the unique constraint never surfaces.
func EnsureTag(ctx context.Context, q Querier, name string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("tag name cannot be empty")
	}

	if _, err := q.ExecContext(ctx, insertTagStatement, name); err != nil {
		return 0, classifyStorageErr(err)
	}

	var id int64
	if err := q.QueryRowContext(ctx, selectTagIDStatement, name).Scan(&id); err != nil {
		return 0, classifyStorageErr(err)
	}
	return id, nil
}

// TagsForNote returns the tag names attached to one note. The order is join
// order; callers must not depend on it.
func TagsForNote(ctx context.Context, q Querier, noteID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx, tagsForNoteStatement, noteID)
	if err != nil {
		return nil, classifyStorageErr(err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tags = append(tags, name)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return tags, nil
}

// RemoveAllTagsForNote deletes the note's relation rows. Tag rows are untouched.
func RemoveAllTagsForNote(ctx context.Context, q Querier, noteID int64) error {
	_, err := q.ExecContext(ctx, removeNoteTagsStatement, noteID)
	return classifyStorageErr(err)
}

// ListTags returns every known tag name, ascending.
func ListTags(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, listTagsStatement)
	if err != nil {
		return nil, classifyStorageErr(err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tags = append(tags, name)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return tags, nil
}

// ReplaceNoteTags swaps a note's full relation set for the given tag names,
// delete-then-insert, resolving each name through the get-or-create path. Run
// it on the same transaction as the note write it belongs to.
func ReplaceNoteTags(ctx context.Context, q Querier, noteID int64, tags []string) error {
	if err := RemoveAllTagsForNote(ctx, q, noteID); err != nil {
		return err
	}
	return attachTags(ctx, q, noteID, tags)
}

// PruneUnusedTags deletes tags no note references anymore and reports how many
// were removed. Orphaned tags are otherwise kept forever; pruning only happens
// on explicit request.
func PruneUnusedTags(ctx context.Context, db *sql.DB) (int64, error) {
	res, err := db.ExecContext(ctx, pruneTagsStatement)
	if err != nil {
		return 0, classifyStorageErr(err)
	}
	return res.RowsAffected()
}
