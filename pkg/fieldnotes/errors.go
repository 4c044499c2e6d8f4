package fieldnotes

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoteNotFound     = errors.New("note not found")
	ErrLocationNotFound = errors.New("location record not found")
	ErrSettingNotFound  = errors.New("setting not found")

	// ErrEmptyContent is returned by ValidateNoteInput when a note has no
	// content. The store itself accepts empty content (the import path may
	// carry it); entry surfaces apply this check before creating.
	ErrEmptyContent = errors.New("note content cannot be empty")

	// ErrStorageUnavailable indicates the schema has not been initialized or the
	// underlying database is unreachable. Fatal to the calling operation; callers
	// should not retry automatically.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// classifyStorageErr maps driver-level "schema missing / database gone" failures
// onto ErrStorageUnavailable so callers can distinguish them from data-level
// errors. All other errors pass through unchanged.
func classifyStorageErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "unable to open database") ||
		strings.Contains(msg, "database is closed") {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return err
}
