package backup

import "fmt"

// MalformedDocumentError means the backup document failed structural
// validation: unparsable JSON, or the required top-level notes array absent.
type MalformedDocumentError struct {
	Path   string
	Reason string
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed backup document '%s': %s", e.Path, e.Reason)
}

// ImportFailure records one record that could not be applied. ID is set for
// note/location failures, Key for setting failures.
type ImportFailure struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id,omitempty"`
	Key  string `json:"key,omitempty"`
	Err  string `json:"error"`
}

// PartialImportError reports that a subset of records failed while the rest
// were applied. The failure list is the payload; the import itself continued.
type PartialImportError struct {
	Failures []ImportFailure
}

func (e *PartialImportError) Error() string {
	return fmt.Sprintf("import completed with %d failed record(s)", len(e.Failures))
}

// ImportResult carries per-section counts plus the failure list, so callers can
// present more than an opaque boolean.
type ImportResult struct {
	NotesImported     int             `json:"notes_imported"`
	NotesSkipped      int             `json:"notes_skipped"`
	NotesFailed       int             `json:"notes_failed"`
	LocationsImported int             `json:"locations_imported"`
	LocationsFailed   int             `json:"locations_failed"`
	SettingsApplied   int             `json:"settings_applied"`
	Failures          []ImportFailure `json:"failures,omitempty"`
}
