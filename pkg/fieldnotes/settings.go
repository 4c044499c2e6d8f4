package fieldnotes

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

const (
	setSettingStatement = `
	INSERT INTO settings (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`

	getSettingStatement = `
	SELECT value FROM settings WHERE key = ?
	`

	allSettingsStatement = `
	SELECT key, value FROM settings ORDER BY key ASC
	`

	deleteSettingStatement = `
	DELETE FROM settings WHERE key = ?
	`
)

// SetSetting writes a key-value pair, overwriting any existing value.
func SetSetting(ctx context.Context, q Querier, key, value string) error {
	if key == "" {
		return fmt.Errorf("setting key cannot be empty")
	}
	_, err := q.ExecContext(ctx, setSettingStatement, key, value)
	return classifyStorageErr(err)
}

// GetSetting returns the value for a key, or ErrSettingNotFound.
func GetSetting(ctx context.Context, db *sql.DB, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, getSettingStatement, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrSettingNotFound
		}
		return "", classifyStorageErr(err)
	}
	return value, nil
}

// AllSettings returns every stored key-value pair.
func AllSettings(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, allSettingsStatement)
	if err != nil {
		return nil, classifyStorageErr(err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return settings, nil
}

// DeleteSetting removes a key. Deleting a missing key is not an error.
func DeleteSetting(ctx context.Context, db *sql.DB, key string) error {
	_, err := db.ExecContext(ctx, deleteSettingStatement, key)
	return classifyStorageErr(err)
}

// Keys for the known preferences. Unknown keys in the settings table belong to
// callers and pass through Load/SavePreferences untouched.
const (
	settingTheme            = "theme"
	settingTrackingEnabled  = "tracking_enabled"
	settingTrackingInterval = "tracking_interval_minutes"
	settingDefaultNoteColor = "default_note_color"
)

// Preferences is the typed view over the known settings keys. Each field has an
// explicit default applied by DefaultPreferences and on load when a key is
// absent or unparsable.
type Preferences struct {
	Theme                   string
	TrackingEnabled         bool
	TrackingIntervalMinutes int
	DefaultNoteColor        string
}

// DefaultPreferences returns the defaults applied before any key is stored:
// system theme, tracking off, 30 minute poll interval, no default note color.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:                   "system",
		TrackingEnabled:         false,
		TrackingIntervalMinutes: 30,
		DefaultNoteColor:        "",
	}
}

// LoadPreferences reads the known keys from the settings table, falling back to
// defaults for anything absent or malformed.
func LoadPreferences(ctx context.Context, db *sql.DB) (Preferences, error) {
	prefs := DefaultPreferences()

	settings, err := AllSettings(ctx, db)
	if err != nil {
		return Preferences{}, err
	}

	if v, ok := settings[settingTheme]; ok && v != "" {
		prefs.Theme = v
	}
	if v, ok := settings[settingTrackingEnabled]; ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			prefs.TrackingEnabled = parsed
		}
	}
	if v, ok := settings[settingTrackingInterval]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			prefs.TrackingIntervalMinutes = parsed
		}
	}
	if v, ok := settings[settingDefaultNoteColor]; ok {
		prefs.DefaultNoteColor = v
	}

	return prefs, nil
}

// SavePreferences writes all known keys in one transaction.
func SavePreferences(ctx context.Context, db *sql.DB, prefs Preferences) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return classifyStorageErr(err)
	}
	defer tx.Rollback()

	pairs := map[string]string{
		settingTheme:            prefs.Theme,
		settingTrackingEnabled:  strconv.FormatBool(prefs.TrackingEnabled),
		settingTrackingInterval: strconv.Itoa(prefs.TrackingIntervalMinutes),
		settingDefaultNoteColor: prefs.DefaultNoteColor,
	}
	for key, value := range pairs {
		if err := SetSetting(ctx, tx, key, value); err != nil {
			return err
		}
	}

	return tx.Commit()
}
