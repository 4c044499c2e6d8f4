package fieldnotes

import (
	"context"
	"errors"
	"testing"
)

func TestSetAndGetSetting(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()

	if err := SetSetting(ctx, testDB, "theme", "dark"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}

	value, err := GetSetting(ctx, testDB, "theme")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if value != "dark" {
		t.Errorf("Expected 'dark', got %q", value)
	}

	// Overwrite with the same key.
	if err := SetSetting(ctx, testDB, "theme", "light"); err != nil {
		t.Fatalf("SetSetting overwrite failed: %v", err)
	}
	value, err = GetSetting(ctx, testDB, "theme")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if value != "light" {
		t.Errorf("Expected overwritten value 'light', got %q", value)
	}
}

func TestGetSettingNotFound(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	if _, err := GetSetting(context.Background(), testDB, "missing"); !errors.Is(err, ErrSettingNotFound) {
		t.Errorf("Expected ErrSettingNotFound, got: %v", err)
	}
}

func TestAllSettings(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()

	pairs := map[string]string{"a": "1", "b": "2", "c": "3"}
	for k, v := range pairs {
		if err := SetSetting(ctx, testDB, k, v); err != nil {
			t.Fatalf("SetSetting(%q) failed: %v", k, err)
		}
	}

	all, err := AllSettings(ctx, testDB)
	if err != nil {
		t.Fatalf("AllSettings failed: %v", err)
	}
	if len(all) != len(pairs) {
		t.Fatalf("Expected %d settings, got %d", len(pairs), len(all))
	}
	for k, v := range pairs {
		if all[k] != v {
			t.Errorf("Expected settings[%q] == %q, got %q", k, v, all[k])
		}
	}
}

func TestDeleteSetting(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()

	if err := SetSetting(ctx, testDB, "doomed", "x"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	if err := DeleteSetting(ctx, testDB, "doomed"); err != nil {
		t.Fatalf("DeleteSetting failed: %v", err)
	}
	if _, err := GetSetting(ctx, testDB, "doomed"); !errors.Is(err, ErrSettingNotFound) {
		t.Errorf("Expected ErrSettingNotFound after delete, got: %v", err)
	}

	// Deleting a missing key is not an error.
	if err := DeleteSetting(ctx, testDB, "never-existed"); err != nil {
		t.Errorf("DeleteSetting on a missing key should be a no-op, got: %v", err)
	}
}

func TestPreferencesDefaults(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	prefs, err := LoadPreferences(context.Background(), testDB)
	if err != nil {
		t.Fatalf("LoadPreferences failed: %v", err)
	}

	defaults := DefaultPreferences()
	if prefs != defaults {
		t.Errorf("Expected defaults %+v from an empty settings table, got %+v", defaults, prefs)
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()

	want := Preferences{
		Theme:                   "dark",
		TrackingEnabled:         true,
		TrackingIntervalMinutes: 15,
		DefaultNoteColor:        "teal",
	}
	if err := SavePreferences(ctx, testDB, want); err != nil {
		t.Fatalf("SavePreferences failed: %v", err)
	}

	got, err := LoadPreferences(ctx, testDB)
	if err != nil {
		t.Fatalf("LoadPreferences failed: %v", err)
	}
	if got != want {
		t.Errorf("Preferences round trip mismatch: saved %+v, loaded %+v", want, got)
	}
}

func TestPreferencesMalformedValuesFallBack(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()

	if err := SetSetting(ctx, testDB, "tracking_enabled", "definitely"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	if err := SetSetting(ctx, testDB, "tracking_interval_minutes", "-5"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}

	prefs, err := LoadPreferences(ctx, testDB)
	if err != nil {
		t.Fatalf("LoadPreferences failed: %v", err)
	}

	defaults := DefaultPreferences()
	if prefs.TrackingEnabled != defaults.TrackingEnabled {
		t.Errorf("Expected malformed boolean to fall back to default %v", defaults.TrackingEnabled)
	}
	if prefs.TrackingIntervalMinutes != defaults.TrackingIntervalMinutes {
		t.Errorf("Expected non-positive interval to fall back to default %d, got %d",
			defaults.TrackingIntervalMinutes, prefs.TrackingIntervalMinutes)
	}
}

func TestPreferencesLeaveUnknownKeysAlone(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()

	if err := SetSetting(ctx, testDB, "caller_owned", "opaque"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	if err := SavePreferences(ctx, testDB, DefaultPreferences()); err != nil {
		t.Fatalf("SavePreferences failed: %v", err)
	}

	value, err := GetSetting(ctx, testDB, "caller_owned")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if value != "opaque" {
		t.Errorf("SavePreferences disturbed an unknown key: got %q", value)
	}
}
