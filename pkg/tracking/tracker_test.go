package tracking

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unowned-ai/fieldlog/pkg/db"
	"github.com/unowned-ai/fieldlog/pkg/fieldnotes"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := db.OpenDBConnection(":memory:", true, "NORMAL")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	testDB.SetMaxOpenConns(1)

	if err := db.InitializeSchema(testDB, db.TargetSchemaVersion); err != nil {
		t.Fatalf("Failed to initialize schema: %v", err)
	}

	return testDB
}

// fakePositions returns scripted fixes and counts calls.
type fakePositions struct {
	mu    sync.Mutex
	calls int
	pos   *Position
	err   error
}

func (f *fakePositions) CurrentPosition(ctx context.Context) (*Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.pos, f.err
}

func (f *fakePositions) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeGeocoder struct {
	name string
}

func (f *fakeGeocoder) ResolveAddress(ctx context.Context, lat, lon float64) (string, error) {
	return f.name, nil
}

func TestTrackerStartRecordsImmediately(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()
	positions := &fakePositions{pos: &Position{Latitude: 59.3, Longitude: 18.0, Timestamp: 12345}}

	tracker := NewTracker(testDB, positions, WithInterval(time.Hour))
	if err := tracker.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer tracker.Stop()

	if !tracker.Running() {
		t.Errorf("Expected tracker to report running after Start")
	}

	records, err := fieldnotes.QueryLocations(ctx, testDB, nil, nil)
	if err != nil {
		t.Fatalf("QueryLocations failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record from the immediate sample, got %d", len(records))
	}
	if records[0].Latitude != 59.3 || records[0].Timestamp != 12345 {
		t.Errorf("Recorded fix doesn't match the service output: %+v", records[0])
	}
}

func TestTrackerStartTwice(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	positions := &fakePositions{pos: &Position{Latitude: 1, Longitude: 2, Timestamp: 1}}
	tracker := NewTracker(testDB, positions, WithInterval(time.Hour))

	if err := tracker.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer tracker.Stop()

	if err := tracker.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Expected ErrAlreadyRunning on second Start, got: %v", err)
	}
}

func TestTrackerStopLifecycle(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	positions := &fakePositions{pos: &Position{Latitude: 1, Longitude: 2, Timestamp: 1}}
	tracker := NewTracker(testDB, positions, WithInterval(time.Hour))

	if err := tracker.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Expected ErrNotRunning when stopping a stopped tracker, got: %v", err)
	}

	if err := tracker.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := tracker.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if tracker.Running() {
		t.Errorf("Expected tracker to report stopped after Stop")
	}

	// The tracker can be started again after a stop.
	if err := tracker.Start(context.Background()); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if err := tracker.Stop(); err != nil {
		t.Fatalf("Second Stop failed: %v", err)
	}
}

func TestTrackerPollsOnInterval(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()
	positions := &fakePositions{pos: &Position{Latitude: 1, Longitude: 2, Timestamp: 1}}

	tracker := NewTracker(testDB, positions, WithInterval(10*time.Millisecond))
	if err := tracker.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Give the ticker room for a few polls, then stop.
	time.Sleep(60 * time.Millisecond)
	if err := tracker.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if positions.callCount() < 2 {
		t.Errorf("Expected at least 2 position reads (immediate + ticker), got %d", positions.callCount())
	}
}

func TestTrackerSkipsMissingFix(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()

	// Nil position with nil error: no fix available, nothing recorded.
	positions := &fakePositions{pos: nil}
	tracker := NewTracker(testDB, positions, WithInterval(time.Hour))
	if err := tracker.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer tracker.Stop()

	records, err := fieldnotes.QueryLocations(ctx, testDB, nil, nil)
	if err != nil {
		t.Fatalf("QueryLocations failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected no records when the service has no fix, got %d", len(records))
	}
}

func TestTrackerUsesGeocoder(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ctx := context.Background()
	positions := &fakePositions{pos: &Position{Latitude: 59.3, Longitude: 18.0, Timestamp: 99}}

	tracker := NewTracker(testDB, positions,
		WithInterval(time.Hour),
		WithGeocoder(&fakeGeocoder{name: "Gamla Stan"}),
	)
	if err := tracker.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer tracker.Stop()

	latest, err := fieldnotes.LatestLocation(ctx, testDB)
	if err != nil {
		t.Fatalf("LatestLocation failed: %v", err)
	}
	if latest.LocationName == nil || *latest.LocationName != "Gamla Stan" {
		t.Errorf("Expected geocoded name 'Gamla Stan', got %v", latest.LocationName)
	}
}
