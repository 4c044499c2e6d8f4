// Package tracking owns the location polling lifecycle. The poller is an
// explicit state object with start/stop operations; there is no package-level
// tracking flag or timer handle.
package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/unowned-ai/fieldlog/pkg/fieldnotes"
)

// DefaultInterval matches the app's default of one position sample every 30
// minutes.
const DefaultInterval = 30 * time.Minute

var (
	ErrAlreadyRunning = errors.New("tracking is already running")
	ErrNotRunning     = errors.New("tracking is not running")
)

// Position is one fix from the device's location service.
type Position struct {
	Latitude  float64
	Longitude float64
	Timestamp int64
}

// PositionService is the geolocation contract the tracker consumes. A nil
// position with a nil error means "no fix available right now".
type PositionService interface {
	CurrentPosition(ctx context.Context) (*Position, error)
}

// GeocodeService resolves coordinates to a human-readable place string.
// Optional; when absent, location names stay empty.
type GeocodeService interface {
	ResolveAddress(ctx context.Context, latitude, longitude float64) (string, error)
}

// Tracker polls a PositionService on a fixed interval and appends each fix to
// the location history store.
type Tracker struct {
	db        *sql.DB
	positions PositionService
	geocoder  GeocodeService
	interval  time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Tracker at construction time.
type Option func(*Tracker)

// WithInterval overrides the polling interval.
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithGeocoder attaches a reverse-geocoding service used to name each fix.
func WithGeocoder(g GeocodeService) Option {
	return func(t *Tracker) {
		t.geocoder = g
	}
}

// NewTracker builds a stopped tracker over the given database and position
// service.
func NewTracker(conn *sql.DB, positions PositionService, opts ...Option) *Tracker {
	t := &Tracker{
		db:        conn,
		positions: positions,
		interval:  DefaultInterval,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start records one immediate fix and then begins polling. It returns
// ErrAlreadyRunning when tracking is active; the provided context bounds the
// whole polling lifetime in addition to Stop.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return ErrAlreadyRunning
	}

	pollCtx, cancel := context.WithCancel(ctx)
	t.running = true
	t.cancel = cancel
	t.done = make(chan struct{})
	done := t.done
	t.mu.Unlock()

	// First sample up front so a fresh start is immediately visible.
	t.recordOnce(pollCtx)

	go func() {
		defer close(done)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				t.recordOnce(pollCtx)
			}
		}
	}()

	return nil
}

// Stop halts polling and waits for the poll loop to exit. Stopping a stopped
// tracker returns ErrNotRunning.
func (t *Tracker) Stop() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return ErrNotRunning
	}
	t.running = false
	cancel := t.cancel
	done := t.done
	t.cancel = nil
	t.done = nil
	t.mu.Unlock()

	cancel()
	<-done
	return nil
}

// Running reports whether the poll loop is active.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Interval returns the configured polling interval.
func (t *Tracker) Interval() time.Duration {
	return t.interval
}

// recordOnce takes a single fix and appends it to the location log. Failures
// are reported to stderr and skipped; the loop keeps polling.
func (t *Tracker) recordOnce(ctx context.Context) {
	pos, err := t.positions.CurrentPosition(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read current position: %v\n", err)
		return
	}
	if pos == nil {
		// No fix available; nothing to record.
		return
	}

	timestamp := pos.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}

	rec := fieldnotes.LocationRecord{
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
		Timestamp: timestamp,
	}

	if t.geocoder != nil {
		if name, err := t.geocoder.ResolveAddress(ctx, pos.Latitude, pos.Longitude); err == nil && name != "" {
			rec.LocationName = &name
		}
	}

	if _, err := fieldnotes.AppendLocation(ctx, t.db, rec); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to append location record: %v\n", err)
	}
}
