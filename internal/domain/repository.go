package domain

import (
	"context"
	"time"
)

// Clock abstracts time so sampling and stats stay deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in the local time zone.
type SystemClock struct{}

// Now returns the current local time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// ActivityStore persists and queries activity intervals.
// Implementation: SQLite (SQLCipher or modernc driver).
type ActivityStore interface {
	// MergeOrInsert extends the most recent matching interval to the
	// observation time, or inserts the observation as a new interval.
	MergeOrInsert(ctx context.Context, activity Activity, mergeWindow time.Duration) (MergeResult, error)

	// Between returns intervals with start >= start and end <= end,
	// newest start first.
	Between(ctx context.Context, start, end time.Time) ([]Activity, error)

	// ForDay returns intervals starting on date's calendar day, newest first.
	ForDay(ctx context.Context, date time.Time) ([]Activity, error)

	// DistinctApplications lists every application name ever recorded.
	DistinctApplications(ctx context.Context) ([]string, error)

	// Close releases the database connection.
	Close() error
}

// CategoryDirectory maps applications to categories and holds the daily goal.
// Implementation: JSON document on disk.
type CategoryDirectory interface {
	Categories(ctx context.Context) ([]Category, error)
	AddCategory(ctx context.Context, name, color string, productive bool) (Category, error)
	UpdateCategory(ctx context.Context, category Category) error
	DeleteCategory(ctx context.Context, id string) error

	// AppCategories returns every mapping sorted by app name.
	AppCategories(ctx context.Context) ([]AppCategory, error)

	// SetAppCategory rejects unknown category ids before mutating anything.
	SetAppCategory(ctx context.Context, app, categoryID string) error

	// Lookup returns the category of an app, nil when uncategorized.
	Lookup(ctx context.Context, app string) (*Category, error)

	DailyGoal(ctx context.Context) (int64, error)
	SetDailyGoal(ctx context.Context, minutes int64) error

	// Snapshot copies categories, mappings and goal under one lock.
	Snapshot(ctx context.Context) (CategorySnapshot, error)
}

// WindowProvider reports the current foreground window.
type WindowProvider interface {
	// ActiveWindow returns ErrNoActiveWindow when nothing has focus.
	ActiveWindow() (Window, error)
}

// InputProvider reports the current pointer/keyboard state.
type InputProvider interface {
	Signature() (InputSignature, error)
}

// ProcessInspector handles OS process queries.
// Implementation: uses gopsutil for cross-platform support.
type ProcessInspector interface {
	// Name returns the executable name of a PID.
	Name(pid int) (string, error)

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// Terminate sends SIGTERM to a PID.
	Terminate(pid int) error

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int
}

// DaemonRegistry records the running tracker so CLI commands can find it.
// Implementation: JSON file in the data directory.
type DaemonRegistry interface {
	// Register saves the daemon's PID and API address.
	Register(info DaemonInfo) error

	// UpdateHeartbeat updates timestamp for liveness check.
	UpdateHeartbeat() error

	// Get returns the registered daemon, or nil when none is registered.
	Get() (*DaemonInfo, error)

	// IsAlive checks whether the registered PID is running.
	IsAlive() (bool, error)

	// Clear removes the registry file.
	Clear() error

	// GetRegistryPath returns the registry file path (for tests).
	GetRegistryPath() string
}

// KeyProvider abstracts the source of the database encryption key.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}

// Snapshotter writes a consistent copy of a live database to a new file.
type Snapshotter interface {
	SnapshotTo(ctx context.Context, dst string) error
}

// Recorder runs one sampling tick.
type Recorder interface {
	Tick(ctx context.Context) (*TickResult, error)
}

// TickResult captures what happened during a single sampling tick.
type TickResult struct {
	Activity Activity
	Merged   bool
	Skipped  bool // no active window; nothing was written
}

// SummaryPublisher receives freshly computed today summaries.
type SummaryPublisher interface {
	Publish(summary TodaySummary)
}
