package infra

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	_ "modernc.org/sqlite"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

const (
	cipherDriver = "sqlite3"
	plainDriver  = "sqlite"

	// Fixed width keeps text comparison in timestamp order.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// SQLiteActivityStore implements domain.ActivityStore on SQLite.
// Every operation holds the store lock for its own duration only.
type SQLiteActivityStore struct {
	db     *sql.DB
	path   string
	keyHex string // empty for plain SQLite
	lock   *semaphore.Weighted
	logger *zap.Logger
}

// OpenActivityStore opens (or creates) the activity database at path and
// runs pending migrations. A non-nil key opens it through SQLCipher;
// a nil key opens a plain SQLite file.
func OpenActivityStore(path string, key []byte, logger *zap.Logger) (*SQLiteActivityStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	driver, dsn, keyHex := plainDriver, path, ""
	if key != nil {
		keyHex = hex.EncodeToString(key)
		driver = cipherDriver
		dsn = fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", path, keyHex)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open activity database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to activity database: %w", err)
	}

	if err := NewMigrationRunner(db).Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate activity database: %w", err)
	}

	logger.Debug("activity store opened",
		zap.String("path", path),
		zap.Bool("encrypted", key != nil))

	return &SQLiteActivityStore{
		db:     db,
		path:   path,
		keyHex: keyHex,
		lock:   semaphore.NewWeighted(1),
		logger: logger,
	}, nil
}

func (s *SQLiteActivityStore) acquire(ctx context.Context) error {
	if err := s.lock.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: activity store: %v", domain.ErrLockUnavailable, err)
	}
	return nil
}

// MergeOrInsert extends the latest interval with the same application,
// title, browser and idle state that started on now's calendar day and
// ended no more than mergeWindow before now. Otherwise it inserts a new
// zero-length interval at now.
func (s *SQLiteActivityStore) MergeOrInsert(ctx context.Context, a domain.Activity, mergeWindow time.Duration) (domain.MergeResult, error) {
	if err := s.acquire(ctx); err != nil {
		return domain.MergeResult{}, err
	}
	defer s.lock.Release(1)

	now := a.EndTime
	dayStart, nextDay := dayBounds(now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.MergeResult{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var id int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM activities
		WHERE application = ? AND title = ? AND is_browser = ? AND is_idle = ?
		  AND start_time >= ? AND start_time < ? AND start_time <= ?
		  AND end_time >= ?
		ORDER BY end_time DESC
		LIMIT 1`,
		a.Application, a.Title, a.IsBrowser, a.IsIdle,
		formatTime(dayStart), formatTime(nextDay), formatTime(now),
		formatTime(now.Add(-mergeWindow)),
	).Scan(&id)

	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx,
			`UPDATE activities SET end_time = ? WHERE id = ? AND end_time < ?`,
			formatTime(now), id, formatTime(now)); err != nil {
			return domain.MergeResult{}, fmt.Errorf("extend activity %d: %w", id, err)
		}
		if err := tx.Commit(); err != nil {
			return domain.MergeResult{}, fmt.Errorf("commit merge: %w", err)
		}
		return domain.MergeResult{ID: id, Merged: true}, nil

	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx, `
			INSERT INTO activities (title, application, start_time, end_time, is_browser, url, is_idle)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.Title, a.Application, formatTime(now), formatTime(now), a.IsBrowser, nullString(a.URL), a.IsIdle)
		if err != nil {
			return domain.MergeResult{}, fmt.Errorf("insert activity: %w", err)
		}
		newID, err := res.LastInsertId()
		if err != nil {
			return domain.MergeResult{}, fmt.Errorf("insert activity: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return domain.MergeResult{}, fmt.Errorf("commit insert: %w", err)
		}
		return domain.MergeResult{ID: newID, Merged: false}, nil

	default:
		return domain.MergeResult{}, fmt.Errorf("find merge candidate: %w", err)
	}
}

// Between returns intervals with start_time >= start and end_time <= end,
// newest start first.
func (s *SQLiteActivityStore) Between(ctx context.Context, start, end time.Time) ([]domain.Activity, error) {
	return s.query(ctx, `
		SELECT id, title, application, start_time, end_time, is_browser, url, is_idle
		FROM activities
		WHERE start_time >= ? AND end_time <= ?
		ORDER BY start_time DESC`,
		formatTime(start), formatTime(end))
}

// ForDay returns intervals that started on date's calendar day, newest first.
func (s *SQLiteActivityStore) ForDay(ctx context.Context, date time.Time) ([]domain.Activity, error) {
	dayStart, nextDay := dayBounds(date)
	return s.query(ctx, `
		SELECT id, title, application, start_time, end_time, is_browser, url, is_idle
		FROM activities
		WHERE start_time >= ? AND start_time < ?
		ORDER BY start_time DESC`,
		formatTime(dayStart), formatTime(nextDay))
}

// DistinctApplications lists every recorded application name, sorted.
func (s *SQLiteActivityStore) DistinctApplications(ctx context.Context) ([]string, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.lock.Release(1)

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT application FROM activities ORDER BY application`)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()

	apps := make([]string, 0)
	for rows.Next() {
		var app string
		if err := rows.Scan(&app); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func (s *SQLiteActivityStore) query(ctx context.Context, q string, args ...any) ([]domain.Activity, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.lock.Release(1)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	activities := make([]domain.Activity, 0)
	for rows.Next() {
		var (
			a        domain.Activity
			startRaw string
			endRaw   string
			url      sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Title, &a.Application, &startRaw, &endRaw, &a.IsBrowser, &url, &a.IsIdle); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if a.StartTime, err = parseTime(startRaw); err != nil {
			return nil, fmt.Errorf("activity %d start_time: %w", a.ID, err)
		}
		if a.EndTime, err = parseTime(endRaw); err != nil {
			return nil, fmt.Errorf("activity %d end_time: %w", a.ID, err)
		}
		if url.Valid {
			a.URL = &url.String
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// Path returns the database file path.
func (s *SQLiteActivityStore) Path() string {
	return s.path
}

// Encrypted reports whether the store was opened through SQLCipher.
func (s *SQLiteActivityStore) Encrypted() bool {
	return s.keyHex != ""
}

// SnapshotTo writes a consistent copy of the database to dst, which must
// not exist. An encrypted store produces a copy encrypted with its key.
func (s *SQLiteActivityStore) SnapshotTo(ctx context.Context, dst string) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.lock.Release(1)

	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("snapshot target %s already exists", dst)
	}

	if s.keyHex == "" {
		if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dst); err != nil {
			return fmt.Errorf("vacuum into %s: %w", dst, err)
		}
		return nil
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("snapshot connection: %w", err)
	}
	defer conn.Close()

	rawKey := fmt.Sprintf("x'%s'", s.keyHex)
	if _, err := conn.ExecContext(ctx, "ATTACH DATABASE ? AS snapshot KEY ?", dst, rawKey); err != nil {
		return fmt.Errorf("attach snapshot: %w", err)
	}
	_, exportErr := conn.ExecContext(ctx, "SELECT sqlcipher_export('snapshot')")
	if _, err := conn.ExecContext(ctx, "DETACH DATABASE snapshot"); err != nil && exportErr == nil {
		return fmt.Errorf("detach snapshot: %w", err)
	}
	if exportErr != nil {
		return fmt.Errorf("export snapshot: %w", exportErr)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLiteActivityStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// dayBounds returns midnight of t's day and the start of the next day in t's location.
func dayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime accepts the fixed-width layout and any RFC 3339 value
// written by older versions.
func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.Local(), nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// Ensure SQLiteActivityStore implements domain.ActivityStore.
var _ domain.ActivityStore = (*SQLiteActivityStore)(nil)

// Ensure SQLiteActivityStore implements domain.Snapshotter.
var _ domain.Snapshotter = (*SQLiteActivityStore)(nil)
