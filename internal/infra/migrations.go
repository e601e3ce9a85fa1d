package infra

import (
	"database/sql"
	"fmt"
	"time"
)

// migration is a single versioned schema change.
type migration struct {
	Version int
	Name    string
	Apply   func(tx *sql.Tx) error
}

// MigrationRunner applies pending migrations to the activity database.
type MigrationRunner struct {
	db         *sql.DB
	migrations []migration
}

// NewMigrationRunner creates a MigrationRunner with all registered migrations.
func NewMigrationRunner(db *sql.DB) *MigrationRunner {
	return &MigrationRunner{
		db: db,
		migrations: []migration{
			{Version: 1, Name: "activities_table", Apply: migrateV001},
			{Version: 2, Name: "activities_is_idle", Apply: migrateV002},
			{Version: 3, Name: "activities_indexes", Apply: migrateV003},
			{Version: 4, Name: "activities_utc_timestamps", Apply: migrateV004},
		},
	}
}

// Run enables WAL mode, creates the schema_migrations table, then applies
// each migration that hasn't been recorded yet.
func (r *MigrationRunner) Run() error {
	if _, err := r.db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, m := range r.migrations {
		applied, err := r.isApplied(m.Version)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if applied {
			continue
		}

		if err := r.apply(m); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
	}

	return nil
}

// Version returns the highest applied migration.
func (r *MigrationRunner) Version() (int, error) {
	var v sql.NullInt64
	if err := r.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, err
	}
	return int(v.Int64), nil
}

func (r *MigrationRunner) isApplied(version int) (bool, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// apply executes a migration inside a transaction and records it.
func (r *MigrationRunner) apply(m migration) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := m.Apply(tx); err != nil {
		return err
	}

	if _, err := tx.Exec(
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		m.Version, m.Name,
	); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	return tx.Commit()
}

// migrateV001 creates the activities table in its original shape.
// Databases written before versioned migrations already have it.
func migrateV001(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS activities (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			title       TEXT NOT NULL,
			application TEXT NOT NULL,
			start_time  TEXT NOT NULL,
			end_time    TEXT NOT NULL,
			is_browser  BOOLEAN NOT NULL DEFAULT 0,
			url         TEXT
		)
	`)
	return err
}

// migrateV002 adds is_idle unless the table already carries it.
func migrateV002(tx *sql.Tx) error {
	has, err := hasColumn(tx, "activities", "is_idle")
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = tx.Exec(`ALTER TABLE activities ADD COLUMN is_idle BOOLEAN NOT NULL DEFAULT 0`)
	return err
}

func migrateV003(tx *sql.Tx) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_activities_start ON activities(start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_merge ON activities(application, title, is_idle, end_time)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// migrateV004 rewrites timestamps stored with offsets or short fractions
// into timeLayout so range queries can compare them as text. Values that
// do not parse are left alone.
func migrateV004(tx *sql.Tx) error {
	type legacyRow struct {
		id         int64
		start, end string
	}

	rows, err := tx.Query(`SELECT id, start_time, end_time FROM activities`)
	if err != nil {
		return fmt.Errorf("scan timestamps: %w", err)
	}
	var pending []legacyRow
	for rows.Next() {
		var r legacyRow
		if err := rows.Scan(&r.id, &r.start, &r.end); err != nil {
			rows.Close()
			return err
		}
		start, startOK := canonicalTime(r.start)
		end, endOK := canonicalTime(r.end)
		if (startOK && start != r.start) || (endOK && end != r.end) {
			pending = append(pending, legacyRow{id: r.id, start: start, end: end})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, r := range pending {
		if _, err := tx.Exec(
			`UPDATE activities SET start_time = ?, end_time = ? WHERE id = ?`,
			r.start, r.end, r.id,
		); err != nil {
			return fmt.Errorf("rewrite activity %d: %w", r.id, err)
		}
	}
	return nil
}

// canonicalTime returns raw in timeLayout. ok is false, and raw is
// returned unchanged, when raw is not RFC 3339.
func canonicalTime(raw string) (string, bool) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return raw, false
	}
	return formatTime(t), true
}

func hasColumn(tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
