package storage

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// migration is one forward-only schema step.
type migration struct {
	version int
	name    string
	up      func(tx *sql.Tx) error
}

// migrations is the ordered chain. Never edit an applied step; append a new one.
var migrations = []migration{
	{1, "baseline", migrateBaseline},
	{2, "mood_indexes", migrateMoodIndexes},
}

// LatestSchemaVersion returns the version MigrateDB brings a database to.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// SchemaVersion returns the applied version, or 0 for an untracked database.
// PRE: db is a valid database connection
// POST: returns the highest recorded version
func SchemaVersion(db *sql.DB) (int, error) {
	var exists int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'`).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("check schema_version: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}
	var v sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema_version: %w", err)
	}
	return int(v.Int64), nil
}

// MigrateDB applies every pending migration, each in its own transaction.
// A file-backed database is copied to <dbPath>.bak-v<N> before the first step runs.
// PRE: db is a valid database connection
// POST: SchemaVersion(db) == LatestSchemaVersion()
func MigrateDB(db *sql.DB, dbPath string) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	if current >= LatestSchemaVersion() {
		return nil
	}

	if current > 0 {
		if err := backupDB(dbPath, current); err != nil {
			return err
		}
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if err := m.up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version, name) VALUES (?, ?)`, m.version, m.name); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
		slog.Info("schema_migrated", "version", m.version, "name", m.name)
	}
	return nil
}

// backupDB copies the database file before migrating. In-memory databases are skipped.
func backupDB(dbPath string, version int) error {
	if dbPath == "" || dbPath == ":memory:" {
		return nil
	}
	src, err := os.Open(dbPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open db for backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(fmt.Sprintf("%s.bak-v%d", dbPath, version))
	if err != nil {
		return fmt.Errorf("create db backup: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy db backup: %w", err)
	}
	return nil
}

// migrateBaseline creates every table. IF NOT EXISTS lets it adopt a
// database created before version tracking.
func migrateBaseline(tx *sql.Tx) error {
	schema := `
	CREATE TABLE IF NOT EXISTS account (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		failed_logins INTEGER NOT NULL DEFAULT 0,
		locked_until TEXT
	);

	CREATE TABLE IF NOT EXISTS team (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		invite_code TEXT NOT NULL UNIQUE,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (created_by) REFERENCES account(id)
	);

	CREATE TABLE IF NOT EXISTS team_member (
		id TEXT PRIMARY KEY,
		team_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE (team_id, account_id),
		FOREIGN KEY (team_id) REFERENCES team(id) ON DELETE CASCADE,
		FOREIGN KEY (account_id) REFERENCES account(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS mood_submission (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		team_id TEXT NOT NULL,
		mood_date TEXT NOT NULL,
		value INTEGER,
		out_of_office INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		UNIQUE (account_id, team_id, mood_date),
		FOREIGN KEY (team_id) REFERENCES team(id) ON DELETE CASCADE,
		FOREIGN KEY (account_id) REFERENCES account(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS preference (
		account_id TEXT PRIMARY KEY,
		theme TEXT NOT NULL DEFAULT 'light',
		language TEXT NOT NULL DEFAULT 'en',
		notify_email INTEGER NOT NULL DEFAULT 1,
		notify_slack INTEGER NOT NULL DEFAULT 0,
		notify_teams INTEGER NOT NULL DEFAULT 0,
		notify_discord INTEGER NOT NULL DEFAULT 0,
		notify_realtime INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		FOREIGN KEY (account_id) REFERENCES account(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS team_notification (
		account_id TEXT NOT NULL,
		team_id TEXT NOT NULL,
		override_global INTEGER NOT NULL DEFAULT 0,
		notify_email INTEGER NOT NULL DEFAULT 1,
		notify_slack INTEGER NOT NULL DEFAULT 0,
		notify_teams INTEGER NOT NULL DEFAULT 0,
		notify_discord INTEGER NOT NULL DEFAULT 0,
		notify_realtime INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (account_id, team_id),
		FOREIGN KEY (account_id) REFERENCES account(id) ON DELETE CASCADE,
		FOREIGN KEY (team_id) REFERENCES team(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS outbox (
		id TEXT PRIMARY KEY,
		action_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL DEFAULT 5,
		last_attempted_at TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		external_id TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := tx.Exec(schema)
	return err
}

// migrateMoodIndexes backs the trend and calendar range scans.
func migrateMoodIndexes(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE INDEX IF NOT EXISTS idx_mood_team_date ON mood_submission (team_id, mood_date);
	CREATE INDEX IF NOT EXISTS idx_member_account ON team_member (account_id);
	CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox (status, created_at);
	`)
	return err
}
