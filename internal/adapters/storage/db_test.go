package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

// openTestDB creates an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// Each pooled connection would get its own in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

// getTableNames returns sorted table names from sqlite_master, excluding internal tables.
func getTableNames(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan table name: %v", err)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// getTableSQL returns sorted CREATE TABLE statements from sqlite_master.
func getTableSQL(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query("SELECT sql FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' AND sql IS NOT NULL ORDER BY name")
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	defer rows.Close()

	var sqls []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			t.Fatalf("failed to scan sql: %v", err)
		}
		sqls = append(sqls, normalizeSQL(s))
	}
	sort.Strings(sqls)
	return sqls
}

// normalizeSQL collapses whitespace for comparison.
func normalizeSQL(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// expectedTables is the sorted list of tables after all migrations.
var expectedTables = []string{
	"account",
	"mood_submission",
	"outbox",
	"preference",
	"schema_version",
	"team",
	"team_member",
	"team_notification",
}

// TestMigrateDB_Fresh verifies all migrations apply cleanly to an empty database.
func TestMigrateDB_Fresh(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateDB(db, ":memory:"); err != nil {
		t.Fatalf("MigrateDB failed on fresh db: %v", err)
	}

	version, err := SchemaVersion(db)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if version != LatestSchemaVersion() {
		t.Errorf("version = %d, want %d", version, LatestSchemaVersion())
	}

	tables := getTableNames(t, db)
	if strings.Join(tables, ",") != strings.Join(expectedTables, ",") {
		t.Errorf("tables mismatch\ngot:  %v\nwant: %v", tables, expectedTables)
	}
}

// TestMigrateDB_Idempotent verifies that running MigrateDB twice keeps the version.
func TestMigrateDB_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateDB(db, ":memory:"); err != nil {
		t.Fatalf("first MigrateDB failed: %v", err)
	}
	version1, _ := SchemaVersion(db)

	if err := MigrateDB(db, ":memory:"); err != nil {
		t.Fatalf("second MigrateDB failed: %v", err)
	}
	version2, _ := SchemaVersion(db)
	if version1 != version2 {
		t.Errorf("version changed after idempotent run: %d -> %d", version1, version2)
	}
}

// TestMigrateDB_SchemaDrift verifies two fresh databases end with identical schemas.
func TestMigrateDB_SchemaDrift(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateDB(db, ":memory:"); err != nil {
		t.Fatalf("MigrateDB failed: %v", err)
	}
	golden := getTableSQL(t, db)

	db2 := openTestDB(t)
	if err := MigrateDB(db2, ":memory:"); err != nil {
		t.Fatalf("MigrateDB (second) failed: %v", err)
	}
	actual := getTableSQL(t, db2)

	if len(golden) != len(actual) {
		t.Fatalf("schema drift: golden has %d tables, actual has %d", len(golden), len(actual))
	}
	for i := range golden {
		if golden[i] != actual[i] {
			t.Errorf("schema drift at table %d:\ngolden: %s\nactual: %s", i, golden[i], actual[i])
		}
	}
}

// TestMigrateDB_DataSurvival verifies that existing rows survive a re-run.
func TestMigrateDB_DataSurvival(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateDB(db, ":memory:"); err != nil {
		t.Fatalf("MigrateDB failed: %v", err)
	}

	stmts := []string{
		`INSERT INTO account (id, email, created_at) VALUES ('a1', 'sam@example.com', '2024-03-01T00:00:00Z')`,
		`INSERT INTO team (id, name, invite_code, created_by, created_at) VALUES ('t1', 'Design', 'AB12CD34', 'a1', '2024-03-01T00:00:00Z')`,
		`INSERT INTO mood_submission (id, account_id, team_id, mood_date, value, created_at) VALUES ('m1', 'a1', 't1', '2024-03-01', 4, '2024-03-01T09:00:00Z')`,
	}
	for _, q := range stmts {
		if _, err := db.Exec(q); err != nil {
			t.Fatalf("insert failed: %v\n%s", err, q)
		}
	}

	if err := MigrateDB(db, ":memory:"); err != nil {
		t.Fatalf("second MigrateDB failed: %v", err)
	}

	var value int
	if err := db.QueryRow("SELECT value FROM mood_submission WHERE id = 'm1'").Scan(&value); err != nil {
		t.Fatalf("mood data lost after migration: %v", err)
	}
	if value != 4 {
		t.Errorf("value = %d, want 4", value)
	}
}

// TestMigrateDB_MoodUniquePerDay verifies one submission per account, team and day.
func TestMigrateDB_MoodUniquePerDay(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateDB(db, ":memory:"); err != nil {
		t.Fatalf("MigrateDB failed: %v", err)
	}
	db.Exec(`INSERT INTO account (id, email, created_at) VALUES ('a1', 'sam@example.com', '2024-03-01T00:00:00Z')`)
	db.Exec(`INSERT INTO team (id, name, invite_code, created_by, created_at) VALUES ('t1', 'Design', 'AB12CD34', 'a1', '2024-03-01T00:00:00Z')`)

	q := `INSERT INTO mood_submission (id, account_id, team_id, mood_date, value, created_at) VALUES (?, 'a1', 't1', '2024-03-01', 3, '2024-03-01T09:00:00Z')`
	if _, err := db.Exec(q, "m1"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := db.Exec(q, "m2"); err == nil {
		t.Fatal("second submission for the same day should violate the unique constraint")
	}
}

// TestMigrateDB_VersionProgression verifies 0 before migration and latest after.
func TestMigrateDB_VersionProgression(t *testing.T) {
	db := openTestDB(t)

	v, err := SchemaVersion(db)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if v != 0 {
		t.Errorf("initial version = %d, want 0", v)
	}

	if err := MigrateDB(db, ":memory:"); err != nil {
		t.Fatalf("MigrateDB failed: %v", err)
	}
	v, err = SchemaVersion(db)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if v != LatestSchemaVersion() {
		t.Errorf("post-migration version = %d, want %d", v, LatestSchemaVersion())
	}
}

// TestMigrateDB_ExistingDB verifies adoption of a database created before version tracking.
func TestMigrateDB_ExistingDB(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`CREATE TABLE account (id TEXT PRIMARY KEY, email TEXT NOT NULL UNIQUE, display_name TEXT NOT NULL DEFAULT '', password_hash TEXT NOT NULL DEFAULT '', created_at TEXT NOT NULL, failed_logins INTEGER NOT NULL DEFAULT 0, locked_until TEXT)`)
	if err != nil {
		t.Fatalf("failed to create pre-migration table: %v", err)
	}
	_, err = db.Exec(`INSERT INTO account (id, email, created_at) VALUES ('a1', 'sam@example.com', '2024-01-01T00:00:00Z')`)
	if err != nil {
		t.Fatalf("failed to insert pre-migration data: %v", err)
	}

	if err := MigrateDB(db, ":memory:"); err != nil {
		t.Fatalf("MigrateDB on existing db failed: %v", err)
	}

	var email string
	if err := db.QueryRow("SELECT email FROM account WHERE id = 'a1'").Scan(&email); err != nil {
		t.Fatalf("pre-migration data lost: %v", err)
	}
	if email != "sam@example.com" {
		t.Errorf("email = %q, want %q", email, "sam@example.com")
	}
	v, _ := SchemaVersion(db)
	if v != LatestSchemaVersion() {
		t.Errorf("version = %d, want %d", v, LatestSchemaVersion())
	}
}

// TestMigrateDB_BackupBeforeUpgrade verifies a file copy is made when upgrading.
func TestMigrateDB_BackupBeforeUpgrade(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "teammood.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// Simulate a database stuck at version 1.
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := migrateBaseline(tx); err != nil {
		t.Fatalf("baseline: %v", err)
	}
	tx.Commit()
	db.Exec(`CREATE TABLE schema_version (version INTEGER PRIMARY KEY, name TEXT NOT NULL, applied_at TEXT NOT NULL DEFAULT '')`)
	db.Exec(`INSERT INTO schema_version (version, name) VALUES (1, 'baseline')`)

	if err := MigrateDB(db, dbPath); err != nil {
		t.Fatalf("MigrateDB: %v", err)
	}
	if _, err := os.Stat(dbPath + ".bak-v1"); err != nil {
		t.Fatalf("expected backup file: %v", err)
	}
	v, _ := SchemaVersion(db)
	if v != LatestSchemaVersion() {
		t.Errorf("version = %d, want %d", v, LatestSchemaVersion())
	}
}
