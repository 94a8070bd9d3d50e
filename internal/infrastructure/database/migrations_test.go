package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func useMigrations(t *testing.T, files fstest.MapFS) {
	t.Helper()

	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() {
		MigrationsFS, MigrationsDir = origFS, origDir
	})
	MigrationsFS = files
	MigrationsDir = "."
}

func sqlFile(s string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(s)}
}

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260101_000000_test_users.up.sql":    sqlFile("CREATE TABLE test_users (id INTEGER PRIMARY KEY);"),
		"20260101_000000_test_users.down.sql":  sqlFile("DROP TABLE test_users;"),
		"20260102_000000_test_groups.up.sql":   sqlFile("CREATE TABLE test_groups (id INTEGER PRIMARY KEY);"),
		"20260102_000000_test_groups.down.sql": sqlFile("DROP TABLE test_groups;"),
		"README.md":                            sqlFile("ignored"),
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()

	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&n)
	if err != nil {
		t.Fatalf("sqlite_master query error = %v", err)
	}
	return n == 1
}

func TestMigrate(t *testing.T) {
	useMigrations(t, testMigrations())
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "test_users") || !tableExists(t, db, "test_groups") {
		t.Fatal("Migrate() did not create both tables")
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("status = %d applied, %d pending, want 2 and 0", len(applied), len(pending))
	}
	if applied[0].Version != "20260101_000000" || applied[0].AppliedAt.IsZero() {
		t.Errorf("applied[0] = %+v, want first version with timestamp", applied[0])
	}

	// Idempotent.
	if err := db.Migrate(ctx); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	useMigrations(t, testMigrations())
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	if tableExists(t, db, "test_groups") {
		t.Error("test_groups still exists after MigrateDown()")
	}
	if !tableExists(t, db, "test_users") {
		t.Error("test_users dropped, want only the latest migration rolled back")
	}

	_, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Name != "test_groups" {
		t.Errorf("pending = %+v, want test_groups", pending)
	}
}

func TestMigrateDown_NothingApplied(t *testing.T) {
	useMigrations(t, testMigrations())
	db := openTestDB(t)

	if err := db.createMigrationsTable(context.Background()); err != nil {
		t.Fatalf("createMigrationsTable() error = %v", err)
	}
	if err := db.MigrateDown(context.Background()); err != nil {
		t.Errorf("MigrateDown() error = %v, want nil", err)
	}
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	useMigrations(t, fstest.MapFS{
		"20260101_000000_good.up.sql": sqlFile("CREATE TABLE good (id INTEGER);"),
		"20260102_000000_bad.up.sql":  sqlFile("CREATE TABLE bad (id INTEGER); NOT VALID SQL;"),
	})
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err == nil {
		t.Fatal("Migrate() error = nil, want error")
	}
	if !tableExists(t, db, "good") {
		t.Error("earlier migration not committed")
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 1 {
		t.Errorf("status = %d applied, %d pending, want 1 and 1", len(applied), len(pending))
	}
}

func TestMigrate_NoFilesystem(t *testing.T) {
	origFS := MigrationsFS
	t.Cleanup(func() { MigrationsFS = origFS })
	MigrationsFS = nil

	db := openTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("Migrate() error = %v, want nil", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		wantVersion string
		wantUp      bool
		wantOK      bool
	}{
		{"20260301_090000_initial_schema.up.sql", "20260301_090000", true, true},
		{"20260301_090000_initial_schema.down.sql", "20260301_090000", false, true},
		{"20260301_090000.up.sql", "20260301_090000", true, true},
		{"20260301_090000_initial_schema.sql", "", false, false},
		{"20260301.up.sql", "", false, false},
		{"notes.txt", "", false, false},
	}

	for _, tt := range tests {
		version, up, ok := parseMigrationFilename(tt.name)
		if version != tt.wantVersion || up != tt.wantUp || ok != tt.wantOK {
			t.Errorf("parseMigrationFilename(%q) = %q, %v, %v, want %q, %v, %v",
				tt.name, version, up, ok, tt.wantVersion, tt.wantUp, tt.wantOK)
		}
	}
}

func TestExtractMigrationName(t *testing.T) {
	tests := map[string]string{
		"20260301_090000_initial_schema.up.sql": "initial_schema",
		"20260301_090000_add_index.down.sql":    "add_index",
		"20260301_090000.up.sql":                "20260301_090000",
	}
	for in, want := range tests {
		if got := extractMigrationName(in); got != want {
			t.Errorf("extractMigrationName(%q) = %q, want %q", in, got, want)
		}
	}
}
