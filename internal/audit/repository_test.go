package audit

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE audit_log (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL DEFAULT '',
			details TEXT,
			created_at TEXT NOT NULL
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	repo := NewSQLiteRepository(db)
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return repo
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	entries := []Entry{
		{Action: ActionLogin, EntityType: EntityUser, EntityID: "usr-1", Username: "olga"},
		{Action: ActionDispatch, EntityType: EntitySelection, EntityID: "reboot", Username: "olga",
			Details: map[string]any{"devices": 3.0}},
		{Action: ActionComment, EntityType: EntityDevice, EntityID: "m1", Username: "ivan"},
	}
	for i := range entries {
		if err := repo.Record(ctx, &entries[i]); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if entries[i].ID == "" || entries[i].CreatedAt.IsZero() {
			t.Errorf("Record() did not fill ID/CreatedAt: %+v", entries[i])
		}
	}

	page, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Total != 3 || len(page.Entries) != 3 || page.Limit != defaultLimit {
		t.Fatalf("List() = %+v, want 3 entries", page)
	}
	if page.Entries[0].Action != ActionComment {
		t.Errorf("first entry = %q, want newest (comment)", page.Entries[0].Action)
	}

	page, err = repo.List(ctx, Filter{Username: "olga", Action: ActionDispatch})
	if err != nil {
		t.Fatalf("List(filtered) error = %v", err)
	}
	if page.Total != 1 || page.Entries[0].Details["devices"] != 3.0 {
		t.Errorf("List(filtered) = %+v, want the dispatch entry with details", page)
	}

	page, _ = repo.List(ctx, Filter{Limit: 1000, Offset: 2})
	if page.Limit != maxLimit || len(page.Entries) != 1 {
		t.Errorf("List(offset) = %+v, want limit clamped and one entry", page)
	}
}

func TestRecord_Invalid(t *testing.T) {
	repo := setupTestRepo(t)
	if err := repo.Record(context.Background(), &Entry{Action: ActionLogin}); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Record() error = %v, want ErrInvalidEntry", err)
	}
}
