package selection

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository persists selection snapshots and saved filter selections.
type Repository interface {
	// SaveSnapshot stores snap under name, replacing any earlier snapshot.
	SaveSnapshot(ctx context.Context, name string, snap Snapshot) error

	// LoadSnapshot returns the snapshot stored under name.
	// Returns ErrSnapshotNotFound if there is none.
	LoadSnapshot(ctx context.Context, name string) (Snapshot, error)

	// SaveFilter stores filter selection tuples under name.
	SaveFilter(ctx context.Context, name string, selection [][]any) error

	// LoadFilter returns the filter selection stored under name.
	// Returns ErrFilterNotFound if there is none.
	LoadFilter(ctx context.Context, name string) ([][]any, error)
}

// SQLiteSnapshotRepository implements Repository using SQLite.
//
// Payloads are stored as JSON in the selection_snapshots and saved_filters
// tables.
type SQLiteSnapshotRepository struct {
	db *sql.DB
}

// NewSQLiteSnapshotRepository creates a new SQLite-backed repository.
func NewSQLiteSnapshotRepository(db *sql.DB) *SQLiteSnapshotRepository {
	return &SQLiteSnapshotRepository{db: db}
}

// SaveSnapshot stores snap under name.
func (r *SQLiteSnapshotRepository) SaveSnapshot(ctx context.Context, name string, snap Snapshot) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshalling snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO selection_snapshots (name, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		name,
		string(payload),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the snapshot stored under name.
func (r *SQLiteSnapshotRepository) LoadSnapshot(ctx context.Context, name string) (Snapshot, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		"SELECT payload FROM selection_snapshots WHERE name = ?", name,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, ErrSnapshotNotFound
		}
		return Snapshot{}, fmt.Errorf("querying snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshalling snapshot: %w", err)
	}
	return snap, nil
}

// SaveFilter stores filter selection tuples under name.
func (r *SQLiteSnapshotRepository) SaveFilter(ctx context.Context, name string, selection [][]any) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	if selection == nil {
		selection = [][]any{}
	}

	payload, err := json.Marshal(selection)
	if err != nil {
		return fmt.Errorf("marshalling filter: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO saved_filters (name, selection, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET selection = excluded.selection, updated_at = excluded.updated_at`,
		name,
		string(payload),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving filter: %w", err)
	}
	return nil
}

// LoadFilter returns the filter selection stored under name.
func (r *SQLiteSnapshotRepository) LoadFilter(ctx context.Context, name string) ([][]any, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		"SELECT selection FROM saved_filters WHERE name = ?", name,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFilterNotFound
		}
		return nil, fmt.Errorf("querying filter: %w", err)
	}

	var selection [][]any
	if err := json.Unmarshal([]byte(payload), &selection); err != nil {
		return nil, fmt.Errorf("unmarshalling filter: %w", err)
	}
	return selection, nil
}
