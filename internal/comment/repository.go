// Package comment stores operator comments on fleet devices.
//
// SQLiteRepository is the comment mutation backend of the list views: it
// implements listview.CommentClient and reports outcomes in the
// {data: [{success}], error} shape the views expect. Stored comments are
// overlaid on polled devices with Overlay.
package comment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/minefleet-core/internal/fleet"
	"github.com/nerrad567/minefleet-core/internal/listview"
)

// maxCommentLength bounds the stored comment text.
const maxCommentLength = 2000

// SQLiteRepository implements listview.CommentClient using SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ listview.CommentClient = (*SQLiteRepository)(nil)

// NewSQLiteRepository creates a new SQLite-backed comment repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// AddComment stores a new comment and returns its generated id.
func (r *SQLiteRepository) AddComment(ctx context.Context, req listview.CommentRequest) (listview.MutationResult, error) {
	text := strings.TrimSpace(req.Text)
	if err := validate(req.DeviceID, "", text, false, true); err != nil {
		return failed(err), nil
	}

	id := uuid.NewString()
	ts := r.now().UTC().Format(time.RFC3339)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO device_comments (id, device_id, author, comment, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, req.DeviceID, req.Author, text, ts, ts,
	)
	if err != nil {
		return listview.MutationResult{}, fmt.Errorf("inserting comment: %w", err)
	}
	return succeeded(id), nil
}

// EditComment replaces the text of an existing comment.
func (r *SQLiteRepository) EditComment(ctx context.Context, req listview.CommentRequest) (listview.MutationResult, error) {
	text := strings.TrimSpace(req.Text)
	if err := validate(req.DeviceID, req.CommentID, text, true, true); err != nil {
		return failed(err), nil
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE device_comments SET comment = ?, updated_at = ?
		 WHERE id = ? AND device_id = ?`,
		text, r.now().UTC().Format(time.RFC3339), req.CommentID, req.DeviceID,
	)
	if err != nil {
		return listview.MutationResult{}, fmt.Errorf("updating comment: %w", err)
	}
	return affected(res, req.CommentID)
}

// DeleteComment removes a comment.
func (r *SQLiteRepository) DeleteComment(ctx context.Context, req listview.CommentRequest) (listview.MutationResult, error) {
	if err := validate(req.DeviceID, req.CommentID, "", true, false); err != nil {
		return failed(err), nil
	}

	res, err := r.db.ExecContext(ctx,
		"DELETE FROM device_comments WHERE id = ? AND device_id = ?",
		req.CommentID, req.DeviceID,
	)
	if err != nil {
		return listview.MutationResult{}, fmt.Errorf("deleting comment: %w", err)
	}
	return affected(res, req.CommentID)
}

// ListByDevice returns the comments of a device, oldest first.
func (r *SQLiteRepository) ListByDevice(ctx context.Context, deviceID string) ([]fleet.Comment, error) {
	all, err := r.list(ctx, "WHERE device_id = ?", deviceID)
	if err != nil {
		return nil, err
	}
	return all[deviceID], nil
}

// ListAll returns every stored comment grouped by device id, oldest first.
func (r *SQLiteRepository) ListAll(ctx context.Context) (map[string][]fleet.Comment, error) {
	return r.list(ctx, "")
}

func (r *SQLiteRepository) list(ctx context.Context, where string, args ...any) (map[string][]fleet.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, author, comment, created_at FROM device_comments `+where+`
		 ORDER BY created_at, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying comments: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]fleet.Comment)
	for rows.Next() {
		var c fleet.Comment
		var deviceID, createdAt string
		if err := rows.Scan(&c.ID, &deviceID, &c.Author, &c.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
		out[deviceID] = append(out[deviceID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comments: %w", err)
	}
	return out, nil
}

// Overlay returns copies of devices with stored comments appended to the
// comments reported by the backend. Comments already present by id are not
// duplicated.
func Overlay(devices []fleet.Device, stored map[string][]fleet.Comment) []fleet.Device {
	if len(stored) == 0 {
		return devices
	}

	out := make([]fleet.Device, len(devices))
	for i := range devices {
		extra := stored[devices[i].ID]
		if len(extra) == 0 {
			out[i] = devices[i]
			continue
		}

		d := devices[i].Clone()
		seen := make(map[string]bool, len(d.Comments))
		for _, c := range d.Comments {
			seen[c.ID] = true
		}
		for _, c := range extra {
			if !seen[c.ID] {
				d.Comments = append(d.Comments, c)
			}
		}
		out[i] = *d
	}
	return out
}

func validate(deviceID, commentID, text string, needID, needText bool) error {
	switch {
	case strings.TrimSpace(deviceID) == "":
		return fmt.Errorf("%w: device id is required", ErrInvalidComment)
	case needID && strings.TrimSpace(commentID) == "":
		return fmt.Errorf("%w: comment id is required", ErrInvalidComment)
	case needText && text == "":
		return fmt.Errorf("%w: comment text is required", ErrInvalidComment)
	case len(text) > maxCommentLength:
		return fmt.Errorf("%w: comment exceeds %d characters", ErrInvalidComment, maxCommentLength)
	}
	return nil
}

func affected(res sql.Result, id string) (listview.MutationResult, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return listview.MutationResult{}, fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return failed(ErrCommentNotFound), nil
	}
	return succeeded(id), nil
}

func succeeded(id string) listview.MutationResult {
	return listview.MutationResult{Data: []listview.MutationStatus{{ID: id, Success: 1}}}
}

func failed(err error) listview.MutationResult {
	msg := err.Error()
	if errors.Is(err, ErrCommentNotFound) {
		msg = "Comment not found"
	}
	return listview.MutationResult{Data: []listview.MutationStatus{{Success: 0}}, Error: msg}
}
