package listview

import (
	"context"
	"sync"
	"time"
)

// DefaultRefreshDelay is the delay between a successful comment mutation and
// the follow-up refresh.
const DefaultRefreshDelay = 1500 * time.Millisecond

// Notification levels.
const (
	LevelSuccess = "success"
	LevelError   = "error"
)

// CommentRequest describes a comment mutation on a device.
type CommentRequest struct {
	DeviceID  string `json:"deviceId"`
	CommentID string `json:"commentId,omitempty"`
	Author    string `json:"author,omitempty"`
	Text      string `json:"comment,omitempty"`
}

// MutationStatus is a single entry of a mutation response.
type MutationStatus struct {
	ID      string `json:"id,omitempty"`
	Success int    `json:"success"`
}

// MutationResult is the response of a comment mutation.
type MutationResult struct {
	Data  []MutationStatus `json:"data"`
	Error string           `json:"error,omitempty"`
}

// Succeeded reports whether the first entry reports success == 1. That
// field is the only success signal of a mutation.
func (r MutationResult) Succeeded() bool {
	return len(r.Data) > 0 && r.Data[0].Success == 1
}

// CommentClient performs comment mutations.
type CommentClient interface {
	AddComment(ctx context.Context, req CommentRequest) (MutationResult, error)
	EditComment(ctx context.Context, req CommentRequest) (MutationResult, error)
	DeleteComment(ctx context.Context, req CommentRequest) (MutationResult, error)
}

// PermissionChecker answers whether the current user may write comments.
type PermissionChecker interface {
	CanWriteComments(ctx context.Context) bool
}

// Notifier receives user-visible messages.
type Notifier interface {
	Notify(level, message string)
}

type mutation struct {
	verb    string
	call    func(context.Context, CommentRequest) (MutationResult, error)
	gated   bool
	success string
	failure string
}

// CommentActions wraps a CommentClient with permission gating, user
// notifications and a delayed refresh after every successful mutation.
//
// Failures are never retried and local state is not rolled back: the caller
// simply does not apply its optimistic update when a method returns false.
type CommentActions struct {
	client   CommentClient
	perms    PermissionChecker
	notifier Notifier
	refresh  func()
	delay    time.Duration

	mu     sync.Mutex
	gen    uint64
	closed bool
	timers map[*time.Timer]struct{}
}

// NewCommentActions creates comment actions. refresh is called
// DefaultRefreshDelay after each successful mutation; it may be nil.
func NewCommentActions(client CommentClient, perms PermissionChecker, notifier Notifier, refresh func()) *CommentActions {
	return &CommentActions{
		client:   client,
		perms:    perms,
		notifier: notifier,
		refresh:  refresh,
		delay:    DefaultRefreshDelay,
		timers:   make(map[*time.Timer]struct{}),
	}
}

// SetRefreshDelay changes the delay before the post-mutation refresh.
func (a *CommentActions) SetRefreshDelay(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.delay = d
}

// CanWrite reports whether the add and edit actions are available.
func (a *CommentActions) CanWrite(ctx context.Context) bool {
	return a.perms == nil || a.perms.CanWriteComments(ctx)
}

// Add adds a comment. It reports whether the mutation succeeded.
func (a *CommentActions) Add(ctx context.Context, req CommentRequest) bool {
	return a.run(ctx, req, mutation{
		verb:    "add",
		call:    a.client.AddComment,
		gated:   true,
		success: "Comment added",
		failure: "Failed to add comment",
	})
}

// Edit edits a comment. It reports whether the mutation succeeded.
func (a *CommentActions) Edit(ctx context.Context, req CommentRequest) bool {
	return a.run(ctx, req, mutation{
		verb:    "edit",
		call:    a.client.EditComment,
		gated:   true,
		success: "Comment updated",
		failure: "Failed to update comment",
	})
}

// Delete deletes a comment. It reports whether the mutation succeeded.
func (a *CommentActions) Delete(ctx context.Context, req CommentRequest) bool {
	return a.run(ctx, req, mutation{
		verb:    "delete",
		call:    a.client.DeleteComment,
		success: "Comment deleted",
		failure: "Failed to delete comment",
	})
}

func (a *CommentActions) run(ctx context.Context, req CommentRequest, m mutation) bool {
	if m.gated && !a.CanWrite(ctx) {
		a.notify(LevelError, "You do not have permission to "+m.verb+" comments")
		return false
	}

	result, err := m.call(ctx, req)
	if err != nil {
		a.notify(LevelError, err.Error())
		return false
	}
	if !result.Succeeded() {
		msg := m.failure
		if result.Error != "" {
			msg = result.Error
		}
		a.notify(LevelError, msg)
		return false
	}

	a.notify(LevelSuccess, m.success)
	a.scheduleRefresh()
	return true
}

func (a *CommentActions) notify(level, message string) {
	if a.notifier != nil {
		a.notifier.Notify(level, message)
	}
}

func (a *CommentActions) scheduleRefresh() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.refresh == nil {
		return
	}

	gen := a.gen
	var t *time.Timer
	t = time.AfterFunc(a.delay, func() {
		a.mu.Lock()
		delete(a.timers, t)
		stale := a.closed || gen != a.gen
		a.mu.Unlock()

		if !stale {
			a.refresh()
		}
	})
	a.timers[t] = struct{}{}
}

// Reset cancels pending refreshes. Timers that already fired become no-ops.
func (a *CommentActions) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelLocked()
}

// Close cancels pending refreshes and disables new ones.
func (a *CommentActions) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.cancelLocked()
}

func (a *CommentActions) cancelLocked() {
	a.gen++
	for t := range a.timers {
		t.Stop()
		delete(a.timers, t)
	}
}
