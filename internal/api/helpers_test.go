package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/minefleet-core/internal/audit"
	"github.com/nerrad567/minefleet-core/internal/auth"
	"github.com/nerrad567/minefleet-core/internal/fleet"
	"github.com/nerrad567/minefleet-core/internal/infrastructure/config"
	"github.com/nerrad567/minefleet-core/internal/infrastructure/logging"
	"github.com/nerrad567/minefleet-core/internal/listview"
	"github.com/nerrad567/minefleet-core/internal/selection"
)

const testSecret = "test-secret-key-that-is-at-least-32-chars"

type memUsers struct {
	mu    sync.Mutex
	users map[string]*auth.User
}

func (m *memUsers) Create(_ context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Username]; ok {
		return auth.ErrUsernameExists
	}
	m.users[u.Username] = u
	return nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	cpy := *u
	return &cpy, nil
}

func (m *memUsers) List(context.Context) ([]auth.User, error) { return nil, nil }

func (m *memUsers) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

type fakeComments struct {
	mu   sync.Mutex
	last listview.CommentRequest
	fail bool
}

func (f *fakeComments) result(req listview.CommentRequest) (listview.MutationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = req
	if f.fail {
		return listview.MutationResult{Error: "Comment not found"}, nil
	}
	return listview.MutationResult{Data: []listview.MutationStatus{{ID: "c1", Success: 1}}}, nil
}

func (f *fakeComments) AddComment(_ context.Context, req listview.CommentRequest) (listview.MutationResult, error) {
	return f.result(req)
}

func (f *fakeComments) EditComment(_ context.Context, req listview.CommentRequest) (listview.MutationResult, error) {
	return f.result(req)
}

func (f *fakeComments) DeleteComment(_ context.Context, req listview.CommentRequest) (listview.MutationResult, error) {
	return f.result(req)
}

func (f *fakeComments) lastRequest() listview.CommentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type fakeSnapshots struct {
	mu        sync.Mutex
	snapshots int
	filters   [][]any
}

func (f *fakeSnapshots) SaveSnapshot(context.Context, string, selection.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots++
	return nil
}

func (f *fakeSnapshots) LoadSnapshot(context.Context, string) (selection.Snapshot, error) {
	return selection.Snapshot{}, selection.ErrSnapshotNotFound
}

func (f *fakeSnapshots) SaveFilter(_ context.Context, _ string, sel [][]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = sel
	return nil
}

func (f *fakeSnapshots) LoadFilter(context.Context, string) ([][]any, error) {
	return nil, selection.ErrFilterNotFound
}

func (f *fakeSnapshots) saved() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshots
}

type fakePublisher struct {
	mu      sync.Mutex
	actions []string
	intents []any
	err     error
}

func (p *fakePublisher) PublishAction(action string, intent any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.actions = append(p.actions, action)
	p.intents = append(p.intents, intent)
	return nil
}

type healthFunc func(context.Context) error

func (f healthFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

type testEnv struct {
	srv       *Server
	ts        *httptest.Server
	view      *listview.Orchestrator
	store     *selection.Store
	comments  *fakeComments
	snapshots *fakeSnapshots
	publisher *fakePublisher
	audit     *memAudit
	refreshes atomic.Int32
}

type memAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (m *memAudit) Record(_ context.Context, e *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memAudit) List(_ context.Context, f audit.Filter) (*audit.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := &audit.Page{Entries: []audit.Entry{}, Limit: f.Limit, Offset: f.Offset}
	for i := len(m.entries) - 1; i >= 0; i-- {
		if f.Action == "" || m.entries[i].Action == f.Action {
			page.Entries = append(page.Entries, m.entries[i])
		}
	}
	page.Total = len(page.Entries)
	return page, nil
}

func (m *memAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

func newTestEnv(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()

	env := &testEnv{
		view:      listview.NewOrchestrator(),
		store:     selection.NewStore(),
		comments:  &fakeComments{},
		snapshots: &fakeSnapshots{},
		publisher: &fakePublisher{},
		audit:     &memAudit{},
	}

	hash, err := auth.HashPassword("password-1")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	users := &memUsers{users: map[string]*auth.User{
		"olga": {ID: "usr-1", Username: "olga", PasswordHash: hash, Role: auth.RoleOperator, IsActive: true},
	}}

	deps := Deps{
		WS:        config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Logger:    logging.NewWithWriter(config.LoggingConfig{Level: "error", Format: "json"}, "test", io.Discard),
		Version:   "test",
		View:      env.view,
		Auth:      auth.NewAuthenticator(users, testSecret, time.Minute),
		Comments:  env.comments,
		Selection: env.store,
		Snapshots: env.snapshots,
		Actions:   env.publisher,
		Audit:     env.audit,
		Refresh:   func() { env.refreshes.Add(1) },
	}
	if mutate != nil {
		mutate(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	env.srv = srv
	env.ts = httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		env.ts.Close()
		srv.Close() //nolint:errcheck // listener never started
	})

	env.view.Ingest(listview.Tick{Devices: testFleet()})
	return env
}

func testFleet() []fleet.Device {
	online := func() *fleet.Snapshot {
		return &fleet.Snapshot{Snap: fleet.Snap{Stats: fleet.Stats{"status": "online", "hashrate_mhs": 100.0}}}
	}
	return []fleet.Device{
		{ID: "m1", Type: fleet.CategoryMiner, Info: fleet.Info{Container: "bd-1", Pos: "a1_b1"}, Last: online()},
		{ID: "m2", Type: fleet.CategoryMiner, Info: fleet.Info{Container: "bd-1", Pos: "a1_b2"}, Last: online()},
		{ID: "bd-1", Type: fleet.CategoryContainer, Last: online()},
		{ID: "pm-1", Type: fleet.CategoryPowerMeter, Info: fleet.Info{Pos: "lv1"}, Last: online()},
	}
}

func token(t *testing.T, username string, role auth.Role) string {
	t.Helper()
	tok, err := auth.GenerateAccessToken(&auth.User{ID: "usr-" + username, Username: username, Role: role}, testSecret, time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	return tok
}

// do sends a request and decodes a JSON response into out when non-nil.
func (e *testEnv) do(t *testing.T, method, path, tok string, body any, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, e.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			t.Fatalf("decoding %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}
