package poller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/minefleet-core/internal/fleet"
	"github.com/nerrad567/minefleet-core/internal/listview"
)

const devicesJSON = `{"devices":[
	{"id":"m1","type":"miner","info":{"container":"bd-1","pos":"a1_b2"},
	 "last":{"snap":{"stats":{"status":"online","hashrate_mhs":110000000}}},
	 "comments":[{"id":"c1","comment":"from backend"}]},
	{"id":"c1","type":"container","last":{"snap":{"stats":{"status":"offline"}}}}
]}`

type recordingSink struct {
	mu     sync.Mutex
	ticks  []listview.Tick
	filter listview.Filter
}

func (s *recordingSink) Ingest(t listview.Tick) listview.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks = append(s.ticks, t)
	return listview.View{}
}

func (s *recordingSink) Filter() listview.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

func (s *recordingSink) all() []listview.Tick {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]listview.Tick(nil), s.ticks...)
}

type fakeWorkers struct {
	workers fleet.WorkerHashrates
	err     error
}

func (f fakeWorkers) QueryWorkerHashrates(context.Context) (fleet.WorkerHashrates, error) {
	return f.workers, f.err
}

type fakeComments map[string][]fleet.Comment

func (f fakeComments) ListAll(context.Context) (map[string][]fleet.Comment, error) {
	return f, nil
}

type recordingSummary struct {
	mu      sync.Mutex
	site    string
	summary fleet.Summary
	calls   int
}

func (r *recordingSummary) WriteFleetSummary(site string, s fleet.Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.site, r.summary = site, s
	r.calls++
}

func backend(t *testing.T, status int, body string, hits *atomic.Int32, lastQuery *atomic.Value) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if lastQuery != nil {
			lastQuery.Store(r.URL.Query())
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body)) //nolint:errcheck // test server
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPollOnce(t *testing.T) {
	var query atomic.Value
	srv := backend(t, http.StatusOK, devicesJSON, nil, &query)

	sink := &recordingSink{filter: listview.Filter{Tags: []string{"t-container-bd-1"}, Values: map[string][]any{"type": {"miner"}}}}
	summary := &recordingSummary{}
	p := New(Config{
		URL:      srv.URL + "/list-things",
		Limit:    50,
		Site:     "site-a",
		Sink:     sink,
		Workers:  fakeWorkers{workers: fleet.WorkerHashrates{"m1": 150}},
		Comments: fakeComments{"m1": {{ID: "c2", Text: "local"}}},
		Summary:  summary,
	})

	if err := p.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}

	ticks := sink.all()
	if len(ticks) != 2 {
		t.Fatalf("ingested %d ticks, want fetching + result", len(ticks))
	}
	if !ticks[0].IsFetching || ticks[0].Devices != nil {
		t.Errorf("first tick = %+v, want fetching marker", ticks[0])
	}

	got := ticks[1]
	if got.IsFetching || len(got.Devices) != 2 {
		t.Fatalf("result tick = %+v, want two devices", got)
	}
	if len(got.Devices[0].Comments) != 2 {
		t.Errorf("m1 comments = %+v, want backend and local", got.Devices[0].Comments)
	}
	if got.Workers["m1"] != 150 {
		t.Errorf("Workers = %v, want m1 joined", got.Workers)
	}

	q, _ := query.Load().(url.Values) //nolint:errcheck // type assertion
	if q.Get("limit") != "50" || q.Get("tags") != "t-container-bd-1" || q.Get("query") != `{"type":["miner"]}` {
		t.Errorf("backend query = %v", q)
	}

	if summary.calls != 1 || summary.site != "site-a" || summary.summary.Miners != 1 || summary.summary.ContainersOffline != 1 {
		t.Errorf("summary = %d calls %+v", summary.calls, summary.summary)
	}
}

func TestPollOnce_FailureKeepsPreviousTick(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
		if status.Load() == http.StatusOK {
			w.Write([]byte(devicesJSON)) //nolint:errcheck // test server
		}
	}))
	defer srv.Close()

	sink := &recordingSink{}
	p := New(Config{URL: srv.URL, Sink: sink})

	if err := p.PollOnce(context.Background()); err != nil {
		t.Fatalf("first PollOnce() error = %v", err)
	}

	status.Store(http.StatusBadGateway)
	err := p.PollOnce(context.Background())
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("PollOnce() error = %v, want ErrFetchFailed", err)
	}

	ticks := sink.all()
	last := ticks[len(ticks)-1]
	if last.IsFetching || len(last.Devices) != 2 {
		t.Errorf("tick after failure = %+v, want previous devices, not fetching", last)
	}
}

func TestPollOnce_FailureAfterFilterChange(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
		if status.Load() == http.StatusOK {
			w.Write([]byte(devicesJSON)) //nolint:errcheck // test server
		}
	}))
	defer srv.Close()

	sink := &recordingSink{}
	p := New(Config{URL: srv.URL, Sink: sink})

	if err := p.PollOnce(context.Background()); err != nil {
		t.Fatalf("first PollOnce() error = %v", err)
	}

	filter := listview.Filter{Tags: []string{"t-container-bd-2"}}
	sink.mu.Lock()
	sink.filter = filter
	sink.mu.Unlock()

	status.Store(http.StatusBadGateway)
	if err := p.PollOnce(context.Background()); !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("PollOnce() error = %v, want ErrFetchFailed", err)
	}

	ticks := sink.all()
	last := ticks[len(ticks)-1]
	if last.IsFetching || len(last.Devices) != 0 {
		t.Errorf("tick after failure = %+v, want no devices from the previous filter", last)
	}
	if !last.Filter.Equal(filter) {
		t.Errorf("tick filter = %+v, want %+v", last.Filter, filter)
	}
}

func TestPollOnce_StampsFilterOnTicks(t *testing.T) {
	srv := backend(t, http.StatusOK, devicesJSON, nil, nil)
	filter := listview.Filter{Values: map[string][]any{"container": {"bd-1"}}}
	view := listview.NewOrchestrator()
	view.SetFilter(filter)
	p := New(Config{URL: srv.URL, Sink: view})

	if err := p.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}
	if v := view.View(); v.Total != 1 {
		t.Errorf("Total = %d, want the polled miner ingested under the active filter", v.Total)
	}
}

func TestPollOnce_WorkerFailureStillIngests(t *testing.T) {
	srv := backend(t, http.StatusOK, devicesJSON, nil, nil)
	sink := &recordingSink{}
	p := New(Config{URL: srv.URL, Sink: sink, Workers: fakeWorkers{err: errors.New("influx down")}})

	if err := p.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}
	ticks := sink.all()
	if got := ticks[len(ticks)-1]; len(got.Devices) != 2 || got.Workers != nil {
		t.Errorf("tick = %+v, want devices without workers", got)
	}
}

func TestPollOnce_BadPayload(t *testing.T) {
	srv := backend(t, http.StatusOK, `{"devices":`, nil, nil)
	p := New(Config{URL: srv.URL, Sink: &recordingSink{}})

	if err := p.PollOnce(context.Background()); !errors.Is(err, ErrFetchFailed) {
		t.Errorf("PollOnce() error = %v, want ErrFetchFailed", err)
	}
}

func TestPollOnce_EmptyListIsNotNil(t *testing.T) {
	srv := backend(t, http.StatusOK, `{}`, nil, nil)
	sink := &recordingSink{}
	p := New(Config{URL: srv.URL, Sink: sink})

	if err := p.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}
	ticks := sink.all()
	if got := ticks[len(ticks)-1]; got.Devices == nil || len(got.Devices) != 0 {
		t.Errorf("Devices = %#v, want empty non-nil slice", got.Devices)
	}
}

func TestPollOnce_Busy(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(entered)
		<-release
		w.Write([]byte(`{"devices":[]}`)) //nolint:errcheck // test server
	}))
	defer srv.Close()

	p := New(Config{URL: srv.URL, Sink: &recordingSink{}, Timeout: 5 * time.Second})

	errCh := make(chan error, 1)
	go func() { errCh <- p.PollOnce(context.Background()) }()
	<-entered

	if err := p.PollOnce(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent PollOnce() error = %v, want ErrBusy", err)
	}

	close(release)
	if err := <-errCh; err != nil {
		t.Errorf("first PollOnce() error = %v", err)
	}
}

func TestStartTriggerStop(t *testing.T) {
	var hits atomic.Int32
	srv := backend(t, http.StatusOK, `{"devices":[]}`, &hits, nil)

	p := New(Config{URL: srv.URL, Sink: &recordingSink{}, Interval: time.Hour})
	p.Start(context.Background())

	waitFor(t, func() bool { return hits.Load() == 1 })

	p.TriggerNow()
	waitFor(t, func() bool { return hits.Load() == 2 })

	p.Stop()
	p.Stop()

	p.TriggerNow()
	time.Sleep(20 * time.Millisecond)
	if n := hits.Load(); n != 2 {
		t.Errorf("backend hits after Stop() = %d, want 2", n)
	}
}

func TestStart_ContextCancel(t *testing.T) {
	srv := backend(t, http.StatusOK, `{"devices":[]}`, nil, nil)
	p := New(Config{URL: srv.URL, Sink: &recordingSink{}, Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return after context cancel")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
