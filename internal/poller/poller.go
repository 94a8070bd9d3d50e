package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/minefleet-core/internal/comment"
	"github.com/nerrad567/minefleet-core/internal/fleet"
	"github.com/nerrad567/minefleet-core/internal/listview"
)

const (
	defaultInterval = 10 * time.Second
	defaultTimeout  = 5 * time.Second
	defaultLimit    = 100

	maxResponseSize = 32 << 20
)

// Logger is the logging surface used by the poller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Sink receives ticks. listview.Orchestrator implements it.
type Sink interface {
	Ingest(t listview.Tick) listview.View
	Filter() listview.Filter
}

// WorkerSource returns pool worker hashrates keyed by device id.
type WorkerSource interface {
	QueryWorkerHashrates(ctx context.Context) (fleet.WorkerHashrates, error)
}

// CommentSource returns locally stored comments keyed by device id.
type CommentSource interface {
	ListAll(ctx context.Context) (map[string][]fleet.Comment, error)
}

// SummaryWriter records a fleet summary per tick.
type SummaryWriter interface {
	WriteFleetSummary(site string, s fleet.Summary)
}

// Config holds poller dependencies and settings. Sink and URL are required;
// the optional sources are skipped when nil.
type Config struct {
	URL      string
	Interval time.Duration
	Timeout  time.Duration
	Limit    int
	Site     string

	Sink     Sink
	Workers  WorkerSource
	Comments CommentSource
	Summary  SummaryWriter

	HTTPClient *http.Client
}

// Poller periodically fetches the device list.
type Poller struct {
	cfg    Config
	client *http.Client

	trigger chan struct{}
	busy    atomic.Bool

	lastMu sync.Mutex
	last   listview.Tick

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a poller. Call Start to begin polling.
func New(cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaultLimit
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Poller{
		cfg:     cfg,
		client:  client,
		trigger: make(chan struct{}, 1),
		done:    make(chan struct{}),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger.
func (p *Poller) SetLogger(logger Logger) {
	p.loggerMu.Lock()
	p.logger = logger
	p.loggerMu.Unlock()
}

func (p *Poller) log() Logger {
	p.loggerMu.RLock()
	defer p.loggerMu.RUnlock()
	return p.logger
}

// Start polls immediately and then every Interval until ctx is cancelled
// or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.loop(ctx)
}

// Stop ends the poll loop and waits for an in-flight poll. Safe to call
// more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
}

// TriggerNow requests an immediate poll. Requests made while one is already
// pending are coalesced.
func (p *Poller) TriggerNow() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.pollAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-ticker.C:
			p.pollAndLog(ctx)
		case <-p.trigger:
			p.pollAndLog(ctx)
		}
	}
}

func (p *Poller) pollAndLog(ctx context.Context) {
	if err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
		p.log().Warn("fleet poll failed", "url", p.cfg.URL, "error", err)
	}
}

// PollOnce runs a single poll. It returns ErrBusy if a poll is already
// running. On failure the previous tick is re-ingested with the fetching
// flag cleared, unless it was fetched under a different filter; then an
// empty tick is ingested instead.
func (p *Poller) PollOnce(ctx context.Context) error {
	if !p.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer p.busy.Store(false)

	sink := p.cfg.Sink
	sink.Ingest(listview.Tick{IsFetching: true})

	start := time.Now()
	filter := sink.Filter()
	devices, err := p.fetch(ctx, filter)
	if err != nil {
		p.lastMu.Lock()
		prev := p.last
		p.lastMu.Unlock()
		if !prev.Filter.Equal(filter) {
			prev = listview.Tick{Filter: filter}
		}
		prev.IsFetching = false
		sink.Ingest(prev)
		return err
	}

	if p.cfg.Comments != nil {
		stored, err := p.cfg.Comments.ListAll(ctx)
		if err != nil {
			p.log().Warn("loading stored comments failed", "error", err)
		} else {
			devices = comment.Overlay(devices, stored)
		}
	}

	var workers fleet.WorkerHashrates
	if p.cfg.Workers != nil {
		workers, err = p.cfg.Workers.QueryWorkerHashrates(ctx)
		if err != nil {
			p.log().Warn("querying pool workers failed", "error", err)
			workers = nil
		}
	}

	tick := listview.Tick{Devices: devices, Workers: workers, Filter: filter}
	p.lastMu.Lock()
	p.last = tick
	p.lastMu.Unlock()

	sink.Ingest(tick)

	if p.cfg.Summary != nil {
		p.cfg.Summary.WriteFleetSummary(p.cfg.Site, fleet.Summarize(devices, workers))
	}

	p.log().Debug("fleet poll complete",
		"devices", len(devices),
		"workers", len(workers),
		"duration", time.Since(start),
	)
	return nil
}

// listResponse is the backend list payload.
type listResponse struct {
	Devices []fleet.Device `json:"devices"`
}

// requestURL adds the page limit and the active filter to the backend URL.
func (p *Poller) requestURL(filter listview.Filter) (string, error) {
	u, err := url.Parse(p.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid backend url: %w", ErrFetchFailed, err)
	}

	q := u.Query()
	q.Set("limit", strconv.Itoa(p.cfg.Limit))
	if len(filter.Tags) > 0 {
		q.Set("tags", strings.Join(filter.Tags, ","))
	}
	if len(filter.Values) > 0 {
		raw, err := json.Marshal(filter.Values)
		if err != nil {
			return "", fmt.Errorf("%w: encoding filter: %w", ErrFetchFailed, err)
		}
		q.Set("query", string(raw))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (p *Poller) fetch(ctx context.Context, filter listview.Filter) ([]fleet.Device, error) {
	endpoint, err := p.requestURL(filter)
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrFetchFailed, resp.StatusCode)
	}

	var body listResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrFetchFailed, err)
	}
	if body.Devices == nil {
		body.Devices = []fleet.Device{}
	}
	return body.Devices, nil
}
