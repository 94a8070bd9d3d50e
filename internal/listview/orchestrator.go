package listview

import (
	"reflect"
	"sync"

	"github.com/nerrad567/minefleet-core/internal/fleet"
)

// Logger defines the logging interface used by the list view.
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

// Tab is the active category tab of the fleet list.
type Tab string

// Tabs.
const (
	TabMiners     Tab = "miners"
	TabContainers Tab = "containers"
	TabCabinets   Tab = "cabinets"
	TabAll        Tab = "all"
)

// ParseTab returns the tab named s, or TabMiners when s is unknown.
func ParseTab(s string) Tab {
	switch Tab(s) {
	case TabMiners, TabContainers, TabCabinets, TabAll:
		return Tab(s)
	default:
		return TabMiners
	}
}

func (t Tab) categoryFilter() fleet.CategoryFilter {
	switch t {
	case TabMiners:
		return fleet.FilterMiner
	case TabContainers:
		return fleet.FilterContainer
	default:
		return fleet.FilterAll
	}
}

// DefaultPageSize is used until SetPage is called with a valid size.
const DefaultPageSize = 20

// Tick is one completed poll of the fleet backend. Each tick replaces the
// raw input of the pipeline as a whole.
type Tick struct {
	Devices    []fleet.Device
	Workers    fleet.WorkerHashrates
	IsFetching bool

	// Filter is the filter the devices were fetched under.
	Filter Filter
}

// Filter is the active search: backend filter tags plus structured values.
type Filter struct {
	Tags   []string         `json:"tags,omitempty"`
	Values map[string][]any `json:"values,omitempty"`
}

// Equal reports whether f and g select the same devices.
func (f Filter) Equal(g Filter) bool {
	if f.IsZero() && g.IsZero() {
		return true
	}
	return reflect.DeepEqual(f, g)
}

// IsZero reports whether no filter is active.
func (f Filter) IsZero() bool {
	return len(f.Tags) == 0 && len(f.Values) == 0
}

// Counts summarises the categorised held window.
type Counts struct {
	Miners            int `json:"miners"`
	ContainersOnline  int `json:"containersOnline"`
	ContainersOffline int `json:"containersOffline"`
	Other             int `json:"other"`
	Cabinets          int `json:"cabinets"`
}

// View is the paginated output of the pipeline for the active tab.
// Exactly one of Rows, Devices or Cabinets is populated.
type View struct {
	Tab        Tab              `json:"tab"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	Total      int              `json:"total"`
	TotalPages int              `json:"totalPages"`
	IsFetching bool             `json:"isFetching"`
	Rows       []fleet.MinerRow `json:"rows,omitempty"`
	Devices    []fleet.Device   `json:"devices,omitempty"`
	Cabinets   []fleet.Cabinet  `json:"cabinets,omitempty"`
	Counts     Counts           `json:"counts"`
}

// split is the held window categorised for display.
type split struct {
	miners            []fleet.Device
	containersOnline  []fleet.Device
	containersOffline []fleet.Device
	other             []fleet.Device
}

func splitDevices(devices []fleet.Device) split {
	var s split
	for i := range devices {
		d := &devices[i]
		switch {
		case d.Type.Is(fleet.CategoryMiner):
			s.miners = append(s.miners, *d)
		case d.Type.Is(fleet.CategoryContainer) && d.IsOffline():
			s.containersOffline = append(s.containersOffline, *d)
		case d.Type.Is(fleet.CategoryContainer):
			s.containersOnline = append(s.containersOnline, *d)
		default:
			s.other = append(s.other, *d)
		}
	}
	return s
}

// Orchestrator runs the list pipeline on every tick, tab change, filter
// change and page change:
//
//	group cabinets -> enrich -> merge/sort with held window -> split -> paginate
//
// The held window accumulates across ticks and is reset when the tab or the
// filter changes. Page changes only re-slice it.
//
// All methods are safe for concurrent use.
type Orchestrator struct {
	mu sync.Mutex

	tab      Tab
	filter   Filter
	page     int
	pageSize int

	last         Tick
	held         []fleet.Device
	heldCabinets []fleet.Cabinet
	parts        split
	view         View

	subscribers []func(View)
	logger      Logger
}

// NewOrchestrator creates an orchestrator on the miners tab, page 1.
func NewOrchestrator() *Orchestrator {
	o := &Orchestrator{
		tab:      TabMiners,
		page:     1,
		pageSize: DefaultPageSize,
		logger:   noopLogger{},
	}
	o.recompute()
	return o
}

// SetLogger sets the logger for the orchestrator.
func (o *Orchestrator) SetLogger(logger Logger) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.logger = logger
}

// Subscribe registers fn to receive the view after every recomputation.
// Subscribers are called synchronously, outside the orchestrator lock.
func (o *Orchestrator) Subscribe(fn func(View)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subscribers = append(o.subscribers, fn)
}

// Ingest runs the pipeline on a completed poll. A tick still in flight with
// no data keeps the previous input and only updates the fetching flag. A
// tick fetched under a filter other than the active one is discarded.
func (o *Orchestrator) Ingest(t Tick) View {
	o.mu.Lock()
	switch {
	case t.IsFetching && t.Devices == nil:
		o.last.IsFetching = true
	case !t.Filter.Equal(o.filter):
		o.last.IsFetching = false
		o.logger.Debug("discarding tick fetched under a previous filter", "devices", len(t.Devices))
	default:
		o.last = t
	}
	v := o.recompute()
	subs := o.subscribers
	o.mu.Unlock()

	notify(subs, v)
	return v
}

// SetTab switches the active tab. Switching to a different tab resets the
// held window and the page.
func (o *Orchestrator) SetTab(tab Tab) View {
	o.mu.Lock()
	if tab != o.tab {
		o.tab = tab
		o.page = 1
		o.resetHeld()
	}
	v := o.recompute()
	subs := o.subscribers
	o.mu.Unlock()

	notify(subs, v)
	return v
}

// SetFilter replaces the active filter. A different filter starts a new
// search: the held window, the page and the last tick are dropped, so the
// view stays empty until a tick fetched under f arrives.
func (o *Orchestrator) SetFilter(f Filter) View {
	o.mu.Lock()
	if !f.Equal(o.filter) {
		o.filter = f
		o.page = 1
		o.resetHeld()
		o.last = Tick{IsFetching: o.last.IsFetching, Filter: f}
	}
	v := o.recompute()
	subs := o.subscribers
	o.mu.Unlock()

	notify(subs, v)
	return v
}

// SetPage changes the displayed page. The held window is kept. Non-positive
// values keep the current page or size.
func (o *Orchestrator) SetPage(page, pageSize int) View {
	o.mu.Lock()
	if page > 0 {
		o.page = page
	}
	if pageSize > 0 {
		o.pageSize = pageSize
	}
	v := o.recompute()
	subs := o.subscribers
	o.mu.Unlock()

	notify(subs, v)
	return v
}

// View returns the most recently computed view.
func (o *Orchestrator) View() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.view
}

// Tab returns the active tab.
func (o *Orchestrator) Tab() Tab {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tab
}

// Filter returns the active filter.
func (o *Orchestrator) Filter() Filter {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.filter
}

// Miners returns every miner of the held window, for bulk selection.
func (o *Orchestrator) Miners() []fleet.Device {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]fleet.Device(nil), o.parts.miners...)
}

// Containers returns every container of the held window, online first.
func (o *Orchestrator) Containers() []fleet.Device {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]fleet.Device, 0, len(o.parts.containersOnline)+len(o.parts.containersOffline))
	out = append(out, o.parts.containersOnline...)
	return append(out, o.parts.containersOffline...)
}

// Cabinets returns every cabinet of the held window.
func (o *Orchestrator) Cabinets() []fleet.Cabinet {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]fleet.Cabinet(nil), o.heldCabinets...)
}

// Device returns the held device with the given id.
func (o *Orchestrator) Device(id string) (fleet.Device, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.held {
		if o.held[i].ID == id {
			return *o.held[i].Clone(), true
		}
	}
	return fleet.Device{}, false
}

// Cabinet returns the held cabinet with the given id.
func (o *Orchestrator) Cabinet(id string) (fleet.Cabinet, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, c := range o.heldCabinets {
		if c.ID == id {
			return c, true
		}
	}
	return fleet.Cabinet{}, false
}

// resetHeld empties the held windows. Callers must hold o.mu.
func (o *Orchestrator) resetHeld() {
	o.held = nil
	o.heldCabinets = nil
	o.logger.Debug("held window reset", "tab", o.tab)
}

// recompute runs the pipeline on the last tick. Callers must hold o.mu.
func (o *Orchestrator) recompute() View {
	cabinets := fleet.GroupCabinets(o.last.Devices)
	enriched := fleet.Enrich(o.last.Devices, o.tab.categoryFilter(), o.last.Workers)

	o.held = fleet.MergeAndSort(o.held, enriched)
	o.heldCabinets = fleet.MergeAndSort(o.heldCabinets, cabinets)
	o.parts = splitDevices(o.held)

	v := View{
		Tab:        o.tab,
		Page:       o.page,
		PageSize:   o.pageSize,
		IsFetching: o.last.IsFetching,
		Counts: Counts{
			Miners:            len(o.parts.miners),
			ContainersOnline:  len(o.parts.containersOnline),
			ContainersOffline: len(o.parts.containersOffline),
			Other:             len(o.parts.other),
			Cabinets:          len(o.heldCabinets),
		},
	}

	switch o.tab {
	case TabMiners:
		v.Total = len(o.parts.miners)
		v.Rows = fleet.ProjectMinerRows(fleet.Paginate(o.parts.miners, o.pageSize, o.page))
	case TabContainers:
		containers := make([]fleet.Device, 0, len(o.parts.containersOnline)+len(o.parts.containersOffline))
		containers = append(containers, o.parts.containersOnline...)
		containers = append(containers, o.parts.containersOffline...)
		v.Total = len(containers)
		v.Devices = fleet.Paginate(containers, o.pageSize, o.page)
	case TabCabinets:
		v.Total = len(o.heldCabinets)
		v.Cabinets = fleet.Paginate(o.heldCabinets, o.pageSize, o.page)
	default:
		v.Total = len(o.held)
		v.Devices = fleet.Paginate(o.held, o.pageSize, o.page)
	}
	v.TotalPages = fleet.PageCount(v.Total, o.pageSize)

	o.view = v
	o.logger.Debug("list view recomputed", "tab", v.Tab, "page", v.Page, "total", v.Total)
	return v
}

func notify(subs []func(View), v View) {
	for _, fn := range subs {
		fn(v)
	}
}
