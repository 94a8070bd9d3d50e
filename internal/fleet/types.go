package fleet

import (
	"strings"
	"time"
)

// Category identifies the kind of hardware a telemetry record describes.
//
// Backends report both bare categories ("miner") and family-qualified ones
// ("miner-am-s19xp", "container-bd-d40"); use Category.Is to compare.
type Category string

// Category constants.
const (
	CategoryMiner      Category = "miner"
	CategoryContainer  Category = "container"
	CategoryPowerMeter Category = "powermeter"
	CategoryTempSensor Category = "sensor-temp"
	CategoryCabinet    Category = "cabinet"
)

// Is reports whether c equals base or is a family of base ("miner-am-s19" is a miner).
func (c Category) Is(base Category) bool {
	s := strings.ToLower(string(c))
	b := string(base)
	return s == b || strings.HasPrefix(s, b+"-")
}

// Status values reported in Stats["status"].
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusError   = "error"
	StatusSleep   = "sleeping"
)

// Fallback strings surfaced when telemetry is missing.
const (
	DeviceNotFound   = "Device Not Found"
	LastInfoNotFound = "Last Device info not found"
)

const (
	statsPoolHashrate = "poolHashrate"
	statsStatus       = "status"
	transformerPrefix = "tr"
	positionSeparator = "_"
)

// Stats holds the free-form statistics block of a snapshot.
//
// Examples:
//   - Miner: {"status": "online", "hashrate_mhs": 110000000, "power_w": 3250}
//   - Power meter: {"power_w": 412000, "voltage_v": 400}
type Stats map[string]any

// Info carries placement metadata for a device.
type Info struct {
	Pos         string `json:"pos,omitempty"`
	Container   string `json:"container,omitempty"`
	PDUIndex    string `json:"pduIndex,omitempty"`
	SocketIndex string `json:"socketIndex,omitempty"`
	SerialNum   string `json:"serialNum,omitempty"`
	MacAddress  string `json:"macAddress,omitempty"`

	// ConnectedDevices lists ids of devices wired behind this one
	// (miners behind a power meter, for example).
	ConnectedDevices []string `json:"connectedDevices,omitempty"`
}

// Snap is the raw stats/config pair of a snapshot.
type Snap struct {
	Stats  Stats          `json:"stats,omitempty"`
	Config map[string]any `json:"config,omitempty"`
}

// Alert is a single alarm raised by a device.
type Alert struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name"`
	Severity    string    `json:"severity,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Comment is an operator note attached to a device.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author,omitempty"`
	Text      string    `json:"comment"`
	CreatedAt time.Time `json:"ts"`
}

// Snapshot is the latest reading of a device. A nil snapshot means the
// backend had nothing to report for this tick.
type Snapshot struct {
	Err    string  `json:"err,omitempty"`
	Snap   Snap    `json:"snap"`
	Alerts []Alert `json:"alerts,omitempty"`
}

// Device is the atomic telemetry unit returned by the fleet backend.
// Devices are replaced wholesale on every poll tick.
type Device struct {
	ID       string    `json:"id"`
	Type     Category  `json:"type"`
	Tags     []string  `json:"tags,omitempty"`
	Info     Info      `json:"info"`
	Rack     string    `json:"rack,omitempty"`
	Last     *Snapshot `json:"last,omitempty"`
	Comments []Comment `json:"comments,omitempty"`

	// IsRaw marks a record that has not been enriched and still needs
	// on-demand field extraction before display.
	IsRaw bool `json:"isRaw,omitempty"`
}

// GetID returns the device identity. It satisfies Identified.
func (d Device) GetID() string { return d.ID }

// Stats returns the snapshot statistics, or nil when there is no snapshot.
func (d *Device) Stats() Stats {
	if d == nil || d.Last == nil {
		return nil
	}
	return d.Last.Snap.Stats
}

// Status returns the reported status, or "" when unknown.
func (d *Device) Status() string {
	s, _ := d.Stats()[statsStatus].(string) //nolint:errcheck // type assertion, not an error
	return strings.ToLower(s)
}

// IsOffline reports whether the device is known to be offline.
// A device with no snapshot at all or a snapshot error counts as offline.
func (d *Device) IsOffline() bool {
	if d == nil || d.Last == nil {
		return true
	}
	if d.Last.Err != "" {
		return true
	}
	return d.Status() == StatusOffline
}

// Alerts returns the snapshot alerts.
func (d *Device) Alerts() []Alert {
	if d == nil || d.Last == nil {
		return nil
	}
	return d.Last.Alerts
}

// Clone creates a complete independent copy of the Device.
// All map and slice fields are cloned so modifications to the copy
// do not affect the original.
func (d *Device) Clone() *Device {
	if d == nil {
		return nil
	}

	cpy := *d

	if d.Tags != nil {
		cpy.Tags = make([]string, len(d.Tags))
		copy(cpy.Tags, d.Tags)
	}
	if d.Info.ConnectedDevices != nil {
		cpy.Info.ConnectedDevices = make([]string, len(d.Info.ConnectedDevices))
		copy(cpy.Info.ConnectedDevices, d.Info.ConnectedDevices)
	}
	if d.Comments != nil {
		cpy.Comments = make([]Comment, len(d.Comments))
		copy(cpy.Comments, d.Comments)
	}
	if d.Last != nil {
		last := *d.Last
		last.Snap.Stats = deepCopyMap(d.Last.Snap.Stats)
		last.Snap.Config = deepCopyMap(d.Last.Snap.Config)
		if d.Last.Alerts != nil {
			last.Alerts = make([]Alert, len(d.Last.Alerts))
			copy(last.Alerts, d.Last.Alerts)
		}
		cpy.Last = &last
	}

	return &cpy
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap[M ~map[string]any](m M) M {
	if m == nil {
		return nil
	}
	cpy := make(M, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case Stats:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v
	}
}
