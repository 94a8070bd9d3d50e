package fleet

import "strings"

// MinerRow is the flattened, display-ready projection of a miner.
// Rows are derived on demand and never stored.
type MinerRow struct {
	ID           string   `json:"id"`
	Type         Category `json:"type"`
	Container    string   `json:"container"`
	Position     string   `json:"position"`
	PDUIndex     string   `json:"pduIndex,omitempty"`
	SocketIndex  string   `json:"socketIndex,omitempty"`
	Rack         string   `json:"rack,omitempty"`
	Status       string   `json:"status"`
	Hashrate     string   `json:"hashrate"`
	PoolHashrate string   `json:"poolHashrate,omitempty"`
	PowerW       float64  `json:"powerW"`
	TemperatureC float64  `json:"temperatureC"`
	Error        string   `json:"error,omitempty"`
	AlertCount   int      `json:"alertCount"`
	CommentCount int      `json:"commentCount"`
	Tags         []string `json:"tags,omitempty"`
}

// ProjectMinerRow flattens a device into a MinerRow.
//
// Missing telemetry degrades to placeholders: a device without a snapshot
// reports LastInfoNotFound as its error and an empty id reports
// DeviceNotFound.
func ProjectMinerRow(d *Device) MinerRow {
	if d == nil || strings.TrimSpace(d.ID) == "" {
		return MinerRow{ID: "", Status: StatusOffline, Error: DeviceNotFound}
	}

	row := MinerRow{
		ID:           d.ID,
		Type:         d.Type,
		Container:    d.Info.Container,
		Position:     d.Info.Pos,
		PDUIndex:     d.Info.PDUIndex,
		SocketIndex:  d.Info.SocketIndex,
		Rack:         d.Rack,
		Status:       d.Status(),
		CommentCount: len(d.Comments),
		Tags:         d.Tags,
	}

	if d.Last == nil {
		row.Status = StatusOffline
		row.Error = LastInfoNotFound
		row.Hashrate = FormatHashrate(0)
		return row
	}

	stats := d.Stats()
	row.Error = d.Last.Err
	row.AlertCount = len(d.Last.Alerts)
	row.Hashrate = FormatHashrate(numberField(stats, "hashrate_mhs"))
	row.PowerW = numberField(stats, "power_w")
	row.TemperatureC = numberField(stats, "temperature_c")
	if pool, ok := d.PoolHashrate(); ok {
		row.PoolHashrate = pool
	}
	if row.Status == "" {
		if d.IsOffline() {
			row.Status = StatusOffline
		} else {
			row.Status = StatusOnline
		}
	}
	return row
}

// ProjectMinerRows flattens every device of the slice.
func ProjectMinerRows(devices []Device) []MinerRow {
	rows := make([]MinerRow, len(devices))
	for i := range devices {
		rows[i] = ProjectMinerRow(&devices[i])
	}
	return rows
}

// numberField reads a numeric stat regardless of its decoded JSON type.
func numberField(stats Stats, key string) float64 {
	switch v := stats[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
