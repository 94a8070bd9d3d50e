package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/minefleet-core/internal/fleet"
)

const summaryMeasurement = "fleet_summary"

// summaryPoint builds the fleet_summary point for one tick.
func summaryPoint(site string, s fleet.Summary, ts time.Time) *write.Point {
	return write.NewPoint(
		summaryMeasurement,
		map[string]string{"site": site},
		map[string]any{
			"miners":             s.Miners,
			"miners_online":      s.MinersOnline(),
			"miners_offline":     s.MinersOffline,
			"containers":         s.Containers,
			"containers_offline": s.ContainersOffline,
			"alerts":             s.Alerts,
			"hashrate_mhs":       s.HashrateMHs,
			"pool_hashrate_mhs":  s.PoolHashrateMHs,
		},
		ts,
	)
}

// WriteFleetSummary queues a fleet_summary point. The write is non-blocking;
// failures are reported through SetOnError.
func (c *Client) WriteFleetSummary(site string, s fleet.Summary) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(summaryPoint(site, s, time.Now()))
}

// WritePoint queues a custom point stamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
