package influxdb

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nerrad567/minefleet-core/internal/fleet"
)

// Worker series layout written by the pool collector.
const (
	workerField = "hashrate_mhs"
	workerTag   = "worker"
)

// workerQuery returns the Flux query for the latest hashrate of every worker
// within the configured lookback window.
func workerQuery(bucket, measurement string, lookbackMinutes int) string {
	return fmt.Sprintf(`from(bucket: %s)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == %s and r._field == %s)
  |> group(columns: [%s])
  |> last()`,
		strconv.Quote(bucket), lookbackMinutes, strconv.Quote(measurement),
		strconv.Quote(workerField), strconv.Quote(workerTag))
}

// QueryWorkerHashrates returns the latest pool hashrate (MH/s) per worker.
// Worker names are the miner device ids.
func (c *Client) QueryWorkerHashrates(ctx context.Context) (fleet.WorkerHashrates, error) {
	if c == nil || !c.IsConnected() {
		return nil, ErrNotConnected
	}

	q := workerQuery(c.cfg.Bucket, c.cfg.WorkerMeasurement, c.cfg.WorkerLookback)
	result, err := c.queryAPI.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer result.Close()

	workers := make(fleet.WorkerHashrates)
	for result.Next() {
		rec := result.Record()
		worker, ok := rec.ValueByKey(workerTag).(string)
		if !ok || worker == "" {
			continue
		}
		if v, ok := toFloat(rec.Value()); ok {
			workers[worker] = v
		}
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return workers, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
