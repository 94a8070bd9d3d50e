// Package influxdb reads pool worker hashrates from InfluxDB and records
// per-tick fleet summaries.
//
// Worker hashrates are the pool side of miner enrichment: the poller calls
// QueryWorkerHashrates every tick and joins the result onto the fleet
// devices. Summaries are written through the non-blocking, batched write API.
package influxdb
