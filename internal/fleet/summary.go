package fleet

// Summary aggregates one poll tick for fleet-level metrics.
type Summary struct {
	Miners            int
	MinersOffline     int
	Containers        int
	ContainersOffline int
	Alerts            int

	// HashrateMHs sums the hashrate the miners report themselves.
	HashrateMHs float64

	// PoolHashrateMHs sums the pool worker hashrates of known miners.
	PoolHashrateMHs float64
}

// MinersOnline returns the number of miners not known to be offline.
func (s Summary) MinersOnline() int {
	return s.Miners - s.MinersOffline
}

// Summarize counts miners and containers and totals their hashrates.
// Other categories are ignored.
func Summarize(devices []Device, workers WorkerHashrates) Summary {
	var s Summary
	for i := range devices {
		d := &devices[i]
		switch {
		case d.Type.Is(CategoryMiner):
			s.Miners++
			if d.IsOffline() {
				s.MinersOffline++
			}
			s.Alerts += len(d.Alerts())
			s.HashrateMHs += numberField(d.Stats(), "hashrate_mhs")
			s.PoolHashrateMHs += workers[d.ID]
		case d.Type.Is(CategoryContainer):
			s.Containers++
			if d.IsOffline() {
				s.ContainersOffline++
			}
			s.Alerts += len(d.Alerts())
		}
	}
	return s
}
