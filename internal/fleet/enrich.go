package fleet

// CategoryFilter selects which devices survive the first enrichment step.
type CategoryFilter string

// Category filters.
const (
	FilterAll       CategoryFilter = "all"
	FilterMiner     CategoryFilter = "miner"
	FilterContainer CategoryFilter = "container"
)

// Matches reports whether the device category passes the filter.
func (f CategoryFilter) Matches(c Category) bool {
	switch f {
	case FilterMiner:
		return c.Is(CategoryMiner)
	case FilterContainer:
		return c.Is(CategoryContainer)
	default:
		return true
	}
}

// WorkerHashrates maps a device id to the hashrate (MH/s) reported for it by
// the mining pool.
type WorkerHashrates map[string]float64

// Enrich filters devices by category and attaches pool hashrate data.
//
// A device gets Stats["poolHashrate"] (formatted with FormatHashrate) only if
// it is a miner, the pool reports a worker for its id, its own stats are
// non-empty and it is not offline. Every other device that passes the filter
// is returned with IsRaw set and otherwise unchanged.
//
// The input slice and its elements are never modified; every returned
// device is a fresh copy.
func Enrich(devices []Device, filter CategoryFilter, workers WorkerHashrates) []Device {
	out := make([]Device, 0, len(devices))
	for i := range devices {
		dev := &devices[i]
		if !filter.Matches(dev.Type) {
			continue
		}

		cpy := dev.Clone()
		if hashrate, ok := poolHashrateFor(dev, workers); ok {
			cpy.Last.Snap.Stats[statsPoolHashrate] = FormatHashrate(hashrate)
			cpy.IsRaw = false
		} else {
			cpy.IsRaw = true
		}
		out = append(out, *cpy)
	}
	return out
}

// poolHashrateFor returns the worker hashrate for dev when it qualifies for enrichment.
func poolHashrateFor(dev *Device, workers WorkerHashrates) (float64, bool) {
	if !dev.Type.Is(CategoryMiner) {
		return 0, false
	}
	hashrate, ok := workers[dev.ID]
	if !ok {
		return 0, false
	}
	if len(dev.Stats()) == 0 || dev.IsOffline() {
		return 0, false
	}
	return hashrate, true
}

// PoolHashrate returns the formatted pool hashrate attached by Enrich.
func (d *Device) PoolHashrate() (string, bool) {
	v, ok := d.Stats()[statsPoolHashrate].(string)
	return v, ok
}
