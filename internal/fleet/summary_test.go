package fleet

import "testing"

func TestSummarize(t *testing.T) {
	m1 := miner("m1", StatusOnline)
	m1.Last.Snap.Stats["hashrate_mhs"] = 100.0
	m1.Last.Alerts = []Alert{{Name: "fan"}}
	m2 := miner("m2", StatusOffline)
	delete(m2.Last.Snap.Stats, "hashrate_mhs")
	m3 := Device{ID: "m3", Type: "miner-am-s19xp"}

	devices := []Device{
		m1, m2, m3,
		{ID: "c1", Type: "container-bd-d40", Last: &Snapshot{Snap: Snap{Stats: Stats{"status": StatusOnline}}}},
		{ID: "c2", Type: CategoryContainer},
		{ID: "pm1", Type: CategoryPowerMeter},
	}
	workers := WorkerHashrates{"m1": 90, "m2": 10, "ghost": 1000}

	got := Summarize(devices, workers)
	want := Summary{
		Miners:            3,
		MinersOffline:     2,
		Containers:        2,
		ContainersOffline: 1,
		Alerts:            1,
		HashrateMHs:       100,
		PoolHashrateMHs:   100,
	}
	if got != want {
		t.Errorf("Summarize() = %+v, want %+v", got, want)
	}
	if got.MinersOnline() != 1 {
		t.Errorf("MinersOnline() = %d, want 1", got.MinersOnline())
	}
}
