package selection

import (
	"reflect"
	"sync"
	"testing"

	"github.com/nerrad567/minefleet-core/internal/fleet"
)

func testMiner(id, container, pos string) fleet.Device {
	return fleet.Device{
		ID:   id,
		Type: fleet.CategoryMiner,
		Info: fleet.Info{Container: container, Pos: pos},
	}
}

func TestSelectDevice_ByPosition(t *testing.T) {
	s := NewStore()

	if !s.SelectDevice(testMiner("m1", "bd-1", "a1_b2")) {
		t.Fatal("SelectDevice() = false, want true")
	}

	want := map[string]map[string]TagEntry{
		"bd-1": {"pos-a1_b2": {IsPosTag: true, MinerID: "m1"}},
	}
	if got := s.Tags(); !reflect.DeepEqual(got, want) {
		t.Errorf("Tags() = %v, want %v", got, want)
	}
	if got := s.DeviceState("m1"); got != SelectedByPosition {
		t.Errorf("DeviceState() = %v, want %v", got, SelectedByPosition)
	}
}

func TestSelectDevice_IdentityAfterPositionIsNoop(t *testing.T) {
	s := NewStore()
	m := testMiner("m1", "bd-1", "a1_b2")

	s.SelectDevice(m)
	if s.SelectByIdentity(m) {
		t.Error("SelectByIdentity() = true, want no-op")
	}

	want := map[string]map[string]TagEntry{
		"bd-1": {"pos-a1_b2": {IsPosTag: true, MinerID: "m1"}},
	}
	if got := s.Tags(); !reflect.DeepEqual(got, want) {
		t.Errorf("Tags() = %v, want %v", got, want)
	}
}

func TestSelectDevice_PositionAfterIdentityIsNoop(t *testing.T) {
	s := NewStore()
	m := testMiner("m1", "bd-1", "a1_b2")

	s.SelectByIdentity(m)
	if s.SelectDevice(m) {
		t.Error("SelectDevice() = true, want no-op")
	}

	want := map[string]map[string]TagEntry{
		"bd-1": {"id-m1": {IsPosTag: false, MinerID: "m1"}},
	}
	if got := s.Tags(); !reflect.DeepEqual(got, want) {
		t.Errorf("Tags() = %v, want %v", got, want)
	}
	if got := s.DeviceState("m1"); got != SelectedByIdentity {
		t.Errorf("DeviceState() = %v, want %v", got, SelectedByIdentity)
	}
}

func TestSelectDevice_IdentityFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		device fleet.Device
		bucket string
	}{
		{"no container", testMiner("m1", "", "a1_b2"), fleet.NoContainerBucket},
		{"no position", testMiner("m1", "bd-1", ""), "bd-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			s.SelectDevice(tt.device)

			want := map[string]map[string]TagEntry{
				tt.bucket: {"id-m1": {IsPosTag: false, MinerID: "m1"}},
			}
			if got := s.Tags(); !reflect.DeepEqual(got, want) {
				t.Errorf("Tags() = %v, want %v", got, want)
			}
		})
	}
}

func TestSelectDevice_SharedSlotLaterClaimantWins(t *testing.T) {
	for i := 0; i < 50; i++ {
		s := NewStore()
		s.SelectDevice(testMiner("m1", "bd-1", "a1_b2"))
		if !s.SelectDevice(testMiner("m2", "bd-1", "a1_b2")) {
			t.Fatal("SelectDevice(m2) = false, want true")
		}

		want := map[string]map[string]TagEntry{
			"bd-1": {"pos-a1_b2": {IsPosTag: true, MinerID: "m2"}},
		}
		if got := s.Tags(); !reflect.DeepEqual(got, want) {
			t.Fatalf("Tags() = %v, want %v", got, want)
		}
		if s.IsDeviceSelected("m1") {
			t.Fatal("IsDeviceSelected(m1) = true, want false after m2 took its slot")
		}
		if got := s.SelectedDevices(); len(got) != 1 || got[0].ID != "m2" {
			t.Fatalf("SelectedDevices() = %v, want [m2]", got)
		}
	}
}

func TestSelectDevice_SameSlotOtherContainer(t *testing.T) {
	s := NewStore()
	s.SelectDevice(testMiner("m1", "bd-1", "a1_b2"))
	s.SelectDevice(testMiner("m2", "bd-2", "a1_b2"))

	if !s.IsDeviceSelected("m1") || !s.IsDeviceSelected("m2") {
		t.Error("miners in different containers displaced each other")
	}
}

func TestSelectDevice_EmptyID(t *testing.T) {
	s := NewStore()
	if s.SelectDevice(fleet.Device{}) {
		t.Error("SelectDevice(empty) = true, want false")
	}
	if len(s.Tags()) != 0 || len(s.SelectedDevices()) != 0 {
		t.Error("store changed for device without id")
	}
}

func TestDeselectDevice_RemovesEntriesAndBucket(t *testing.T) {
	s := NewStore()
	s.SelectDevice(testMiner("m1", "bd-1", "a1_b2"))
	s.SelectDevice(testMiner("m2", "bd-1", "a1_b3"))

	if !s.DeselectDevice("m1") {
		t.Fatal("DeselectDevice(m1) = false, want true")
	}
	want := map[string]map[string]TagEntry{
		"bd-1": {"pos-a1_b3": {IsPosTag: true, MinerID: "m2"}},
	}
	if got := s.Tags(); !reflect.DeepEqual(got, want) {
		t.Errorf("Tags() = %v, want %v", got, want)
	}

	s.DeselectDevice("m2")
	if got := s.Tags(); len(got) != 0 {
		t.Errorf("Tags() = %v, want empty after last deselect", got)
	}
	if s.DeselectDevice("m2") {
		t.Error("DeselectDevice() twice = true, want false")
	}
}

func TestToggleDevice(t *testing.T) {
	s := NewStore()
	m := testMiner("m1", "bd-1", "a1_b2")

	if got := s.ToggleDevice(m); got != SelectedByPosition {
		t.Errorf("ToggleDevice() = %v, want %v", got, SelectedByPosition)
	}
	if got := s.ToggleDevice(m); got != Unselected {
		t.Errorf("ToggleDevice() = %v, want %v", got, Unselected)
	}
	if s.IsDeviceSelected("m1") {
		t.Error("IsDeviceSelected() = true after toggle off")
	}
}

func TestBulkSelection(t *testing.T) {
	s := NewStore()
	devices := []fleet.Device{
		testMiner("m1", "bd-1", "a1_b1"),
		{}, // no id, skipped without aborting
		testMiner("m2", "", ""),
		testMiner("m3", "bd-2", "a2_b1"),
	}

	if got := s.SelectDevices(devices); got != 3 {
		t.Errorf("SelectDevices() = %d, want 3", got)
	}
	ids := make([]string, 0)
	for _, d := range s.SelectedDevices() {
		ids = append(ids, d.ID)
	}
	if !reflect.DeepEqual(ids, []string{"m1", "m2", "m3"}) {
		t.Errorf("SelectedDevices() = %v, want [m1 m2 m3]", ids)
	}

	if got := s.SelectDevices(devices); got != 0 {
		t.Errorf("SelectDevices() again = %d, want 0", got)
	}
	if got := s.DeselectDevices(devices); got != 3 {
		t.Errorf("DeselectDevices() = %d, want 3", got)
	}
	if len(s.Tags()) != 0 {
		t.Errorf("Tags() = %v, want empty", s.Tags())
	}
}

func TestIndependentCollections(t *testing.T) {
	s := NewStore()
	s.SelectContainer(fleet.Device{ID: "bd-1", Type: fleet.CategoryContainer})
	s.SelectCabinet(fleet.Cabinet{ID: "lv1"})
	s.SelectSocket(Socket{Container: "bd-1", PDUIndex: "1", SocketIndex: "4"})

	s.DeselectContainer("bd-1")
	if s.IsContainerSelected("bd-1") {
		t.Error("IsContainerSelected() = true after deselect")
	}
	if !s.IsSocketSelected("bd-1", "1", "4") {
		t.Error("socket deselected together with its container")
	}
	if !s.IsCabinetSelected("lv1") {
		t.Error("cabinet deselected together with container")
	}
}

func TestSelectCabinet_Modes(t *testing.T) {
	s := NewStore()
	s.SelectCabinet(fleet.Cabinet{ID: "lv1"})
	s.SelectCabinet(fleet.Cabinet{ID: "lv2"})
	s.SelectCabinet(fleet.Cabinet{ID: " "})
	if got := s.SelectedCabinetIDs(); !reflect.DeepEqual(got, []string{"lv1", "lv2"}) {
		t.Errorf("multi mode cabinets = %v, want [lv1 lv2]", got)
	}

	s.SetSingleCabinet(true)
	s.SelectCabinet(fleet.Cabinet{ID: "lv3"})
	if got := s.SelectedCabinetIDs(); !reflect.DeepEqual(got, []string{"lv3"}) {
		t.Errorf("single mode cabinets = %v, want [lv3]", got)
	}

	s.DeselectCabinet("lv3")
	if s.IsCabinetSelected("lv3") {
		t.Error("IsCabinetSelected() = true after deselect")
	}
}

func TestSockets(t *testing.T) {
	s := NewStore()
	s.SelectSocket(Socket{Container: "bd-1", PDUIndex: "1", SocketIndex: "1", MinerID: "m1"})
	s.SelectSocket(Socket{Container: "bd-1", PDUIndex: "1", SocketIndex: "1", MinerID: "m9"})
	s.SelectSocket(Socket{Container: "bd-1", PDUIndex: "2", SocketIndex: "1"})

	got := s.SelectedSockets("bd-1")
	if len(got) != 2 || got[0].MinerID != "m9" {
		t.Errorf("SelectedSockets() = %+v, want 2 sockets with slot 1/1 replaced", got)
	}

	s.DeselectSocket(Socket{Container: "bd-1", PDUIndex: "1", SocketIndex: "1"})
	if s.IsSocketSelected("bd-1", "1", "1") {
		t.Error("IsSocketSelected(1/1) = true after deselect")
	}
	s.DeselectSocket(Socket{Container: "bd-1", PDUIndex: "2", SocketIndex: "1"})
	if got := s.SelectedSockets("bd-1"); len(got) != 0 {
		t.Errorf("SelectedSockets() = %+v, want empty", got)
	}
}

func TestResetAll(t *testing.T) {
	s := NewStore()
	s.SelectDevice(testMiner("m1", "bd-1", "a1_b2"))
	s.SelectContainer(fleet.Device{ID: "bd-1"})
	s.SelectCabinet(fleet.Cabinet{ID: "lv1"})
	s.SelectSocket(Socket{Container: "bd-1", PDUIndex: "1", SocketIndex: "1"})

	s.ResetAll()

	snap := s.Snapshot()
	if len(snap.Devices) != 0 || len(snap.Tags) != 0 || len(snap.Containers) != 0 ||
		len(snap.Cabinets) != 0 || len(snap.Sockets) != 0 {
		t.Errorf("Snapshot() after ResetAll = %+v, want empty", snap)
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := NewStore()
	s.SelectDevice(testMiner("m1", "bd-1", "a1_b2"))
	s.SelectDevice(testMiner("m2", "", ""))
	s.SelectContainer(fleet.Device{ID: "bd-1"})
	s.SelectCabinet(fleet.Cabinet{ID: "lv1"})
	s.SelectSocket(Socket{Container: "bd-1", PDUIndex: "1", SocketIndex: "3"})

	snap := s.Snapshot()

	restored := NewStore()
	if err := restored.Restore(snap); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if !reflect.DeepEqual(restored.Tags(), s.Tags()) {
		t.Errorf("restored Tags() = %v, want %v", restored.Tags(), s.Tags())
	}
	if restored.DeviceState("m1") != SelectedByPosition || restored.DeviceState("m2") != SelectedByIdentity {
		t.Error("restored device states differ")
	}
	if !restored.IsContainerSelected("bd-1") || !restored.IsCabinetSelected("lv1") ||
		!restored.IsSocketSelected("bd-1", "1", "3") {
		t.Error("restored collections differ")
	}
}

func TestRestore_InvalidTagLeavesStore(t *testing.T) {
	s := NewStore()
	s.SelectDevice(testMiner("m1", "bd-1", "a1_b2"))

	err := s.Restore(Snapshot{Tags: map[string]map[string]TagEntry{
		"bd-1": {"rack-7": {MinerID: "m1"}},
	}})
	if err == nil {
		t.Fatal("Restore() error = nil, want error")
	}
	if !s.IsDeviceSelected("m1") {
		t.Error("failed Restore() modified the store")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.ToggleDevice(testMiner("m1", "bd-1", "a1_b2"))
		}()
		go func() {
			defer wg.Done()
			_ = s.Tags()
			_ = s.IsDeviceSelected("m1")
		}()
	}
	wg.Wait()

	if got := len(s.Tags()); got > 1 {
		t.Errorf("len(Tags()) = %d, want at most 1", got)
	}
}
