package selection

import (
	"strings"
	"sync"

	"github.com/nerrad567/minefleet-core/internal/fleet"
)

// Logger defines the logging interface used by the Store.
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

// DeviceState is the selection state of a single miner.
type DeviceState int

// Device selection states.
const (
	Unselected DeviceState = iota
	SelectedByPosition
	SelectedByIdentity
)

// String returns the state name.
func (s DeviceState) String() string {
	switch s {
	case SelectedByPosition:
		return "selected_by_position"
	case SelectedByIdentity:
		return "selected_by_identity"
	default:
		return "unselected"
	}
}

// Socket identifies a PDU socket inside a container.
type Socket struct {
	Container   string `json:"container"`
	PDUIndex    string `json:"pduIndex"`
	SocketIndex string `json:"socketIndex"`
	MinerID     string `json:"minerId,omitempty"`
}

func (s Socket) sameSlot(o Socket) bool {
	return s.PDUIndex == o.PDUIndex && s.SocketIndex == o.SocketIndex
}

// TagEntry is the wire form of a tag index entry.
type TagEntry struct {
	IsPosTag bool   `json:"isPosTag"`
	MinerID  string `json:"minerId"`
}

// Store is the selection state of one dashboard session.
//
// The zero value is not usable; create stores with NewStore.
type Store struct {
	mu sync.RWMutex

	devices    []fleet.Device                      // selection order
	tags       map[string]map[string]fleet.Address // bucket -> miner id -> address
	containers map[string]fleet.Device
	cabinets   map[string]fleet.Cabinet
	sockets    map[string][]Socket // container id -> sockets
	singleCab  bool
	logger     Logger
}

// NewStore creates an empty selection store.
func NewStore() *Store {
	s := &Store{logger: noopLogger{}}
	s.clear()
	return s
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// SetSingleCabinet switches cabinet selection between radio mode (at most
// one cabinet selected) and multi-select.
func (s *Store) SetSingleCabinet(single bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.singleCab = single
}

// clear resets every collection. Callers must hold the write lock.
func (s *Store) clear() {
	s.devices = nil
	s.tags = make(map[string]map[string]fleet.Address)
	s.containers = make(map[string]fleet.Device)
	s.cabinets = make(map[string]fleet.Cabinet)
	s.sockets = make(map[string][]Socket)
}

// SelectDevice selects a miner.
//
// A miner with a known container and position is addressed by position,
// unless it already holds an identity entry in that bucket. A miner without a
// container is addressed by identity in fleet.NoContainerBucket, and a miner
// with a container but no position is addressed by identity in its container.
// Selecting an already selected miner changes nothing.
//
// It reports whether the store changed.
func (s *Store) SelectDevice(d fleet.Device) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked(d, false)
}

// SelectByIdentity selects a miner by identity regardless of its position.
// It is a no-op when the miner already holds any entry in its bucket.
func (s *Store) SelectByIdentity(d fleet.Device) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked(d, true)
}

func (s *Store) selectLocked(d fleet.Device, forceIdentity bool) bool {
	if strings.TrimSpace(d.ID) == "" {
		return false
	}

	bucket := fleet.ContainerBucket(&d)
	entries := s.tags[bucket]
	if _, exists := entries[d.ID]; exists {
		return false
	}

	addr := fleet.IdentityAddress(d.ID)
	if !forceIdentity && bucket != fleet.NoContainerBucket && strings.TrimSpace(d.Info.Pos) != "" {
		addr = fleet.PositionAddress(d.Info.Pos)
	}

	// A slot holds one miner: a later claimant displaces the earlier one.
	for otherID, other := range entries {
		if other == addr {
			s.deselectLocked(otherID)
			s.logger.Debug("device displaced from slot", "device_id", otherID, "by", d.ID, "tag", addr.Tag())
			break
		}
	}

	entries = s.tags[bucket]
	if entries == nil {
		entries = make(map[string]fleet.Address)
		s.tags[bucket] = entries
	}
	entries[d.ID] = addr

	if s.deviceIndex(d.ID) < 0 {
		s.devices = append(s.devices, *d.Clone())
	}

	s.logger.Debug("device selected", "device_id", d.ID, "bucket", bucket, "tag", addr.Tag())
	return true
}

// DeselectDevice removes a miner from the selection. Both the identity and
// the position entry are removed from every bucket, and buckets left empty
// are deleted. It reports whether the store changed.
func (s *Store) DeselectDevice(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deselectLocked(id)
}

func (s *Store) deselectLocked(id string) bool {
	changed := false
	for bucket, entries := range s.tags {
		if _, ok := entries[id]; !ok {
			continue
		}
		delete(entries, id)
		changed = true
		if len(entries) == 0 {
			delete(s.tags, bucket)
		}
	}

	if i := s.deviceIndex(id); i >= 0 {
		s.devices = append(s.devices[:i], s.devices[i+1:]...)
		changed = true
	}

	if changed {
		s.logger.Debug("device deselected", "device_id", id)
	}
	return changed
}

// ToggleDevice selects an unselected miner or deselects a selected one.
// It returns the resulting state.
func (s *Store) ToggleDevice(d fleet.Device) DeviceState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stateLocked(d.ID) != Unselected {
		s.deselectLocked(d.ID)
	} else {
		s.selectLocked(d, false)
	}
	return s.stateLocked(d.ID)
}

// SelectDevices applies SelectDevice to every device in order. A device that
// cannot be selected does not stop the batch. It returns how many devices
// changed state.
func (s *Store) SelectDevices(devices []fleet.Device) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for i := range devices {
		if s.selectLocked(devices[i], false) {
			n++
		}
	}
	return n
}

// DeselectDevices applies DeselectDevice to every device in order and
// returns how many devices changed state.
func (s *Store) DeselectDevices(devices []fleet.Device) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for i := range devices {
		if s.deselectLocked(devices[i].ID) {
			n++
		}
	}
	return n
}

// SelectContainer adds a container to the selection.
func (s *Store) SelectContainer(c fleet.Device) {
	if c.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.containers[c.ID] = *c.Clone()
}

// DeselectContainer removes a container from the selection.
func (s *Store) DeselectContainer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.containers, id)
}

// SelectContainers selects every container of the slice.
func (s *Store) SelectContainers(containers []fleet.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range containers {
		if containers[i].ID != "" {
			s.containers[containers[i].ID] = *containers[i].Clone()
		}
	}
}

// DeselectContainers deselects every container of the slice.
func (s *Store) DeselectContainers(containers []fleet.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range containers {
		delete(s.containers, containers[i].ID)
	}
}

// SelectCabinet adds a cabinet. In single-cabinet mode the previous
// selection is replaced.
func (s *Store) SelectCabinet(c fleet.Cabinet) {
	if strings.TrimSpace(c.ID) == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.singleCab {
		s.cabinets = make(map[string]fleet.Cabinet, 1)
	}
	s.cabinets[c.ID] = c
}

// DeselectCabinet removes a cabinet from the selection.
func (s *Store) DeselectCabinet(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cabinets, id)
}

// SelectSocket adds a PDU socket. Selecting the same (PDU, socket) slot of a
// container twice replaces the earlier entry.
func (s *Store) SelectSocket(sock Socket) {
	if sock.Container == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.sockets[sock.Container]
	for i := range list {
		if list[i].sameSlot(sock) {
			list[i] = sock
			return
		}
	}
	s.sockets[sock.Container] = append(list, sock)
}

// DeselectSocket removes a PDU socket.
func (s *Store) DeselectSocket(sock Socket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.sockets[sock.Container]
	for i := range list {
		if list[i].sameSlot(sock) {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(s.sockets, sock.Container)
		return
	}
	s.sockets[sock.Container] = list
}

// ResetAll clears every collection and the tag index in one step.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
	s.logger.Debug("selection reset")
}

// IsDeviceSelected reports whether a miner is selected.
func (s *Store) IsDeviceSelected(id string) bool {
	return s.DeviceState(id) != Unselected
}

// DeviceState returns how a miner is selected.
func (s *Store) DeviceState(id string) DeviceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked(id)
}

func (s *Store) stateLocked(id string) DeviceState {
	for _, entries := range s.tags {
		if addr, ok := entries[id]; ok {
			if addr.IsPosition() {
				return SelectedByPosition
			}
			return SelectedByIdentity
		}
	}
	return Unselected
}

// IsContainerSelected reports whether a container is selected.
func (s *Store) IsContainerSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.containers[id]
	return ok
}

// IsCabinetSelected reports whether a cabinet is selected.
func (s *Store) IsCabinetSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cabinets[id]
	return ok
}

// IsSocketSelected reports whether a PDU socket is selected.
func (s *Store) IsSocketSelected(container, pduIndex, socketIndex string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	probe := Socket{PDUIndex: pduIndex, SocketIndex: socketIndex}
	for _, sock := range s.sockets[container] {
		if sock.sameSlot(probe) {
			return true
		}
	}
	return false
}

// SelectedDevices returns copies of the selected miners in selection order.
func (s *Store) SelectedDevices() []fleet.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]fleet.Device, len(s.devices))
	for i := range s.devices {
		out[i] = *s.devices[i].Clone()
	}
	return out
}

// SelectedContainerIDs returns the ids of the selected containers.
func (s *Store) SelectedContainerIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.containers)
}

// SelectedCabinetIDs returns the ids of the selected cabinets.
func (s *Store) SelectedCabinetIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.cabinets)
}

// SelectedSockets returns the selected sockets of a container.
func (s *Store) SelectedSockets(container string) []Socket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Socket, len(s.sockets[container]))
	copy(out, s.sockets[container])
	return out
}

// Tags returns the tag index in wire form: bucket -> tag -> entry.
func (s *Store) Tags() map[string]map[string]TagEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tagsLocked()
}

func (s *Store) tagsLocked() map[string]map[string]TagEntry {
	out := make(map[string]map[string]TagEntry, len(s.tags))
	for bucket, entries := range s.tags {
		wire := make(map[string]TagEntry, len(entries))
		for minerID, addr := range entries {
			wire[addr.Tag()] = TagEntry{IsPosTag: addr.IsPosition(), MinerID: minerID}
		}
		out[bucket] = wire
	}
	return out
}

func (s *Store) deviceIndex(id string) int {
	for i := range s.devices {
		if s.devices[i].ID == id {
			return i
		}
	}
	return -1
}
