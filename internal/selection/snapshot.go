package selection

import (
	"fmt"
	"sort"

	"github.com/nerrad567/minefleet-core/internal/fleet"
)

// Snapshot is the serialisable form of a Store.
type Snapshot struct {
	Devices    []fleet.Device                 `json:"devices"`
	Tags       map[string]map[string]TagEntry `json:"tags"`
	Containers []fleet.Device                 `json:"containers"`
	Cabinets   []fleet.Cabinet                `json:"cabinets"`
	Sockets    map[string][]Socket            `json:"sockets"`
}

// Snapshot returns a copy of the current selection.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Devices:    make([]fleet.Device, len(s.devices)),
		Tags:       s.tagsLocked(),
		Containers: make([]fleet.Device, 0, len(s.containers)),
		Cabinets:   make([]fleet.Cabinet, 0, len(s.cabinets)),
		Sockets:    make(map[string][]Socket, len(s.sockets)),
	}
	for i := range s.devices {
		snap.Devices[i] = *s.devices[i].Clone()
	}
	for _, id := range sortedKeys(s.containers) {
		c := s.containers[id]
		snap.Containers = append(snap.Containers, *c.Clone())
	}
	for _, id := range sortedKeys(s.cabinets) {
		snap.Cabinets = append(snap.Cabinets, s.cabinets[id])
	}
	for container, list := range s.sockets {
		cpy := make([]Socket, len(list))
		copy(cpy, list)
		snap.Sockets[container] = cpy
	}
	return snap
}

// Restore replaces the whole selection with snap. The snapshot is validated
// first; on error the store is left unchanged.
func (s *Store) Restore(snap Snapshot) error {
	tags := make(map[string]map[string]fleet.Address, len(snap.Tags))
	for bucket, wire := range snap.Tags {
		entries := make(map[string]fleet.Address, len(wire))
		for tag, entry := range wire {
			addr, ok := fleet.ParseTag(tag)
			if !ok || entry.MinerID == "" || addr.IsPosition() != entry.IsPosTag {
				return fmt.Errorf("%w: %q in bucket %q", ErrInvalidTag, tag, bucket)
			}
			entries[entry.MinerID] = addr
		}
		if len(entries) > 0 {
			tags[bucket] = entries
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.clear()
	s.tags = tags
	for i := range snap.Devices {
		if snap.Devices[i].ID != "" && s.deviceIndex(snap.Devices[i].ID) < 0 {
			s.devices = append(s.devices, *snap.Devices[i].Clone())
		}
	}
	for i := range snap.Containers {
		if snap.Containers[i].ID != "" {
			s.containers[snap.Containers[i].ID] = *snap.Containers[i].Clone()
		}
	}
	for _, c := range snap.Cabinets {
		if c.ID != "" {
			s.cabinets[c.ID] = c
		}
	}
	for container, list := range snap.Sockets {
		if container == "" || len(list) == 0 {
			continue
		}
		cpy := make([]Socket, len(list))
		copy(cpy, list)
		s.sockets[container] = cpy
	}

	s.logger.Info("selection restored",
		"devices", len(s.devices),
		"containers", len(s.containers),
		"cabinets", len(s.cabinets),
	)
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
