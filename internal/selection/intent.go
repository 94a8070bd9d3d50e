package selection

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var actionPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,63}$`)

// ActionIntent is a bulk action requested against the current selection.
// It is published for the fleet actuators; the store itself never acts on it.
type ActionIntent struct {
	ID          string              `json:"id"`
	Action      string              `json:"action"`
	Devices     []string            `json:"devices"`
	Containers  []string            `json:"containers"`
	Cabinets    []string            `json:"cabinets"`
	Sockets     map[string][]Socket `json:"sockets,omitempty"`
	RequestedBy string              `json:"requestedBy,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// ValidAction reports whether name can be used as an action (and topic segment).
func ValidAction(name string) bool {
	return actionPattern.MatchString(name)
}

// Intent captures the selection as an action intent.
func (s *Store) Intent(action, requestedBy string) (ActionIntent, error) {
	if !ValidAction(action) {
		return ActionIntent{}, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	intent := ActionIntent{
		ID:          uuid.NewString(),
		Action:      action,
		Devices:     make([]string, 0, len(s.devices)),
		Containers:  sortedKeys(s.containers),
		Cabinets:    sortedKeys(s.cabinets),
		RequestedBy: requestedBy,
		CreatedAt:   time.Now().UTC(),
	}
	for i := range s.devices {
		intent.Devices = append(intent.Devices, s.devices[i].ID)
	}
	for container, socks := range s.sockets {
		if len(socks) == 0 {
			continue
		}
		if intent.Sockets == nil {
			intent.Sockets = make(map[string][]Socket)
		}
		intent.Sockets[container] = append([]Socket(nil), socks...)
	}

	if len(intent.Devices)+len(intent.Containers)+len(intent.Cabinets)+len(intent.Sockets) == 0 {
		return ActionIntent{}, ErrEmptySelection
	}
	return intent, nil
}
