package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes of the fleet hierarchy.
const (
	TopicPrefix          = "minefleet"
	TopicPrefixSystem    = "minefleet/system"
	TopicPrefixTelemetry = "minefleet/telemetry"
	TopicPrefixActions   = "minefleet/actions"
)

// Topics builds fleet MQTT topics.
type Topics struct{}

// SystemStatus is the retained online/offline status of this service.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// TelemetryRefresh is where upstream collectors announce fresh data.
func (Topics) TelemetryRefresh() string {
	return TopicPrefixTelemetry + "/refresh"
}

// Action returns the topic for a bulk action, e.g. minefleet/actions/reboot.
func (Topics) Action(action string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixActions, action)
}

// ActionResult returns the topic actuators report results on.
func (Topics) ActionResult(action string) string {
	return fmt.Sprintf("%s/%s/result", TopicPrefixActions, action)
}

// AllActions matches every action topic.
func (Topics) AllActions() string {
	return TopicPrefixActions + "/#"
}

// validSegment reports whether s can be used as a single topic level.
func validSegment(s string) bool {
	return s != "" && !strings.ContainsAny(s, "/+#\x00")
}
