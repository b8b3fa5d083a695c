package mqtt

import "fmt"

// Topic prefixes for the harness event stream.
//
// All topics use the scheme: silk/{category}/{device_or_run}/{detail}
const (
	// TopicPrefix is the base for all harness topics.
	TopicPrefix = "silk"

	// TopicPrefixSystem is the base for system status topics.
	TopicPrefixSystem = "silk/system"
)

// Topics provides builders for harness MQTT topics. Using these helpers
// keeps topic naming consistent between the publisher and any dashboard
// or CI listener on the other side.
//
//	topics := mqtt.Topics{}
//	topic := topics.NodeEvent("nrf-1", "error")
//	// Returns: "silk/node/nrf-1/error"
type Topics struct{}

// NodeEvent returns the topic for one device lifecycle event. Events in
// use: enqueue, executed, error, state.
//
// Example: silk/node/nrf-1/error
func (Topics) NodeEvent(device, event string) string {
	return fmt.Sprintf("%s/node/%s/%s", TopicPrefix, device, event)
}

// NodeState returns the topic carrying a device's network state changes.
//
// Example: silk/node/nrf-1/state
func (Topics) NodeState(device string) string {
	return fmt.Sprintf("%s/node/%s/state", TopicPrefix, device)
}

// RunEvent returns the topic for test run lifecycle events.
//
// Example: silk/run/4cd1a8/started
func (Topics) RunEvent(runID, event string) string {
	return fmt.Sprintf("%s/run/%s/%s", TopicPrefix, runID, event)
}

// SystemStatus returns the harness online/offline status topic.
// Retained so late subscribers see the last known state.
//
// Example: silk/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllNodeEvents returns a pattern matching every device event.
//
// Pattern: silk/node/+/+
func (Topics) AllNodeEvents() string {
	return fmt.Sprintf("%s/node/+/+", TopicPrefix)
}

// AllNodeStates returns a pattern matching every device state topic.
//
// Pattern: silk/node/+/state
func (Topics) AllNodeStates() string {
	return fmt.Sprintf("%s/node/+/state", TopicPrefix)
}

// AllRunEvents returns a pattern matching every run lifecycle event.
//
// Pattern: silk/run/+/+
func (Topics) AllRunEvents() string {
	return fmt.Sprintf("%s/run/+/+", TopicPrefix)
}

// AllTopics returns a pattern matching all harness topics. Use with
// caution, this receives everything.
//
// Pattern: silk/#
func (Topics) AllTopics() string {
	return "silk/#"
}
