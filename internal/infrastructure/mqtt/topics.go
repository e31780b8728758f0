package mqtt

import "fmt"

// Topic prefixes for the Fusion Bridge MQTT namespace.
//
// All topics use the flat scheme: fusion/{channel}/{id...}. Raw vendor
// payloads arrive per connector; everything downstream of the pipeline
// is published per device or per automation.
const (
	// TopicPrefix is the base for all Fusion Bridge topics.
	TopicPrefix = "fusion"

	// TopicPrefixSystem is the base for service lifecycle topics.
	TopicPrefixSystem = "fusion/system"
)

// Topics provides builders for Fusion Bridge MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	rawTopic := topics.ConnectorRaw("conn-yolink-home")
//	// Returns: "fusion/raw/conn-yolink-home"
type Topics struct{}

// ConnectorRaw returns the topic raw vendor payloads arrive on for a
// connector. The pipeline subscribes here.
//
// Example: fusion/raw/conn-yolink-home
func (Topics) ConnectorRaw(connectorID string) string {
	return fmt.Sprintf("%s/raw/%s", TopicPrefix, connectorID)
}

// Event returns the topic standardized events are published to after
// normalisation.
//
// Example: fusion/events/conn-yolink-home
func (Topics) Event(connectorID string) string {
	return fmt.Sprintf("%s/events/%s", TopicPrefix, connectorID)
}

// DeviceState returns the canonical display-state topic for a device.
// Retained, so late subscribers see the last translated state.
//
// Example: fusion/state/dev-abc123
func (Topics) DeviceState(internalDeviceID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, internalDeviceID)
}

// DeviceCommand returns the topic for state-change commands to a
// device's driver.
//
// Example: fusion/command/dev-abc123
func (Topics) DeviceCommand(internalDeviceID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, internalDeviceID)
}

// AutomationFired returns the topic announcing a matched automation.
//
// Example: fusion/automation/auto-forced-door/fired
func (Topics) AutomationFired(automationID string) string {
	return fmt.Sprintf("%s/automation/%s/fired", TopicPrefix, automationID)
}

// ConnectorHealth returns the health status topic for a connector.
//
// Example: fusion/health/conn-yolink-home
func (Topics) ConnectorHealth(connectorID string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, connectorID)
}

// SystemStatus returns the service status topic.
//
// Example: fusion/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemShutdown returns the shutdown signal topic.
//
// Example: fusion/system/shutdown
func (Topics) SystemShutdown() string {
	return fmt.Sprintf("%s/shutdown", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllConnectorRaw returns a pattern matching raw payloads from every
// connector.
//
// Pattern: fusion/raw/+
func (Topics) AllConnectorRaw() string {
	return fmt.Sprintf("%s/raw/+", TopicPrefix)
}

// AllEvents returns a pattern matching all standardized events.
//
// Pattern: fusion/events/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/events/+", TopicPrefix)
}

// AllDeviceStates returns a pattern matching all device state topics.
//
// Pattern: fusion/state/+
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/state/+", TopicPrefix)
}

// AllDeviceCommands returns a pattern matching all device command topics.
//
// Pattern: fusion/command/+
func (Topics) AllDeviceCommands() string {
	return fmt.Sprintf("%s/command/+", TopicPrefix)
}

// AllConnectorHealth returns a pattern matching all connector health topics.
//
// Pattern: fusion/health/+
func (Topics) AllConnectorHealth() string {
	return fmt.Sprintf("%s/health/+", TopicPrefix)
}

// AllTopics returns a pattern matching all Fusion Bridge topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: fusion/#
func (Topics) AllTopics() string {
	return "fusion/#"
}
