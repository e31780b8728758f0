package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/austin-smith/fusion-bridge-sub003/internal/event"
)

// RecordEvent writes one standardized event as a throughput point.
//
// This is the primary telemetry hook for the pipeline. The write is
// non-blocking; data is batched and sent asynchronously, and points
// are dropped when the backend is unreachable.
//
// Tags stay low-cardinality (connector, category, type); device_id is
// a field so a large fleet does not explode series cardinality.
func (c *Client) RecordEvent(ev *event.StandardizedEvent) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{
		"connector_id": ev.ConnectorID,
		"category":     string(ev.Category),
		"type":         string(ev.Type),
	}
	fields := map[string]interface{}{
		"device_id": ev.DeviceID,
		"count":     int64(1),
	}
	if ev.Subtype != nil {
		fields["subtype"] = string(*ev.Subtype)
	}

	c.writeAPI.WritePoint(write.NewPoint("events", tags, fields, ev.Timestamp))
}

// RecordDeviceState writes a translated display-state change.
//
// Parameters:
//   - internalDeviceID: Fusion-assigned device identifier
//   - displayState: The translated human-readable state
func (c *Client) RecordDeviceState(internalDeviceID, displayState string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_state",
		map[string]string{
			"device_id": internalDeviceID,
		},
		map[string]interface{}{
			"state": displayState,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// RecordAutomationFired writes a rule-match occurrence.
//
// Parameters:
//   - automationID: The matched automation
//   - actionCount: Number of actions dispatched
//   - failedCount: Number of those actions that failed
func (c *Client) RecordAutomationFired(automationID string, actionCount, failedCount int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"automation_fired",
		map[string]string{
			"automation_id": automationID,
		},
		map[string]interface{}{
			"actions": int64(actionCount),
			"failed":  int64(failedCount),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
