// Package yolink normalises events from YoLink LoRa hubs and sensors.
//
// YoLink names every event "<Class>.<Method>" and timestamps payloads
// with millisecond epoch values. The event class doubles as the raw
// device type ("DoorSensor.Alert" comes from a DoorSensor), so device
// classification needs no pre-fetched metadata map.
package yolink
