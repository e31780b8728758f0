// Package piko normalises events from Piko video management servers.
//
// Piko discriminates events two ways: an analytics sub-engine id when an
// analytics rule fired, and a generic eventType otherwise. The sub-engine
// id wins when both are present. Timestamps arrive as microsecond epoch
// strings, and payloads identify devices by resource id only, so device
// classification relies on a resource map fetched when the connector
// synced the server's resource tree.
package piko
