// Package drivers holds the outbound vendor API clients: the transport
// half of actions that reach back into a vendor system.
//
// # Key Types
//
//   - Registry: routes createEvent/createBookmark to the driver for the
//     target connector's category
//   - YoLinkClient: command transport for YoLink devices, used by the
//     device action handler
//   - PikoClient: event injection and bookmark creation on the video
//     platform
//   - NetBoxClient: portal lock/unlock commands on the access panel
//
// Drivers are stateless over an injected HTTP Doer; per-connector
// endpoints and credentials come from the connector's stored config at
// call time, so one client instance serves every connector of its
// category.
//
// # Thread Safety
//
// All clients and the Registry are immutable after construction and
// safe for concurrent use.
package drivers
