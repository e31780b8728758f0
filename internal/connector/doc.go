// Package connector defines the vendor integration records for Fusion
// Bridge Core and hosts the per-vendor event parser packages.
//
// A Connector is a configured instance of a vendor integration (a YoLink
// account, a Piko server, a NetBox panel). Its Category selects which
// device type table, state translation table, event classifier, and
// device action handlers apply to its devices.
//
// The vendor subpackages (yolink, piko, netbox) each provide a pure
// event classifier and a parser that normalises raw payloads into
// StandardizedEvents. The parser contract is shared:
//
//   - required fields missing -> discard with a logged warning, emit nothing
//   - no classification mapping -> emit exactly one UNKNOWN_EXTERNAL_EVENT
//     carrying the original discriminator; never drop silently
//   - zero or one StandardizedEvent per invocation
package connector
