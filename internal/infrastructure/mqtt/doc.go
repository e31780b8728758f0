// Package mqtt provides MQTT client connectivity for Fusion Bridge.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Fusion Bridge uses MQTT as the internal message bus carrying raw
// vendor payloads in from connector adapters and standardized events
// and device state out to downstream consumers. The broker (Mosquitto)
// decouples the core pipeline from vendor-specific transports.
//
//	Connector Adapters ↔ MQTT Broker ↔ Fusion Bridge Core
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to raw payloads from every connector
//	err = client.Subscribe(mqtt.Topics{}.AllConnectorRaw(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a device command
//	topic := mqtt.Topics{}.DeviceCommand("dev-abc123")
//	client.Publish(topic, []byte(`{"state":"on"}`), 1, false)
package mqtt
