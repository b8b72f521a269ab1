// Package mqtt provides MQTT client connectivity for the Alarm.com bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Bridge availability via birth message and Last Will and Testament
//   - Topic builders for Home Assistant MQTT discovery
//
// # Architecture
//
// The bridge exports Alarm.com configuration options to Home Assistant over
// MQTT discovery. The broker decouples the bridge from Home Assistant:
//
//	Alarm.com ↔ Bridge ↔ MQTT Broker ↔ Home Assistant
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{DiscoveryPrefix: "homeassistant", NodeID: "alarmdotcom"}
//	err = client.Subscribe(topics.EntityCommand("number", "cam-1_led-brightness"), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	client.Publish(topics.EntityState("number", "cam-1_led-brightness"), []byte("75"), 1, true)
package mqtt
