package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefixBridge is the base for all topics owned by this bridge.
//
// Flat scheme: graylogic/alarmdotcom/{component}/{unique_id}/{channel}
const TopicPrefixBridge = "graylogic/alarmdotcom"

// Availability payloads. These are the Home Assistant defaults so discovery
// configs do not need payload_available/payload_not_available overrides.
const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// Topics provides builders for the bridge's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
// Discovery topics live under the Home Assistant discovery prefix; runtime
// topics (state, command, ack, availability) live under TopicPrefixBridge:
//
//	topics := mqtt.Topics{DiscoveryPrefix: "homeassistant", NodeID: "alarmdotcom"}
//	topics.DiscoveryConfig("number", "cam-1_led-brightness")
//	// Returns: "homeassistant/number/alarmdotcom/cam-1_led-brightness/config"
type Topics struct {
	DiscoveryPrefix string
	NodeID          string
}

// DiscoveryConfig returns the retained discovery config topic for an entity.
//
// Example: homeassistant/number/alarmdotcom/cam-1_led-brightness/config
func (t Topics) DiscoveryConfig(component, uniqueID string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", t.DiscoveryPrefix, component, t.NodeID, uniqueID)
}

// HomeAssistantStatus returns the topic Home Assistant publishes its birth
// and will messages to. Discovery configs are re-sent when it reports online.
//
// Example: homeassistant/status
func (t Topics) HomeAssistantStatus() string {
	return fmt.Sprintf("%s/status", t.DiscoveryPrefix)
}

// EntityState returns the retained state topic for an entity.
//
// Example: graylogic/alarmdotcom/number/cam-1_led-brightness/state
func (Topics) EntityState(component, uniqueID string) string {
	return fmt.Sprintf("%s/%s/%s/state", TopicPrefixBridge, component, uniqueID)
}

// EntityCommand returns the topic Home Assistant publishes new values to.
//
// Example: graylogic/alarmdotcom/number/cam-1_led-brightness/set
func (Topics) EntityCommand(component, uniqueID string) string {
	return fmt.Sprintf("%s/%s/%s/set", TopicPrefixBridge, component, uniqueID)
}

// EntityAck returns the topic for command acknowledgements.
//
// Example: graylogic/alarmdotcom/number/cam-1_led-brightness/ack
func (Topics) EntityAck(component, uniqueID string) string {
	return fmt.Sprintf("%s/%s/%s/ack", TopicPrefixBridge, component, uniqueID)
}

// Availability returns the bridge availability topic. It carries the LWT.
//
// Example: graylogic/alarmdotcom/status
func (Topics) Availability() string {
	return fmt.Sprintf("%s/status", TopicPrefixBridge)
}

// ParseEntityTopic extracts the component, unique ID and channel from a
// runtime entity topic. ok is false for topics outside TopicPrefixBridge
// or with the wrong number of levels.
func ParseEntityTopic(topic string) (component, uniqueID, channel string, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefixBridge+"/")
	if !found {
		return "", "", "", false
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		return "", "", "", false
	}
	for _, p := range parts {
		if p == "" {
			return "", "", "", false
		}
	}
	return parts[0], parts[1], parts[2], true
}
