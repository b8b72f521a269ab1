// Package hass publishes number entities to Home Assistant over MQTT.
//
// The Platform is the host for entities built by package number. For each
// entity it publishes a retained discovery config, mirrors every refresh
// onto a retained state topic and listens for new values on a set topic.
//
// Topics:
//
//	homeassistant/number/alarmdotcom/{unique_id}/config   discovery (retained)
//	graylogic/alarmdotcom/number/{unique_id}/state        value (retained)
//	graylogic/alarmdotcom/number/{unique_id}/set          commands from HA
//	graylogic/alarmdotcom/number/{unique_id}/ack          command outcome
//	graylogic/alarmdotcom/status                          availability (LWT)
//
// Commands are executed off the MQTT delivery goroutine and bounded by the
// command timeout. An ack is published for every command; the displayed
// value only moves once the controller's next refresh reports it.
//
// When Home Assistant publishes "online" to its status topic, discovery and
// state are re-sent.
package hass
