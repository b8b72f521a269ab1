package hass

import (
	"time"

	"github.com/nerrad567/gray-logic-alarmdotcom/internal/number"
)

// componentNumber is the Home Assistant MQTT component for number entities.
const componentNumber = "number"

// manufacturer is reported in every discovery device block.
const manufacturer = "Alarm.com"

// DiscoveryConfig is the retained Home Assistant MQTT discovery payload for
// a number entity.
// Topic: {discovery_prefix}/number/{node_id}/{unique_id}/config
type DiscoveryConfig struct {
	Name              string      `json:"name"`
	UniqueID          string      `json:"unique_id"`
	ObjectID          string      `json:"object_id"`
	CommandTopic      string      `json:"command_topic"`
	StateTopic        string      `json:"state_topic"`
	AvailabilityTopic string      `json:"availability_topic"`
	Min               *float64    `json:"min,omitempty"`
	Max               *float64    `json:"max,omitempty"`
	Step              float64     `json:"step"`
	Mode              number.Mode `json:"mode"`
	Icon              string      `json:"icon,omitempty"`
	EntityCategory    string      `json:"entity_category,omitempty"`
	Device            DeviceInfo  `json:"device"`
	Origin            OriginInfo  `json:"origin"`
}

// DeviceInfo groups entities under one device in Home Assistant.
type DeviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
}

// OriginInfo identifies the software that published the discovery config.
type OriginInfo struct {
	Name       string `json:"name"`
	SWVersion  string `json:"sw_version,omitempty"`
	SupportURL string `json:"support_url,omitempty"`
}

// AckStatus represents the outcome of a command.
type AckStatus string

const (
	// AckAccepted indicates the vendor accepted the new value.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"
)

// Error codes for failed commands.
const (
	ErrCodeInvalidPayload = "INVALID_PAYLOAD"
	ErrCodeInvalidValue   = "INVALID_VALUE"
	ErrCodeVendorError    = "VENDOR_ERROR"
	ErrCodeTimeout        = "TIMEOUT"
)

// AckMessage reports the outcome of a command received on a set topic.
// Topic: graylogic/alarmdotcom/number/{unique_id}/ack
type AckMessage struct {
	// CommandID is generated by the bridge for log correlation.
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	UniqueID  string    `json:"unique_id"`
	Value     *float64  `json:"value,omitempty"`
	Status    AckStatus `json:"status"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StateEvent is broadcast to live listeners after every state publish.
type StateEvent struct {
	State number.State `json:"state"`
}
