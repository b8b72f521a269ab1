package mqtt

import "errors"

// Sentinel errors returned by the bridge's MQTT client. Operation errors wrap
// one of these; check with errors.Is.
var (
	// ErrNotConnected means the client is currently disconnected from the broker.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed means the initial broker connection could not be made.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed wraps any failed entity state, discovery or ack publish.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed wraps any failed command or status subscription.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrUnsubscribeFailed wraps any failed unsubscribe.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS rejects QoS levels above 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic rejects an empty topic.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")

	// ErrTimeout is wrapped alongside the operation error when the broker
	// does not acknowledge within the operation timeout.
	ErrTimeout = errors.New("mqtt: operation timed out")
)
