package mqtt

import (
	"fmt"
)

// Subscribe routes messages matching topic to handler. The topic may use the
// + and # wildcards. Handlers run on paho's delivery goroutine with panic
// recovery, so they should hand long work off.
//
// The subscription is remembered and replayed after a reconnect. A failed
// subscribe is forgotten again.
//
// Example:
//
//	topics := mqtt.Topics{DiscoveryPrefix: "homeassistant"}
//	err := client.Subscribe(topics.EntityCommand("number", "cam-1_led-brightness"), 1,
//	    func(topic string, payload []byte) error {
//	        return setBrightness(payload)
//	    })
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	c.subscriptions[topic] = subscription{topic: topic, qos: qos, handler: handler}
	c.subMu.Unlock()

	if err := awaitToken(c.client.Subscribe(topic, qos, c.wrapHandler(handler)), ErrSubscribeFailed); err != nil {
		c.forget(topic)
		return err
	}
	return nil
}

// Unsubscribe drops the subscription for the exact topic pattern given to
// Subscribe. Messages already in flight may still reach the handler.
//
// The topic is forgotten before the broker round trip, so it is not replayed
// on reconnect even when the unsubscribe itself fails.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.forget(topic)
	return awaitToken(c.client.Unsubscribe(topic), ErrUnsubscribeFailed)
}

// SubscriptionCount returns how many topic patterns are tracked for replay.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}

func (c *Client) forget(topic string) {
	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()
}
