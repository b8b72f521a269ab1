package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// measurementNumberValue is the measurement holding displayed number values.
const measurementNumberValue = "number_value"

// NumberValue is one observed value of an exported number entity.
type NumberValue struct {
	UniqueID   string
	DeviceID   string
	OptionType string
	Value      float64

	// Time defaults to now when zero.
	Time time.Time
}

// WriteNumberValue records a number entity's displayed value.
//
// The write is non-blocking; points are batched and sent asynchronously.
// Tags are low cardinality (one series per entity); the value is the only field.
//
// Example:
//
//	client.WriteNumberValue(influxdb.NumberValue{
//	    UniqueID:   "cam-1_led-brightness",
//	    DeviceID:   "cam-1",
//	    OptionType: "brightness",
//	    Value:      75,
//	})
func (c *Client) WriteNumberValue(v NumberValue) {
	ts := v.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	c.WritePointWithTime(measurementNumberValue,
		map[string]string{
			"unique_id":   v.UniqueID,
			"device_id":   v.DeviceID,
			"option_type": v.OptionType,
		},
		map[string]any{
			"value": v.Value,
		},
		ts,
	)
}

// WritePointWithTime writes a custom point with a specific timestamp.
// It is a no-op when the client is not connected.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
