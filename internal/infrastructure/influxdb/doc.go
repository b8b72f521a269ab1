// Package influxdb provides InfluxDB connectivity for number value history.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, batched writes, and health monitoring. Every displayed value
// change of an exported number entity becomes one point in the
// "number_value" measurement, tagged by unique_id, device_id and option_type.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteNumberValue(influxdb.NumberValue{UniqueID: id, DeviceID: dev, OptionType: "brightness", Value: 75})
//
// # Error Handling
//
// Writes are non-blocking; batch errors are delivered to the SetOnError
// callback. Connection and health check errors are returned directly.
package influxdb
