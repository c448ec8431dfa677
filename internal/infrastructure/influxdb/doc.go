// Package influxdb records poll-cycle metrics in InfluxDB.
//
// Each completed poll becomes one beestat_poll point tagged with its
// outcome and coordinator state. Sensor readings themselves are not stored.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // metrics off
//	}
//	defer client.Close()
//
//	client.WritePoll(influxdb.PollSample{Success: true, Thermostats: 2})
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are batched according to
// batch_size and flush_interval and never block the poll loop.
package influxdb
