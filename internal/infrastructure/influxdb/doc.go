// Package influxdb provides the optional InfluxDB connection that records
// relay broadcasts (measurement relay_broadcast) and gate admissions
// (measurement gate_decision) as time series.
//
// Writes are non-blocking and batched by the official client. Nothing in
// the request path waits on InfluxDB.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without time series
//	}
//	defer client.Close()
//
//	client.WritePoint("relay_broadcast",
//	    map[string]string{"room": "contacts-room", "event": "created"},
//	    map[string]interface{}{"recipients": 2})
package influxdb
