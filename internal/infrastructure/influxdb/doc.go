// Package influxdb stores harness telemetry in InfluxDB v2: command
// durations per device, ping statistics between nodes, and Thread
// network state transitions over the course of a test run.
//
// Usage:
//
//	cfg := config.InfluxDBConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "your-token",
//	    Org:     "silk",
//	    Bucket:  "harness",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteCommandDuration("run-4cd1a8", "nrf-1", "form", elapsed, false)
//
// All methods are safe for concurrent use. Writes are non-blocking and
// batched per the configured batch_size and flush_interval; batch
// errors are delivered through the SetOnError callback rather than
// returned to callers.
package influxdb
