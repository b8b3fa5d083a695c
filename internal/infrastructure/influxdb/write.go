package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteCommandDuration records how long a queued command took on one
// device. The write is non-blocking; data is batched and sent
// asynchronously.
//
// Example:
//
//	client.WriteCommandDuration("run-4cd1a8", "nrf-1", "form", 1200*time.Millisecond, false)
func (c *Client) WriteCommandDuration(runID, device, action string, d time.Duration, failed bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"command_duration",
		map[string]string{
			"run_id": runID,
			"device": device,
			"action": action,
		},
		map[string]any{
			"duration_ms": float64(d.Milliseconds()),
			"failed":      failed,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePingStats records the outcome of an ICMPv6 ping burst between
// two devices. rttMs is the average round trip time; pass 0 when the
// ping was not timed.
func (c *Client) WritePingStats(runID, device, target string, sent, received int, rttMs float64) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]any{
		"sent":     sent,
		"received": received,
	}
	if rttMs > 0 {
		fields["rtt_avg_ms"] = rttMs
	}

	point := write.NewPoint(
		"ping6",
		map[string]string{
			"run_id": runID,
			"device": device,
			"target": target,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteNetworkState records a device's Thread network state transition.
// State is stored as a field rather than a tag to keep tag cardinality
// bounded.
func (c *Client) WriteNetworkState(runID, device, state string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"network_state",
		map[string]string{
			"run_id": runID,
			"device": device,
		},
		map[string]any{
			"state": state,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point for measurements the helpers do not
// cover. Tags index the point (keep cardinality low); fields carry the
// data.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with an explicit timestamp,
// for data recorded earlier than the write.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
