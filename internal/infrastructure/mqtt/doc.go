// Package mqtt publishes the harness event stream.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// The harness publishes device lifecycle events (errors, network state
// changes) and run events so dashboards and CI listeners can follow a
// test without tailing logs.
//
//	Harness → MQTT Broker → dashboards / CI listeners
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.NodeEvent("nrf-1", "error")
//	client.Publish(topic, []byte(`{"source":"join","message":"..."}`), 1, false)
package mqtt
