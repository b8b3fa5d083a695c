// Package node implements the per-device command serialization core of the
// Silk harness.
//
// Every managed device accepts a stream of shell/control commands from
// multiple logical call sites. This package serializes them onto a single
// worker goroutine per device, enforces per-command timeouts, extracts
// expected response patterns from freeform output, stores captured fields
// into a per-device key/value store, and signals batch completion or the
// first error to callers blocked on it.
//
// # Architecture
//
//	┌───────────────────────────────────────────────────────────────┐
//	│                           Node (facade)                        │
//	│                                                                │
//	│  ┌──────────────┐   ┌───────────────────┐   ┌──────────────┐  │
//	│  │    Store     │   │    Serializer     │   │   Command    │  │
//	│  │  (store.go)  │◀──│  (serializer.go)  │──▶│ (command.go) │  │
//	│  │              │   │                   │   │              │  │
//	│  │ • fields     │   │ • FIFO queue      │   │ • run shell  │  │
//	│  │ • live cells │   │ • one worker      │   │ • match      │  │
//	│  │ • converters │   │ • drained signal  │   │ • store      │  │
//	│  └──────────────┘   │ • error slot (1)  │   └──────────────┘  │
//	│                     └───────────────────┘                     │
//	└───────────────────────────────│───────────────────────────────┘
//	                                │
//	                                ▼
//	                     shell.Runner (CommandRunner)
//
// # Concurrency Model
//
// One worker goroutine per device; at most one external command in flight
// per device at any time. Devices are fully independent: tests orchestrate
// many nodes concurrently with no cross-device locks. The store's single
// mutex covers the worker's writes and foreign reads, including in-place
// live-cell updates.
//
// # Error Model
//
// The worker never panics or raises across goroutines. Failures become the
// device's single posted error (first wins, queue flushed); callers drain
// it via WaitForCompletion or TakeError. A second failure arriving before
// the first is consumed is dropped with a critical log entry.
//
// # Usage
//
//	runner := shell.NewRunner("/bin/sh")
//	dev := node.New("ot-ncp-01", runner)
//	dev.SetLogger(log)
//
//	dev.ExecAsync(node.Command{
//	    Action:  "status",
//	    Cmd:     "wpanctl -I wpan0 status",
//	    Expect:  `state: (?P<state>\w+)`,
//	    Timeout: 5 * time.Second,
//	    Fields:  []string{"state"},
//	})
//	if err := dev.WaitForCompletion(); err != nil {
//	    // the command failed; err carries the action and diagnosis
//	}
package node
