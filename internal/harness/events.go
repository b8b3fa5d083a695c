package harness

import (
	"context"
	"encoding/json"
	"time"

	"github.com/openthread/silk-go/internal/infrastructure/mqtt"
	"github.com/openthread/silk-go/internal/results"
	"github.com/openthread/silk-go/internal/wpan"
)

// EventPublisher is the slice of the MQTT client the harness uses.
// Satisfied by mqtt.Client.
type EventPublisher interface {
	PublishString(topic string, payload string, qos byte, retained bool) error
}

// TelemetryWriter is the slice of the InfluxDB client the harness uses.
// Satisfied by influxdb.Client.
type TelemetryWriter interface {
	WriteCommandDuration(runID, device, action string, d time.Duration, failed bool)
	WriteNetworkState(runID, device, state string)
}

// eventQoS is at-least-once; the stream drives dashboards and CI
// listeners, duplicates are harmless and drops are not.
const eventQoS = 1

type runEventPayload struct {
	RunID     string `json:"run_id"`
	HarnessID string `json:"harness_id"`
	Name      string `json:"name"`
	Outcome   string `json:"outcome,omitempty"`
	Timestamp string `json:"timestamp"`
}

type nodeEventPayload struct {
	Device     string `json:"device"`
	RunID      string `json:"run_id,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	Timestamp  string `json:"timestamp"`
}

func (h *Harness) publishRunEvent(run *results.Run, event string) {
	if h.events == nil {
		return
	}

	payload, err := json.Marshal(runEventPayload{
		RunID:     run.ID,
		HarnessID: run.HarnessID,
		Name:      run.Name,
		Outcome:   outcomeForEvent(run, event),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}

	topic := mqtt.Topics{}.RunEvent(run.ID, event)
	if err := h.events.PublishString(topic, string(payload), eventQoS, false); err != nil {
		h.logger.Warn("publishing run event", "topic", topic, "error", err)
	}
}

func outcomeForEvent(run *results.Run, event string) string {
	if event != "finished" {
		return ""
	}
	return string(run.Outcome)
}

// recordWait fans one device's drain outcome out to the repository, the
// event stream and telemetry. Recording failures are logged, never
// returned; the device error stays authoritative.
func (h *Harness) recordWait(ctx context.Context, b *wpan.DevBoard, d time.Duration, waitErr error) {
	run := h.Run()

	errText := ""
	event := "executed"
	if waitErr != nil {
		errText = waitErr.Error()
		event = "error"
	}

	if h.repo != nil && run != nil {
		rec := &results.CommandRecord{
			RunID:    run.ID,
			Device:   b.Name(),
			Action:   "wait",
			Error:    errText,
			Duration: d,
		}
		if err := h.repo.RecordCommand(ctx, rec); err != nil {
			h.logger.Error("recording device outcome", "device", b.Name(), "error", err)
		}
	}

	if h.events != nil {
		payload, err := json.Marshal(nodeEventPayload{
			Device:     b.Name(),
			RunID:      runID(run),
			Error:      errText,
			DurationMS: d.Milliseconds(),
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		})
		if err == nil {
			topic := mqtt.Topics{}.NodeEvent(b.Name(), event)
			if err := h.events.PublishString(topic, string(payload), eventQoS, false); err != nil {
				h.logger.Warn("publishing node event", "topic", topic, "error", err)
			}
		}
	}

	if h.telemetry != nil {
		h.telemetry.WriteCommandDuration(runID(run), b.Name(), "wait", d, waitErr != nil)
	}
}

// PublishNetworkStates publishes every board's current Thread network
// state, retained so late subscribers see the last value, and records
// the state in telemetry.
func (h *Harness) PublishNetworkStates() {
	run := h.Run()

	for _, b := range h.Boards() {
		state := b.DataString(wpan.LabelNetworkState, "")
		if state == "" {
			continue
		}

		if h.events != nil {
			topic := mqtt.Topics{}.NodeState(b.Name())
			if err := h.events.PublishString(topic, state, eventQoS, true); err != nil {
				h.logger.Warn("publishing node state", "topic", topic, "error", err)
			}
		}
		if h.telemetry != nil {
			h.telemetry.WriteNetworkState(runID(run), b.Name(), state)
		}
	}
}

func runID(run *results.Run) string {
	if run == nil {
		return ""
	}
	return run.ID
}
