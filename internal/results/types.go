package results

import "time"

// Outcome classifies a finished test run.
type Outcome string

const (
	OutcomeRunning Outcome = "running"
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
)

// Run is one execution of a test scenario across a set of devices.
type Run struct {
	// ID is a UUID assigned when the run starts.
	ID string

	// HarnessID identifies the host that executed the run.
	HarnessID string

	Name       string
	StartedAt  time.Time
	FinishedAt *time.Time
	Outcome    Outcome
}

// CommandRecord is the archived outcome of one queued device command.
type CommandRecord struct {
	ID       int64
	RunID    string
	Device   string
	Action   string
	Command  string
	Output   string
	Error    string
	Duration time.Duration

	RecordedAt time.Time
}
