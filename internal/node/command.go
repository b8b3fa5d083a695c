package node

import (
	"fmt"
	"strings"
	"time"

	"github.com/openthread/silk-go/internal/expect"
)

// CommandRunner abstracts the external process invoker. Implemented by
// shell.Runner; tests substitute fakes.
type CommandRunner interface {
	// Run executes command with the given timeout and returns the captured
	// combined output. A spawn failure returns a non-nil error; a timeout
	// returns partial output with a nil error.
	Run(action, command string, timeout time.Duration) (string, error)
}

// Command is one immutable unit of queued work for a device.
//
// The zero Cmd means no external call is made: the expected pattern is
// evaluated against empty text, which is useful for pure store writes and
// for validating state already captured. A deferred function variant,
// created through CallAsync, carries a callable instead.
type Command struct {
	// Action is a free-form label used for logging and error attribution.
	Action string

	// Cmd is the literal shell command text. Empty means no external call.
	Cmd string

	// Expect is the regular expression searched over the captured output.
	// Empty matches anything, disabling match-failure detection.
	Expect string

	// Timeout bounds the external call's wall-clock time.
	Timeout time.Duration

	// Field, when set, receives the entire matched substring (group 0).
	Field string

	// Fields, when set, names the ordered named-capture-group destinations;
	// each group's value is stored under its own name. Field takes
	// precedence when both are set.
	Fields []string

	// fn is the deferred-function variant. When non-nil the command makes
	// no external call and performs no matching.
	fn func() error
}

// execContext gives a dequeued command access to its device's
// collaborators. The serializer constructs one per item.
type execContext struct {
	runner    CommandRunner
	store     *Store
	logger    Logger
	postError func(source, message string)
}

// execute runs the command to a terminal state: completed, failed(response)
// or failed(match). Failures are posted through the error channel; nothing
// is raised.
func (c *Command) execute(x *execContext) {
	if c.fn != nil {
		if err := c.fn(); err != nil {
			x.postError(c.Action, err.Error())
		}
		return
	}

	x.logger.Debug("dequeuing command", "action", c.Action, "command", c.Cmd)

	var response string
	if c.Cmd != "" {
		out, err := x.runner.Run(c.Action, c.Cmd, c.Timeout)
		if err != nil {
			c.failResponse(x, err)
			return
		}
		response = out
	}

	result, err := expect.Search(c.Expect, response)
	if err != nil {
		c.failMatch(x, response)
		return
	}

	switch {
	case c.Field != "":
		x.store.Set(c.Field, result.Match)
	case len(c.Fields) > 0:
		for _, field := range c.Fields {
			x.store.Set(field, result.Groups[field])
		}
	}
}

// failResponse reports a command that never ran (spawn failure).
func (c *Command) failResponse(x *execContext, err error) {
	x.logger.Error("worker failed to execute command", "action", c.Action, "error", err)
	x.postError(c.Action, fmt.Sprintf("command %q not executed", c.Cmd))
}

// failMatch reports a command whose output did not contain the expected
// pattern, logging the full captured output line by line for diagnosis.
func (c *Command) failMatch(x *execContext, response string) {
	x.logger.Error("worker failed to match expected output",
		"action", c.Action, "expected", c.Expect)
	for _, line := range strings.Split(response, "\n") {
		x.logger.Error("[output] " + line)
	}
	x.postError(c.Action, fmt.Sprintf("%q not found for cmd: %s", c.Expect, c.Action))
}
