package node

import (
	"sync"
	"time"
)

// LiveCell is a store value that supports in-place update. A reference taken
// before the value is populated observes later updates without re-reading
// the store; writing to a field bound to a LiveCell updates the cell rather
// than rebinding the field.
//
// Cells also support blocking on a value: WaitFor wakes on every Set and
// checks a caller predicate, bounded by a deadline. The facade seeds cells
// for long-lived device state (network state, addresses) at construction.
type LiveCell struct {
	name string

	mu      sync.Mutex
	value   string
	changed chan struct{} // closed and re-armed on every Set

	logger Logger
}

// NewLiveCell creates an empty cell. The name is used for logging only.
func NewLiveCell(name string) *LiveCell {
	return &LiveCell{
		name:    name,
		changed: make(chan struct{}),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger used to report value changes.
func (c *LiveCell) SetLogger(logger Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

// Set replaces the cell's value in place and wakes all waiters, even when
// the value did not change.
func (c *LiveCell) Set(value string) {
	c.mu.Lock()
	modified := value != c.value
	c.value = value
	close(c.changed)
	c.changed = make(chan struct{})
	logger := c.logger
	c.mu.Unlock()

	if modified {
		logger.Debug("live cell modified", "name", c.name, "value", value)
	}
}

// Value returns the current value.
func (c *LiveCell) Value() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Name returns the cell's name.
func (c *LiveCell) Name() string {
	return c.name
}

// String returns the current value.
func (c *LiveCell) String() string {
	return c.Value()
}

// WaitFor blocks until the cell's value satisfies want or the timeout
// elapses. It returns true if the predicate was satisfied. The predicate is
// re-evaluated after every Set, including Sets that did not change the
// value.
func (c *LiveCell) WaitFor(want func(string) bool, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		c.mu.Lock()
		value, changed := c.value, c.changed
		c.mu.Unlock()

		if want(value) {
			return true
		}

		select {
		case <-changed:
		case <-deadline:
			return want(c.Value())
		}
	}
}
