package node

import (
	"sync"
	"time"
)

// DefaultWaitTimeout bounds WaitForCompletion so a wedged device cannot
// hang a test run forever.
const DefaultWaitTimeout = 3 * time.Minute

// Logger defines the logging interface for the serializer and facade.
// The fifth level is used for harness-integrity events only.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Critical(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any)    {}
func (noopLogger) Info(string, ...any)     {}
func (noopLogger) Warn(string, ...any)     {}
func (noopLogger) Error(string, ...any)    {}
func (noopLogger) Critical(string, ...any) {}

// Serializer owns one device's ordered command queue and the single worker
// goroutine that drains it.
//
// Invariants:
//   - commands execute in strict FIFO submission order, one at a time
//   - the drained signal is clear whenever the queue is non-empty or an
//     item is mid-execution, and set only when both are false
//   - the first posted error wins until consumed; posting an error flushes
//     all pending items
//
// The worker runs for the lifetime of the process; there is no shutdown or
// join, matching the daemon-thread model the harness is built around.
type Serializer struct {
	name   string
	runner CommandRunner
	store  *Store

	mu      sync.Mutex
	queue   []*Command
	drained chan struct{} // closed while drained; re-armed on enqueue

	wake chan struct{} // worker wakeup, capacity 1

	// errSlot is the single-slot error holder. A second error posted while
	// one is pending is dropped loudly; the first remains authoritative.
	errSlot chan error

	waitTimeout time.Duration
	logger      Logger
}

// NewSerializer creates a serializer for one device and starts its worker.
// The name is used for logging only.
func NewSerializer(name string, runner CommandRunner, store *Store) *Serializer {
	drained := make(chan struct{})
	close(drained) // initially set: nothing queued, nothing executing

	s := &Serializer{
		name:        name,
		runner:      runner,
		store:       store,
		drained:     drained,
		wake:        make(chan struct{}, 1),
		errSlot:     make(chan error, 1),
		waitTimeout: DefaultWaitTimeout,
		logger:      noopLogger{},
	}

	go s.worker()

	return s
}

// SetLogger sets the logger for the serializer.
func (s *Serializer) SetLogger(logger Logger) {
	s.logger = logger
}

// SetWaitTimeout overrides the WaitForCompletion bound.
func (s *Serializer) SetWaitTimeout(d time.Duration) {
	s.waitTimeout = d
}

// Enqueue appends a command to the queue.
//
// The drained signal is cleared before the append, under the lock, so a
// racing waiter can never observe "drained" while an enqueue is in flight.
func (s *Serializer) Enqueue(c *Command) {
	s.logger.Info("enqueuing command", "node", s.name, "action", c.Action, "command", c.Cmd)

	s.mu.Lock()
	s.clearDrainedLocked()
	s.queue = append(s.queue, c)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}

	s.logger.Debug("message enqueued", "node", s.name, "action", c.Action)
}

// EnqueueCall appends a deferred function call. The callable runs on the
// worker after every previously enqueued command has fully executed; a
// non-nil return is posted through the error channel.
func (s *Serializer) EnqueueCall(action string, fn func() error) {
	s.logger.Info("enqueuing function call", "node", s.name, "action", action)

	s.Enqueue(&Command{Action: action, fn: fn})
}

// WaitForCompletion blocks until the queue is empty and no item is
// executing, bounded by the configured maximum. It then takes and clears
// any pending posted error and returns it, nil if none.
func (s *Serializer) WaitForCompletion() error {
	s.mu.Lock()
	drained := s.drained
	s.mu.Unlock()

	select {
	case <-drained:
	case <-time.After(s.waitTimeout):
		s.logger.Critical("did not get an all-clear before deadline",
			"node", s.name, "timeout", s.waitTimeout)
	}

	return s.TakeError()
}

// PostError records the first error for this device and flushes the queue.
// A second error posted before the first is consumed is dropped with a
// critical log entry; the queue is still flushed.
func (s *Serializer) PostError(source, message string) {
	err := &PostedError{Source: source, Message: message}
	s.logger.Error("posting error", "node", s.name, "source", source, "message", message)

	select {
	case s.errSlot <- err:
	default:
		s.logger.Critical("posted error dropped, slot already full",
			"node", s.name, "source", source, "message", message)
	}

	s.flush()
}

// InError reports whether an unconsumed error is pending.
func (s *Serializer) InError() bool {
	return len(s.errSlot) > 0
}

// TakeError removes and returns the pending posted error, nil if none.
func (s *Serializer) TakeError() error {
	select {
	case err := <-s.errSlot:
		return err
	default:
		return nil
	}
}

// flush discards all queued, not-yet-started items (fail-fast).
func (s *Serializer) flush() {
	s.mu.Lock()
	dropped := len(s.queue)
	s.queue = nil
	s.mu.Unlock()

	if dropped > 0 {
		s.logger.Warn("flushed pending commands", "node", s.name, "count", dropped)
	}
}

// worker is the single consumer goroutine. It drains the queue one item at
// a time, raising the drained signal whenever the queue is empty and
// nothing is executing.
func (s *Serializer) worker() {
	for {
		c := s.next()

		x := &execContext{
			runner:    s.runner,
			store:     s.store,
			logger:    s.logger,
			postError: s.PostError,
		}
		c.execute(x)
	}
}

// next blocks until a command is available. Before blocking it raises the
// drained signal, under the lock, so the set-when-drained transition cannot
// race an enqueue's clear.
func (s *Serializer) next() *Command {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			c := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return c
		}
		s.setDrainedLocked()
		s.mu.Unlock()

		<-s.wake
	}
}

// setDrainedLocked raises the drained signal. Caller holds s.mu.
func (s *Serializer) setDrainedLocked() {
	select {
	case <-s.drained:
		// already set
	default:
		s.logger.Debug("setting all-clear", "node", s.name)
		close(s.drained)
	}
}

// clearDrainedLocked lowers the drained signal. Caller holds s.mu.
func (s *Serializer) clearDrainedLocked() {
	select {
	case <-s.drained:
		s.drained = make(chan struct{})
	default:
		// already clear
	}
}
