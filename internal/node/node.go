package node

import "time"

// Node is the externally visible device object: one managed hardware
// endpoint under test. It composes the keyed data store and the per-device
// command serializer, and is what test code and the collaborators (hardware
// registry, netns controller, CLI builders) interact with.
//
// A Node never raises on command failures. Failures are posted to the
// error slot and retrieved by polling; turning a non-nil error into a test
// failure is the caller's decision.
type Node struct {
	name       string
	store      *Store
	serializer *Serializer
	logger     Logger
}

// New creates a device facade with its own store and serializer. The
// serializer's worker starts immediately and runs for the process lifetime.
func New(name string, runner CommandRunner) *Node {
	store := NewStore()
	return &Node{
		name:       name,
		store:      store,
		serializer: NewSerializer(name, runner, store),
		logger:     noopLogger{},
	}
}

// Name returns the device's unique identifier.
func (n *Node) Name() string {
	return n.name
}

// SetLogger sets the logger for the facade and its serializer.
func (n *Node) SetLogger(logger Logger) {
	n.logger = logger
	n.serializer.SetLogger(logger)
}

// SetWaitTimeout overrides the WaitForCompletion bound.
func (n *Node) SetWaitTimeout(d time.Duration) {
	n.serializer.SetWaitTimeout(d)
}

// ExecAsync enqueues one command for the device. The command is copied, so
// callers cannot mutate it after submission.
func (n *Node) ExecAsync(cmd Command) {
	n.serializer.Enqueue(&cmd)
}

// CallAsync enqueues a deferred function call. It runs on the worker after
// every previously enqueued command has fully executed, including its store
// writes.
func (n *Node) CallAsync(action string, fn func() error) {
	n.serializer.EnqueueCall(action, fn)
}

// WaitForCompletion blocks until the device's queue is drained (bounded),
// then returns and clears any posted error.
func (n *Node) WaitForCompletion() error {
	return n.serializer.WaitForCompletion()
}

// InError reports whether an unconsumed posted error is pending, without
// blocking or consuming it.
func (n *Node) InError() bool {
	return n.serializer.InError()
}

// TakeError removes and returns the pending posted error, nil if none.
func (n *Node) TakeError() error {
	return n.serializer.TakeError()
}

// PostError records a failure for this device through the error channel.
func (n *Node) PostError(source, message string) {
	n.serializer.PostError(source, message)
}

// StoreData writes value under field. String values are trimmed; a field
// holding a live cell is updated in place.
func (n *Node) StoreData(value any, field string) {
	n.store.Set(field, value)
}

// Data reads field with an optional converter; conversion failure yields
// def rather than an error.
func (n *Node) Data(field string, conv Converter, def any) any {
	return n.store.Data(field, conv, def)
}

// DataString reads field as a string, reading through live cells.
func (n *Node) DataString(field, def string) string {
	return n.store.DataString(field, def)
}

// Cell returns the live cell bound to field, nil if the field is absent or
// holds a plain value.
func (n *Node) Cell(field string) *LiveCell {
	v, ok := n.store.Get(field)
	if !ok {
		return nil
	}
	cell, _ := v.(*LiveCell)
	return cell
}

// ClearStore drops all stored fields. Called on state resets such as
// leaving a network.
func (n *Node) ClearStore() {
	n.logger.Debug("clearing data store", "node", n.name)
	n.store.Clear()
}
