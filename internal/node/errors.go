package node

import "fmt"

// PostedError is the single most recent unconsumed failure recorded for a
// device. It is produced by the serializer's error channel and retrieved by
// polling, never raised across the worker boundary.
type PostedError struct {
	// Source is the action label (or component) that posted the error.
	Source string

	// Message describes the failure, including captured-output context for
	// match failures.
	Message string
}

func (e *PostedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Source, e.Message)
}
