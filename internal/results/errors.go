package results

import "errors"

var (
	// ErrRunNotFound means the run ID has no row in the archive.
	ErrRunNotFound = errors.New("results: run not found")

	// ErrRunFinished means a write targeted a run that has already been
	// closed out.
	ErrRunFinished = errors.New("results: run already finished")
)
