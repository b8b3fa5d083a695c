package harness

import "errors"

// Sentinel errors for harness orchestration, checked with errors.Is.
var (
	// ErrNoRun indicates an operation that needs an active test run.
	ErrNoRun = errors.New("harness: no active run")

	// ErrRunActive indicates a run was started while one is in progress.
	ErrRunActive = errors.New("harness: run already active")

	// ErrUnknownBoard indicates a board name the harness is not managing.
	ErrUnknownBoard = errors.New("harness: unknown board")

	// ErrBoardExists indicates a board with that name is already managed.
	ErrBoardExists = errors.New("harness: board already acquired")
)
