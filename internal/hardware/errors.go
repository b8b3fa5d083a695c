package hardware

import "errors"

var (
	// ErrNotFound means no unclaimed module of the requested model exists.
	ErrNotFound = errors.New("hardware: no unclaimed module for model")

	// ErrAlreadyClaimed means the module is held by another owner.
	ErrAlreadyClaimed = errors.New("hardware: module already claimed")

	// ErrNotClaimed means a free was attempted on an unclaimed module.
	ErrNotClaimed = errors.New("hardware: module is not claimed")

	// ErrUnknownModule means the module does not belong to this registry.
	ErrUnknownModule = errors.New("hardware: module not found in registry")
)
