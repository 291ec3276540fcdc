package task

import "errors"

// Gate refusals (spec.md §4.4's GATE_SINGLETON / GATE_CONFLICT), modeled
// as sentinel errors so callers can errors.Is against them instead of
// string-matching a result code.
var (
	ErrGateSingleton = errors.New("task: refused, singleton task already running")
	ErrGateConflict  = errors.New("task: refused, conflicting task is running")
	ErrTaskNotFound  = errors.New("task: not found")

	errEmptyCommand = errors.New("task: command vector is empty")
)
