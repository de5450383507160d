package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when the scheduler configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrUnknownFlow is returned when no runner is registered for a flow
	ErrUnknownFlow = errors.New("unknown sync flow")

	// ErrFlowAlreadyRunning is returned when a run for the same flow is still in progress
	ErrFlowAlreadyRunning = errors.New("sync flow is already running")
)
