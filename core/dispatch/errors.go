package dispatch

import "errors"

var (
	// ErrNoMatch is reported when no free vehicle satisfies a request.
	ErrNoMatch = errors.New("no available vehicle matches the requirements")
	// ErrFleetSaturated is reported when every vehicle is reserved.
	ErrFleetSaturated = errors.New("all vehicles are busy")
	// ErrPlanningFailed is reported when the planner yields no usable path.
	ErrPlanningFailed = errors.New("path planning failed")
	// ErrEmptyBatch is reported for a batch without deliveries.
	ErrEmptyBatch = errors.New("batch has no deliveries")
	// ErrClosed is reported once the engine is shut down.
	ErrClosed = errors.New("engine closed")
)
