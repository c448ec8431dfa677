package coordinator

import "errors"

// Domain-specific errors for the update coordinator.
var (
	// ErrIntervalTooShort is returned for poll intervals below MinInterval.
	ErrIntervalTooShort = errors.New("coordinator: interval below minimum")

	// ErrNoClient is returned by New and Reconfigure without a client.
	ErrNoClient = errors.New("coordinator: client is required")

	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("coordinator: already started")

	// ErrNotRunning is returned by Reconfigure before Start or after Stop.
	ErrNotRunning = errors.New("coordinator: not running")

	// ErrHalted wraps the authentication failure that halted polling.
	ErrHalted = errors.New("coordinator: polling halted")
)
