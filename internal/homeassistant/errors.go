package homeassistant

import "errors"

// Domain errors for the Home Assistant publisher.
var (
	// ErrNoClient is returned by New when Options.Client is nil.
	ErrNoClient = errors.New("homeassistant: mqtt client is required")
)
