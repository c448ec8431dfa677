package entry

import "errors"

// Sentinel errors for config entry operations.
var (
	// ErrEntryNotFound is returned when no entry has been stored yet.
	ErrEntryNotFound = errors.New("entry: not found")

	// ErrEmptyAPIKey is returned when an entry would be stored without a key.
	ErrEmptyAPIKey = errors.New("entry: api key is required")

	// ErrInvalidInterval is returned for an update interval below the minimum.
	ErrInvalidInterval = errors.New("entry: update interval must be at least 1 minute")
)
