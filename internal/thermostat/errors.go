package thermostat

import (
	"errors"
	"fmt"
)

// Domain-specific errors for normalization.
var (
	// ErrMalformedPayload indicates the payload could not be decoded into
	// a list of thermostat records.
	ErrMalformedPayload = errors.New("thermostat: malformed payload")

	// ErrNoThermostats indicates the payload held no usable thermostat.
	ErrNoThermostats = errors.New("thermostat: no thermostats in payload")

	// ErrMissingField indicates a required field was absent or not coercible.
	ErrMissingField = errors.New("thermostat: missing required field")

	// ErrInvalidRecord indicates a record was not a JSON object.
	ErrInvalidRecord = errors.New("thermostat: record is not an object")

	// ErrDuplicateID indicates a record reused an id seen earlier in the
	// same payload. The first occurrence is kept.
	ErrDuplicateID = errors.New("thermostat: duplicate id")
)

// NormalizationError describes one record that was skipped.
//
// It is scoped to a single thermostat (SensorID empty) or a single remote
// sensor. ThermostatID may be empty when the record had no usable id, in
// which case Index locates it in the payload.
type NormalizationError struct {
	Index        int
	ThermostatID string
	SensorID     string
	Field        string
	Err          error
}

// Error implements the error interface.
func (e *NormalizationError) Error() string {
	scope := fmt.Sprintf("record %d", e.Index)
	if e.ThermostatID != "" {
		scope = "thermostat " + e.ThermostatID
	}
	if e.SensorID != "" {
		scope += " sensor " + e.SensorID
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %v: %s", scope, e.Err, e.Field)
	}
	return fmt.Sprintf("%s: %v", scope, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *NormalizationError) Unwrap() error {
	return e.Err
}
