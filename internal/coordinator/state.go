package coordinator

import (
	"time"

	"github.com/nerrad567/beestat-bridge/internal/thermostat"
)

// State is the coordinator's position in its poll cycle.
type State int32

const (
	// StateIdle is the initial state: nothing fetched yet.
	StateIdle State = iota

	// StateFetching means a fetch is in flight.
	StateFetching

	// StateReady means the last fetch succeeded.
	StateReady

	// StateUnavailable means the last fetch failed. The previous snapshot,
	// if any, is retained and flagged unavailable.
	StateUnavailable

	// StateHalted means the API key was rejected. No further fetches run
	// until Reconfigure.
	StateHalted
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateReady:
		return "ready"
	case StateUnavailable:
		return "unavailable"
	case StateHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Trigger records what started a fetch.
type Trigger string

// Fetch triggers.
const (
	TriggerStartup     Trigger = "startup"
	TriggerTick        Trigger = "tick"
	TriggerRefresh     Trigger = "refresh"
	TriggerReconfigure Trigger = "reconfigure"
)

// Update is delivered to subscribers once per completed fetch attempt.
type Update struct {
	// Snapshot is the cached snapshot after the attempt. On failure it is
	// the previous snapshot flagged unavailable, or an empty unavailable
	// snapshot if none was ever fetched. Never nil.
	Snapshot *thermostat.Snapshot

	// State is the state entered after the attempt.
	State State

	// Err is the fetch or normalization failure, nil on success.
	Err error

	// Diagnostics lists records the normalizer skipped.
	Diagnostics []*thermostat.NormalizationError

	// Changes lists entities that differ from the previous snapshot.
	// Empty on failure.
	Changes thermostat.Changes

	Trigger  Trigger
	At       time.Time
	Duration time.Duration
}

// Available reports whether the attempt succeeded.
func (u Update) Available() bool {
	return u.Snapshot.Available()
}

// Status is a point-in-time summary for health endpoints.
type Status struct {
	State       State         `json:"state"`
	Available   bool          `json:"available"`
	LastSuccess time.Time     `json:"last_success,omitzero"`
	LastAttempt time.Time     `json:"last_attempt,omitzero"`
	Interval    time.Duration `json:"-"`
	Thermostats int           `json:"thermostats"`
	Error       string        `json:"error,omitempty"`

	IntervalMinutes int `json:"update_interval_minutes"`
}
