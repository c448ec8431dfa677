package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// PollMeasurement is the measurement name for poll-cycle points.
const PollMeasurement = "beestat_poll"

// Poll outcome tag values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// PollSample describes one completed poll cycle. These are operational
// metrics about the poller, not sensor history.
type PollSample struct {
	// At is when the cycle finished.
	At time.Time

	Duration time.Duration

	// State is the coordinator state after the cycle (ready, unavailable, halted).
	State string

	// Trigger is what started the cycle (startup, tick, refresh, reconfigure).
	Trigger string

	Success             bool
	Available           bool
	Thermostats         int
	RemoteSensors       int
	NormalizationErrors int
}

// Outcome returns the outcome tag for the sample.
func (s PollSample) Outcome() string {
	if s.Success {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// NewPollPoint converts a sample into a beestat_poll point.
//
// Tags: outcome, state, trigger.
// Fields: duration_ms, thermostats, remote_sensors, normalization_errors, available.
func NewPollPoint(s PollSample) *write.Point {
	at := s.At
	if at.IsZero() {
		at = time.Now()
	}

	tags := map[string]string{
		"outcome": s.Outcome(),
		"state":   s.State,
	}
	if s.Trigger != "" {
		tags["trigger"] = s.Trigger
	}

	return write.NewPoint(
		PollMeasurement,
		tags,
		map[string]any{
			"duration_ms":          float64(s.Duration.Microseconds()) / 1000,
			"thermostats":          int64(s.Thermostats),
			"remote_sensors":       int64(s.RemoteSensors),
			"normalization_errors": int64(s.NormalizationErrors),
			"available":            s.Available,
		},
		at,
	)
}

// WritePoll queues one poll sample. It is a no-op when the client is
// closed or nil, so callers need not check whether metrics are enabled.
func (c *Client) WritePoll(s PollSample) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(NewPollPoint(s))
}
