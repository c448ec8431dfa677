package influxdb

import (
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

func TestNewPollPoint(t *testing.T) {
	at := time.Unix(1700000000, 0)
	p := NewPollPoint(PollSample{
		At:                  at,
		Duration:            250 * time.Millisecond,
		State:               "unavailable",
		Success:             false,
		Available:           false,
		Thermostats:         1,
		NormalizationErrors: 2,
	})

	if p.Name() != PollMeasurement {
		t.Errorf("Name() = %q, want %q", p.Name(), PollMeasurement)
	}
	if !p.Time().Equal(at) {
		t.Errorf("Time() = %v, want %v", p.Time(), at)
	}

	line := write.PointToLineProtocol(p, time.Second)
	for _, want := range []string{
		"beestat_poll,outcome=failure,state=unavailable ",
		"duration_ms=250",
		"normalization_errors=2i",
		"available=false",
		" 1700000000",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
	if strings.Contains(line, "trigger=") {
		t.Errorf("empty trigger should not be tagged: %q", line)
	}
}

func TestPollSample_Outcome(t *testing.T) {
	if got := (PollSample{Success: true}).Outcome(); got != OutcomeSuccess {
		t.Errorf("Outcome() = %q", got)
	}
	if got := (PollSample{}).Outcome(); got != OutcomeFailure {
		t.Errorf("Outcome() = %q", got)
	}
}

func TestNewPollPoint_DefaultsTime(t *testing.T) {
	before := time.Now()
	p := NewPollPoint(PollSample{})
	if p.Time().Before(before) {
		t.Errorf("Time() = %v, want now", p.Time())
	}
}
