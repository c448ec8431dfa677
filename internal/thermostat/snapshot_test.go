package thermostat

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

const twoThermostats = `[
	{"id":"t1","name":"Main","temperature":70,"humidity":40,"co2":500,
	 "remoteSensors":[{"id":"r1","name":"Bed","temperature":68},{"id":"r2","name":"Den","temperature":69}]},
	{"id":"t2","name":"Up","temperature":71,"humidity":41}
]`

func TestSnapshot_NilIsEmptyAndUnavailable(t *testing.T) {
	var s *Snapshot
	if s.Available() {
		t.Error("nil Available() = true")
	}
	if s.Len() != 0 || s.SensorCount() != 0 {
		t.Error("nil snapshot should be empty")
	}
	if !s.LastSuccess().IsZero() {
		t.Error("nil LastSuccess() should be zero")
	}
	if _, ok := s.Thermostat("x"); ok {
		t.Error("nil Thermostat() found something")
	}

	u := s.WithAvailability(false)
	if u == nil || u.Available() || u.Len() != 0 {
		t.Errorf("WithAvailability on nil = %+v", u)
	}
}

func TestSnapshot_WithAvailabilityKeepsData(t *testing.T) {
	snap := mustNormalize(t, twoThermostats).Snapshot
	stale := snap.WithAvailability(false)

	if stale.Available() {
		t.Error("stale Available() = true")
	}
	if !snap.Available() {
		t.Error("original snapshot was modified")
	}
	if !reflect.DeepEqual(stale.Thermostats(), snap.Thermostats()) {
		t.Error("stale snapshot lost thermostat data")
	}
	if !stale.LastSuccess().Equal(snap.LastSuccess()) {
		t.Error("stale snapshot changed LastSuccess")
	}
}

func TestSnapshot_AccessorsReturnCopies(t *testing.T) {
	snap := mustNormalize(t, twoThermostats).Snapshot

	ids := snap.IDs()
	ids[0] = "mutated"
	if snap.IDs()[0] != "t1" {
		t.Error("IDs() exposed internal slice")
	}

	sensors := snap.RemoteSensors("t1")
	sensors[0].Name = "mutated"
	if rs, _ := snap.RemoteSensor("r1"); rs.Name != "Bed" {
		t.Error("RemoteSensors() exposed internal slice")
	}

	if snap.SensorCount() != 2 {
		t.Errorf("SensorCount() = %d, want 2", snap.SensorCount())
	}
}

func TestSnapshot_MarshalJSON(t *testing.T) {
	snap := mustNormalize(t, twoThermostats).Snapshot

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	out := string(data)

	for _, want := range []string{`"available":true`, `"co2":500`, `"remote_sensors":[]`, `"parent_thermostat_id":"t1"`} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON missing %s: %s", want, out)
		}
	}
	if strings.Contains(out, `"voc"`) {
		t.Errorf("absent voc was encoded: %s", out)
	}
	if strings.Index(out, `"t1"`) > strings.Index(out, `"t2"`) {
		t.Errorf("thermostats out of payload order: %s", out)
	}
}
