package thermostat

import (
	"encoding/json"
	"time"
)

// Snapshot is an immutable point-in-time view of all known thermostats and
// their remote sensors.
//
// A nil *Snapshot is valid and behaves as an empty, unavailable snapshot.
//
// Thread Safety:
//   - Snapshots are never mutated after construction. All methods are safe
//     for concurrent use without locking.
type Snapshot struct {
	order       []string
	entries     map[string]entry
	available   bool
	lastSuccess time.Time
}

type entry struct {
	thermostat Thermostat
	sensors    []RemoteSensor
}

// Unavailable returns an empty snapshot flagged unavailable. It stands in
// for the cache when a fetch fails before any fetch has succeeded.
func Unavailable() *Snapshot {
	return &Snapshot{entries: map[string]entry{}}
}

// newSnapshot starts an available snapshot fetched at fetchedAt.
func newSnapshot(fetchedAt time.Time) *Snapshot {
	return &Snapshot{
		entries:     make(map[string]entry),
		available:   true,
		lastSuccess: fetchedAt,
	}
}

// add appends a thermostat. Only used while building.
func (s *Snapshot) add(t Thermostat, sensors []RemoteSensor) {
	s.order = append(s.order, t.ID)
	s.entries[t.ID] = entry{thermostat: t, sensors: sensors}
}

// has reports whether a thermostat ID is present. Only used while building.
func (s *Snapshot) has(id string) bool {
	_, ok := s.entries[id]
	return ok
}

// WithAvailability returns a copy of the snapshot with the availability flag
// set. The thermostat data is shared, which is safe because neither snapshot
// ever mutates it.
func (s *Snapshot) WithAvailability(available bool) *Snapshot {
	if s == nil {
		u := Unavailable()
		u.available = available
		return u
	}
	return &Snapshot{
		order:       s.order,
		entries:     s.entries,
		available:   available,
		lastSuccess: s.lastSuccess,
	}
}

// Available reports whether the most recent fetch succeeded.
func (s *Snapshot) Available() bool {
	return s != nil && s.available
}

// LastSuccess returns the time of the last successful fetch, or the zero
// time if none has succeeded.
func (s *Snapshot) LastSuccess() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.lastSuccess
}

// Len returns the number of thermostats.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// IDs returns thermostat IDs in payload order.
func (s *Snapshot) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Thermostat looks up a thermostat by ID.
func (s *Snapshot) Thermostat(id string) (Thermostat, bool) {
	if s == nil {
		return Thermostat{}, false
	}
	e, ok := s.entries[id]
	return e.thermostat, ok
}

// Thermostats returns all thermostats in payload order.
func (s *Snapshot) Thermostats() []Thermostat {
	if s == nil {
		return nil
	}
	out := make([]Thermostat, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id].thermostat)
	}
	return out
}

// RemoteSensors returns the remote sensors of one thermostat in payload
// order. The slice is a copy.
func (s *Snapshot) RemoteSensors(thermostatID string) []RemoteSensor {
	if s == nil {
		return nil
	}
	e, ok := s.entries[thermostatID]
	if !ok || len(e.sensors) == 0 {
		return nil
	}
	out := make([]RemoteSensor, len(e.sensors))
	copy(out, e.sensors)
	return out
}

// RemoteSensor looks up a remote sensor by ID across all thermostats.
func (s *Snapshot) RemoteSensor(id string) (RemoteSensor, bool) {
	if s == nil {
		return RemoteSensor{}, false
	}
	for _, tid := range s.order {
		for _, rs := range s.entries[tid].sensors {
			if rs.ID == id {
				return rs, true
			}
		}
	}
	return RemoteSensor{}, false
}

// SensorCount returns the total number of remote sensors.
func (s *Snapshot) SensorCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, e := range s.entries {
		n += len(e.sensors)
	}
	return n
}

// thermostatView is the JSON shape of one thermostat with its sensors.
type thermostatView struct {
	Thermostat
	RemoteSensors []RemoteSensor `json:"remote_sensors"`
}

// snapshotView is the JSON shape of a snapshot.
type snapshotView struct {
	Available   bool             `json:"available"`
	LastSuccess *time.Time       `json:"last_success"`
	Thermostats []thermostatView `json:"thermostats"`
}

// MarshalJSON encodes the snapshot with thermostats in payload order and
// absent capability fields omitted.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	v := snapshotView{
		Available:   s.Available(),
		Thermostats: make([]thermostatView, 0, s.Len()),
	}
	if ts := s.LastSuccess(); !ts.IsZero() {
		v.LastSuccess = &ts
	}
	for _, t := range s.Thermostats() {
		sensors := s.RemoteSensors(t.ID)
		if sensors == nil {
			sensors = []RemoteSensor{}
		}
		v.Thermostats = append(v.Thermostats, thermostatView{Thermostat: t, RemoteSensors: sensors})
	}
	return json.Marshal(v)
}
