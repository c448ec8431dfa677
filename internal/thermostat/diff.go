package thermostat

// Changes lists entity IDs that differ between two snapshots.
// Each list follows the order of the snapshot it was taken from: Added and
// Updated follow next, Removed follows prev.
type Changes struct {
	AddedThermostats   []string `json:"added_thermostats,omitempty"`
	RemovedThermostats []string `json:"removed_thermostats,omitempty"`
	UpdatedThermostats []string `json:"updated_thermostats,omitempty"`

	AddedSensors   []string `json:"added_sensors,omitempty"`
	RemovedSensors []string `json:"removed_sensors,omitempty"`
	UpdatedSensors []string `json:"updated_sensors,omitempty"`
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.AddedThermostats) == 0 && len(c.RemovedThermostats) == 0 &&
		len(c.UpdatedThermostats) == 0 && len(c.AddedSensors) == 0 &&
		len(c.RemovedSensors) == 0 && len(c.UpdatedSensors) == 0
}

// Diff compares entity values of prev and next. Availability and fetch time
// are not compared. Either snapshot may be nil.
func Diff(prev, next *Snapshot) Changes {
	var c Changes

	for _, t := range next.Thermostats() {
		old, ok := prev.Thermostat(t.ID)
		switch {
		case !ok:
			c.AddedThermostats = append(c.AddedThermostats, t.ID)
		case old != t:
			c.UpdatedThermostats = append(c.UpdatedThermostats, t.ID)
		}
	}
	for _, id := range prev.IDs() {
		if _, ok := next.Thermostat(id); !ok {
			c.RemovedThermostats = append(c.RemovedThermostats, id)
		}
	}

	prevSensors := sensorIndex(prev)
	nextSensors := sensorIndex(next)
	for _, rs := range allSensors(next) {
		old, ok := prevSensors[rs.ID]
		switch {
		case !ok:
			c.AddedSensors = append(c.AddedSensors, rs.ID)
		case old != rs:
			c.UpdatedSensors = append(c.UpdatedSensors, rs.ID)
		}
	}
	for _, rs := range allSensors(prev) {
		if _, ok := nextSensors[rs.ID]; !ok {
			c.RemovedSensors = append(c.RemovedSensors, rs.ID)
		}
	}

	return c
}

func allSensors(s *Snapshot) []RemoteSensor {
	var out []RemoteSensor
	for _, id := range s.IDs() {
		out = append(out, s.RemoteSensors(id)...)
	}
	return out
}

func sensorIndex(s *Snapshot) map[string]RemoteSensor {
	idx := make(map[string]RemoteSensor)
	for _, rs := range allSensors(s) {
		idx[rs.ID] = rs
	}
	return idx
}
