// Package thermostat holds the canonical Beestat entity model and the
// normalizer that builds it from raw API payloads.
//
// # Model
//
// A Snapshot maps thermostat IDs to a Thermostat and its ordered
// RemoteSensors. Snapshots are immutable: every field is unexported and
// accessors return copies, so a published snapshot can be shared between
// goroutines without locking.
//
// Capability fields that not every thermostat has (CO2, VOC, air quality,
// HVAC mode, occupancy etc.) are carried as Optional values. An Optional is
// set if and only if the key was present in the source payload, which keeps
// "sensor not installed" distinct from "sensor reads zero".
//
// # Normalization
//
//	result, err := thermostat.Normalize(raw, time.Now())
//	if err != nil {
//	    // whole payload unusable (ErrMalformedPayload, ErrNoThermostats)
//	}
//	for _, nerr := range result.Errors {
//	    // one thermostat or sensor was skipped
//	}
//	snap := result.Snapshot
//
// Normalize is pure: identical input and fetch time always produce an
// identical snapshot.
package thermostat
