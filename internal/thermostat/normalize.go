package thermostat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Result is the outcome of a successful normalization.
type Result struct {
	// Snapshot holds every thermostat that passed validation. Never nil
	// when Normalize returns a nil error.
	Snapshot *Snapshot

	// Errors lists records that were skipped. A non-empty list alongside
	// a nil error means the snapshot is partial.
	Errors []*NormalizationError
}

// wrapperKeys are the object keys that may hold the thermostat list.
var wrapperKeys = []string{"thermostats", "thermostat", "data", "items"}

// remoteSensorKeys are the thermostat keys that may hold remote sensors.
var remoteSensorKeys = []string{
	"remoteSensors", "remote_sensors", "remoteSensor", "remote_sensor",
	"sensors", "roomSensors", "rooms",
}

// record is one candidate thermostat record.
type record struct {
	index int
	key   string // map key when the payload is keyed by id
	value any
}

// Normalize converts the data member of a thermostat.read response into a
// Snapshot fetched at fetchedAt.
//
// Records missing a required field (id, name, temperature, humidity) are
// excluded and reported in Result.Errors; normalization continues with the
// remaining records.
//
// Returns:
//   - ErrMalformedPayload if raw is not JSON or has no recognizable
//     thermostat container
//   - ErrNoThermostats if no record survived
func Normalize(raw json.RawMessage, fetchedAt time.Time) (Result, error) {
	records, err := decodeRecords(raw)
	if err != nil {
		return Result{}, err
	}

	var (
		snap        = newSnapshot(fetchedAt)
		diags       []*NormalizationError
		seenSensors = make(map[string]bool)
	)

	for _, rec := range records {
		obj, ok := rec.value.(object)
		if !ok {
			diags = append(diags, &NormalizationError{Index: rec.index, ThermostatID: rec.key, Err: ErrInvalidRecord})
			continue
		}

		t, nerr := buildThermostat(rec, obj)
		if nerr != nil {
			diags = append(diags, nerr)
			continue
		}
		if snap.has(t.ID) {
			diags = append(diags, &NormalizationError{Index: rec.index, ThermostatID: t.ID, Field: "id", Err: ErrDuplicateID})
			continue
		}

		own, others := splitSensors(obj)
		if own != nil {
			t.Occupancy = optBool(sensorOccupancy(own))
		}

		var sensors []RemoteSensor
		for _, so := range others {
			rs, nerr := buildRemoteSensor(rec.index, t.ID, so)
			if nerr != nil {
				diags = append(diags, nerr)
				continue
			}
			if seenSensors[rs.ID] {
				diags = append(diags, &NormalizationError{
					Index: rec.index, ThermostatID: t.ID, SensorID: rs.ID, Field: "id", Err: ErrDuplicateID,
				})
				continue
			}
			seenSensors[rs.ID] = true
			sensors = append(sensors, rs)
		}

		snap.add(t, sensors)
	}

	if snap.Len() == 0 {
		if len(records) == 0 {
			return Result{}, ErrNoThermostats
		}
		return Result{Errors: diags}, fmt.Errorf("%w: all %d records rejected", ErrNoThermostats, len(records))
	}

	return Result{Snapshot: snap, Errors: diags}, nil
}

// decodeRecords locates the thermostat records in the payload.
func decodeRecords(raw json.RawMessage) ([]record, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	switch c := v.(type) {
	case []any:
		return listRecords(c), nil
	case object:
		for _, k := range wrapperKeys {
			switch inner := c[k].(type) {
			case []any:
				return listRecords(inner), nil
			case object:
				if allObjects(inner) {
					return keyedRecords(inner), nil
				}
			}
		}
		if allObjects(c) {
			return keyedRecords(c), nil
		}
		return nil, fmt.Errorf("%w: object is neither a thermostat list nor keyed by id", ErrMalformedPayload)
	default:
		return nil, fmt.Errorf("%w: unexpected JSON %T", ErrMalformedPayload, v)
	}
}

func listRecords(items []any) []record {
	out := make([]record, 0, len(items))
	for i, item := range items {
		out = append(out, record{index: i, value: item})
	}
	return out
}

func keyedRecords(m object) []record {
	keys := sortedKeys(m)
	out := make([]record, 0, len(keys))
	for i, k := range keys {
		out = append(out, record{index: i, key: k, value: m[k]})
	}
	return out
}

// allObjects reports whether every value of m is an object.
func allObjects(m object) bool {
	for _, v := range m {
		if _, ok := v.(object); !ok {
			return false
		}
	}
	return true
}

func sortedKeys(m object) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// buildThermostat extracts the required and capability fields of one record.
func buildThermostat(rec record, t object) (Thermostat, *NormalizationError) {
	id, ok := toText(firstValue(t, "id", "thermostat_id", "identifier", "uuid"))
	if !ok && rec.key != "" {
		id, ok = rec.key, true
	}
	if !ok {
		return Thermostat{}, &NormalizationError{Index: rec.index, Field: "id", Err: ErrMissingField}
	}

	missing := func(field string) *NormalizationError {
		return &NormalizationError{Index: rec.index, ThermostatID: id, Field: field, Err: ErrMissingField}
	}

	name, ok := toText(firstValue(t, "name", "thermostat_name", "label"))
	if !ok {
		return Thermostat{}, missing("name")
	}
	temp, ok := toNumber(firstValue(t, "temperature", "temp", "current_temperature"))
	if !ok {
		return Thermostat{}, missing("temperature")
	}
	hum, ok := toNumber(firstValue(t, "humidity", "current_humidity"))
	if !ok {
		return Thermostat{}, missing("humidity")
	}

	out := Thermostat{
		ID:          id,
		Name:        name,
		Temperature: temp,
		Humidity:    hum,
		HVACMode:    optText(orNested(firstValue(t, "hvac_mode", "mode", "hvacMode", "thermostat_mode"), t, "runtime", "hvacMode")),
		HVACState: optText(orNested(
			firstValue(t, "hvac_state", "hvacState", "equipmentStatus", "equipment_status", "state"),
			t, "runtime", "equipmentStatus")),
		CO2:                optNumber(airQualityValue(t, "actualCO2", "co2", "CO2", "co2_ppm", "air_quality_co2")),
		VOC:                optNumber(airQualityValue(t, "actualVOC", "voc", "VOC", "voc_ppb", "air_quality_voc")),
		AirQualityScore:    optNumber(airQualityValue(t, "actualAQScore", "aq_score", "aqScore", "air_quality_score", "AQScore")),
		AirQualityAccuracy: optNumber(airQualityValue(t, "actualAQAccuracy", "aq_accuracy", "aqAccuracy", "air_quality_accuracy", "AQAccuracy")),
		Model:              optText(firstValue(t, "model", "thermostat_model")),
	}
	return out, nil
}

// orNested returns v, or the value at path when v is null.
func orNested(v any, m object, path ...string) any {
	if v != nil {
		return v
	}
	return nestedValue(m, path)
}

// splitSensors separates the thermostat's own sensor entry (type
// "thermostat") from its remote sensors.
func splitSensors(t object) (own object, remotes []object) {
	for _, k := range remoteSensorKeys {
		for _, s := range sensorObjects(t[k]) {
			kind, _ := toText(s["type"])
			if strings.EqualFold(kind, "thermostat") {
				if own == nil {
					own = s
				}
				continue
			}
			remotes = append(remotes, s)
		}
	}
	return own, remotes
}

// sensorObjects flattens the accepted remote sensor container shapes.
func sensorObjects(v any) []object {
	var out []object
	switch c := v.(type) {
	case []any:
		for _, item := range c {
			if o, ok := item.(object); ok {
				out = append(out, o)
			}
		}
	case object:
		for _, k := range []string{"sensors", "items"} {
			if list, ok := c[k].([]any); ok {
				return sensorObjects(list)
			}
		}
		if allObjects(c) {
			for _, k := range sortedKeys(c) {
				out = append(out, c[k].(object))
			}
		}
	}
	return out
}

func sensorOccupancy(s object) any {
	return sensorValue(s,
		[]string{"occupancy", "presence", "occupied"},
		[][]string{{"data", "occupancy"}, {"data", "presence"}},
		"occupancy", "presence", "occupied")
}

// buildRemoteSensor extracts one remote sensor of thermostat tid.
func buildRemoteSensor(index int, tid string, s object) (RemoteSensor, *NormalizationError) {
	name, ok := toText(firstValue(s, "name", "sensorName", "label", "room", "displayName"))
	if !ok {
		name = "Remote Sensor"
	}
	id, ok := toText(firstValue(s, "id", "sensor_id", "identifier", "uuid", "remoteSensorId"))
	if !ok {
		id = tid + "_" + name
	}

	temp, ok := toNumber(sensorValue(s,
		[]string{"temperature", "temp", "current_temperature"},
		[][]string{{"data", "temperature"}, {"runtime", "temperature"}},
		"temperature", "temp"))
	if !ok {
		return RemoteSensor{}, &NormalizationError{
			Index: index, ThermostatID: tid, SensorID: id, Field: "temperature", Err: ErrMissingField,
		}
	}

	return RemoteSensor{
		ID:                 id,
		ParentThermostatID: tid,
		Name:               name,
		Temperature:        temp,
		Humidity: optNumber(sensorValue(s,
			[]string{"humidity", "current_humidity"},
			[][]string{{"data", "humidity"}, {"runtime", "humidity"}},
			"humidity")),
		Occupancy: optBool(sensorOccupancy(s)),
		InUse: optBool(sensorValue(s,
			[]string{"in_use", "inUse"},
			[][]string{{"data", "in_use"}, {"data", "inUse"}},
			"in_use", "inuse")),
		Type: optText(firstValue(s, "type", "model")),
	}, nil
}
