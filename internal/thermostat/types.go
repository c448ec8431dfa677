package thermostat

// Thermostat is the canonical state of one Beestat thermostat.
//
// ID, Name, Temperature and Humidity are always present; a record missing
// any of them is rejected during normalization. Every other field is set
// only when the source payload carried it.
type Thermostat struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`

	HVACMode  Optional[string] `json:"hvac_mode,omitzero"`
	HVACState Optional[string] `json:"hvac_state,omitzero"`

	// CO2 is in ppm, VOC in ppb.
	CO2                Optional[float64] `json:"co2,omitzero"`
	VOC                Optional[float64] `json:"voc,omitzero"`
	AirQualityScore    Optional[float64] `json:"air_quality_score,omitzero"`
	AirQualityAccuracy Optional[float64] `json:"air_quality_accuracy,omitzero"`

	// Occupancy comes from the thermostat's own sensor entry
	// (the remote sensor record of type "thermostat").
	Occupancy Optional[bool]   `json:"occupancy,omitzero"`
	Model     Optional[string] `json:"model,omitzero"`
}

// RemoteSensor is the canonical state of a remote (room) sensor.
// ParentThermostatID always names a thermostat in the same Snapshot.
type RemoteSensor struct {
	ID                 string  `json:"id"`
	ParentThermostatID string  `json:"parent_thermostat_id"`
	Name               string  `json:"name"`
	Temperature        float64 `json:"temperature"`

	Humidity  Optional[float64] `json:"humidity,omitzero"`
	Occupancy Optional[bool]    `json:"occupancy,omitzero"`
	InUse     Optional[bool]    `json:"in_use,omitzero"`
	Type      Optional[string]  `json:"type,omitzero"`
}
