package homeassistant

import (
	"fmt"
	"strings"

	"github.com/nerrad567/beestat-bridge/internal/thermostat"
)

// manufacturer is reported on every device.
const manufacturer = "Beestat"

// identifierPrefix namespaces device identifiers in the Home Assistant
// device registry.
const identifierPrefix = "beestat_"

// Home Assistant MQTT platforms.
const (
	componentSensor       = "sensor"
	componentBinarySensor = "binary_sensor"
)

// DeviceInfo groups entities under one device in Home Assistant.
type DeviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

// Availability is one entry of a discovery config's availability list.
type Availability struct {
	Topic string `json:"topic"`
}

// EntityConfig is the retained discovery payload for one entity.
type EntityConfig struct {
	Name              string         `json:"name"`
	ObjectID          string         `json:"object_id"`
	HasEntityName     bool           `json:"has_entity_name"`
	UniqueID          string         `json:"unique_id"`
	StateTopic        string         `json:"state_topic"`
	ValueTemplate     string         `json:"value_template"`
	Availability      []Availability `json:"availability"`
	AvailabilityMode  string         `json:"availability_mode"`
	Device            DeviceInfo     `json:"device"`
	DeviceClass       string         `json:"device_class,omitempty"`
	StateClass        string         `json:"state_class,omitempty"`
	UnitOfMeasurement string         `json:"unit_of_measurement,omitempty"`
	Icon              string         `json:"icon,omitempty"`
}

// description declares one entity of a device of type T.
type description[T any] struct {
	key         string
	name        string
	component   string
	deviceClass string
	stateClass  string
	unit        string
	icon        string

	// temperature marks entities whose unit comes from configuration.
	temperature bool

	// value returns the entity's state and whether the source carries it.
	// Entities whose value is absent are not announced.
	value func(T) (any, bool)
}

func required[T any](v T) (any, bool) { return v, true }

func optional[T comparable](o thermostat.Optional[T]) (any, bool) {
	v, ok := o.Get()
	return v, ok
}

var thermostatEntities = []description[thermostat.Thermostat]{
	{
		key: "temperature", name: "Temperature", component: componentSensor,
		deviceClass: "temperature", stateClass: "measurement", temperature: true,
		value: func(t thermostat.Thermostat) (any, bool) { return required(t.Temperature) },
	},
	{
		key: "humidity", name: "Humidity", component: componentSensor,
		deviceClass: "humidity", stateClass: "measurement", unit: "%",
		value: func(t thermostat.Thermostat) (any, bool) { return required(t.Humidity) },
	},
	{
		key: "hvac_mode", name: "HVAC Mode", component: componentSensor, icon: "mdi:thermostat",
		value: func(t thermostat.Thermostat) (any, bool) { return optional(t.HVACMode) },
	},
	{
		key: "hvac_state", name: "HVAC State", component: componentSensor, icon: "mdi:hvac",
		value: func(t thermostat.Thermostat) (any, bool) { return optional(t.HVACState) },
	},
	{
		key: "co2", name: "CO2", component: componentSensor,
		deviceClass: "carbon_dioxide", stateClass: "measurement", unit: "ppm",
		value: func(t thermostat.Thermostat) (any, bool) { return optional(t.CO2) },
	},
	{
		key: "voc", name: "VOC", component: componentSensor,
		deviceClass: "volatile_organic_compounds_parts", stateClass: "measurement", unit: "ppb",
		value: func(t thermostat.Thermostat) (any, bool) { return optional(t.VOC) },
	},
	{
		key: "aq_score", name: "Air Quality Score", component: componentSensor,
		deviceClass: "aqi", stateClass: "measurement",
		value: func(t thermostat.Thermostat) (any, bool) { return optional(t.AirQualityScore) },
	},
	{
		key: "aq_accuracy", name: "Air Quality Accuracy", component: componentSensor,
		stateClass: "measurement",
		value: func(t thermostat.Thermostat) (any, bool) { return optional(t.AirQualityAccuracy) },
	},
	{
		key: "occupancy", name: "Presence", component: componentBinarySensor, deviceClass: "occupancy",
		value: func(t thermostat.Thermostat) (any, bool) { return optional(t.Occupancy) },
	},
}

var remoteSensorEntities = []description[thermostat.RemoteSensor]{
	{
		key: "temperature", name: "Temperature", component: componentSensor,
		deviceClass: "temperature", stateClass: "measurement", temperature: true,
		value: func(s thermostat.RemoteSensor) (any, bool) { return required(s.Temperature) },
	},
	{
		key: "humidity", name: "Humidity", component: componentSensor,
		deviceClass: "humidity", stateClass: "measurement", unit: "%",
		value: func(s thermostat.RemoteSensor) (any, bool) { return optional(s.Humidity) },
	},
	{
		key: "in_use", name: "In Use", component: componentBinarySensor,
		value: func(s thermostat.RemoteSensor) (any, bool) { return optional(s.InUse) },
	},
	{
		key: "occupancy", name: "Presence", component: componentBinarySensor, deviceClass: "occupancy",
		value: func(s thermostat.RemoteSensor) (any, bool) { return optional(s.Occupancy) },
	},
}

// entity is a resolved description bound to a device.
type entity struct {
	component string
	config    EntityConfig
}

// device is one Home Assistant device built from a snapshot.
type device struct {
	id       string
	info     DeviceInfo
	entities []entity
	state    map[string]any
}

// valueTemplate renders a key of the device state document. Binary sensors
// map booleans onto Home Assistant's default ON/OFF payloads; null renders
// as None, which Home Assistant treats as unknown.
func valueTemplate(component, key string) string {
	if component == componentBinarySensor {
		return fmt.Sprintf("{{ 'None' if value_json.%[1]s is none else ('ON' if value_json.%[1]s else 'OFF') }}", key)
	}
	return fmt.Sprintf("{{ value_json.%s }}", key)
}

// buildEntities resolves descriptions against one source value. The state
// map receives every known key; absent optional values are encoded as null
// so entities announced earlier read as unknown instead of stale.
func buildEntities[T any](descs []description[T], src T, dev *device, name string, b *builder) {
	for _, d := range descs {
		v, ok := d.value(src)
		if !ok {
			dev.state[d.key] = nil
			continue
		}
		dev.state[d.key] = v

		unit := d.unit
		if d.temperature {
			unit = b.temperatureUnit
		}
		uid := dev.id + "_" + d.key
		dev.entities = append(dev.entities, entity{
			component: d.component,
			config: EntityConfig{
				Name:              d.name,
				ObjectID:          "beestat_" + slugify(name) + "_" + d.key,
				HasEntityName:     true,
				UniqueID:          uid,
				StateTopic:        b.topics.DeviceState(dev.id),
				ValueTemplate:     valueTemplate(d.component, d.key),
				Availability:      b.availability(dev.id),
				AvailabilityMode:  "all",
				Device:            dev.info,
				DeviceClass:       d.deviceClass,
				StateClass:        d.stateClass,
				UnitOfMeasurement: unit,
				Icon:              d.icon,
			},
		})
	}
}

// slugify lower-cases s and collapses every run of non-alphanumeric
// characters into a single underscore.
func slugify(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
