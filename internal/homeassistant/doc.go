// Package homeassistant exposes coordinator snapshots to Home Assistant
// through MQTT discovery.
//
// Each thermostat and remote sensor becomes a Home Assistant device. Its
// entities (temperature, humidity, air quality, occupancy, ...) are
// announced once with retained discovery configs and read their values
// from one retained JSON state document per device:
//
//	homeassistant/sensor/beestat/<device>_temperature/config
//	beestat/<device>/state          {"temperature":70.5,"humidity":41,...}
//	beestat/<device>/availability   online | offline
//	beestat/bridge/availability     online | offline
//
// An entity is available only while the MQTT session is up, the last poll
// succeeded, and its device is still reported by Beestat.
//
// Updates reach the Publisher through Handle, which never blocks: if the
// publisher falls behind, only the newest update is kept.
package homeassistant
