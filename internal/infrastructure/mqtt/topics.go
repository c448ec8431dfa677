package mqtt

import (
	"fmt"
	"strings"

	"github.com/nerrad567/beestat-bridge/internal/infrastructure/config"
)

// Default topic roots.
const (
	// DefaultTopicPrefix is the root for all bridge-owned topics.
	DefaultTopicPrefix = "beestat"

	// DefaultDiscoveryPrefix is Home Assistant's default discovery root.
	DefaultDiscoveryPrefix = "homeassistant"

	// PayloadOnline and PayloadOffline are the availability payloads Home
	// Assistant expects by default.
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// Topics provides builders for the bridge's MQTT topics.
// Using these helpers keeps topic naming consistent between the client's
// Last Will and the Home Assistant publisher.
//
//	topics := mqtt.NewTopics(cfg.HomeAssistant)
//	topics.DeviceState("tstat-1")
//	// Returns: "beestat/tstat-1/state"
type Topics struct {
	// Prefix is the root of bridge-owned topics. Empty means DefaultTopicPrefix.
	Prefix string

	// DiscoveryPrefix is the Home Assistant discovery root. Empty means
	// DefaultDiscoveryPrefix.
	DiscoveryPrefix string
}

// NewTopics builds Topics from the homeassistant config section.
func NewTopics(cfg config.HomeAssistantConfig) Topics {
	return Topics{Prefix: cfg.TopicPrefix, DiscoveryPrefix: cfg.DiscoveryPrefix}
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

func (t Topics) discovery() string {
	if t.DiscoveryPrefix == "" {
		return DefaultDiscoveryPrefix
	}
	return t.DiscoveryPrefix
}

// =============================================================================
// Bridge Topics
// =============================================================================

// BridgeStatus is the connection status topic carrying the Last Will.
// It is "online" while the MQTT session is up.
//
// Example: beestat/bridge/status
func (t Topics) BridgeStatus() string {
	return fmt.Sprintf("%s/bridge/status", t.prefix())
}

// BridgeAvailability reports whether the last poll produced fresh data.
//
// Example: beestat/bridge/availability
func (t Topics) BridgeAvailability() string {
	return fmt.Sprintf("%s/bridge/availability", t.prefix())
}

// =============================================================================
// Device Topics
// =============================================================================

// DeviceState returns the retained JSON state topic for a thermostat or
// remote sensor.
//
// Example: beestat/tstat-1/state
func (t Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/%s/state", t.prefix(), SanitizeSegment(deviceID))
}

// DeviceAvailability returns the per-device availability topic.
//
// Example: beestat/tstat-1/availability
func (t Topics) DeviceAvailability(deviceID string) string {
	return fmt.Sprintf("%s/%s/availability", t.prefix(), SanitizeSegment(deviceID))
}

// AllDeviceStates matches every device state topic.
//
// Pattern: beestat/+/state
func (t Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/+/state", t.prefix())
}

// =============================================================================
// Home Assistant Topics
// =============================================================================

// Discovery returns the retained discovery config topic for one entity.
//
// Example: homeassistant/sensor/beestat/tstat-1_temperature/config
func (t Topics) Discovery(component, uniqueID string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config",
		t.discovery(), component, SanitizeSegment(t.prefix()), SanitizeSegment(uniqueID))
}

// HomeAssistantStatus is the birth/will topic Home Assistant publishes to.
// An "online" message there means discovery configs must be re-sent.
//
// Example: homeassistant/status
func (t Topics) HomeAssistantStatus() string {
	return fmt.Sprintf("%s/status", t.discovery())
}

// SanitizeSegment makes s safe to use as a single topic level. Wildcards,
// separators and whitespace become underscores.
func SanitizeSegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#', ' ', '\t', '\n', '\r', 0:
			return '_'
		}
		return r
	}, s)
}
