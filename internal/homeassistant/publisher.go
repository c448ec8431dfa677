package homeassistant

import (
	"context"

	"github.com/nerrad567/beestat-bridge/internal/coordinator"
	"github.com/nerrad567/beestat-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/beestat-bridge/internal/thermostat"
)

// DefaultTemperatureUnit is used when Options.TemperatureUnit is empty.
const DefaultTemperatureUnit = "°F"

// Client is the subset of *mqtt.Client the publisher needs.
type Client interface {
	PublishJSON(topic string, v any) error
	PublishRetained(topic string, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Logger is the structured logger used by the publisher.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
}

// Options configures a Publisher.
type Options struct {
	// Client publishes to the broker. Required.
	Client Client

	// Topics builds topic names. The zero value uses the default prefixes.
	Topics mqtt.Topics

	// TemperatureUnit is reported on temperature entities.
	TemperatureUnit string

	// Logger is optional.
	Logger Logger
}

// builder turns snapshots into devices.
type builder struct {
	topics          mqtt.Topics
	temperatureUnit string
}

// availability lists every topic that must read "online" for an entity of
// deviceID to be available.
func (b *builder) availability(deviceID string) []Availability {
	return []Availability{
		{Topic: b.topics.BridgeStatus()},
		{Topic: b.topics.BridgeAvailability()},
		{Topic: b.topics.DeviceAvailability(deviceID)},
	}
}

// devices returns thermostats and their remote sensors in snapshot order.
func (b *builder) devices(snap *thermostat.Snapshot) []device {
	var out []device
	for _, t := range snap.Thermostats() {
		td := device{
			id: t.ID,
			info: DeviceInfo{
				Identifiers:  []string{identifierPrefix + t.ID},
				Name:         t.Name,
				Manufacturer: manufacturer,
				Model:        t.Model.OrElse("Thermostat"),
			},
			state: make(map[string]any),
		}
		buildEntities(thermostatEntities, t, &td, t.Name, b)
		out = append(out, td)

		for _, rs := range snap.RemoteSensors(t.ID) {
			sd := device{
				id: rs.ID,
				info: DeviceInfo{
					Identifiers:  []string{identifierPrefix + rs.ID},
					Name:         rs.Name,
					Manufacturer: manufacturer,
					Model:        rs.Type.OrElse("Remote Sensor"),
					ViaDevice:    identifierPrefix + t.ID,
				},
				state: make(map[string]any),
			}
			buildEntities(remoteSensorEntities, rs, &sd, rs.Name, b)
			out = append(out, sd)
		}
	}
	return out
}

// Publisher mirrors coordinator updates onto MQTT for Home Assistant.
//
// Thread Safety:
//   - Handle and Rediscover are safe for concurrent use and never block.
//   - All publishing happens on the goroutine running Run.
type Publisher struct {
	client  Client
	topics  mqtt.Topics
	builder builder
	logger  Logger

	updates    chan coordinator.Update
	rediscover chan struct{}

	// Owned by Run.
	last      *coordinator.Update
	announced map[string]string // unique id -> device id
	devices   map[string]bool
	stale     map[string]bool // devices whose last state publish failed
}

// New creates a publisher. Call Run to start publishing.
func New(opts Options) (*Publisher, error) {
	if opts.Client == nil {
		return nil, ErrNoClient
	}
	unit := opts.TemperatureUnit
	if unit == "" {
		unit = DefaultTemperatureUnit
	}
	return &Publisher{
		client:     opts.Client,
		topics:     opts.Topics,
		builder:    builder{topics: opts.Topics, temperatureUnit: unit},
		logger:     opts.Logger,
		updates:    make(chan coordinator.Update, 1),
		rediscover: make(chan struct{}, 1),
		announced:  make(map[string]string),
		devices:    make(map[string]bool),
		stale:      make(map[string]bool),
	}, nil
}

// Handle queues an update for publishing. An unread older update is
// replaced. Suitable as a coordinator subscriber.
func (p *Publisher) Handle(u coordinator.Update) {
	for {
		select {
		case p.updates <- u:
			return
		default:
		}
		select {
		case <-p.updates:
		default:
		}
	}
}

// Rediscover re-sends every discovery config, state document and
// availability message for the last update. Call it after an MQTT
// reconnect; it is also triggered when Home Assistant announces itself
// online.
func (p *Publisher) Rediscover() {
	select {
	case p.rediscover <- struct{}{}:
	default:
	}
}

// Run publishes queued updates until ctx is cancelled. On return the bridge
// is marked unavailable.
func (p *Publisher) Run(ctx context.Context) error {
	if err := p.client.Subscribe(p.topics.HomeAssistantStatus(), 1, p.handleStatus); err != nil {
		p.warn("home assistant status subscription failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			p.publishText(p.topics.BridgeAvailability(), mqtt.PayloadOffline)
			return nil
		case u := <-p.updates:
			p.last = &u
			p.apply(u, false)
		case <-p.rediscover:
			clear(p.announced)
			if p.last != nil {
				p.debug("re-sending discovery")
				p.apply(*p.last, true)
			}
		}
	}
}

// handleStatus reacts to Home Assistant's birth message.
func (p *Publisher) handleStatus(_ string, payload []byte) error {
	if string(payload) == mqtt.PayloadOnline {
		p.Rediscover()
	}
	return nil
}

// apply publishes one update. With force set, every device state is sent
// even if unchanged.
func (p *Publisher) apply(u coordinator.Update, force bool) {
	bridge := mqtt.PayloadOffline
	if u.Available() {
		bridge = mqtt.PayloadOnline
	}
	p.publishText(p.topics.BridgeAvailability(), bridge)

	changed := changedDevices(u.Changes)
	current := make(map[string]bool)
	announcedNow := 0

	for _, dev := range p.builder.devices(u.Snapshot) {
		current[dev.id] = true

		for _, e := range dev.entities {
			if _, ok := p.announced[e.config.UniqueID]; ok {
				continue
			}
			topic := p.topics.Discovery(e.component, e.config.UniqueID)
			if err := p.client.PublishJSON(topic, e.config); err != nil {
				p.warn("discovery publish failed", "entity", e.config.UniqueID, "error", err)
				continue
			}
			p.announced[e.config.UniqueID] = dev.id
			announcedNow++
		}

		fresh := force || !p.devices[dev.id] || p.stale[dev.id]
		if fresh || changed[dev.id] {
			err := p.client.PublishJSON(p.topics.DeviceState(dev.id), dev.state)
			if err == nil && fresh {
				err = p.client.PublishRetained(p.topics.DeviceAvailability(dev.id), []byte(mqtt.PayloadOnline))
			}
			if err != nil {
				p.warn("device publish failed", "device", dev.id, "error", err)
				p.stale[dev.id] = true
			} else {
				delete(p.stale, dev.id)
			}
		}
	}

	for id := range p.devices {
		if current[id] {
			continue
		}
		p.publishText(p.topics.DeviceAvailability(id), mqtt.PayloadOffline)
		p.forgetDevice(id)
		delete(p.stale, id)
		p.info("device removed", "device", id)
	}
	p.devices = current

	if announcedNow > 0 {
		p.info("discovery published", "entities", announcedNow)
	}
}

// forgetDevice drops announced entities of a removed device so they are
// announced again if it returns.
func (p *Publisher) forgetDevice(id string) {
	for uid, dev := range p.announced {
		if dev == id {
			delete(p.announced, uid)
		}
	}
}

func changedDevices(c thermostat.Changes) map[string]bool {
	out := make(map[string]bool)
	for _, ids := range [][]string{
		c.AddedThermostats, c.UpdatedThermostats, c.AddedSensors, c.UpdatedSensors,
	} {
		for _, id := range ids {
			out[id] = true
		}
	}
	return out
}

func (p *Publisher) publishText(topic, payload string) {
	if err := p.client.PublishRetained(topic, []byte(payload)); err != nil {
		p.warn("publish failed", "topic", topic, "error", err)
	}
}

func (p *Publisher) debug(msg string, kv ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, kv...)
	}
}

func (p *Publisher) info(msg string, kv ...any) {
	if p.logger != nil {
		p.logger.Info(msg, kv...)
	}
}

func (p *Publisher) warn(msg string, kv ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, kv...)
	}
}
