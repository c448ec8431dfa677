package mqtt

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/beestat-bridge/internal/infrastructure/config"
)

const testBrokerAddr = "127.0.0.1:1883"

// testConfig returns an MQTT configuration pointing at a local broker.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "beestat-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// requireBroker skips the test when no broker listens on testBrokerAddr.
func requireBroker(t *testing.T) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", testBrokerAddr, 200*time.Millisecond)
	if err != nil {
		t.Skipf("no MQTT broker at %s: %v", testBrokerAddr, err)
	}
	conn.Close()
}

func connectTest(t *testing.T, clientID string) *Client {
	t.Helper()
	requireBroker(t)
	cfg := testConfig()
	cfg.Broker.ClientID = clientID
	client, err := Connect(cfg, Topics{Prefix: "beestat-test"})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// =============================================================================
// Topic Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}
	custom := Topics{Prefix: "house", DiscoveryPrefix: "ha"}

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"BridgeStatus", topics.BridgeStatus(), "beestat/bridge/status"},
		{"BridgeAvailability", topics.BridgeAvailability(), "beestat/bridge/availability"},
		{"DeviceState", topics.DeviceState("tstat-1"), "beestat/tstat-1/state"},
		{"DeviceAvailability", topics.DeviceAvailability("tstat-1"), "beestat/tstat-1/availability"},
		{"AllDeviceStates", topics.AllDeviceStates(), "beestat/+/state"},
		{"Discovery", topics.Discovery("sensor", "tstat-1_temperature"), "homeassistant/sensor/beestat/tstat-1_temperature/config"},
		{"HomeAssistantStatus", topics.HomeAssistantStatus(), "homeassistant/status"},
		{"custom DeviceState", custom.DeviceState("x"), "house/x/state"},
		{"custom Discovery", custom.Discovery("binary_sensor", "x_occupancy"), "ha/binary_sensor/house/x_occupancy/config"},
		{"custom HomeAssistantStatus", custom.HomeAssistantStatus(), "ha/status"},
		{"sanitized id", topics.DeviceState("a/b+c#d e"), "beestat/a_b_c_d_e/state"},
	}

	for _, tt := range tests {
		if tt.got != tt.expected {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.expected)
		}
	}
}

func TestNewTopics(t *testing.T) {
	topics := NewTopics(config.HomeAssistantConfig{DiscoveryPrefix: "hass", TopicPrefix: "bee"})
	if got := topics.BridgeAvailability(); got != "bee/bridge/availability" {
		t.Errorf("BridgeAvailability() = %q", got)
	}
	if got := topics.HomeAssistantStatus(); got != "hass/status" {
		t.Errorf("HomeAssistantStatus() = %q", got)
	}
}

// =============================================================================
// Option Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "user", Password: "pass"}

	opts := buildClientOptions(cfg)
	configureLWT(opts, Topics{})

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want tcp://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "beestat-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "user" || opts.Password != "pass" {
		t.Errorf("credentials not applied: %q/%q", opts.Username, opts.Password)
	}
	if !opts.AutoReconnect || !opts.CleanSession {
		t.Errorf("AutoReconnect=%v CleanSession=%v, want both true", opts.AutoReconnect, opts.CleanSession)
	}
	if !opts.WillEnabled || opts.WillTopic != "beestat/bridge/status" || string(opts.WillPayload) != PayloadOffline {
		t.Errorf("will = %v %q %q", opts.WillEnabled, opts.WillTopic, opts.WillPayload)
	}
	if !opts.WillRetained {
		t.Error("will should be retained")
	}
	if opts.TLSConfig != nil && opts.TLSConfig.MinVersion != 0 {
		t.Error("TLS configured without broker.tls")
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg)

	if got := opts.Servers[0].String(); got != "ssl://127.0.0.1:8883" {
		t.Errorf("Servers[0] = %q, want ssl://127.0.0.1:8883", got)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Errorf("TLSConfig = %+v, want MinVersion TLS 1.2", opts.TLSConfig)
	}
}

// =============================================================================
// Validation Tests (no broker)
// =============================================================================

func TestPublish_Validation(t *testing.T) {
	client := &Client{}

	tests := []struct {
		name    string
		topic   string
		qos     byte
		payload []byte
		want    error
	}{
		{"empty topic", "", 1, nil, ErrInvalidTopic},
		{"wildcard plus", "beestat/+/state", 1, nil, ErrInvalidTopic},
		{"wildcard hash", "beestat/#", 1, nil, ErrInvalidTopic},
		{"invalid qos", "beestat/x/state", 3, nil, ErrInvalidQoS},
		{"oversized", "beestat/x/state", 1, make([]byte, maxPayloadSize+1), ErrPublishFailed},
		{"not connected", "beestat/x/state", 1, []byte("{}"), ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, true)
			if !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPublishJSON_EncodeError(t *testing.T) {
	client := &Client{}
	err := client.PublishJSON("beestat/x/state", map[string]any{"bad": make(chan int)})
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("PublishJSON() error = %v, want ErrPublishFailed", err)
	}
}

func TestSubscribe_Validation(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}
	handler := func(string, []byte) error { return nil }

	if err := client.Subscribe("", 1, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v", err)
	}
	if err := client.Subscribe("a/b", 3, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("invalid qos error = %v", err)
	}
	if err := client.Subscribe("a/b", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler error = %v", err)
	}
	if err := client.Subscribe("a/b", 1, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected error = %v", err)
	}
	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}
	if err := client.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe empty error = %v", err)
	}
}

func TestClient_Uninitialised(t *testing.T) {
	client := &Client{}

	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v", err)
	}
}

func TestConnect_BrokerRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19998

	client, err := Connect(cfg, Topics{})
	if err == nil {
		client.Close()
		t.Skip("something is listening on port 19998")
	}
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

// =============================================================================
// Broker Tests (skipped without a local broker)
// =============================================================================

func TestConnectAndClose(t *testing.T) {
	client := connectTest(t, "beestat-test-connect")

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := client.PublishRetained("beestat-test/x/state", []byte("{}")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish after Close error = %v, want ErrNotConnected", err)
	}
}

func TestBridgeStatusOnline(t *testing.T) {
	sub := connectTest(t, "beestat-test-status-sub")
	pub := connectTest(t, "beestat-test-status-pub")

	received := make(chan string, 4)
	err := sub.Subscribe(pub.Topics().BridgeStatus(), 1, func(_ string, payload []byte) error {
		received <- string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	select {
	case payload := <-received:
		if payload != PayloadOnline && payload != PayloadOffline {
			t.Errorf("status payload = %q", payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no retained status received")
	}
}

func TestPublishSubscribeRoundtrip(t *testing.T) {
	pub := connectTest(t, "beestat-test-pub")
	sub := connectTest(t, "beestat-test-sub")

	topics := Topics{Prefix: "beestat-test"}
	received := make(chan string, 1)

	err := sub.Subscribe(topics.AllDeviceStates(), 1, func(topic string, payload []byte) error {
		if strings.HasSuffix(topic, "/roundtrip/state") {
			received <- string(payload)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !sub.HasSubscription(topics.AllDeviceStates()) {
		t.Error("HasSubscription() = false after Subscribe")
	}

	time.Sleep(100 * time.Millisecond)

	if err := pub.PublishJSON(topics.DeviceState("roundtrip"), map[string]float64{"temperature": 70.5}); err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}

	select {
	case payload := <-received:
		if payload != `{"temperature":70.5}` {
			t.Errorf("payload = %q", payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}

	if err := sub.Unsubscribe(topics.AllDeviceStates()); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	if sub.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", sub.SubscriptionCount())
	}
}

func TestHandlerErrorIsLogged(t *testing.T) {
	client := connectTest(t, "beestat-test-handler-err")
	logger := &mockLogger{}
	client.SetLogger(logger)

	topic := "beestat-test/handler-error/state"
	called := make(chan struct{}, 1)
	err := client.Subscribe(topic, 1, func(string, []byte) error {
		called <- struct{}{}
		return errors.New("handler error")
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if err := client.Publish(topic, []byte("x"), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}
}
