package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/hearth-home/hearth-core/internal/infrastructure/config"
)

func newDisconnectedClient() *Client {
	return &Client{
		subscriptions: make(map[string]subscription),
	}
}

func testMQTTConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "localhost",
			Port:     1883,
			ClientID: "hearth-core",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     60,
		},
	}
}

func TestTopics(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"AssistantResponse", topics.AssistantResponse(), "hearth/assistant/response"},
		{"AssistantActivity", topics.AssistantActivity(), "hearth/assistant/activity"},
		{"CaptureState", topics.CaptureState(), "hearth/capture/state"},
		{"SystemStatus", topics.SystemStatus(), "hearth/system/status"},
		{"AllAssistant", topics.AllAssistant(), "hearth/assistant/+"},
		{"AllTopics", topics.AllTopics(), "hearth/#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestPublish_InvalidTopic(t *testing.T) {
	c := newDisconnectedClient()

	err := c.Publish("", []byte("{}"), 1, false)
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish() error = %v, want ErrInvalidTopic", err)
	}
}

func TestPublish_InvalidQoS(t *testing.T) {
	c := newDisconnectedClient()

	err := c.Publish("hearth/test", []byte("{}"), 3, false)
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish() error = %v, want ErrInvalidQoS", err)
	}
}

func TestPublish_OversizedPayload(t *testing.T) {
	c := newDisconnectedClient()

	payload := make([]byte, maxPayloadSize+1)
	err := c.Publish("hearth/test", payload, 1, false)
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}
}

func TestPublish_NotConnected(t *testing.T) {
	c := newDisconnectedClient()

	err := c.Publish("hearth/test", []byte("{}"), 1, false)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := newDisconnectedClient()

	if err := c.Subscribe("", 1, func(string, []byte) error { return nil }); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic: error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Subscribe("hearth/test", 5, func(string, []byte) error { return nil }); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("bad qos: error = %v, want ErrInvalidQoS", err)
	}
	if err := c.Subscribe("hearth/test", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler: error = %v, want ErrSubscribeFailed", err)
	}
}

func TestSubscriptionTracking(t *testing.T) {
	c := newDisconnectedClient()

	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", c.SubscriptionCount())
	}
	if c.HasSubscription("hearth/test") {
		t.Error("HasSubscription() = true for untracked topic")
	}

	c.subscriptions["hearth/test"] = subscription{topic: "hearth/test", qos: 1}

	if c.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", c.SubscriptionCount())
	}
	if !c.HasSubscription("hearth/test") {
		t.Error("HasSubscription() = false for tracked topic")
	}

	c.dropSubscription("hearth/test")
	if c.HasSubscription("hearth/test") {
		t.Error("HasSubscription() = true after dropSubscription()")
	}
}

func TestStatusPayloads(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantStatus string
		wantReason string
	}{
		{"online", buildOnlinePayload("hearth-core"), "online", ""},
		{"offline", buildOfflinePayload("hearth-core"), "offline", "graceful_shutdown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var decoded map[string]string
			if err := json.Unmarshal([]byte(tt.payload), &decoded); err != nil {
				t.Fatalf("payload is not valid JSON: %v", err)
			}
			if decoded["status"] != tt.wantStatus {
				t.Errorf("status = %q, want %q", decoded["status"], tt.wantStatus)
			}
			if decoded["client_id"] != "hearth-core" {
				t.Errorf("client_id = %q, want %q", decoded["client_id"], "hearth-core")
			}
			if tt.wantReason != "" && decoded["reason"] != tt.wantReason {
				t.Errorf("reason = %q, want %q", decoded["reason"], tt.wantReason)
			}
			if decoded["timestamp"] == "" {
				t.Error("timestamp missing from payload")
			}
		})
	}
}

func TestBuildClientOptions_BrokerURL(t *testing.T) {
	cfg := testMQTTConfig()
	opts := buildClientOptions(cfg)

	servers := opts.Servers
	if len(servers) != 1 {
		t.Fatalf("len(Servers) = %d, want 1", len(servers))
	}
	if got := servers[0].String(); got != "tcp://localhost:1883" {
		t.Errorf("broker URL = %q, want tcp://localhost:1883", got)
	}

	cfg.Broker.TLS = true
	opts = buildClientOptions(cfg)
	if got := opts.Servers[0].String(); !strings.HasPrefix(got, "ssl://") {
		t.Errorf("broker URL = %q, want ssl:// scheme with TLS enabled", got)
	}
}

func TestHealthCheck_NotConnected(t *testing.T) {
	c := newDisconnectedClient()

	err := c.HealthCheck(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}
