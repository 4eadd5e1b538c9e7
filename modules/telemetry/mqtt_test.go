package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// fakeToken completes immediately with err unless pending is set
type fakeToken struct {
	err     error
	pending bool
}

func (t *fakeToken) Wait() bool { return !t.pending }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.pending }
func (t *fakeToken) Error() error { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.pending {
		close(ch)
	}
	return ch
}

type published struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeClient records publishes instead of talking to a broker
type fakeClient struct {
	mu          sync.Mutex
	opts        *mqtt.ClientOptions
	connectErr  error
	connectHang bool
	publishErr  error
	connected   bool
	disconnects int
	messages    []published
}

func (c *fakeClient) IsConnected() bool { return c.connected }
func (c *fakeClient) IsConnectionOpen() bool { return c.connected }
func (c *fakeClient) Connect() mqtt.Token {
	if c.connectErr == nil && !c.connectHang {
		c.connected = true
	}
	return &fakeToken{err: c.connectErr, pending: c.connectHang}
}
func (c *fakeClient) Disconnect(uint) { c.connected = false; c.disconnects++ }
func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr == nil {
		c.messages = append(c.messages, published{topic, qos, payload.([]byte)})
	}
	return &fakeToken{err: c.publishErr}
}
func (c *fakeClient) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token { return &fakeToken{} }
func (c *fakeClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return &fakeToken{}
}
func (c *fakeClient) Unsubscribe(...string) mqtt.Token { return &fakeToken{} }
func (c *fakeClient) AddRoute(string, mqtt.MessageHandler) {}
func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader { return mqtt.ClientOptionsReader{} }
func (c *fakeClient) count() int { c.mu.Lock(); defer c.mu.Unlock(); return len(c.messages) }
func (c *fakeClient) last() published { c.mu.Lock(); defer c.mu.Unlock(); return c.messages[len(c.messages)-1] }

func newTestEmitter(t *testing.T, fake *fakeClient) *MQTTEmitter {
	t.Helper()
	e, err := NewMQTTEmitter(Config{Broker: "localhost:1883", ClientID: "cam-1", QoS: 1})
	if err != nil {
		t.Fatalf("NewMQTTEmitter failed: %v", err)
	}
	e.newClient = func(opts *mqtt.ClientOptions) mqtt.Client {
		fake.opts = opts
		return fake
	}
	return e
}

func TestNewMQTTEmitter_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Broker: "localhost:1883", ClientID: "cam-1"}, false},
		{"missing broker", Config{ClientID: "cam-1"}, true},
		{"missing client id", Config{Broker: "localhost:1883"}, true},
		{"bad qos", Config{Broker: "localhost:1883", ClientID: "cam-1", QoS: 3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMQTTEmitter(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMQTTEmitter() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	e, _ := NewMQTTEmitter(Config{Broker: "localhost:1883", ClientID: "cam-1"})
	if e.Topic() != "raspicam/cam-1/stats" {
		t.Errorf("default topic = %q", e.Topic())
	}
}

func TestBrokerURL(t *testing.T) {
	if got := brokerURL("localhost:1883"); got != "tcp://localhost:1883" {
		t.Errorf("brokerURL = %q", got)
	}
	if got := brokerURL("ssl://broker:8883"); got != "ssl://broker:8883" {
		t.Errorf("brokerURL = %q", got)
	}
}

func TestPublishStats_NotConnected(t *testing.T) {
	e, _ := NewMQTTEmitter(Config{Broker: "localhost:1883", ClientID: "cam-1"})

	if err := e.PublishStats(map[string]int{"frames": 1}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
	if e.Stats().Errors != 1 {
		t.Errorf("Errors = %d, want 1", e.Stats().Errors)
	}
}

func TestConnectAndPublish(t *testing.T) {
	fake := &fakeClient{}
	e := newTestEmitter(t, fake)

	if err := e.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if len(fake.opts.Servers) != 1 || fake.opts.Servers[0].String() != "tcp://localhost:1883" {
		t.Errorf("broker servers = %v", fake.opts.Servers)
	}
	if fake.opts.ClientID != "cam-1" || !fake.opts.AutoReconnect {
		t.Errorf("client options not applied: id=%q auto_reconnect=%v", fake.opts.ClientID, fake.opts.AutoReconnect)
	}

	stats := map[string]any{"frames_received": 42, "fps": 29.9}
	if err := e.PublishStats(stats); err != nil {
		t.Fatalf("PublishStats failed: %v", err)
	}

	msg := fake.last()
	if msg.topic != "raspicam/cam-1/stats" || msg.qos != 1 {
		t.Errorf("published to %s qos %d", msg.topic, msg.qos)
	}
	var decoded map[string]any
	if err := json.Unmarshal(msg.payload, &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded["frames_received"] != float64(42) {
		t.Errorf("frames_received = %v", decoded["frames_received"])
	}

	s := e.Stats()
	if !s.Connected || s.Published != 1 || s.Errors != 0 || s.LastSent.IsZero() {
		t.Errorf("Stats() = %+v", s)
	}

	e.Disconnect()
	if e.Stats().Connected {
		t.Error("Expected disconnected after Disconnect")
	}
}

func TestConnect_Failures(t *testing.T) {
	t.Run("broker refuses", func(t *testing.T) {
		fake := &fakeClient{connectErr: errors.New("connection refused")}
		e := newTestEmitter(t, fake)
		if err := e.Connect(context.Background()); err == nil {
			t.Error("Expected connect error")
		}
		if e.Stats().Connected {
			t.Error("Should not be connected")
		}
		if fake.disconnects != 1 {
			t.Errorf("client disconnects = %d, want 1", fake.disconnects)
		}
	})

	t.Run("context cancelled", func(t *testing.T) {
		fake := &fakeClient{connectHang: true}
		e := newTestEmitter(t, fake)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		if err := e.Connect(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Expected DeadlineExceeded, got %v", err)
		}
		if fake.disconnects != 1 {
			t.Errorf("retrying client not stopped: disconnects = %d, want 1", fake.disconnects)
		}
		if err := e.PublishStats(map[string]int{}); !errors.Is(err, ErrNotConnected) {
			t.Errorf("Expected ErrNotConnected after abandoned connect, got %v", err)
		}
	})

	t.Run("connect timeout", func(t *testing.T) {
		saved := connectTimeout
		connectTimeout = 20 * time.Millisecond
		defer func() { connectTimeout = saved }()

		fake := &fakeClient{connectHang: true}
		e := newTestEmitter(t, fake)
		if err := e.Connect(context.Background()); err == nil {
			t.Error("Expected timeout error")
		}
		if fake.disconnects != 1 {
			t.Errorf("retrying client not stopped: disconnects = %d, want 1", fake.disconnects)
		}
	})
}

func TestPublishStats_Errors(t *testing.T) {
	fake := &fakeClient{}
	e := newTestEmitter(t, fake)
	if err := e.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if err := e.PublishStats(make(chan int)); err == nil {
		t.Error("Expected marshal error")
	}

	fake.publishErr = errors.New("broker gone")
	if err := e.PublishStats(map[string]int{}); err == nil {
		t.Error("Expected publish error")
	}

	if e.Stats().Errors != 2 {
		t.Errorf("Errors = %d, want 2", e.Stats().Errors)
	}
}

func TestRun_PublishesPeriodically(t *testing.T) {
	fake := &fakeClient{}
	e := newTestEmitter(t, fake)
	if err := e.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var calls int
	go func() {
		e.Run(ctx, 10*time.Millisecond, func() any {
			calls++
			return map[string]int{"n": calls}
		})
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for fake.count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d publishes before deadline", fake.count())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	t.Logf("✅ %d periodic publishes", fake.count())
}
