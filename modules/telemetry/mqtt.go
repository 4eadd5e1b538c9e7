// Package telemetry publishes capture statistics to an MQTT broker.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ErrNotConnected is returned when publishing before Connect succeeds
var ErrNotConnected = errors.New("telemetry: mqtt not connected")

const publishTimeout = 2 * time.Second

var connectTimeout = 5 * time.Second

// Config contains broker settings
type Config struct {
	// Broker is host:port or a full URL (tcp://, ssl://, ws://)
	Broker string
	// ClientID identifies this instance to the broker
	ClientID string
	// Topic stats are published on (default raspicam/<ClientID>/stats)
	Topic string
	// QoS level 0-2
	QoS byte
}

// MQTTEmitter publishes capture stats to an MQTT broker
type MQTTEmitter struct {
	cfg       Config
	newClient func(*mqtt.ClientOptions) mqtt.Client

	mu        sync.RWMutex
	client    mqtt.Client
	published uint64
	errors    uint64
	connected bool
	lastSent  time.Time
}

// Stats contains emitter statistics
type Stats struct {
	Connected bool
	Published uint64
	Errors    uint64
	LastSent  time.Time
}

// NewMQTTEmitter creates a new MQTT emitter
func NewMQTTEmitter(cfg Config) (*MQTTEmitter, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("telemetry: broker is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("telemetry: client id is required")
	}
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("telemetry: invalid qos %d", cfg.QoS)
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic(cfg.ClientID)
	}

	return &MQTTEmitter{
		cfg:       cfg,
		newClient: mqtt.NewClient,
	}, nil
}

// DefaultTopic returns raspicam/<instanceID>/stats
func DefaultTopic(instanceID string) string {
	return fmt.Sprintf("raspicam/%s/stats", instanceID)
}

// Topic returns the stats topic
func (e *MQTTEmitter) Topic() string { return e.cfg.Topic }

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// Connect establishes the broker connection, waiting at most 5s.
// Lost connections are re-established automatically.
func (e *MQTTEmitter) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(e.cfg.Broker))
	opts.SetClientID(e.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.setConnected(true)
		slog.Info("telemetry: mqtt connection established",
			"broker", e.cfg.Broker,
			"client_id", e.cfg.ClientID,
			"auto_reconnect", "enabled")
	}

	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.setConnected(false)
		slog.Warn("telemetry: mqtt connection lost, will auto-reconnect",
			"error", err,
			"broker", e.cfg.Broker,
			"max_retry_interval", "30s")
	}

	client := e.newClient(opts)
	e.mu.Lock()
	e.client = client
	e.mu.Unlock()

	slog.Info("telemetry: connecting to mqtt broker", "broker", e.cfg.Broker)

	token := client.Connect()

	timer := time.NewTimer(connectTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-timer.C:
		e.abandon(client)
		return fmt.Errorf("telemetry: mqtt connection timeout")
	case <-ctx.Done():
		e.abandon(client)
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		e.abandon(client)
		return fmt.Errorf("telemetry: mqtt connection failed: %w", err)
	}

	e.setConnected(true)
	return nil
}

// PublishStats JSON-encodes v and publishes it on the stats topic
func (e *MQTTEmitter) PublishStats(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		e.countError()
		return fmt.Errorf("telemetry: failed to marshal stats: %w", err)
	}
	return e.publish(payload)
}

func (e *MQTTEmitter) publish(payload []byte) error {
	e.mu.RLock()
	client, connected := e.client, e.connected
	e.mu.RUnlock()

	if !connected || client == nil {
		e.countError()
		return ErrNotConnected
	}

	token := client.Publish(e.cfg.Topic, e.cfg.QoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		e.countError()
		return fmt.Errorf("telemetry: publish timeout")
	}
	if err := token.Error(); err != nil {
		e.countError()
		return fmt.Errorf("telemetry: publish failed: %w", err)
	}

	e.mu.Lock()
	e.published++
	e.lastSent = time.Now()
	e.mu.Unlock()

	slog.Debug("telemetry: stats published",
		"topic", e.cfg.Topic,
		"qos", e.cfg.QoS,
		"size", len(payload),
	)
	return nil
}

// Run publishes snap() every interval until ctx is cancelled.
// Publish failures are logged and do not stop the loop.
func (e *MQTTEmitter) Run(ctx context.Context, interval time.Duration, snap func() any) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.PublishStats(snap()); err != nil {
				slog.Warn("telemetry: failed to publish stats", "error", err)
			}
		}
	}
}

// abandon stops a client whose connect attempt failed; with connect retry
// enabled it would otherwise keep dialing in the background.
func (e *MQTTEmitter) abandon(client mqtt.Client) {
	e.mu.Lock()
	if e.client == client {
		e.client = nil
		e.connected = false
	}
	e.mu.Unlock()

	client.Disconnect(0)
}

// Disconnect closes the MQTT connection
func (e *MQTTEmitter) Disconnect() {
	e.mu.Lock()
	client := e.client
	e.connected = false
	e.mu.Unlock()

	if client != nil && client.IsConnected() {
		client.Disconnect(250)
		slog.Info("telemetry: mqtt disconnected")
	}
}

// Stats returns emitter statistics
func (e *MQTTEmitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return Stats{
		Connected: e.connected,
		Published: e.published,
		Errors:    e.errors,
		LastSent:  e.lastSent,
	}
}

func (e *MQTTEmitter) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.mu.Unlock()
}

func (e *MQTTEmitter) countError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}
