package incident

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/vmihailenco/msgpack/v5"
)

// MQTTConfig configures the broker connection of an MQTTSink.
type MQTTConfig struct {
	Broker   string // host:port
	Topic    string // incidents go to Topic/<code name>
	ClientID string
	QoS      byte
}

// MQTTSink publishes incidents as msgpack documents to an MQTT broker.
//
// Notify never blocks on the network: the publish token is awaited on a separate
// goroutine and failures are only logged and counted.
type MQTTSink struct {
	cfg    MQTTConfig
	logger *slog.Logger
	client mqtt.Client

	mu        sync.RWMutex
	connected bool

	published atomic.Uint64
	errors    atomic.Uint64
	pending   sync.WaitGroup
}

// MQTTStats is a snapshot of the sink counters.
type MQTTStats struct {
	Connected bool
	Published uint64
	Errors    uint64
}

func NewMQTTSink(cfg MQTTConfig, logger *slog.Logger) *MQTTSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &MQTTSink{cfg: cfg, logger: logger}
}

// Connect establishes the broker connection. The client reconnects automatically
// afterwards; incidents raised while disconnected are counted as errors and dropped.
func (s *MQTTSink) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", s.cfg.Broker))
	opts.SetClientID(s.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		s.setConnected(true)
		s.logger.Info("incident sink connected", "broker", s.cfg.Broker, "client_id", s.cfg.ClientID)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		s.setConnected(false)
		s.logger.Warn("incident sink connection lost, will auto-reconnect",
			"error", err,
			"broker", s.cfg.Broker)
	}

	s.client = mqtt.NewClient(opts)
	s.logger.Info("connecting incident sink", "broker", s.cfg.Broker)

	token := s.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("mqtt connect: %w", ctx.Err())
	case <-time.After(5 * time.Second):
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	s.setConnected(true)
	return nil
}

func (s *MQTTSink) Notify(in Incident) {
	if !s.isConnected() {
		s.errors.Add(1)
		return
	}

	payload, err := encode(in)
	if err != nil {
		s.errors.Add(1)
		s.logger.Error("failed to encode incident", "error", err, "incident_id", in.ID.String())
		return
	}

	topic := Topic(s.cfg.Topic, in.Code)
	token := s.client.Publish(topic, s.cfg.QoS, false, payload)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if !token.WaitTimeout(2 * time.Second) {
			s.errors.Add(1)
			s.logger.Warn("incident publish timeout", "topic", topic)
			return
		}
		if err := token.Error(); err != nil {
			s.errors.Add(1)
			s.logger.Warn("incident publish failed", "topic", topic, "error", err)
			return
		}
		s.published.Add(1)
	}()
}

// Disconnect waits for in-flight publishes and closes the connection.
func (s *MQTTSink) Disconnect() {
	s.pending.Wait()
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
		s.logger.Info("incident sink disconnected")
	}
	s.setConnected(false)
}

func (s *MQTTSink) Stats() MQTTStats {
	return MQTTStats{
		Connected: s.isConnected(),
		Published: s.published.Load(),
		Errors:    s.errors.Load(),
	}
}

func (s *MQTTSink) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

func (s *MQTTSink) isConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Topic returns the topic an incident with the given code is published on.
func Topic(base string, code Code) string {
	return fmt.Sprintf("%s/%s", base, code.String())
}

func encode(in Incident) ([]byte, error) {
	return msgpack.Marshal(in)
}

// Decode parses an incident payload published by MQTTSink.
func Decode(payload []byte) (Incident, error) {
	var in Incident
	if err := msgpack.Unmarshal(payload, &in); err != nil {
		return Incident{}, fmt.Errorf("decode incident: %w", err)
	}
	return in, nil
}
