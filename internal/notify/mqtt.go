// Package notify pushes published snapshots to external systems.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/HerbHall/lanscan/internal/config"
	"github.com/HerbHall/lanscan/pkg/models"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	// quiesce is how long Disconnect waits for in-flight work, in ms.
	quiesce = 250
)

// ErrPublishTimeout is returned when the broker does not acknowledge a
// snapshot in time.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// Client is the subset of mqtt.Client used by MQTT.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes every snapshot as a retained JSON message so new
// subscribers immediately receive the latest scan.
type MQTT struct {
	client  Client
	topic   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewMQTT wraps an already connected client.
func NewMQTT(client Client, topic string, logger *zap.Logger) *MQTT {
	return &MQTT{
		client:  client,
		topic:   topic,
		timeout: publishTimeout,
		logger:  logger,
	}
}

// DialMQTT connects to the broker in s and returns a notifier for s.Topic.
func DialMQTT(s config.MQTTSettings, logger *zap.Logger) (*MQTT, error) {
	logger = logger.Named("mqtt")
	opts := mqtt.NewClientOptions().
		AddBroker(s.Broker).
		SetClientID(s.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", zap.Error(err))
		})

	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to %s: timed out after %v", s.Broker, connectTimeout)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", s.Broker, err)
	}
	logger.Info("connected to mqtt broker",
		zap.String("broker", s.Broker),
		zap.String("topic", s.Topic),
	)
	return NewMQTT(client, s.Topic, logger), nil
}

// Notify publishes snap with QoS 1 and waits for the broker to accept it.
func (m *MQTT) Notify(ctx context.Context, snap *models.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tok := m.client.Publish(m.topic, 1, true, payload)
	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	select {
	case <-tok.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: topic %s", ErrPublishTimeout, m.topic)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", m.topic, err)
	}
	m.logger.Debug("snapshot pushed", zap.String("topic", m.topic), zap.Int("hosts", snap.Count))
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	m.client.Disconnect(quiesce)
}
