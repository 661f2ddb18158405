package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/itohio/gohtu/pkg/config"
	"go.uber.org/zap"
)

const disconnectQuiesce = 250 // ms

var (
	ErrNotConnected   = errors.New("mqtt not connected")
	ErrPublishTimeout = errors.New("mqtt publish timed out")
)

var _ Reporter = (*MQTT)(nil)

// MQTT publishes reports as JSON to a broker topic.
type MQTT struct {
	client  mqtt.Client
	topic   string
	qos     byte
	timeout time.Duration
	logger  *zap.Logger
}

// NewMQTT creates a reporter with a paho client built from cfg.
func NewMQTT(cfg *config.MQTTConfig, logger *zap.Logger) *MQTT {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(5 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", zap.Error(err))
		}).
		SetOnConnectHandler(func(_ mqtt.Client) {
			logger.Info("mqtt connected", zap.String("broker", cfg.Broker))
		})

	return NewMQTTWithClient(mqtt.NewClient(opts), cfg, logger)
}

// NewMQTTWithClient creates a reporter publishing through client.
func NewMQTTWithClient(client mqtt.Client, cfg *config.MQTTConfig, logger *zap.Logger) *MQTT {
	return &MQTT{
		client:  client,
		topic:   cfg.Topic,
		qos:     cfg.QoS,
		timeout: cfg.PublishTimeout,
		logger:  logger,
	}
}

// Connect starts the broker connection. With connect retry enabled the
// client keeps trying in the background once the first wait elapses.
func (m *MQTT) Connect(wait time.Duration) error {
	token := m.client.Connect()
	if !token.WaitTimeout(wait) {
		m.logger.Warn("mqtt connect pending", zap.Duration("waited", wait))
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Report publishes r and waits at most the publish timeout for delivery.
func (m *MQTT) Report(r Report) error {
	if !m.client.IsConnected() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	token := m.client.Publish(m.topic, m.qos, false, payload)
	if !token.WaitTimeout(m.timeout) {
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	m.client.Disconnect(disconnectQuiesce)
}
