package mqtt

import (
	"errors"
	"fmt"
	"log"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// PahoTransport is a Transport backed by an actual MQTT broker. Reconnection
// is left to the Supervisor, so paho's own auto-reconnect is disabled.
type PahoTransport struct {
	broker         string
	client         paho.Client
	connectTimeout time.Duration
	publishTimeout time.Duration
}

// NewPahoTransport creates a transport for broker (e.g. "tcp://host:1883").
// It does not connect.
func NewPahoTransport(broker string) *PahoTransport {
	return &PahoTransport{
		broker:         broker,
		connectTimeout: 10 * time.Second,
		publishTimeout: 5 * time.Second,
	}
}

// IsConnected reports whether the current session is up.
func (p *PahoTransport) IsConnected() bool {
	return p.client != nil && p.client.IsConnected()
}

// Connect opens a fresh session under clientID, replacing any previous one.
func (p *PahoTransport) Connect(clientID string) error {
	if p.client != nil {
		p.client.Disconnect(0)
		p.client = nil
	}

	opts := paho.NewClientOptions().
		AddBroker(p.broker).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(p.connectTimeout).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(p.connectTimeout) {
		return errors.New("connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}

	p.client = client
	return nil
}

// Publish sends payload at QoS 0 (at-most-once), not retained.
func (p *PahoTransport) Publish(topic string, payload []byte) error {
	if p.client == nil {
		return errors.New("not connected")
	}

	token := p.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(p.publishTimeout) {
		return errors.New("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Poll is a no-op: paho services keepalives and acks on its own goroutines.
func (p *PahoTransport) Poll() {}

// Close disconnects from the broker.
func (p *PahoTransport) Close() error {
	if p.client != nil {
		p.client.Disconnect(1000) // 1 second timeout
		p.client = nil
	}
	return nil
}
