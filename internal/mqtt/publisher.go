package mqtt

import (
	"errors"
	"fmt"

	"github.com/sweeney/irrigation-controller/internal/logic"
)

// Publisher emits telemetry over a Transport. It never retries: the
// supervisor guarantees connectivity at the start of each iteration and a
// dropped message is accepted.
type Publisher struct {
	transport   Transport
	topic       string
	statusTopic string
}

// NewPublisher creates a Publisher. An empty statusTopic disables lifecycle events.
func NewPublisher(t Transport, topic, statusTopic string) *Publisher {
	return &Publisher{
		transport:   t,
		topic:       topic,
		statusTopic: statusTopic,
	}
}

// Publish sends one telemetry message for the reading and pump state.
func (p *Publisher) Publish(deviceID string, r logic.SensorReading, state logic.PumpState) error {
	payload := FormatTelemetry(NewTelemetry(deviceID, r, state))
	if err := p.transport.Publish(p.topic, payload); err != nil {
		return fmt.Errorf("publish telemetry: %w", err)
	}
	return nil
}

// PublishStatus sends a pre-formatted lifecycle payload (STARTUP, SHUTDOWN)
// to the status topic. It is a no-op when no status topic is configured.
func (p *Publisher) PublishStatus(payload []byte) error {
	if p.statusTopic == "" {
		return nil
	}
	if len(payload) == 0 {
		return errors.New("empty status payload")
	}
	if err := p.transport.Publish(p.statusTopic, payload); err != nil {
		return fmt.Errorf("publish status: %w", err)
	}
	return nil
}
