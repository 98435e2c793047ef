package mqtt

import (
	"errors"
	"time"
)

// ErrNotConnected is returned by FakeTransport.Publish while disconnected.
var ErrNotConnected = errors.New("not connected")

// Message is one payload published on a topic.
type Message struct {
	Topic   string
	Payload []byte
}

// FakeTransport records connects and publishes for test assertions.
type FakeTransport struct {
	// Connected controls the return value of IsConnected.
	Connected bool

	// ConnectErrors are returned by successive Connect calls. Once
	// exhausted, Connect succeeds.
	ConnectErrors []error

	// ClientIDs contains every client id passed to Connect.
	ClientIDs []string

	// Messages contains all published messages, in order.
	Messages []Message

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// OnPublish, if set, is called for every accepted publish.
	OnPublish func(Message)

	// Polls counts Poll calls.
	Polls int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeTransport creates a disconnected FakeTransport.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{}
}

// IsConnected reports whether the fake transport is "connected".
func (f *FakeTransport) IsConnected() bool {
	return f.Connected
}

// Connect consumes the next scripted error, if any.
func (f *FakeTransport) Connect(clientID string) error {
	f.ClientIDs = append(f.ClientIDs, clientID)
	if len(f.ConnectErrors) > 0 {
		err := f.ConnectErrors[0]
		f.ConnectErrors = f.ConnectErrors[1:]
		if err != nil {
			return err
		}
	}
	f.Connected = true
	return nil
}

// Publish records the message. It fails while disconnected.
func (f *FakeTransport) Publish(topic string, payload []byte) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	if !f.Connected {
		return ErrNotConnected
	}
	msg := Message{Topic: topic, Payload: append([]byte(nil), payload...)}
	f.Messages = append(f.Messages, msg)
	if f.OnPublish != nil {
		f.OnPublish(msg)
	}
	return nil
}

// Poll counts the call.
func (f *FakeTransport) Poll() {
	f.Polls++
}

// Close marks the transport as closed and disconnected.
func (f *FakeTransport) Close() error {
	f.Closed = true
	f.Connected = false
	return nil
}

// Payloads returns the payloads published on topic, as strings.
func (f *FakeTransport) Payloads(topic string) []string {
	var out []string
	for _, m := range f.Messages {
		if m.Topic == topic {
			out = append(out, string(m.Payload))
		}
	}
	return out
}

// InstantTimer is a backoff.Timer that fires immediately and records every
// requested delay, so retry loops run without waiting.
type InstantTimer struct {
	Delays []time.Duration
	c      chan time.Time
}

// Start records d and fires at once.
func (t *InstantTimer) Start(d time.Duration) {
	t.Delays = append(t.Delays, d)
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

// Stop is a no-op.
func (t *InstantTimer) Stop() {}

// C returns the fire channel.
func (t *InstantTimer) C() <-chan time.Time {
	return t.c
}
