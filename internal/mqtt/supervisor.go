package mqtt

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultClientIDPrefix is prepended to the random suffix of every client id.
const DefaultClientIDPrefix = "MakerFeatherClient-"

// SupervisorConfig configures a Supervisor.
type SupervisorConfig struct {
	// Topic receives the reconnect announcement.
	Topic string

	// ClientIDPrefix is followed by a random 16-bit hex suffix on each attempt.
	ClientIDPrefix string

	// RetryInterval is the fixed wait between failed attempts (default 5s).
	RetryInterval time.Duration

	// Timer drives the retry wait. Nil uses the real clock.
	Timer backoff.Timer

	// OnReconnect is called after each successful connect, once the
	// announcement has been published. Optional.
	OnReconnect func()
}

// Supervisor keeps the transport connected. It is the only component that
// calls Transport.Connect.
type Supervisor struct {
	transport Transport
	cfg       SupervisorConfig
	randN     func(n int) int
}

// NewSupervisor creates a Supervisor for t.
func NewSupervisor(t Transport, cfg SupervisorConfig) *Supervisor {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	return &Supervisor{
		transport: t,
		cfg:       cfg,
		randN:     rand.Intn,
	}
}

// EnsureConnected returns immediately if the transport is up. Otherwise it
// blocks, retrying at a fixed interval with no attempt limit, until a
// connection succeeds; it then publishes the reconnect announcement once.
// The only other way out is ctx being cancelled (process shutdown).
func (s *Supervisor) EnsureConnected(ctx context.Context) error {
	if s.transport.IsConnected() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ensure connected: %w", err)
	}

	attempts := 0
	connect := func() error {
		attempts++
		id := s.clientID()
		log.Printf("mqtt: attempting connection as %s", id)
		return s.transport.Connect(id)
	}
	notify := func(err error, next time.Duration) {
		log.Printf("mqtt: connect failed: %v, retrying in %v", err, next)
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(s.cfg.RetryInterval), ctx)
	if err := backoff.RetryNotifyWithTimer(connect, b, notify, s.cfg.Timer); err != nil {
		return fmt.Errorf("ensure connected: %w", err)
	}
	log.Printf("mqtt: connected after %d attempt(s)", attempts)

	if err := s.transport.Publish(s.cfg.Topic, ReconnectedPayload); err != nil {
		log.Printf("mqtt: reconnect announcement failed: %v", err)
	}
	if s.cfg.OnReconnect != nil {
		s.cfg.OnReconnect()
	}
	return nil
}

func (s *Supervisor) clientID() string {
	return fmt.Sprintf("%s%x", s.cfg.ClientIDPrefix, s.randN(0xffff))
}
