// Package controller runs the irrigation control loop: one goroutine that
// connects, samples, decides, actuates and reports, then idles.
package controller

import (
	"context"
	"log"
	"time"

	"github.com/sweeney/irrigation-controller/internal/logic"
	"github.com/sweeney/irrigation-controller/internal/status"
)

// DefaultIdle is the delay at the end of every iteration.
const DefaultIdle = 2 * time.Second

// Connector restores the broker connection when it is down.
type Connector interface {
	EnsureConnected(ctx context.Context) error
}

// Link is the part of the transport the loop services directly.
type Link interface {
	IsConnected() bool
	Poll()
}

// Reader produces one reading per iteration.
type Reader interface {
	Read() logic.SensorReading
}

// Actuator runs the pump protocol for an intent.
type Actuator interface {
	Execute(intent logic.ActuationIntent, reading logic.SensorReading) logic.PumpState
}

// TelemetryPublisher sends one telemetry message.
type TelemetryPublisher interface {
	Publish(deviceID string, r logic.SensorReading, state logic.PumpState) error
}

// Config holds the loop settings.
type Config struct {
	DeviceID   string
	Thresholds logic.Thresholds
	Idle       time.Duration

	// Sleep blocks between iterations. Nil uses time.Sleep.
	Sleep func(time.Duration)
	// Now stamps readings for the status tracker. Nil uses time.Now.
	Now func() time.Time
}

// Loop is the control loop. Not safe for concurrent use; Run owns it.
type Loop struct {
	cfg       Config
	conn      Connector
	link      Link
	reader    Reader
	pump      Actuator
	telemetry *Telemetry
	tracker   *status.Tracker
}

// New creates a Loop. tracker may be nil.
func New(cfg Config, conn Connector, link Link, reader Reader, pump Actuator, telemetry *Telemetry, tracker *status.Tracker) *Loop {
	if cfg.Idle <= 0 {
		cfg.Idle = DefaultIdle
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Loop{
		cfg:       cfg,
		conn:      conn,
		link:      link,
		reader:    reader,
		pump:      pump,
		telemetry: telemetry,
		tracker:   tracker,
	}
}

// Step runs one iteration: ensure connected, service the transport, read,
// evaluate, execute, publish the final state, then idle. It returns an error
// only if ctx is cancelled while waiting for the broker.
func (l *Loop) Step(ctx context.Context) error {
	if err := l.conn.EnsureConnected(ctx); err != nil {
		return err
	}
	l.link.Poll()

	reading := l.reader.Read()
	intent := logic.Evaluate(reading, l.cfg.Thresholds)
	if l.tracker != nil {
		l.tracker.Observe(reading, intent, l.cfg.Now())
	}

	state := l.pump.Execute(intent, reading)
	l.telemetry.Report(reading, state)

	if l.tracker != nil {
		l.tracker.SetPump(state)
		l.tracker.SetMQTTConnected(l.link.IsConnected())
	}

	l.cfg.Sleep(l.cfg.Idle)
	return nil
}

// Run iterates until ctx is cancelled. An iteration in progress (including
// a watering pulse) always completes before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	log.Printf("controller: loop started (device=%s idle=%v)", l.cfg.DeviceID, l.cfg.Idle)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := l.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}
