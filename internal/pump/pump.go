// Package pump runs the pump relay through its pulse-and-cooldown protocol.
package pump

import (
	"log"
	"time"

	"github.com/sweeney/irrigation-controller/internal/gpio"
	"github.com/sweeney/irrigation-controller/internal/logic"
)

// Announcer hears about pulse boundaries. Announce receives the snapshot
// emitted when a pulse starts, before the controller blocks; PulseEnded is
// called once the relay is off, before the cooldown.
type Announcer interface {
	Announce(reading logic.SensorReading, state logic.PumpState)
	PulseEnded()
}

// Timing holds the fixed durations of a watering cycle.
type Timing struct {
	Pulse    time.Duration // relay on
	Cooldown time.Duration // quiet period after the relay turns off
}

// DefaultTiming returns a 2s pulse followed by a 10s soak.
func DefaultTiming() Timing {
	return Timing{
		Pulse:    2 * time.Second,
		Cooldown: 10 * time.Second,
	}
}

// Controller owns the pump state and the relay line. It is Idle (PumpOff)
// except while a pulse is running (PumpOn). Not safe for concurrent use.
type Controller struct {
	relay    gpio.Output
	announce Announcer
	timing   Timing
	sleep    func(time.Duration)

	state  logic.PumpState
	pulses int
}

// New creates a Controller in the Idle state. If sleep is nil, time.Sleep is used.
func New(relay gpio.Output, announce Announcer, timing Timing, sleep func(time.Duration)) *Controller {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Controller{
		relay:    relay,
		announce: announce,
		timing:   timing,
		sleep:    sleep,
		state:    logic.PumpOff,
	}
}

// Execute acts on the intent and returns the pump state at the end of the
// call. A watering pulse blocks for Pulse+Cooldown and cannot be interrupted.
// Without intent the relay is re-asserted off and Execute returns at once.
func (c *Controller) Execute(intent logic.ActuationIntent, reading logic.SensorReading) logic.PumpState {
	if !intent.ShouldRun {
		c.setRelay(false)
		return c.state
	}

	log.Printf("pump: starting %v pulse (%s)", c.timing.Pulse, intent.Reason)
	c.setRelay(true)
	c.state = logic.PumpOn
	c.pulses++
	if c.announce != nil {
		c.announce.Announce(reading, c.state)
	}

	c.sleep(c.timing.Pulse)

	c.setRelay(false)
	c.state = logic.PumpOff
	if c.announce != nil {
		c.announce.PulseEnded()
	}
	log.Printf("pump: pulse complete, cooling down for %v", c.timing.Cooldown)

	c.sleep(c.timing.Cooldown)
	return c.state
}

// State returns the current pump state.
func (c *Controller) State() logic.PumpState {
	return c.state
}

// Pulses returns the number of pulses started since creation.
func (c *Controller) Pulses() int {
	return c.pulses
}

func (c *Controller) setRelay(on bool) {
	if err := c.relay.Set(on); err != nil {
		log.Printf("pump: relay write error (on=%v): %v", on, err)
	}
}
