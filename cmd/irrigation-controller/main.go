// Command irrigation-controller samples soil, rain and climate sensors, pulses
// the irrigation pump when the policy asks for water and publishes telemetry to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sweeney/irrigation-controller/internal/config"
	"github.com/sweeney/irrigation-controller/internal/controller"
	"github.com/sweeney/irrigation-controller/internal/gpio"
	"github.com/sweeney/irrigation-controller/internal/logic"
	"github.com/sweeney/irrigation-controller/internal/mqtt"
	"github.com/sweeney/irrigation-controller/internal/network"
	"github.com/sweeney/irrigation-controller/internal/pump"
	"github.com/sweeney/irrigation-controller/internal/sensor"
	"github.com/sweeney/irrigation-controller/internal/status"
	"github.com/sweeney/irrigation-controller/internal/web"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: ./irrigation.yaml, then /etc/irrigation-controller/config.yaml)")
	printReading := flag.Bool("print-reading", false, "Print one sensor reading and the watering decision, then exit")

	flag.Parse()

	if err := run(*configPath, *printReading); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(configPath string, printReading bool) error {
	path, err := config.FindConfig(configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if path == "" {
		log.Printf("config: no file found, using defaults")
	} else {
		log.Printf("config: loaded %s", path)
	}

	// Power the sensors and let them settle before the first sample.
	power, err := gpio.NewRealOutput(cfg.Pins.Chip, cfg.Pins.SensorPower, true)
	if err != nil {
		return fmt.Errorf("init sensor power: %w", err)
	}
	defer power.Close()
	time.Sleep(cfg.Timing.SensorSettle)

	bus, err := sensor.NewModbusBus(cfg.SensorBus())
	if err != nil {
		return fmt.Errorf("init sensor bus: %w", err)
	}
	defer bus.Close()
	reader := sensor.NewReader(bus, bus, cfg.SensorChannels())

	// Print reading mode
	if printReading {
		printOnce(os.Stdout, cfg.Device.ID, reader, cfg.PolicyThresholds())
		return nil
	}

	relay, err := gpio.NewRealOutput(cfg.Pins.Chip, cfg.Pins.Relay, false)
	if err != nil {
		return fmt.Errorf("init relay: %w", err)
	}
	defer relay.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	reasonCh := make(chan string, 1)
	go func() {
		select {
		case s := <-sigCh:
			log.Printf("received %v, shutting down after the current iteration", s)
			reasonCh <- signalName(s)
			cancel()
		case <-ctx.Done():
		}
	}()
	reason := func() string {
		select {
		case r := <-reasonCh:
			return r
		default:
			return ""
		}
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))

	if err := network.WaitAssociated(ctx, network.Associated, cfg.Timing.NetworkPoll, nil); err != nil {
		log.Printf("network: %v", err)
		return nil
	}
	tracker.SetNetwork(network.ReadInfo())

	transport := mqtt.NewPahoTransport(cfg.MQTT.Broker)
	defer transport.Close()

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: device=%s broker=%s topic=%s pulse=%v cooldown=%v idle=%v",
		cfg.Device.ID, cfg.MQTT.Broker, cfg.MQTT.Topic, cfg.Timing.Pulse, cfg.Timing.Cooldown, cfg.Timing.Idle)

	return serve(ctx, cfg, daemon{
		relay:     relay,
		reader:    reader,
		transport: transport,
		tracker:   tracker,
		reason:    reason,
	})
}

// daemon bundles the hardware-facing parts serve runs against.
type daemon struct {
	relay     gpio.Output
	reader    controller.Reader
	transport mqtt.Transport
	tracker   *status.Tracker

	// reason returns the shutdown signal name, or "" if none was received.
	reason func() string

	// timer and sleep replace the real clock in tests.
	timer backoff.Timer
	sleep func(time.Duration)
}

// serve connects, announces STARTUP, runs the control loop until ctx is
// cancelled, then announces SHUTDOWN.
func serve(ctx context.Context, cfg *config.Config, d daemon) error {
	publisher := mqtt.NewPublisher(d.transport, cfg.MQTT.Topic, cfg.MQTT.StatusTopic)
	supervisor := mqtt.NewSupervisor(d.transport, mqtt.SupervisorConfig{
		Topic:          cfg.MQTT.Topic,
		ClientIDPrefix: cfg.MQTT.ClientIDPrefix,
		RetryInterval:  cfg.MQTT.RetryInterval,
		Timer:          d.timer,
		OnReconnect:    d.tracker.RecordReconnect,
	})

	telemetry := controller.NewTelemetry(cfg.Device.ID, publisher, d.tracker)
	pc := pump.New(d.relay, telemetry, cfg.PumpTiming(), d.sleep)
	loop := controller.New(controller.Config{
		DeviceID:   cfg.Device.ID,
		Thresholds: cfg.PolicyThresholds(),
		Idle:       cfg.Timing.Idle,
		Sleep:      d.sleep,
	}, supervisor, d.transport, d.reader, pc, telemetry, d.tracker)

	// Connect up front so the STARTUP event has somewhere to go.
	if err := supervisor.EnsureConnected(ctx); err == nil {
		publishLifecycle(publisher, d.tracker, "STARTUP", "")
	}

	err := loop.Run(ctx)

	d.tracker.SetMQTTConnected(d.transport.IsConnected())
	publishLifecycle(publisher, d.tracker, "SHUTDOWN", d.reason())
	log.Printf("stopped after %d pulse(s)", pc.Pulses())
	return err
}

func publishLifecycle(p *mqtt.Publisher, tracker *status.Tracker, event, reason string) {
	payload := status.FormatStatusEvent(tracker.Snapshot(), event, reason)
	if err := p.PublishStatus(payload); err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
	}
}

func statusConfig(cfg *config.Config) status.Config {
	return status.Config{
		DeviceID:    cfg.Device.ID,
		Broker:      cfg.MQTT.Broker,
		Topic:       cfg.MQTT.Topic,
		StatusTopic: cfg.MQTT.StatusTopic,
		Thresholds:  cfg.PolicyThresholds(),
		PulseMs:     cfg.Timing.Pulse.Milliseconds(),
		CooldownMs:  cfg.Timing.Cooldown.Milliseconds(),
		IdleMs:      cfg.Timing.Idle.Milliseconds(),
		HTTPAddr:    cfg.HTTP.Addr,
	}
}

// printOnce writes the telemetry line for one reading and the policy decision.
func printOnce(w io.Writer, deviceID string, reader controller.Reader, th logic.Thresholds) {
	r := reader.Read()
	intent := logic.Evaluate(r, th)
	fmt.Fprintf(w, "%s\n", mqtt.FormatTelemetry(mqtt.NewTelemetry(deviceID, r, logic.PumpOff)))
	fmt.Fprintf(w, "valid: %v, water: %v, reason: %s\n", r.Valid, intent.ShouldRun, intent.Reason)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}
