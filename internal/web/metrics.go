package web

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/irrigation-controller/internal/logic"
	"github.com/sweeney/irrigation-controller/internal/status"
)

const namespace = "irrigation"

// Collector exports tracker snapshots as Prometheus metrics. Values are read
// at scrape time, so the control loop never touches the registry.
type Collector struct {
	tracker *status.Tracker

	temperature   *prometheus.Desc
	humidity      *prometheus.Desc
	soil          *prometheus.Desc
	rain          *prometheus.Desc
	readingValid  *prometheus.Desc
	pumpOn        *prometheus.Desc
	mqttConnected *prometheus.Desc
	uptime        *prometheus.Desc
	iterations    *prometheus.Desc
	pulses        *prometheus.Desc
	sensorFaults  *prometheus.Desc
	reconnects    *prometheus.Desc
	publishErrors *prometheus.Desc
}

// NewCollector creates a Collector over tracker.
func NewCollector(tracker *status.Tracker) *Collector {
	device := tracker.Snapshot().Config.DeviceID
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", name),
			help, nil, prometheus.Labels{"device_id": device},
		)
	}

	return &Collector{
		tracker:       tracker,
		temperature:   desc("temperature_celsius", "Last ambient temperature reading (0 when the sensor faulted)."),
		humidity:      desc("humidity_percent", "Last relative humidity reading (0 when the sensor faulted)."),
		soil:          desc("soil_raw", "Last raw soil moisture reading. Higher is drier."),
		rain:          desc("rain_raw", "Last raw rain sensor reading. Higher is less rain."),
		readingValid:  desc("reading_valid", "1 if the last reading passed the validity check."),
		pumpOn:        desc("pump_on", "1 while the pump relay is energised."),
		mqttConnected: desc("mqtt_connected", "1 if the broker connection is up."),
		uptime:        desc("uptime_seconds", "Seconds since the controller started."),
		iterations:    desc("iterations_total", "Control loop iterations completed."),
		pulses:        desc("pump_pulses_total", "Watering pulses delivered."),
		sensorFaults:  desc("sensor_faults_total", "Readings rejected as invalid."),
		reconnects:    desc("mqtt_reconnects_total", "Successful broker (re)connections."),
		publishErrors: desc("publish_errors_total", "Telemetry publishes that failed."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.temperature
	ch <- c.humidity
	ch <- c.soil
	ch <- c.rain
	ch <- c.readingValid
	ch <- c.pumpOn
	ch <- c.mqttConnected
	ch <- c.uptime
	ch <- c.iterations
	ch <- c.pulses
	ch <- c.sensorFaults
	ch <- c.reconnects
	ch <- c.publishErrors
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.tracker.Snapshot()

	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	counter := func(d *prometheus.Desc, v int) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}

	if snap.HasReading {
		gauge(c.temperature, snap.Reading.TemperatureC)
		gauge(c.humidity, snap.Reading.HumidityPct)
		gauge(c.soil, float64(snap.Reading.SoilRaw))
		gauge(c.rain, float64(snap.Reading.RainRaw))
		gauge(c.readingValid, boolValue(snap.Reading.Valid))
	}
	gauge(c.pumpOn, boolValue(snap.Pump == logic.PumpOn))
	gauge(c.mqttConnected, boolValue(snap.MQTTConnected))
	gauge(c.uptime, snap.Uptime().Seconds())
	counter(c.iterations, snap.Counts.Iterations)
	counter(c.pulses, snap.Counts.Pulses)
	counter(c.sensorFaults, snap.Counts.SensorFaults)
	counter(c.reconnects, snap.Counts.Reconnects)
	counter(c.publishErrors, snap.Counts.PublishErrors)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
