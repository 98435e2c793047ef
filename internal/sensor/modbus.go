package sensor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	mb "github.com/goburrow/modbus"
	"github.com/sony/gobreaker"
)

// ModbusConfig describes the RS485 (or Modbus TCP) bus carrying the climate
// probe and the ADC module.
type ModbusConfig struct {
	Protocol string // "rtu" or "tcp"
	Address  string // serial port for rtu, host:port for tcp
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
	Timeout  time.Duration

	// ClimateSlaveID is the probe's unit id. Temperature and humidity are
	// signed input registers in tenths.
	ClimateSlaveID      byte
	TemperatureRegister uint16
	HumidityRegister    uint16

	// ADCSlaveID is the analog module's unit id. Channel n is input register n.
	ADCSlaveID byte

	// BreakerFailures is the number of consecutive bus failures that open the breaker.
	BreakerFailures uint32
	// BreakerOpen is how long the breaker stays open before probing again.
	BreakerOpen time.Duration
}

// handlerWithConn embeds mb.ClientHandler and exposes Connect/Close used for lifecycle.
type handlerWithConn interface {
	mb.ClientHandler
	Connect() error
	Close() error
}

// ModbusBus implements ClimateSource and AnalogSource over a Modbus client.
// Every transaction goes through a circuit breaker so a dead bus costs one
// fast failure per iteration instead of a full timeout per register.
type ModbusBus struct {
	cfg      ModbusConfig
	client   mb.Client
	setSlave func(id byte)
	closer   func() error
	breaker  *gobreaker.CircuitBreaker
}

// NewModbusBus opens the bus described by cfg.
func NewModbusBus(cfg ModbusConfig) (*ModbusBus, error) {
	h, setSlave, err := newHandler(cfg)
	if err != nil {
		return nil, err
	}
	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("connect modbus %s: %w", cfg.Address, err)
	}
	return newModbusBus(cfg, mb.NewClient(h), setSlave, h.Close), nil
}

func newModbusBus(cfg ModbusConfig, client mb.Client, setSlave func(byte), closer func() error) *ModbusBus {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 3
	}
	open := cfg.BreakerOpen
	if open <= 0 {
		open = 30 * time.Second
	}

	return &ModbusBus{
		cfg:      cfg,
		client:   client,
		setSlave: setSlave,
		closer:   closer,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "modbus",
			MaxRequests: 1,
			Timeout:     open,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Printf("sensor: %s breaker %s -> %s", name, from, to)
			},
		}),
	}
}

// newHandler creates and configures a handler for TCP or RTU based on config.
func newHandler(cfg ModbusConfig) (handlerWithConn, func(byte), error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Protocol)) {
	case "tcp", "modbus-tcp":
		h := mb.NewTCPClientHandler(cfg.Address)
		h.Timeout = timeout
		return h, func(id byte) { h.SlaveId = id }, nil
	case "", "rtu", "modbus-rtu":
		if strings.TrimSpace(cfg.Address) == "" {
			return nil, nil, errors.New("serial port is required for rtu")
		}
		h := mb.NewRTUClientHandler(cfg.Address)
		if cfg.BaudRate > 0 {
			h.BaudRate = cfg.BaudRate
		}
		if cfg.DataBits > 0 {
			h.DataBits = cfg.DataBits
		}
		if cfg.StopBits > 0 {
			h.StopBits = cfg.StopBits
		}
		if p := strings.ToUpper(strings.TrimSpace(cfg.Parity)); p != "" {
			h.Parity = p
		}
		h.Timeout = timeout
		return h, func(id byte) { h.SlaveId = id }, nil
	default:
		return nil, nil, fmt.Errorf("modbus protocol %q not supported", cfg.Protocol)
	}
}

// ReadClimate reads temperature and humidity from the probe.
func (b *ModbusBus) ReadClimate() (float64, float64, error) {
	temp, err := b.readRegister(b.cfg.ClimateSlaveID, b.cfg.TemperatureRegister)
	if err != nil {
		return 0, 0, fmt.Errorf("read temperature: %w", err)
	}
	humidity, err := b.readRegister(b.cfg.ClimateSlaveID, b.cfg.HumidityRegister)
	if err != nil {
		return 0, 0, fmt.Errorf("read humidity: %w", err)
	}
	return decodeTenths(temp), decodeTenths(humidity), nil
}

// ReadRaw reads one ADC channel.
func (b *ModbusBus) ReadRaw(channel int) (int, error) {
	if channel < 0 || channel > 0xFFFF {
		return 0, fmt.Errorf("channel %d out of range", channel)
	}
	data, err := b.readRegister(b.cfg.ADCSlaveID, uint16(channel))
	if err != nil {
		return 0, fmt.Errorf("read channel %d: %w", channel, err)
	}
	return decodeRaw(data), nil
}

// Close releases the underlying connection.
func (b *ModbusBus) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer()
}

func (b *ModbusBus) readRegister(slave byte, addr uint16) ([]byte, error) {
	res, err := b.breaker.Execute(func() (interface{}, error) {
		b.setSlave(slave)
		data, err := b.client.ReadInputRegisters(addr, 1)
		if err != nil {
			return nil, err
		}
		if len(data) < 2 {
			return nil, fmt.Errorf("short response: %d bytes", len(data))
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

// decodeTenths interprets a big-endian signed register as tenths of a unit.
func decodeTenths(data []byte) float64 {
	return float64(int16(binary.BigEndian.Uint16(data))) / 10
}

// decodeRaw interprets a big-endian unsigned register as a raw ADC count.
func decodeRaw(data []byte) int {
	return int(binary.BigEndian.Uint16(data))
}
