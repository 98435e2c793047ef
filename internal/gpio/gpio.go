// Package gpio drives digital output lines with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Output drives a single digital output line.
type Output interface {
	// Set drives the line high (true) or low (false).
	Set(high bool) error

	// Close releases the line.
	Close() error
}

// Default pin definitions (BCM numbering).
const (
	DefaultPinRelay       = 17 // Pump relay, active high
	DefaultPinSensorPower = 27 // Sensor supply enable, active high
)

// DefaultChip is the GPIO character device used when none is configured.
const DefaultChip = "gpiochip0"
