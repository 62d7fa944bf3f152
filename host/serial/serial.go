// Package serial tails the robot's debug UART. Boards that expose the
// UART print one tagged line per firmware event, for example
// "[REC] drained 16000 bytes", at 115200 baud 8N1.
package serial

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// DebugBaud is the rate of the firmware's debug UART.
const DebugBaud = 115200

// ErrNoDevice is returned when no UART adapter is configured.
var ErrNoDevice = errors.New("serial: no device configured")

// Port is a debug UART opened for reading.
type Port interface {
	io.ReadCloser

	// Flush drops bytes received before the monitor attached.
	Flush() error
}

// Config selects the USB-UART adapter wired to the robot.
type Config struct {
	// Device path, e.g. "/dev/ttyUSB0" or "COM3".
	Device string
	Baud   int

	// ReadTimeout bounds each read so the monitor notices cancellation.
	ReadTimeout time.Duration
}

// DefaultConfig returns the firmware's UART settings on device.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DebugBaud,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// Validate checks that the port can be opened.
func (c *Config) Validate() error {
	if c == nil || c.Device == "" {
		return ErrNoDevice
	}
	if c.Baud <= 0 {
		return fmt.Errorf("serial: invalid baud rate %d", c.Baud)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("serial: read timeout must be > 0 so the monitor can stop")
	}
	return nil
}
