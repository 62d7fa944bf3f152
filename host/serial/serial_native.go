package serial

import (
	"fmt"

	"github.com/tarm/serial"
)

// uartPort is the debug UART on a tarm/serial port.
type uartPort struct {
	*serial.Port
}

// Open opens the debug UART described by cfg and discards anything the
// robot printed before the monitor attached.
func Open(cfg *Config) (Port, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open debug uart %s: %w", cfg.Device, err)
	}

	port := &uartPort{Port: p}
	if err := port.Flush(); err != nil {
		p.Close()
		return nil, fmt.Errorf("flush debug uart %s: %w", cfg.Device, err)
	}
	return port, nil
}
