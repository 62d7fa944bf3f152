//go:build nrf52

package main

import (
	"machine"

	"skoobot/core"
)

// NRFGPIODriver implements core.GPIODriver for the nRF52 P0 port.
type NRFGPIODriver struct {
	// Track configured pins so SetPin can reject unconfigured ones
	configuredPins map[core.GPIOPin]machine.Pin
}

// NewNRFGPIODriver creates a new nRF52 GPIO driver
func NewNRFGPIODriver() *NRFGPIODriver {
	return &NRFGPIODriver{
		configuredPins: make(map[core.GPIOPin]machine.Pin),
	}
}

// ConfigureOutput configures a pin as a push-pull output. The M0 pin
// switches between output and floating with the step mode, so a pin is
// reconfigured every time.
func (d *NRFGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	d.configuredPins[pin] = p
	return nil
}

// ConfigureFloating disconnects the output driver and leaves the pin
// without pull resistors.
func (d *NRFGPIODriver) ConfigureFloating(pin core.GPIOPin) error {
	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: machine.PinInput})
	d.configuredPins[pin] = p
	return nil
}

// SetPin drives a configured output.
func (d *NRFGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	p, ok := d.configuredPins[pin]
	if !ok {
		return errPinNotConfigured
	}
	p.Set(value)
	return nil
}
