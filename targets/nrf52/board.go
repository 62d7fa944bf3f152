//go:build nrf52

package main

import (
	"machine"

	"skoobot/core"
)

const noPin = machine.NoPin

// boardConfig is the pin map of one hardware variant.
type boardConfig struct {
	Name string

	Motors core.MotorPins

	Buzzer  machine.Pin
	MicClk  machine.Pin
	MicData machine.Pin
	HasMic  bool

	SCL machine.Pin
	SDA machine.Pin

	LED machine.Pin

	DebugTX machine.Pin
	DebugRX machine.Pin
}
