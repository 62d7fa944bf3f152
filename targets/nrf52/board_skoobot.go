//go:build nrf52 && !sparkfun

package main

import "skoobot/core"

// Skoobot ("Tiny Robot") wiring.
var board = boardConfig{
	Name: "skoobot",

	Motors: core.MotorPins{
		Step:  30,
		DirL:  22,
		DirR:  26,
		Sleep: 27,
		M0:    23,
		M1:    25,
	},

	Buzzer:  10,
	MicClk:  28,
	MicData: 29,
	HasMic:  true,

	SCL: 15,
	SDA: 16,

	LED: 2,

	// UART pins are shared with the motor drivers.
	DebugTX: noPin,
}
