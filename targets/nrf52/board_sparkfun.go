//go:build nrf52 && sparkfun

package main

import "skoobot/core"

// SparkFun nRF52832 breakout used as a bench reference.
var board = boardConfig{
	Name: "sparkfun",

	Motors: core.MotorPins{
		Step: 1,
		DirL: 2,
		DirR: 4,
		// The breakout has no SLEEP line; the drivers are tied awake.
		Sleep: 11,
		M0:    12,
		M1:    3,
	},

	Buzzer:  31,
	MicClk:  16,
	MicData: 17,
	HasMic:  true,

	SCL: 22,
	SDA: 20,

	LED: 7,

	DebugTX: 27,
	DebugRX: 26,
}
