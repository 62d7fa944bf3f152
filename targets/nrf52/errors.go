//go:build nrf52

package main

import "errors"

var (
	errPinNotConfigured = errors.New("pin not configured")
	errTickRate         = errors.New("unsupported stepper tick rate")
	errTonePeriod       = errors.New("tone period out of range")
	errPulseRate        = errors.New("pulse rate out of range")
	errMicBusy          = errors.New("microphone capture active")
	errMicGain          = errors.New("microphone gain out of range")
)
