package core

import "tinygo.org/x/drivers"

// Global singleton used by core code. Any drivers.I2C works: machine.I2C
// on the board, a mock in tests.
var sensorBus drivers.I2C

// SetSensorBus is called by target-specific code to register the I2C bus
// the VL6180X sits on.
func SetSensorBus(bus drivers.I2C) {
	sensorBus = bus
}

// MustSensorBus returns the configured bus or panics if missing.
func MustSensorBus() drivers.I2C {
	if sensorBus == nil {
		panic("sensor I2C bus not configured")
	}
	return sensorBus
}
