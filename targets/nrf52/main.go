//go:build nrf52

package main

import (
	"machine"
	"time"

	"skoobot/ble"
	"skoobot/core"

	"tinygo.org/x/bluetooth"
)

const (
	loopInterval = time.Millisecond
	i2cFrequency = 100 * machine.KHz
)

var (
	// Debug counters
	loopPanics uint32
)

func main() {
	b := &board

	InitDebugUART(b)

	led := b.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	led.Low()

	// Register drivers before the device is built
	core.SetGPIODriver(NewNRFGPIODriver())
	registerStepper(b)
	core.SetWaveformDriver(NewBuzzerPWM(b.Buzzer))
	if b.HasMic {
		core.SetAudioDriver(NewPDMMic(b.MicClk, b.MicData))
	}

	i2c := machine.I2C0
	err := i2c.Configure(machine.I2CConfig{
		Frequency: i2cFrequency,
		SCL:       b.SCL,
		SDA:       b.SDA,
	})
	if err != nil {
		fatal("i2c: "+err.Error(), led)
	}
	core.SetSensorBus(i2c)

	peripheral := ble.NewPeripheral()
	core.SetTransport(peripheral)
	stack := ble.NewStack(bluetooth.DefaultAdapter, peripheral)
	if err := stack.Enable(); err != nil {
		fatal("ble: "+err.Error(), led)
	}

	dev, err := core.NewDevice(core.DefaultConfig(), b.Motors)
	if err != nil {
		fatal("device: "+err.Error(), led)
	}
	peripheral.Bind(dev)

	if err := stack.Serve(); err != nil {
		fatal("gatt: "+err.Error(), led)
	}
	led.High()

	for {
		// Recover from panics in the main loop to keep the radio up
		func() {
			defer func() {
				if r := recover(); r != nil {
					loopPanics++
					core.DebugPrintln("[MAIN] recovered from panic")
				}
			}()
			dev.Poll()
		}()
		core.FlushDebug()
		time.Sleep(loopInterval)
	}
}

// fatal reports a boot failure and blinks the LED forever.
func fatal(msg string, led machine.Pin) {
	core.DebugPrintln("[MAIN] fatal: " + msg)
	core.FlushDebug()
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(900 * time.Millisecond)
	}
}
