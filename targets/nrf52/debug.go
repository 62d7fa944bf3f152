//go:build nrf52

package main

import (
	"machine"

	"skoobot/core"
)

var debugUART *machine.UART

// InitDebugUART routes core debug lines to UART0 at 115200 baud. Boards
// whose UART pins carry other signals run without debug output.
func InitDebugUART(b *boardConfig) {
	if b.DebugTX == noPin {
		core.SetDebugEnabled(false)
		return
	}
	debugUART = machine.UART0
	err := debugUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       b.DebugTX,
		RX:       b.DebugRX,
	})
	if err != nil {
		core.SetDebugEnabled(false)
		return
	}
	core.SetDebugWriter(func(s string) {
		debugUART.Write([]byte(s))
		debugUART.Write([]byte("\r\n"))
	})
	core.InitDebugQueue()
	core.DebugPrintln("=== Skoobot (" + b.Name + ") ===")
}
