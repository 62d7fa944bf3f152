//go:build tinygo

package core

import "time"

var bootTime = time.Now()

func getMillis() uint32 {
	return uint32(time.Since(bootTime) / time.Millisecond)
}

// delayMs yields to the scheduler while waiting; the BLE event goroutine
// runs during sensor settle times.
func delayMs(ms uint32) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}
