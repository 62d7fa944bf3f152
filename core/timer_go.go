//go:build !tinygo

package core

import "sync/atomic"

// The host build runs on a simulated clock: DelayMs advances time
// instantly so tests never sleep.
var (
	simMillis uint32

	// delayHook, when set, runs once per simulated millisecond. Tests use
	// it to fire interrupt handlers while the foreground busy-waits.
	delayHook func()
)

func getMillis() uint32 {
	return atomic.LoadUint32(&simMillis)
}

func delayMs(ms uint32) {
	for i := uint32(0); i < ms; i++ {
		atomic.AddUint32(&simMillis, 1)
		if delayHook != nil {
			delayHook()
		}
	}
}

// advanceMillis moves the simulated clock without running the hook.
func advanceMillis(ms uint32) {
	atomic.AddUint32(&simMillis, ms)
}
