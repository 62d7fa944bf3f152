package core

// Hardware clock rates on the nRF52.
const (
	// StepTickHz is the stepper tick rate: 16 MHz HFCLK with prescaler 7.
	StepTickHz = 125000

	// PWMBaseHz is the PWM counter clock: 16 MHz divided by 128.
	PWMBaseHz = 125000
)

// Millis returns milliseconds since boot. It wraps after ~49 days;
// compare with subtraction.
func Millis() uint32 {
	return getMillis()
}

// DelayMs blocks the foreground loop for ms milliseconds. Interrupt
// handlers and transport callbacks keep running.
func DelayMs(ms uint32) {
	delayMs(ms)
}

// elapsedSince returns the milliseconds since start, wrap-safe.
func elapsedSince(start uint32) uint32 {
	return Millis() - start
}
