package core

// WaveformDriver plays a fixed square wave on the buzzer PWM a set number
// of times.
type WaveformDriver interface {
	// Play loads a 50% duty sequence with the given counter top (PWM base
	// clock ticks per period) and repeats it loops times. When the loops
	// finish, or Stop is called, the driver calls the done handler from
	// interrupt context.
	Play(top uint16, loops uint16) error

	// Stop halts playback. Safe to call when idle.
	Stop()

	// SetDoneHandler installs the completion callback.
	SetDoneHandler(func())
}

// Global singleton used by core code.
var waveformDriver WaveformDriver

// SetWaveformDriver is called by target-specific code to register its driver.
func SetWaveformDriver(d WaveformDriver) {
	waveformDriver = d
}

// MustWaveform returns the configured driver or panics if missing.
func MustWaveform() WaveformDriver {
	if waveformDriver == nil {
		panic("waveform driver not configured")
	}
	return waveformDriver
}
