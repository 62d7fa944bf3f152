package core

// AudioDriver captures microphone samples into a caller-owned buffer.
type AudioDriver interface {
	// Start begins filling buf with signed 16-bit samples. The driver
	// calls the done handler from interrupt context once buf is full,
	// then stops on its own.
	Start(buf []int16) error

	// Stop aborts a capture in progress. Safe to call when idle.
	Stop()

	// SetGain programs the microphone gain register.
	SetGain(gain uint8) error

	// SetDoneHandler installs the buffer-full callback.
	SetDoneHandler(func())
}

// Global singleton used by core code. Boards without a microphone leave
// it unset.
var audioDriver AudioDriver

// SetAudioDriver is called by target-specific code to register its driver.
func SetAudioDriver(d AudioDriver) {
	audioDriver = d
}
