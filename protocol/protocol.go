// Package protocol defines the Skoobot BLE wire format shared by the
// firmware and the host tools: command codes, characteristic layout,
// status markers and sample encoding.
package protocol

// Version represents the Skoobot firmware version
const Version = "1.2.0"

// DeviceName is the advertised local name.
const DeviceName = "Skoobot"

// Characteristic payload sizes
const (
	CommandLen = 2 // code + optional argument byte
	Data1Len   = 1
	Data2Len   = 2
	Data4Len   = 4

	// ChunkMin and ChunkMax bound the stream chunk size. Chunks always
	// carry whole samples.
	ChunkMin     = 10
	ChunkMax     = 20
	ChunkDefault = 20

	// MessageMax is the largest payload written to any characteristic.
	MessageMax = ChunkMax
)

// Status markers published on the 1-byte data characteristic.
const (
	MarkerRecordingComplete = 0xF0
	MarkerDrainComplete     = 0xF1
	MarkerDrainAborted      = 0xF2
)

// Audio format of a drained recording.
const (
	SampleRate     = 16667 // 1.067 MHz PDM clock, decimation 64
	BytesPerSample = 2
	Channels       = 1
)

// IsMarker reports whether b is one of the status markers. The 1-byte
// characteristic also carries distance and gain replies, so hosts only
// interpret markers while a recording is in progress.
func IsMarker(b byte) bool {
	return b >= MarkerRecordingComplete && b <= MarkerDrainAborted
}

// ClampChunk returns a valid even chunk size for n.
func ClampChunk(n int) int {
	if n < ChunkMin {
		n = ChunkMin
	}
	if n > ChunkMax {
		n = ChunkMax
	}
	return n &^ 1
}
