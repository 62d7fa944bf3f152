package core

import "skoobot/protocol"

// Config holds the firmware tuning values. Boards start from
// DefaultConfig and override what differs.
type Config struct {
	TickHz          uint32 // stepper tick rate
	DefaultStepMode uint8

	// TurnFullSteps is the number of full steps for a ~30 degree turn;
	// scaled by the microstep divisor of the active mode.
	TurnFullSteps uint32
	TurnSlackMs   uint32 // added to the expected turn duration

	ToneDurationMs uint32
	ToneSlackMs    uint32

	ChunkBytes       int
	RecordingSamples int
	CaptureTimeoutMs uint32
	PushIntervalMs   uint32
	RetryDelayMs     uint32
	DrainDeadlineMs  uint32
	PublishRetries   int

	AmbientGain uint8

	PhotovoreIntervalMs uint32
	PhotovoreMarginLux  float32

	RoverIntervalMs  uint32
	RoverMinDistance byte
}

// DefaultConfig returns the settings used on the Skoobot board.
func DefaultConfig() Config {
	return Config{
		TickHz:          StepTickHz,
		DefaultStepMode: 1,

		TurnFullSteps: 12,
		TurnSlackMs:   250,

		ToneDurationMs: 250,
		ToneSlackMs:    100,

		ChunkBytes:       protocol.ChunkDefault,
		RecordingSamples: 8000,
		CaptureTimeoutMs: 2000,
		PushIntervalMs:   10,
		RetryDelayMs:     5,
		DrainDeadlineMs:  30000,
		PublishRetries:   3,

		AmbientGain: ALSGain1,

		PhotovoreIntervalMs: 500,
		PhotovoreMarginLux:  20,

		RoverIntervalMs:  200,
		RoverMinDistance: 80,
	}
}

func (c *Config) normalize() {
	c.ChunkBytes = protocol.ClampChunk(c.ChunkBytes)
	if c.TickHz == 0 {
		c.TickHz = StepTickHz
	}
	if c.DefaultStepMode >= NumStepModes {
		c.DefaultStepMode = 0
	}
	if c.RecordingSamples < 1 {
		c.RecordingSamples = 1
	}
	if c.PublishRetries < 1 {
		c.PublishRetries = 1
	}
}
