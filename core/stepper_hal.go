package core

// StepperBackend drives the shared step pin from a periodic hardware tick.
// Both motors share one STEP line; direction comes from the DIR pins.
type StepperBackend interface {
	// Init programs the tick source at tickHz and installs handler as its
	// interrupt routine. Ticks stay disabled until EnableTicks.
	Init(tickHz uint32, handler func()) error

	// EnableTicks starts the periodic interrupt.
	EnableTicks()

	// DisableTicks stops the periodic interrupt. Safe to call when
	// already disabled.
	DisableTicks()

	// SetStep drives the step pin. Called from interrupt context.
	SetStep(high bool)

	// GetName returns backend implementation name
	GetName() string
}

// PulseBackend generates the step waveform entirely in hardware, for
// example with a looping PWM sequence. It cannot report individual edges.
type PulseBackend interface {
	Init() error

	// StartPulses emits a 50% duty square wave at freqHz until stopped.
	StartPulses(freqHz uint32) error

	// StopPulses halts the waveform and leaves the pin low.
	StopPulses()

	GetName() string
}

var (
	stepperBackend StepperBackend
	pulseBackend   PulseBackend
)

// SetStepperBackend registers the timer-interrupt step backend.
func SetStepperBackend(b StepperBackend) {
	stepperBackend = b
}

// SetPulseBackend registers a hardware pulse generator. It is only used
// when no StepperBackend is registered.
func SetPulseBackend(b PulseBackend) {
	pulseBackend = b
}

// newStepDriver builds the step driver for whichever backend the target
// registered.
func newStepDriver(tickHz uint32) (StepDriver, error) {
	if stepperBackend != nil {
		st := NewStepTimer(stepperBackend)
		if err := st.Configure(tickHz); err != nil {
			return nil, err
		}
		return st, nil
	}
	if pulseBackend != nil {
		ps := NewPulseStepper(pulseBackend)
		if err := pulseBackend.Init(); err != nil {
			return nil, err
		}
		return ps, nil
	}
	panic("stepper backend not configured")
}
