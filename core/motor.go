package core

// MotorState is the motion state of the robot.
type MotorState uint8

const (
	MotorSleeping MotorState = iota
	MotorForward
	MotorBackward
	MotorTurningRight
	MotorTurningLeft
)

func (m MotorState) String() string {
	switch m {
	case MotorSleeping:
		return "sleeping"
	case MotorForward:
		return "forward"
	case MotorBackward:
		return "backward"
	case MotorTurningRight:
		return "turning-right"
	case MotorTurningLeft:
		return "turning-left"
	}
	return "unknown"
}

// Translating reports whether the robot is driving straight.
func (m MotorState) Translating() bool {
	return m == MotorForward || m == MotorBackward
}

// Turning reports whether the robot is turning in place.
func (m MotorState) Turning() bool {
	return m == MotorTurningRight || m == MotorTurningLeft
}

// PinLevel is a driven or released pin state.
type PinLevel uint8

const (
	PinLow PinLevel = iota
	PinHigh
	PinFloat
)

// StepMode is one DRV8834 microstep setting.
type StepMode struct {
	Divisor   uint32 // microsteps per full step
	M0, M1    PinLevel
	Frequency uint32 // steps per second used with this mode
}

// NumStepModes is the number of microstep settings.
const NumStepModes = 6

// StepModes maps mode index to the M0/M1 encoding and step rate. The
// rate doubles with the divisor so wheel speed stays about the same.
var StepModes = [NumStepModes]StepMode{
	{Divisor: 1, M0: PinLow, M1: PinLow, Frequency: 50},
	{Divisor: 2, M0: PinHigh, M1: PinLow, Frequency: 100},
	{Divisor: 4, M0: PinFloat, M1: PinLow, Frequency: 200},
	{Divisor: 8, M0: PinLow, M1: PinHigh, Frequency: 400},
	{Divisor: 16, M0: PinHigh, M1: PinHigh, Frequency: 800},
	{Divisor: 32, M0: PinFloat, M1: PinHigh, Frequency: 1600},
}

// MotorPins is the wiring of the two DRV8834 stepper drivers. Both
// drivers share STEP, SLEEP and the mode pins.
type MotorPins struct {
	Step   GPIOPin
	DirL   GPIOPin
	DirR   GPIOPin
	Sleep  GPIOPin // high = awake
	M0, M1 GPIOPin
}

// Motors drives the direction, power and mode pins.
type Motors struct {
	pins MotorPins
	gpio GPIODriver
}

// NewMotors creates a Motors on gpio.
func NewMotors(pins MotorPins, gpio GPIODriver) *Motors {
	return &Motors{pins: pins, gpio: gpio}
}

// Init configures all pins as outputs with the drivers asleep.
func (m *Motors) Init() error {
	for _, p := range []GPIOPin{m.pins.Step, m.pins.DirL, m.pins.DirR, m.pins.Sleep, m.pins.M1} {
		if err := m.gpio.ConfigureOutput(p); err != nil {
			return err
		}
		if err := m.gpio.SetPin(p, false); err != nil {
			return err
		}
	}
	return m.gpio.ConfigureOutput(m.pins.M0)
}

// directions maps a motor state to the DIR_R/DIR_L levels. The motors
// face opposite ways, so forward drives the pins apart.
func directions(state MotorState) (right, left bool, ok bool) {
	switch state {
	case MotorForward:
		return false, true, true
	case MotorBackward:
		return true, false, true
	case MotorTurningRight:
		return false, false, true
	case MotorTurningLeft:
		return true, true, true
	}
	return false, false, false
}

// SetDirection sets the DIR pins for state. Sleeping leaves them alone.
func (m *Motors) SetDirection(state MotorState) {
	right, left, ok := directions(state)
	if !ok {
		return
	}
	m.set(m.pins.DirR, right)
	m.set(m.pins.DirL, left)
}

// Wake powers the drivers.
func (m *Motors) Wake() {
	m.set(m.pins.Sleep, true)
}

// Sleep cuts driver power.
func (m *Motors) Sleep() {
	m.set(m.pins.Sleep, false)
}

// ApplyStepMode drives M0/M1 for mode. M0 is released to high impedance
// for the 1/4 and 1/32 settings.
func (m *Motors) ApplyStepMode(mode uint8) {
	sm := StepModes[mode%NumStepModes]
	if sm.M0 == PinFloat {
		if err := m.gpio.ConfigureFloating(m.pins.M0); err != nil {
			DebugPrintln("[MOTOR] M0 float failed: " + err.Error())
		}
	} else {
		if err := m.gpio.ConfigureOutput(m.pins.M0); err != nil {
			DebugPrintln("[MOTOR] M0 output failed: " + err.Error())
		}
		m.set(m.pins.M0, sm.M0 == PinHigh)
	}
	m.set(m.pins.M1, sm.M1 == PinHigh)
}

func (m *Motors) set(pin GPIOPin, value bool) {
	if err := m.gpio.SetPin(pin, value); err != nil {
		DebugPrintln("[MOTOR] pin " + utoa(uint32(pin)) + " write failed: " + err.Error())
	}
}
