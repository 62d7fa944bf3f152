package core

import "sync/atomic"

// StepDriver is the motion primitive the dispatcher uses: a continuous
// step pulse train at a fixed rate plus a count of steps emitted.
type StepDriver interface {
	Start(stepsPerSecond uint32)
	Stop()
	Running() bool
	Steps() uint32
	ResetSteps()
}

// StepTimer toggles the step pin from a periodic tick interrupt. Each
// tick increments a counter; when it reaches the match value the pin
// toggles, so a full step period is 2*match ticks.
//
// Fields written by the interrupt handler are only accessed atomically.
type StepTimer struct {
	backend StepperBackend
	tickHz  uint32

	match   uint32 // ticks per half period, >= 1 while enabled
	counter uint32 // tick handler only
	level   uint32 // current step pin level, 0 or 1
	steps   uint32 // rising edges since ResetSteps
	enabled uint32
}

// NewStepTimer creates a StepTimer on top of backend.
func NewStepTimer(backend StepperBackend) *StepTimer {
	return &StepTimer{backend: backend}
}

// Configure programs the tick source. Stepping stays disabled.
func (s *StepTimer) Configure(tickHz uint32) error {
	if tickHz == 0 {
		tickHz = StepTickHz
	}
	s.tickHz = tickHz
	if err := s.backend.Init(tickHz, s.Tick); err != nil {
		return err
	}
	DebugPrintln("[STEP] backend " + s.backend.GetName() + " tick=" + utoa(tickHz) + "Hz")
	return nil
}

// MatchFor returns the half-period match value for a step rate.
func (s *StepTimer) MatchFor(stepsPerSecond uint32) uint32 {
	if stepsPerSecond == 0 {
		return 0
	}
	m := s.tickHz / (2 * stepsPerSecond)
	if m < 1 {
		m = 1
	}
	return m
}

// Start begins stepping at stepsPerSecond. Calling Start while running
// changes the rate; a zero rate stops the motors.
func (s *StepTimer) Start(stepsPerSecond uint32) {
	m := s.MatchFor(stepsPerSecond)
	if m == 0 {
		s.Stop()
		return
	}

	state := disableInterrupts()
	s.counter = 0
	atomic.StoreUint32(&s.match, m)
	atomic.StoreUint32(&s.enabled, 1)
	restoreInterrupts(state)

	s.backend.EnableTicks()
}

// Stop halts stepping and drives the step pin low. Idempotent.
func (s *StepTimer) Stop() {
	if !atomic.CompareAndSwapUint32(&s.enabled, 1, 0) {
		return
	}
	s.backend.DisableTicks()

	state := disableInterrupts()
	s.counter = 0
	atomic.StoreUint32(&s.level, 0)
	restoreInterrupts(state)

	s.backend.SetStep(false)
}

// Tick is the tick interrupt handler.
func (s *StepTimer) Tick() {
	if atomic.LoadUint32(&s.enabled) == 0 {
		return
	}
	s.counter++
	if s.counter < atomic.LoadUint32(&s.match) {
		return
	}
	s.counter = 0

	if atomic.LoadUint32(&s.level) == 0 {
		atomic.StoreUint32(&s.level, 1)
		s.backend.SetStep(true)
		atomic.AddUint32(&s.steps, 1)
	} else {
		atomic.StoreUint32(&s.level, 0)
		s.backend.SetStep(false)
	}
}

// Running reports whether stepping is enabled.
func (s *StepTimer) Running() bool {
	return atomic.LoadUint32(&s.enabled) == 1
}

// Steps returns the rising edges since the last ResetSteps.
func (s *StepTimer) Steps() uint32 {
	return atomic.LoadUint32(&s.steps)
}

// ResetSteps zeroes the step counter.
func (s *StepTimer) ResetSteps() {
	atomic.StoreUint32(&s.steps, 0)
}

// Match returns the active half-period match value.
func (s *StepTimer) Match() uint32 {
	return atomic.LoadUint32(&s.match)
}

// PulseStepper runs the step waveform on a hardware pulse generator.
// Steps are estimated from the elapsed time at the programmed rate.
type PulseStepper struct {
	backend PulseBackend
	rate    uint32
	since   uint32 // Millis at the last rate change or reset
	base    uint32 // steps accumulated before since
	running bool
}

// NewPulseStepper creates a PulseStepper on top of backend.
func NewPulseStepper(backend PulseBackend) *PulseStepper {
	return &PulseStepper{backend: backend}
}

func (p *PulseStepper) Start(stepsPerSecond uint32) {
	if stepsPerSecond == 0 {
		p.Stop()
		return
	}
	if err := p.backend.StartPulses(stepsPerSecond); err != nil {
		DebugPrintln("[STEP] pulse start failed: " + err.Error())
		return
	}
	p.base = p.Steps()
	p.since = Millis()
	p.rate = stepsPerSecond
	p.running = true
}

func (p *PulseStepper) Stop() {
	if !p.running {
		return
	}
	p.backend.StopPulses()
	p.base = p.Steps()
	p.running = false
}

func (p *PulseStepper) Running() bool {
	return p.running
}

func (p *PulseStepper) Steps() uint32 {
	if !p.running {
		return p.base
	}
	return p.base + elapsedSince(p.since)*p.rate/1000
}

func (p *PulseStepper) ResetSteps() {
	p.base = 0
	p.since = Millis()
}
