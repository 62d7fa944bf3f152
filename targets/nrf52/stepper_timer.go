//go:build nrf52 && !pwmstep

package main

import (
	"device/nrf"
	"machine"
	"runtime/interrupt"

	"skoobot/core"
)

// TIMER2 runs from the 16 MHz HFCLK; 2^7 gives the 125 kHz step tick.
const (
	stepTimerPrescaler = 7
	stepTimerHz        = 16000000 >> stepTimerPrescaler
	stepIRQPriority    = 0x40
)

// stepTick is the core tick routine, called from the TIMER2 interrupt.
var stepTick func()

// TimerStepper implements core.StepperBackend with TIMER2 compare
// interrupts at the full tick rate. The core divides the tick down to
// the step frequency.
type TimerStepper struct {
	step machine.Pin
	intr interrupt.Interrupt
}

// NewTimerStepper creates a backend driving the shared STEP pin.
func NewTimerStepper(step machine.Pin) *TimerStepper {
	return &TimerStepper{step: step}
}

func (s *TimerStepper) Init(tickHz uint32, handler func()) error {
	if tickHz != stepTimerHz {
		return errTickRate
	}
	stepTick = handler

	s.step.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.step.Low()

	t := nrf.TIMER2
	t.TASKS_STOP.Set(1)
	t.MODE.Set(nrf.TIMER_MODE_MODE_Timer)
	t.BITMODE.Set(nrf.TIMER_BITMODE_BITMODE_32Bit)
	t.PRESCALER.Set(stepTimerPrescaler)
	t.CC[0].Set(1)
	t.SHORTS.Set(nrf.TIMER_SHORTS_COMPARE0_CLEAR_Msk)
	t.EVENTS_COMPARE[0].Set(0)

	s.intr = interrupt.New(nrf.IRQ_TIMER2, timer2Handler)
	s.intr.SetPriority(stepIRQPriority)
	s.intr.Enable()
	return nil
}

func (s *TimerStepper) EnableTicks() {
	t := nrf.TIMER2
	t.TASKS_CLEAR.Set(1)
	t.EVENTS_COMPARE[0].Set(0)
	t.INTENSET.Set(nrf.TIMER_INTENSET_COMPARE0_Msk)
	t.TASKS_START.Set(1)
}

func (s *TimerStepper) DisableTicks() {
	t := nrf.TIMER2
	t.TASKS_STOP.Set(1)
	t.INTENCLR.Set(nrf.TIMER_INTENCLR_COMPARE0_Msk)
	t.EVENTS_COMPARE[0].Set(0)
}

func (s *TimerStepper) SetStep(high bool) {
	s.step.Set(high)
}

func (s *TimerStepper) GetName() string {
	return "timer2"
}

func timer2Handler(interrupt.Interrupt) {
	if nrf.TIMER2.EVENTS_COMPARE[0].Get() == 0 {
		return
	}
	nrf.TIMER2.EVENTS_COMPARE[0].Set(0)
	if stepTick != nil {
		stepTick()
	}
}

func registerStepper(b *boardConfig) {
	core.SetStepperBackend(NewTimerStepper(machine.Pin(b.Motors.Step)))
}
