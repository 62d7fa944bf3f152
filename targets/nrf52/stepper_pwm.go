//go:build nrf52 && pwmstep

package main

import (
	"device/nrf"
	"machine"
	"unsafe"

	"skoobot/core"
)

// pulseSeq is the PWM1 sequence RAM: one compare value, replayed forever.
var pulseSeq [1]uint16

// PWMStepper implements core.PulseBackend on PWM1. The step waveform
// runs without interrupts, so step counts are estimated by the core.
type PWMStepper struct {
	step machine.Pin
}

// NewPWMStepper creates a backend driving the shared STEP pin.
func NewPWMStepper(step machine.Pin) *PWMStepper {
	return &PWMStepper{step: step}
}

func (s *PWMStepper) Init() error {
	s.step.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.step.Low()

	p := nrf.PWM1
	p.PSEL.OUT[0].Set(uint32(s.step))
	p.MODE.Set(nrf.PWM_MODE_UPDOWN_Up)
	p.PRESCALER.Set(nrf.PWM_PRESCALER_PRESCALER_DIV_128)
	p.DECODER.Set(nrf.PWM_DECODER_LOAD_Common << nrf.PWM_DECODER_LOAD_Pos)
	p.SEQ[0].PTR.Set(uint32(uintptr(unsafe.Pointer(&pulseSeq[0]))))
	p.SEQ[0].CNT.Set(uint32(len(pulseSeq)))
	p.SEQ[0].REFRESH.Set(0)
	p.SEQ[0].ENDDELAY.Set(0)
	p.LOOP.Set(0)
	// Restart sequence 0 as soon as it ends.
	p.SHORTS.Set(nrf.PWM_SHORTS_SEQEND0_SEQSTART0_Msk)
	return nil
}

func (s *PWMStepper) StartPulses(freqHz uint32) error {
	if freqHz == 0 {
		return errPulseRate
	}
	top := uint32(core.PWMBaseHz) / freqHz
	if top < 3 || top > 0x7FFF {
		return errPulseRate
	}
	p := nrf.PWM1
	pulseSeq[0] = uint16(top / 2)
	p.COUNTERTOP.Set(top)
	p.ENABLE.Set(nrf.PWM_ENABLE_ENABLE_Enabled)
	p.TASKS_SEQSTART[0].Set(1)
	return nil
}

func (s *PWMStepper) StopPulses() {
	p := nrf.PWM1
	p.TASKS_STOP.Set(1)
	p.ENABLE.Set(nrf.PWM_ENABLE_ENABLE_Disabled)
	s.step.Low()
}

func (s *PWMStepper) GetName() string {
	return "pwm1"
}

func registerStepper(b *boardConfig) {
	core.SetPulseBackend(NewPWMStepper(machine.Pin(b.Motors.Step)))
}
