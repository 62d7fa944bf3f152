//go:build nrf52

package main

import (
	"device/nrf"
	"machine"
	"runtime/interrupt"
	"unsafe"
)

const toneIRQPriority = 0x60

// toneSeq holds the buzzer compare values. Sequences 0 and 1 each play
// one period, so LOOP counts full periods in pairs.
var toneSeq [2]uint16

// toneDone is the completion callback, called from the PWM0 interrupt.
var toneDone func()

// BuzzerPWM implements core.WaveformDriver on PWM0.
type BuzzerPWM struct {
	pin  machine.Pin
	intr interrupt.Interrupt
}

// NewBuzzerPWM configures PWM0 for the buzzer pin.
func NewBuzzerPWM(pin machine.Pin) *BuzzerPWM {
	b := &BuzzerPWM{pin: pin}

	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pin.Low()

	p := nrf.PWM0
	p.PSEL.OUT[0].Set(uint32(pin))
	p.MODE.Set(nrf.PWM_MODE_UPDOWN_Up)
	p.PRESCALER.Set(nrf.PWM_PRESCALER_PRESCALER_DIV_128)
	p.DECODER.Set(nrf.PWM_DECODER_LOAD_Common<<nrf.PWM_DECODER_LOAD_Pos |
		nrf.PWM_DECODER_MODE_RefreshCount<<nrf.PWM_DECODER_MODE_Pos)
	for i := range toneSeq {
		p.SEQ[i].PTR.Set(uint32(uintptr(unsafe.Pointer(&toneSeq[i]))))
		p.SEQ[i].CNT.Set(1)
		p.SEQ[i].REFRESH.Set(0)
		p.SEQ[i].ENDDELAY.Set(0)
	}
	p.SHORTS.Set(nrf.PWM_SHORTS_LOOPSDONE_STOP_Msk)
	p.EVENTS_STOPPED.Set(0)
	p.INTENSET.Set(nrf.PWM_INTENSET_STOPPED_Msk)

	b.intr = interrupt.New(nrf.IRQ_PWM0, pwm0Handler)
	b.intr.SetPriority(toneIRQPriority)
	b.intr.Enable()
	return b
}

func (b *BuzzerPWM) Play(top uint16, loops uint16) error {
	if top < 3 || top > 0x7FFF {
		return errTonePeriod
	}
	if loops == 0 {
		loops = 1
	}
	p := nrf.PWM0
	toneSeq[0] = top / 2
	toneSeq[1] = top / 2
	p.COUNTERTOP.Set(uint32(top))
	p.LOOP.Set(uint32(loops))
	p.EVENTS_LOOPSDONE.Set(0)
	p.EVENTS_STOPPED.Set(0)
	p.ENABLE.Set(nrf.PWM_ENABLE_ENABLE_Enabled)
	p.TASKS_SEQSTART[0].Set(1)
	return nil
}

func (b *BuzzerPWM) Stop() {
	if nrf.PWM0.ENABLE.Get() == nrf.PWM_ENABLE_ENABLE_Disabled {
		return
	}
	nrf.PWM0.TASKS_STOP.Set(1)
}

func (b *BuzzerPWM) SetDoneHandler(fn func()) {
	toneDone = fn
}

func pwm0Handler(interrupt.Interrupt) {
	p := nrf.PWM0
	if p.EVENTS_STOPPED.Get() == 0 {
		return
	}
	p.EVENTS_STOPPED.Set(0)
	p.ENABLE.Set(nrf.PWM_ENABLE_ENABLE_Disabled)
	if toneDone != nil {
		toneDone()
	}
}
