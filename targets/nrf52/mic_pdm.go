//go:build nrf52

package main

import (
	"device/nrf"
	"machine"
	"runtime/interrupt"
	"sync/atomic"
	"unsafe"
)

const (
	micIRQPriority = 0x60
	micMaxGain     = 0x50
)

// PDMMic implements core.AudioDriver with the PDM peripheral in mono
// mode at 1.067 MHz, which gives 16.7 kHz samples.
//
// EasyDMA double-buffers: the STARTED event means the next buffer may be
// loaded. The first STARTED points the next buffer at a scratch area so
// the recording is never overwritten, and END of the first buffer stops
// the capture.
type PDMMic struct {
	clk, din machine.Pin
	intr     interrupt.Interrupt

	scratch [32]int16
	active  uint32
	swapped bool
	ended   bool
	done    func()
}

// mic is the instance the PDM interrupt serves.
var mic *PDMMic

// NewPDMMic configures the PDM peripheral on the given pins.
func NewPDMMic(clk, din machine.Pin) *PDMMic {
	m := &PDMMic{clk: clk, din: din}
	mic = m

	clk.Configure(machine.PinConfig{Mode: machine.PinOutput})
	clk.Low()
	din.Configure(machine.PinConfig{Mode: machine.PinInput})

	p := nrf.PDM
	p.PSEL.CLK.Set(uint32(clk))
	p.PSEL.DIN.Set(uint32(din))
	p.PDMCLKCTRL.Set(nrf.PDM_PDMCLKCTRL_FREQ_1067K)
	p.MODE.Set(nrf.PDM_MODE_OPERATION_Mono<<nrf.PDM_MODE_OPERATION_Pos |
		nrf.PDM_MODE_EDGE_LeftFalling<<nrf.PDM_MODE_EDGE_Pos)

	m.intr = interrupt.New(nrf.IRQ_PDM, pdmHandler)
	m.intr.SetPriority(micIRQPriority)
	m.intr.Enable()
	return m
}

func (m *PDMMic) Start(buf []int16) error {
	if len(buf) == 0 {
		return nil
	}
	if !atomic.CompareAndSwapUint32(&m.active, 0, 1) {
		return errMicBusy
	}
	m.swapped = false
	m.ended = false

	p := nrf.PDM
	p.SAMPLE.PTR.Set(uint32(uintptr(unsafe.Pointer(&buf[0]))))
	p.SAMPLE.MAXCNT.Set(uint32(len(buf)))
	p.EVENTS_STARTED.Set(0)
	p.EVENTS_END.Set(0)
	p.EVENTS_STOPPED.Set(0)
	p.INTENSET.Set(nrf.PDM_INTENSET_STARTED_Msk | nrf.PDM_INTENSET_END_Msk | nrf.PDM_INTENSET_STOPPED_Msk)
	p.ENABLE.Set(nrf.PDM_ENABLE_ENABLE_Enabled)
	p.TASKS_START.Set(1)
	return nil
}

func (m *PDMMic) Stop() {
	if atomic.LoadUint32(&m.active) == 0 {
		return
	}
	m.ended = true
	nrf.PDM.TASKS_STOP.Set(1)
}

func (m *PDMMic) SetGain(gain uint8) error {
	if gain > micMaxGain {
		return errMicGain
	}
	nrf.PDM.GAINL.Set(uint32(gain))
	nrf.PDM.GAINR.Set(uint32(gain))
	return nil
}

func (m *PDMMic) SetDoneHandler(fn func()) {
	m.done = fn
}

func pdmHandler(interrupt.Interrupt) {
	m := mic
	p := nrf.PDM
	if p.EVENTS_STARTED.Get() != 0 {
		p.EVENTS_STARTED.Set(0)
		if !m.swapped {
			m.swapped = true
			p.SAMPLE.PTR.Set(uint32(uintptr(unsafe.Pointer(&m.scratch[0]))))
			p.SAMPLE.MAXCNT.Set(uint32(len(m.scratch)))
		}
	}
	if p.EVENTS_END.Get() != 0 {
		p.EVENTS_END.Set(0)
		if !m.ended {
			m.ended = true
			p.TASKS_STOP.Set(1)
			if m.done != nil {
				m.done()
			}
		}
	}
	if p.EVENTS_STOPPED.Get() != 0 {
		p.EVENTS_STOPPED.Set(0)
		p.INTENCLR.Set(nrf.PDM_INTENCLR_STARTED_Msk | nrf.PDM_INTENCLR_END_Msk | nrf.PDM_INTENCLR_STOPPED_Msk)
		p.ENABLE.Set(nrf.PDM_ENABLE_ENABLE_Disabled)
		atomic.StoreUint32(&m.active, 0)
	}
}
