package core

import (
	"errors"
	"testing"
)

// mockGPIO records pin levels and which pins are floating.
type mockGPIO struct {
	levels   map[GPIOPin]bool
	floating map[GPIOPin]bool
}

func newMockGPIO() *mockGPIO {
	return &mockGPIO{
		levels:   make(map[GPIOPin]bool),
		floating: make(map[GPIOPin]bool),
	}
}

func (g *mockGPIO) ConfigureOutput(pin GPIOPin) error {
	g.floating[pin] = false
	return nil
}

func (g *mockGPIO) ConfigureFloating(pin GPIOPin) error {
	g.floating[pin] = true
	return nil
}

func (g *mockGPIO) SetPin(pin GPIOPin, value bool) error {
	g.levels[pin] = value
	return nil
}

// mockStepperBackend records step pin transitions with the tick index.
type mockStepperBackend struct {
	handler      func()
	tickHz       uint32
	enabled      bool
	high         bool
	ticks        int
	edges        []int // tick index of each transition
	disableCalls int
}

func (b *mockStepperBackend) Init(tickHz uint32, handler func()) error {
	b.tickHz = tickHz
	b.handler = handler
	return nil
}

func (b *mockStepperBackend) EnableTicks() { b.enabled = true }

func (b *mockStepperBackend) DisableTicks() {
	b.enabled = false
	b.disableCalls++
}

func (b *mockStepperBackend) SetStep(high bool) {
	b.high = high
	b.edges = append(b.edges, b.ticks)
}

func (b *mockStepperBackend) GetName() string { return "mock" }

// tick fires the interrupt handler n times while ticks are enabled.
func (b *mockStepperBackend) tick(n int) {
	for i := 0; i < n; i++ {
		if !b.enabled {
			return
		}
		b.ticks++
		b.handler()
	}
}

type mockPulseBackend struct {
	freq    uint32
	running bool
}

func (p *mockPulseBackend) Init() error { return nil }

func (p *mockPulseBackend) StartPulses(freqHz uint32) error {
	p.freq = freqHz
	p.running = true
	return nil
}

func (p *mockPulseBackend) StopPulses() { p.running = false }

func (p *mockPulseBackend) GetName() string { return "mock-pulse" }

// mockWaveform optionally completes a tone as soon as it starts.
type mockWaveform struct {
	done         func()
	autoComplete bool
	plays        []struct{ top, loops uint16 }
	stops        int
}

func (w *mockWaveform) Play(top uint16, loops uint16) error {
	w.plays = append(w.plays, struct{ top, loops uint16 }{top, loops})
	if w.autoComplete && w.done != nil {
		w.done()
	}
	return nil
}

func (w *mockWaveform) Stop() { w.stops++ }

func (w *mockWaveform) SetDoneHandler(f func()) { w.done = f }

// mockAudio hands the capture buffer to the test.
type mockAudio struct {
	buf   []int16
	done  func()
	gain  uint8
	stops int
}

func (a *mockAudio) Start(buf []int16) error {
	a.buf = buf
	return nil
}

func (a *mockAudio) Stop() { a.stops++ }

func (a *mockAudio) SetGain(gain uint8) error {
	a.gain = gain
	return nil
}

func (a *mockAudio) SetDoneHandler(f func()) { a.done = f }

// fill writes a ramp into the buffer and signals completion.
func (a *mockAudio) fill() {
	for i := range a.buf {
		a.buf[i] = int16(i*7 - 300)
	}
	a.done()
}

var errBus = errors.New("i2c nack")

// mockI2C emulates the VL6180X register file with 16-bit addresses.
type mockI2C struct {
	regs   map[uint16]byte
	writes []uint16
	fail   bool
}

func newMockVL6180() *mockI2C {
	m := &mockI2C{regs: make(map[uint16]byte)}
	m.regs[regIdentificationModelID] = vl6180ModelID
	m.regs[regSystemFreshOutOfReset] = 1
	return m
}

func (m *mockI2C) Tx(addr uint16, w, r []byte) error {
	if m.fail {
		return errBus
	}
	if addr != VL6180Address || len(w) < 2 {
		return errBus
	}
	reg := uint16(w[0])<<8 | uint16(w[1])
	if r == nil {
		m.writes = append(m.writes, reg)
		for i, b := range w[2:] {
			m.regs[reg+uint16(i)] = b
		}
		return nil
	}
	for i := range r {
		r[i] = m.regs[reg+uint16(i)]
	}
	return nil
}

func (m *mockI2C) set16(reg uint16, v uint16) {
	m.regs[reg] = byte(v >> 8)
	m.regs[reg+1] = byte(v)
}

// mockTransport records notifications per characteristic and can fail
// them on demand.
type mockTransport struct {
	notes    map[Characteristic][][]byte
	values   map[Characteristic][]byte
	failures map[Characteristic][]error
	failAll  map[Characteristic]error

	relayConnects    int
	relayDisconnects int
	relayWrites      []RemoteCommand
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		notes:    make(map[Characteristic][][]byte),
		values:   make(map[Characteristic][]byte),
		failures: make(map[Characteristic][]error),
		failAll:  make(map[Characteristic]error),
	}
}

func (t *mockTransport) Notify(ch Characteristic, data []byte) error {
	if err := t.failAll[ch]; err != nil {
		return err
	}
	if q := t.failures[ch]; len(q) > 0 {
		t.failures[ch] = q[1:]
		if q[0] != nil {
			return q[0]
		}
	}
	cp := append([]byte(nil), data...)
	t.notes[ch] = append(t.notes[ch], cp)
	t.values[ch] = cp
	return nil
}

func (t *mockTransport) SetValue(ch Characteristic, data []byte) error {
	if q := t.failures[ch]; len(q) > 0 {
		t.failures[ch] = q[1:]
		if q[0] != nil {
			return q[0]
		}
	}
	t.values[ch] = append([]byte(nil), data...)
	return nil
}

func (t *mockTransport) ConnectRelay() error {
	t.relayConnects++
	return nil
}

func (t *mockTransport) DisconnectRelay() error {
	t.relayDisconnects++
	return nil
}

func (t *mockTransport) RelayWrite(code, arg byte) error {
	t.relayWrites = append(t.relayWrites, RemoteCommand{Code: code, Arg: arg})
	return nil
}

var testPins = MotorPins{Step: 30, DirL: 22, DirR: 26, Sleep: 27, M0: 23, M1: 25}

// testBoard bundles the mocks behind a Device.
type testBoard struct {
	gpio      *mockGPIO
	stepper   *mockStepperBackend
	wave      *mockWaveform
	audio     *mockAudio
	bus       *mockI2C
	transport *mockTransport
}

// ticksPerMs keeps the simulated step timer in step with the clock.
const ticksPerMs = StepTickHz / 1000

// newTestDevice registers mocks, builds a Device and marks the host
// connected. The simulated step timer advances with DelayMs.
func newTestDevice(t *testing.T, cfg Config) (*Device, *testBoard) {
	t.Helper()
	b := &testBoard{
		gpio:      newMockGPIO(),
		stepper:   &mockStepperBackend{},
		wave:      &mockWaveform{autoComplete: true},
		audio:     &mockAudio{},
		bus:       newMockVL6180(),
		transport: newMockTransport(),
	}
	SetGPIODriver(b.gpio)
	SetStepperBackend(b.stepper)
	SetPulseBackend(nil)
	SetWaveformDriver(b.wave)
	SetAudioDriver(b.audio)
	SetSensorBus(b.bus)
	SetTransport(b.transport)
	ClearEventRing()

	delayHook = func() { b.stepper.tick(ticksPerMs) }
	t.Cleanup(func() { delayHook = nil })

	d, err := NewDevice(cfg, testPins)
	if err != nil {
		t.Fatalf("NewDevice failed: %v", err)
	}
	d.OnConnectionChanged(RolePeripheral, true)
	d.Poll()
	return d, b
}

// send delivers a command and runs one dispatcher iteration.
func send(d *Device, code byte, arg ...byte) {
	d.OnCommand(append([]byte{code}, arg...))
	d.Poll()
}

func countEvents(evtType uint8) int {
	n := 0
	for _, e := range Events() {
		if e.EventType == evtType {
			n++
		}
	}
	return n
}
