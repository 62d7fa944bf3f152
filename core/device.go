package core

import (
	"sync/atomic"

	"skoobot/protocol"
)

// RecordState is the audio recording lifecycle.
type RecordState uint8

const (
	RecordIdle RecordState = iota
	RecordCapturing
	RecordDraining
)

// DrainMode selects how a recording is sent to the host.
type DrainMode uint8

const (
	// DrainPush sends chunks as notifications paced by the main loop.
	DrainPush DrainMode = iota
	// DrainPull answers one chunk per host poll.
	DrainPull
)

// ConnState is the state of one BLE link.
type ConnState uint8

const (
	Disconnected ConnState = iota
	Connected
)

// Role distinguishes the host link from the relay link.
type Role uint8

const (
	RolePeripheral Role = iota // the host connected to us
	RoleRelay                  // we connected to a peer robot
)

// DeviceState is everything the dispatcher knows about the robot.
// Only the main loop writes it.
type DeviceState struct {
	Motor MotorState
	// ResumeMotor is the translation restored when a turn ends, or
	// MotorSleeping.
	ResumeMotor MotorState
	StepMode    uint8

	Recording RecordState
	Drain     DrainMode

	Peripheral ConnState
	Relay      ConnState

	Photovore          bool
	PhotovoreThreshold float32
	Rover              bool
}

// Device is the robot's command dispatcher and the owner of every driver.
type Device struct {
	cfg      Config
	state    DeviceState
	registry *CommandRegistry
	slot     commandSlot

	// Written by transport callbacks, read by the loop.
	peripheralLink uint32
	hostDrops      uint32 // bumped on every host link-down
	relayLink      uint32
	pullEnabled    uint32
	pullFailed     uint32

	stepper   StepDriver
	motors    *Motors
	tone      *Tone
	sensors   *SensorGateway
	stream    *Streamer
	transport Transport

	recording    []int16
	seenDrops    uint32
	captureStart uint32
	drainStart   uint32
	nextPush     uint32
	nextAutonomy uint32

	out          [protocol.Data4Len]byte
	notifyStream Sink
	notifyData1  Sink
	pullReply    Sink
}

// NewDevice builds the dispatcher from the drivers registered by the
// target and initializes the hardware. An error here means the robot
// cannot run.
func NewDevice(cfg Config, pins MotorPins) (*Device, error) {
	cfg.normalize()

	stepper, err := newStepDriver(cfg.TickHz)
	if err != nil {
		return nil, err
	}

	d := &Device{
		cfg:       cfg,
		registry:  NewCommandRegistry(),
		stepper:   stepper,
		motors:    NewMotors(pins, MustGPIO()),
		tone:      NewTone(MustWaveform(), PWMBaseHz),
		sensors:   NewSensorGateway(NewVL6180(MustSensorBus()), audioDriver),
		stream:    NewStreamer(cfg.ChunkBytes),
		transport: MustTransport(),
		recording: make([]int16, cfg.RecordingSamples),
	}
	d.notifyStream = func(b []byte) error { return d.transport.Notify(CharStream, b) }
	d.notifyData1 = func(b []byte) error { return d.transport.Notify(CharData1, b) }
	d.pullReply = func(b []byte) error { return d.transport.SetValue(CharStream, b) }

	if err := d.motors.Init(); err != nil {
		return nil, err
	}
	if err := d.sensors.Init(); err != nil {
		return nil, err
	}

	d.state.StepMode = cfg.DefaultStepMode
	d.motors.ApplyStepMode(d.state.StepMode)
	d.registerCommands()

	DebugPrintln("[DEV] ready, step mode " + utoa(uint32(d.state.StepMode)) +
		", " + itoa(d.registry.Count()) + " commands")
	return d, nil
}

// State returns a copy of the dispatcher state.
func (d *Device) State() DeviceState {
	return d.state
}

// Stepper returns the step driver.
func (d *Device) Stepper() StepDriver {
	return d.stepper
}

// Tone returns the buzzer.
func (d *Device) Tone() *Tone {
	return d.tone
}

// Sensors returns the sensor gateway.
func (d *Device) Sensors() *SensorGateway {
	return d.sensors
}

// Stream returns the recording streamer.
func (d *Device) Stream() *Streamer {
	return d.stream
}

// OnCommand is the transport's command-written callback. It may run in
// interrupt context and only stores the command; a later write replaces
// one not yet processed.
func (d *Device) OnCommand(data []byte) {
	if len(data) == 0 {
		return
	}
	cmd := RemoteCommand{Code: data[0]}
	if len(data) > 1 {
		cmd.Arg = data[1]
	}
	d.slot.Put(cmd)
}

// OnConnectionChanged is the transport's link callback. Every host
// link-down is counted, so a reconnect before the next Poll still puts
// the robot in its safe state.
func (d *Device) OnConnectionChanged(role Role, connected bool) {
	var v uint32
	if connected {
		v = 1
	}
	if role == RoleRelay {
		atomic.StoreUint32(&d.relayLink, v)
		return
	}
	if !connected {
		atomic.AddUint32(&d.hostDrops, 1)
	}
	atomic.StoreUint32(&d.peripheralLink, v)
}

// OnStreamPoll answers a host poll of the stream characteristic while a
// pull-mode drain is running. It places the chunk at the cursor in the
// characteristic value for the host to read; once everything is sent the
// value is emptied. When the value cannot be replaced the old chunk is
// emptied too, so the host never reads it twice.
func (d *Device) OnStreamPoll() {
	if atomic.LoadUint32(&d.pullEnabled) == 0 {
		return
	}
	if d.stream.Finished() {
		d.clearStreamValue()
		return
	}
	err := d.stream.Next(d.pullReply)
	switch {
	case err == nil:
	case IsTransient(err):
		if !d.clearStreamValue() {
			atomic.StoreUint32(&d.pullFailed, 1)
		}
	default:
		atomic.StoreUint32(&d.pullFailed, 1)
	}
}

// clearStreamValue empties the stream characteristic, retrying transient
// failures. It reports whether the value is empty.
func (d *Device) clearStreamValue() bool {
	for i := 0; i < d.cfg.PublishRetries; i++ {
		err := d.transport.SetValue(CharStream, nil)
		if err == nil {
			return true
		}
		if !IsTransient(err) {
			break
		}
	}
	RecordEvent(EvtPublishDrop, uint8(CharStream), 0, 0)
	return false
}
