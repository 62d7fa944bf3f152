package core

import (
	"sync/atomic"

	"skoobot/protocol"
)

// Poll runs one iteration of the dispatcher. The target calls it from
// its main loop.
func (d *Device) Poll() {
	if !d.checkLinks() {
		return
	}
	d.serviceRecording()
	d.serviceAutonomy()

	cmd, ok := d.slot.Take()
	if !ok {
		return
	}
	d.execute(cmd)
	d.forwardToRelay(cmd)
}

// checkLinks applies connection transitions and reports whether the host
// is connected.
func (d *Device) checkLinks() bool {
	relay := atomic.LoadUint32(&d.relayLink) == 1
	if relay != (d.state.Relay == Connected) {
		if relay {
			d.state.Relay = Connected
			DebugPrintln("[LINK] relay connected")
		} else {
			d.state.Relay = Disconnected
			DebugPrintln("[LINK] relay disconnected")
		}
		RecordEvent(EvtConnection, uint8(RoleRelay), boolU32(relay), 0)
	}

	up := atomic.LoadUint32(&d.peripheralLink) == 1
	if drops := atomic.LoadUint32(&d.hostDrops); drops != d.seenDrops {
		d.seenDrops = drops
		if d.state.Peripheral == Connected {
			RecordEvent(EvtConnection, uint8(RolePeripheral), 0, 0)
		}
		d.handleDisconnect()
	}
	if up == (d.state.Peripheral == Connected) {
		return up
	}
	RecordEvent(EvtConnection, uint8(RolePeripheral), boolU32(up), 0)
	if up {
		d.state.Peripheral = Connected
		DebugPrintln("[LINK] host connected")
		return true
	}
	d.handleDisconnect()
	return false
}

// handleDisconnect puts the robot in a safe state when the host goes
// away: motors asleep, buzzer silent, recording dropped.
func (d *Device) handleDisconnect() {
	DebugPrintln("[LINK] host disconnected")
	d.state.Peripheral = Disconnected
	d.slot.Clear()
	d.state.Photovore = false
	d.state.Rover = false
	d.sleepMotors()
	d.tone.Stop()
	if d.state.Recording != RecordIdle {
		d.abortRecording(false)
	}
}

func (d *Device) execute(cmd RemoteCommand) {
	RecordEvent(EvtCommand, cmd.Code, uint32(cmd.Arg), uint32(d.state.Motor))
	err := d.registry.Dispatch(cmd)
	switch {
	case err == ErrUnknownCommand:
		DebugPrintln("[CMD] unknown " + hexByte(cmd.Code))
	case err != nil:
		DebugPrintln("[CMD] " + protocol.CommandName(cmd.Code) + " failed: " + err.Error())
	}
}

func (d *Device) forwardToRelay(cmd RemoteCommand) {
	if d.state.Relay != Connected || protocol.IsRelayControl(cmd.Code) {
		return
	}
	if err := d.transport.RelayWrite(cmd.Code, cmd.Arg); err != nil {
		DebugPrintln("[RELAY] forward " + hexByte(cmd.Code) + " failed: " + err.Error())
	}
}

// publish notifies the host, retrying transient failures a few times
// before dropping the value.
func (d *Device) publish(ch Characteristic, data []byte) bool {
	for i := 0; i < d.cfg.PublishRetries; i++ {
		err := d.transport.Notify(ch, data)
		if err == nil {
			return true
		}
		if !IsTransient(err) {
			DebugPrintln("[PUB] notify failed: " + err.Error())
			break
		}
		DelayMs(d.cfg.RetryDelayMs)
	}
	RecordEvent(EvtPublishDrop, uint8(ch), uint32(len(data)), 0)
	return false
}

func (d *Device) publishByte(ch Characteristic, b byte) bool {
	d.out[0] = b
	return d.publish(ch, d.out[:1])
}

// timeReached reports whether Millis has passed t, wrap-safe.
func timeReached(t uint32) bool {
	return int32(Millis()-t) >= 0
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
