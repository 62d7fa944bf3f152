package core

import "skoobot/protocol"

// registerCommands binds every command code to its handler.
func (d *Device) registerCommands() {
	r := d.registry

	// Motion
	r.Register(protocol.CmdForward, "forward", d.handleDrive(MotorForward))
	r.Register(protocol.CmdBackward, "backward", d.handleDrive(MotorBackward))
	r.Register(protocol.CmdRight, "right", d.handleTurn(MotorTurningRight))
	r.Register(protocol.CmdLeft, "left", d.handleTurn(MotorTurningLeft))
	r.Register(protocol.CmdRight30, "right30", d.handleTurn30(MotorTurningRight))
	r.Register(protocol.CmdLeft30, "left30", d.handleTurn30(MotorTurningLeft))
	r.Register(protocol.CmdStopTurning, "stopturn", d.handleStopTurning)
	r.Register(protocol.CmdStop, "stop", d.handleStop)
	r.Register(protocol.CmdSleep, "sleep", d.handleStop)
	r.Register(protocol.CmdIncStepMode, "incstep", d.handleStepMode(1))
	r.Register(protocol.CmdDecStepMode, "decstep", d.handleStepMode(NumStepModes-1))

	// Buzzer and sensors
	r.Register(protocol.CmdBuzzer, "buzzer", d.handleBuzzer)
	r.Register(protocol.CmdGetDistance, "distance", d.handleGetDistance)
	r.Register(protocol.CmdGetAmbient, "ambient", d.handleGetAmbient)

	// Audio
	r.Register(protocol.CmdRecordSound, "record", d.handleRecord(DrainPush))
	r.Register(protocol.CmdRecordSoundPi, "recordpull", d.handleRecord(DrainPull))
	r.Register(protocol.CmdIncreaseGain, "gainup", d.handleGain(1))
	r.Register(protocol.CmdDecreaseGain, "gaindown", d.handleGain(-1))

	// Autonomous modes
	r.Register(protocol.CmdPhotovore, "photovore", d.handlePhotovore(true))
	r.Register(protocol.CmdPhotovoreOff, "photovoreoff", d.handlePhotovore(false))
	r.Register(protocol.CmdRoverMode, "rover", d.handleRover(true))
	r.Register(protocol.CmdRoverModeOff, "roveroff", d.handleRover(false))

	// Relay
	r.Register(protocol.CmdConnectRelay, "relay", d.handleConnectRelay)
	r.Register(protocol.CmdDisconnectRelay, "relayoff", d.handleDisconnectRelay)
}

func (d *Device) handleDrive(target MotorState) CommandHandler {
	return func(RemoteCommand) error {
		d.drive(target)
		return nil
	}
}

func (d *Device) handleTurn(dir MotorState) CommandHandler {
	return func(RemoteCommand) error {
		d.startTurn(dir)
		return nil
	}
}

func (d *Device) handleTurn30(dir MotorState) CommandHandler {
	return func(RemoteCommand) error {
		d.turnBounded(dir)
		return nil
	}
}

func (d *Device) handleStopTurning(RemoteCommand) error {
	d.stopTurning()
	return nil
}

// handleStop also ends the autonomous modes, which would otherwise wake
// the motors again on their next poll.
func (d *Device) handleStop(RemoteCommand) error {
	d.state.Photovore = false
	d.state.Rover = false
	d.sleepMotors()
	return nil
}

func (d *Device) handleStepMode(delta uint8) CommandHandler {
	return func(RemoteCommand) error {
		d.setStepMode((d.state.StepMode + delta) % NumStepModes)
		return nil
	}
}

func (d *Device) handleBuzzer(cmd RemoteCommand) error {
	freq := ToneTable[int(cmd.Arg)%len(ToneTable)]
	cycles := freq * d.cfg.ToneDurationMs / 1000
	if err := d.tone.Play(freq, cycles); err != nil {
		return err
	}
	d.tone.Wait(DurationMs(freq, cycles) + d.cfg.ToneSlackMs)
	return nil
}

func (d *Device) handleGetDistance(RemoteCommand) error {
	dist := d.sensors.ReadDistance()
	DebugPrintln("[SENSOR] distance " + utoa(uint32(dist)) + "mm")
	d.publishByte(CharData1, dist)
	return nil
}

func (d *Device) handleGetAmbient(RemoteCommand) error {
	lux := d.sensors.ReadAmbient(d.cfg.AmbientGain)
	DebugPrintln("[SENSOR] ambient " + ftoa(lux) + " lux")
	d.publishLux(lux)
	return nil
}

func (d *Device) publishLux(lux float32) {
	b := protocol.EncodeLux(lux)
	copy(d.out[:], b[:])
	d.publish(CharData2, d.out[:protocol.Data2Len])
}

func (d *Device) handleRecord(mode DrainMode) CommandHandler {
	return func(RemoteCommand) error {
		return d.startRecording(mode)
	}
}

func (d *Device) handleGain(delta int) CommandHandler {
	return func(RemoteCommand) error {
		gain := d.sensors.AdjustMicGain(delta)
		d.publishByte(CharData1, gain)
		return nil
	}
}

func (d *Device) handlePhotovore(on bool) CommandHandler {
	return func(RemoteCommand) error {
		if on {
			d.enterPhotovore()
		} else if d.state.Photovore {
			d.state.Photovore = false
			d.sleepMotors()
		}
		return nil
	}
}

func (d *Device) handleRover(on bool) CommandHandler {
	return func(RemoteCommand) error {
		if on {
			d.enterRover()
		} else if d.state.Rover {
			d.state.Rover = false
			d.sleepMotors()
		}
		return nil
	}
}

func (d *Device) handleConnectRelay(RemoteCommand) error {
	if d.state.Relay == Connected {
		return nil
	}
	return d.transport.ConnectRelay()
}

func (d *Device) handleDisconnectRelay(RemoteCommand) error {
	return d.transport.DisconnectRelay()
}
