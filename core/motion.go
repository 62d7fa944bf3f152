package core

// frequency returns the step rate of the active step mode.
func (d *Device) frequency() uint32 {
	return StepModes[d.state.StepMode].Frequency
}

// drive sets the direction pins for target, waking the drivers and
// starting the step train if the robot was asleep. Changing direction
// while moving only touches the DIR pins.
func (d *Device) drive(target MotorState) {
	d.motors.SetDirection(target)
	if !d.stepper.Running() {
		d.motors.Wake()
		d.stepper.Start(d.frequency())
	}
	d.setMotor(target)
}

// sleepMotors stops stepping and cuts driver power.
func (d *Device) sleepMotors() {
	d.stepper.Stop()
	d.motors.Sleep()
	d.setMotor(MotorSleeping)
}

// startTurn begins a continuous turn, remembering the translation to go
// back to when the turn ends.
func (d *Device) startTurn(dir MotorState) {
	switch {
	case d.state.Motor.Translating():
		d.state.ResumeMotor = d.state.Motor
	case d.state.Motor == MotorSleeping:
		d.state.ResumeMotor = MotorSleeping
	}
	d.drive(dir)
}

// stopTurning ends a turn and restores the previous translation, or puts
// the motors to sleep if the robot was not moving before.
func (d *Device) stopTurning() {
	if !d.state.Motor.Turning() {
		return
	}
	d.resume()
}

func (d *Device) resume() {
	if d.state.ResumeMotor.Translating() {
		d.drive(d.state.ResumeMotor)
		return
	}
	d.sleepMotors()
}

// turnSteps is the step count of a bounded turn in the active mode.
func (d *Device) turnSteps() uint32 {
	return d.cfg.TurnFullSteps * StepModes[d.state.StepMode].Divisor
}

// turnBounded turns about 30 degrees by counting step edges, then
// restores the previous motion. The wait gives up after the expected
// duration plus slack. It reports whether the full count was reached.
func (d *Device) turnBounded(dir MotorState) bool {
	if !d.state.Motor.Turning() {
		d.startTurn(dir)
	} else {
		d.drive(dir)
	}

	target := d.turnSteps()
	timeout := target*1000/d.frequency() + d.cfg.TurnSlackMs
	d.stepper.ResetSteps()

	ok := true
	start := Millis()
	for d.stepper.Steps() < target {
		if elapsedSince(start) >= timeout {
			RecordEvent(EvtTurnTimeout, uint8(dir), d.stepper.Steps(), target)
			DebugPrintln("[MOTOR] bounded turn timed out at " + utoa(d.stepper.Steps()) + "/" + utoa(target))
			ok = false
			break
		}
		DelayMs(1)
	}

	d.resume()
	return ok
}

// setStepMode applies the microstep pins and, if moving, the new rate.
func (d *Device) setStepMode(mode uint8) {
	d.state.StepMode = mode % NumStepModes
	d.motors.ApplyStepMode(d.state.StepMode)
	if d.stepper.Running() {
		d.stepper.Start(d.frequency())
	}
	DebugPrintln("[MOTOR] step mode " + utoa(uint32(d.state.StepMode)) +
		" at " + utoa(d.frequency()) + " steps/s")
}

func (d *Device) setMotor(m MotorState) {
	if d.state.Motor == m {
		return
	}
	RecordEvent(EvtMotorState, uint8(m), uint32(d.state.Motor), 0)
	d.state.Motor = m
}
