package core

// enterPhotovore samples the current light level as the baseline. The
// robot then drives forward while it is brighter than baseline plus the
// margin and sleeps otherwise.
func (d *Device) enterPhotovore() {
	d.state.Rover = false
	base := d.sensors.ReadAmbient(d.cfg.AmbientGain)
	d.state.PhotovoreThreshold = base + d.cfg.PhotovoreMarginLux
	d.state.Photovore = true
	d.nextAutonomy = Millis()
	DebugPrintln("[AUTO] photovore on, threshold " + ftoa(d.state.PhotovoreThreshold) + " lux")
}

// enterRover starts obstacle avoidance: drive forward, turn away from
// anything closer than the configured distance.
func (d *Device) enterRover() {
	d.state.Photovore = false
	d.state.Rover = true
	d.nextAutonomy = Millis()
	DebugPrintln("[AUTO] rover on")
}

func (d *Device) serviceAutonomy() {
	if !d.state.Photovore && !d.state.Rover {
		return
	}
	if !timeReached(d.nextAutonomy) {
		return
	}

	if d.state.Photovore {
		lux := d.sensors.ReadAmbient(d.cfg.AmbientGain)
		d.publishLux(lux)
		if lux > d.state.PhotovoreThreshold {
			if d.state.Motor != MotorForward {
				d.drive(MotorForward)
			}
		} else if d.state.Motor != MotorSleeping {
			d.sleepMotors()
		}
		d.nextAutonomy = Millis() + d.cfg.PhotovoreIntervalMs
		return
	}

	if d.sensors.ReadDistance() < d.cfg.RoverMinDistance {
		if d.state.Motor != MotorForward {
			d.drive(MotorForward)
		}
		d.turnBounded(MotorTurningRight)
	} else if d.state.Motor != MotorForward {
		d.drive(MotorForward)
	}
	d.nextAutonomy = Millis() + d.cfg.RoverIntervalMs
}
