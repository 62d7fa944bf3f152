package core

import (
	"errors"
	"sync/atomic"
)

var (
	ErrNoMicrophone  = errors.New("no microphone on this board")
	ErrCaptureActive = errors.New("capture already in progress")
)

// Microphone gain range of the PDM peripheral, 0.5 dB per count
// (0x00 = -20 dB, 0x28 = 0 dB, 0x50 = +20 dB).
const (
	MicGainMin     = 0x00
	MicGainDefault = 0x28
	MicGainMax     = 0x50
	MicGainStep    = 0x04
)

// SensorGateway wraps the distance/light sensor and the microphone. Bus
// failures are logged and the last good reading is returned, so callers
// always get a value.
type SensorGateway struct {
	tof   *VL6180
	audio AudioDriver

	lastDistance byte
	lastLux      float32
	busErrors    uint32

	micGain     uint8
	capturing   uint32
	captureDone uint32
}

// NewSensorGateway creates a gateway. audio may be nil.
func NewSensorGateway(tof *VL6180, audio AudioDriver) *SensorGateway {
	g := &SensorGateway{tof: tof, audio: audio, micGain: MicGainDefault}
	if audio != nil {
		audio.SetDoneHandler(g.captureComplete)
	}
	return g
}

// Init configures the sensor and the microphone gain.
func (g *SensorGateway) Init() error {
	if err := g.tof.Init(); err != nil {
		return err
	}
	if g.audio != nil {
		return g.audio.SetGain(g.micGain)
	}
	return nil
}

// ReadDistance returns the distance in millimetres.
func (g *SensorGateway) ReadDistance() byte {
	d, err := g.tof.Distance()
	if err != nil {
		g.busError("distance", err)
		return g.lastDistance
	}
	g.lastDistance = d
	return d
}

// ReadAmbient returns the ambient light in lux measured at gain.
func (g *SensorGateway) ReadAmbient(gain uint8) float32 {
	raw, period, err := g.tof.AmbientRaw(gain)
	if err != nil {
		g.busError("ambient", err)
		return g.lastLux
	}
	g.lastLux = Lux(raw, period, gain)
	return g.lastLux
}

// BusErrors returns the number of failed sensor transactions.
func (g *SensorGateway) BusErrors() uint32 {
	return g.busErrors
}

func (g *SensorGateway) busError(what string, err error) {
	g.busErrors++
	RecordEvent(EvtBusError, 0, g.busErrors, 0)
	DebugPrintln("[SENSOR] " + what + " read failed: " + err.Error())
}

// HasMicrophone reports whether audio capture is available.
func (g *SensorGateway) HasMicrophone() bool {
	return g.audio != nil
}

// StartCapture begins filling buf from the microphone.
func (g *SensorGateway) StartCapture(buf []int16) error {
	if g.audio == nil {
		return ErrNoMicrophone
	}
	if !atomic.CompareAndSwapUint32(&g.capturing, 0, 1) {
		return ErrCaptureActive
	}
	atomic.StoreUint32(&g.captureDone, 0)
	if err := g.audio.Start(buf); err != nil {
		atomic.StoreUint32(&g.capturing, 0)
		return err
	}
	return nil
}

// CaptureDone reports whether the buffer passed to StartCapture is full.
func (g *SensorGateway) CaptureDone() bool {
	return atomic.LoadUint32(&g.captureDone) == 1
}

// StopCapture aborts any capture in progress.
func (g *SensorGateway) StopCapture() {
	if g.audio == nil {
		return
	}
	if atomic.SwapUint32(&g.capturing, 0) == 1 {
		g.audio.Stop()
	}
	atomic.StoreUint32(&g.captureDone, 0)
}

// captureComplete is the audio driver's buffer-full callback.
func (g *SensorGateway) captureComplete() {
	if atomic.SwapUint32(&g.capturing, 0) == 1 {
		atomic.StoreUint32(&g.captureDone, 1)
	}
}

// MicGain returns the current microphone gain register value.
func (g *SensorGateway) MicGain() uint8 {
	return g.micGain
}

// AdjustMicGain moves the gain by delta steps within the valid range and
// returns the new value.
func (g *SensorGateway) AdjustMicGain(delta int) uint8 {
	gain := int(g.micGain) + delta*MicGainStep
	if gain < MicGainMin {
		gain = MicGainMin
	}
	if gain > MicGainMax {
		gain = MicGainMax
	}
	if uint8(gain) == g.micGain {
		return g.micGain
	}
	g.micGain = uint8(gain)
	if g.audio != nil {
		if err := g.audio.SetGain(g.micGain); err != nil {
			DebugPrintln("[SENSOR] set mic gain failed: " + err.Error())
		}
	}
	return g.micGain
}
