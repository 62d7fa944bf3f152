package core

import (
	"errors"

	"tinygo.org/x/drivers"
)

// VL6180Address is the sensor's fixed 7-bit I2C address.
const VL6180Address = 0x29

// VL6180X register map (16-bit addresses).
const (
	regIdentificationModelID        = 0x0000
	regSystemModeGPIO1              = 0x0011
	regSystemInterruptConfigGPIO    = 0x0014
	regSystemInterruptClear         = 0x0015
	regSystemFreshOutOfReset        = 0x0016
	regSysrangeStart                = 0x0018
	regSysrangeIntermeasurement     = 0x001B
	regSysrangeMaxConvergenceTime   = 0x001C
	regSysrangeEarlyConvergence     = 0x0022
	regSysrangeRangeCheckEnables    = 0x002D
	regSysrangeVHVRecalibrate       = 0x002E
	regSysrangeVHVRepeatRate        = 0x0031
	regSysalsStart                  = 0x0038
	regSysalsIntermeasurementPeriod = 0x003E
	regSysalsAnalogueGain           = 0x003F
	regSysalsIntegrationPeriod      = 0x0040
	regResultALSVal                 = 0x0050
	regResultRangeVal               = 0x0062
	regReadoutAveragingSamplePeriod = 0x010A
	regFirmwareResultScaler         = 0x0120
)

const (
	vl6180ModelID       = 0xB4
	vl6180ClearAllIntr  = 0x07
	vl6180GainBase      = 0x40
	vl6180RangeSettleMs = 10
	vl6180ALSSettleMs   = 100
	vl6180DefaultPeriod = 100
	vl6180LuxPerCount   = 0.32
)

// ALS analogue gain codes.
const (
	ALSGain20   = 0
	ALSGain10   = 1
	ALSGain5    = 2
	ALSGain2_5  = 3
	ALSGain1_67 = 4
	ALSGain1_25 = 5
	ALSGain1    = 6
	ALSGain40   = 7
)

// alsScale is lux per raw count (0.32 / gain) for each gain code at the
// 100 ms integration period.
var alsScale = [8]float32{
	vl6180LuxPerCount / 20,
	vl6180LuxPerCount / 10.32,
	vl6180LuxPerCount / 5.21,
	vl6180LuxPerCount / 2.60,
	vl6180LuxPerCount / 1.72,
	vl6180LuxPerCount / 1.28,
	vl6180LuxPerCount / 1.01,
	vl6180LuxPerCount / 40,
}

var ErrVL6180ModelID = errors.New("vl6180: unexpected model ID")

type vl6180Setting struct {
	reg uint16
	val uint8
}

// vl6180Private is the register sequence required once after reset.
var vl6180Private = [...]vl6180Setting{
	{0x0207, 0x01}, {0x0208, 0x01}, {0x0096, 0x00}, {0x0097, 0xfd},
	{0x00e3, 0x00}, {0x00e4, 0x04}, {0x00e5, 0x02}, {0x00e6, 0x01},
	{0x00e7, 0x03}, {0x00f5, 0x02}, {0x00d9, 0x05}, {0x00db, 0xce},
	{0x00dc, 0x03}, {0x00dd, 0xf8}, {0x009f, 0x00}, {0x00a3, 0x3c},
	{0x00b7, 0x00}, {0x00bb, 0x3c}, {0x00b2, 0x09}, {0x00ca, 0x09},
	{0x0198, 0x01}, {0x01b0, 0x17}, {0x01ad, 0x00}, {0x00ff, 0x05},
	{0x0100, 0x05}, {0x0199, 0x05}, {0x01a6, 0x1b}, {0x01ac, 0x3e},
	{0x01a7, 0x1f}, {0x0030, 0x00},
}

// vl6180Defaults are the public settings loaded on every boot.
var vl6180Defaults = [...]vl6180Setting{
	{regSystemModeGPIO1, 0x10},
	{regReadoutAveragingSamplePeriod, 0x30},
	{regSysrangeVHVRepeatRate, 0xFF},
	{regSysrangeVHVRecalibrate, 0x01},
	{regSysrangeIntermeasurement, 0x09},
	{regSysalsIntermeasurementPeriod, 0x0A},
	{regSystemInterruptConfigGPIO, 0x24},
	{regSysrangeMaxConvergenceTime, 0x32},
	{regSysrangeRangeCheckEnables, 0x11},
	{regSysalsAnalogueGain, vl6180GainBase},
	{regFirmwareResultScaler, 0x01},
}

// VL6180 talks to the VL6180X time-of-flight and ambient light sensor.
// Registers have 16-bit big-endian addresses; reads are a write of the
// address followed by a read.
type VL6180 struct {
	bus     drivers.I2C
	Address uint16
	wbuf    [4]byte
	rbuf    [2]byte
}

// NewVL6180 creates a driver on bus at the default address.
func NewVL6180(bus drivers.I2C) *VL6180 {
	return &VL6180{bus: bus, Address: VL6180Address}
}

// Init checks the model ID and loads the register settings. The private
// settings are only written when the sensor reports fresh-out-of-reset.
func (v *VL6180) Init() error {
	id, err := v.readReg(regIdentificationModelID)
	if err != nil {
		return err
	}
	if id != vl6180ModelID {
		return ErrVL6180ModelID
	}

	fresh, err := v.readReg(regSystemFreshOutOfReset)
	if err != nil {
		return err
	}
	if fresh == 1 {
		for _, r := range vl6180Private {
			if err := v.writeReg(r.reg, r.val); err != nil {
				return err
			}
		}
		if err := v.writeReg(regSystemFreshOutOfReset, 0x00); err != nil {
			return err
		}
	}

	for _, r := range vl6180Defaults {
		if err := v.writeReg(r.reg, r.val); err != nil {
			return err
		}
	}
	if err := v.writeReg16(regSysrangeEarlyConvergence, 0x7B); err != nil {
		return err
	}
	return v.writeReg16(regSysalsIntegrationPeriod, vl6180DefaultPeriod)
}

// Distance runs a single-shot range measurement and returns millimetres.
func (v *VL6180) Distance() (byte, error) {
	if err := v.writeReg(regSysrangeStart, 0x01); err != nil {
		return 0, err
	}
	DelayMs(vl6180RangeSettleMs)
	if err := v.writeReg(regSystemInterruptClear, vl6180ClearAllIntr); err != nil {
		return 0, err
	}
	return v.readReg(regResultRangeVal)
}

// AmbientRaw runs a single-shot ALS measurement at gain and returns the
// raw count and the integration period register.
func (v *VL6180) AmbientRaw(gain uint8) (raw uint16, period uint16, err error) {
	if err = v.writeReg(regSysalsAnalogueGain, vl6180GainBase|(gain&0x07)); err != nil {
		return
	}
	if err = v.writeReg(regSysalsStart, 0x01); err != nil {
		return
	}
	DelayMs(vl6180ALSSettleMs)
	if err = v.writeReg(regSystemInterruptClear, vl6180ClearAllIntr); err != nil {
		return
	}
	if raw, err = v.readReg16(regResultALSVal); err != nil {
		return
	}
	period, err = v.readReg16(regSysalsIntegrationPeriod)
	return
}

// Lux converts a raw ALS count to lux. Gain codes outside the table give
// zero.
func Lux(raw uint16, period uint16, gain uint8) float32 {
	if period == 0 {
		period = vl6180DefaultPeriod
	}
	var scale float32
	if int(gain) < len(alsScale) {
		scale = alsScale[gain]
	}
	return float32(raw) * scale * (float32(vl6180DefaultPeriod) / float32(period))
}

func (v *VL6180) writeReg(reg uint16, val uint8) error {
	v.wbuf[0] = byte(reg >> 8)
	v.wbuf[1] = byte(reg)
	v.wbuf[2] = val
	return v.bus.Tx(v.Address, v.wbuf[:3], nil)
}

func (v *VL6180) writeReg16(reg uint16, val uint16) error {
	v.wbuf[0] = byte(reg >> 8)
	v.wbuf[1] = byte(reg)
	v.wbuf[2] = byte(val >> 8)
	v.wbuf[3] = byte(val)
	return v.bus.Tx(v.Address, v.wbuf[:4], nil)
}

func (v *VL6180) readReg(reg uint16) (uint8, error) {
	v.wbuf[0] = byte(reg >> 8)
	v.wbuf[1] = byte(reg)
	if err := v.bus.Tx(v.Address, v.wbuf[:2], v.rbuf[:1]); err != nil {
		return 0, err
	}
	return v.rbuf[0], nil
}

func (v *VL6180) readReg16(reg uint16) (uint16, error) {
	v.wbuf[0] = byte(reg >> 8)
	v.wbuf[1] = byte(reg)
	if err := v.bus.Tx(v.Address, v.wbuf[:2], v.rbuf[:2]); err != nil {
		return 0, err
	}
	return uint16(v.rbuf[0])<<8 | uint16(v.rbuf[1]), nil
}
