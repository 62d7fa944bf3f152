package ble

import (
	"skoobot/core"
	"skoobot/protocol"

	"tinygo.org/x/bluetooth"
)

// batteryLevel is reported until the board measures its supply.
const batteryLevel = 90

var (
	serviceUUID = bluetooth.NewUUID(protocol.UUID(protocol.BaseUUID, protocol.ServiceID))
	commandUUID = bluetooth.NewUUID(protocol.UUID(protocol.BaseUUID, protocol.CommandID))
	data1UUID   = bluetooth.NewUUID(protocol.UUID(protocol.BaseUUID, protocol.Data1ID))
	data2UUID   = bluetooth.NewUUID(protocol.UUID(protocol.BaseUUID, protocol.Data2ID))
	data4UUID   = bluetooth.NewUUID(protocol.UUID(protocol.BaseUUID, protocol.Data4ID))
	streamUUID  = bluetooth.NewUUID(protocol.UUID(protocol.BaseUUID, protocol.StreamID))
)

const (
	readNotify = bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission
	writeOnly  = bluetooth.CharacteristicWritePermission | bluetooth.CharacteristicWriteWithoutResponsePermission
)

// charFlags is the access each Skoobot characteristic allows. Data4 is
// reserved: hosts may read and write it, the robot never changes it.
var charFlags = [numChars]bluetooth.CharacteristicPermissions{
	core.CharCommand: writeOnly,
	core.CharData1:   readNotify,
	core.CharData2:   readNotify,
	core.CharData4:   bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicWritePermission,
	core.CharStream:  readNotify | writeOnly,
}

// Stack owns the adapter and the GATT handles.
type Stack struct {
	adapter    *bluetooth.Adapter
	peripheral *Peripheral
	relay      *Relay

	command bluetooth.Characteristic
	data1   bluetooth.Characteristic
	data2   bluetooth.Characteristic
	data4   bluetooth.Characteristic
	stream  bluetooth.Characteristic
	battery bluetooth.Characteristic
}

// NewStack creates the stack on adapter around transport p.
func NewStack(adapter *bluetooth.Adapter, p *Peripheral) *Stack {
	s := &Stack{adapter: adapter, peripheral: p}
	s.relay = NewRelay(adapter, p.onRelayChange)
	p.setRelay(s.relay)
	return s
}

// Enable powers up the radio. It must run before any characteristic is
// written.
func (s *Stack) Enable() error {
	if err := s.adapter.Enable(); err != nil {
		return err
	}
	s.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		s.peripheral.onConnect(device.Address.String(), connected)
	})
	return nil
}

// Serve registers the services and starts advertising.
func (s *Stack) Serve() error {
	p := s.peripheral
	err := s.adapter.AddService(&bluetooth.Service{
		UUID: serviceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &s.command,
				UUID:   commandUUID,
				Value:  make([]byte, protocol.CommandLen),
				Flags:  charFlags[core.CharCommand],
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					p.onWrite(core.CharCommand, offset, value)
				},
			},
			{
				Handle: &s.data1,
				UUID:   data1UUID,
				Value:  make([]byte, protocol.Data1Len),
				Flags:  charFlags[core.CharData1],
			},
			{
				Handle: &s.data2,
				UUID:   data2UUID,
				Value:  make([]byte, protocol.Data2Len),
				Flags:  charFlags[core.CharData2],
			},
			{
				Handle: &s.data4,
				UUID:   data4UUID,
				Value:  make([]byte, protocol.Data4Len),
				Flags:  charFlags[core.CharData4],
			},
			{
				Handle: &s.stream,
				UUID:   streamUUID,
				Value:  make([]byte, protocol.ChunkMax),
				Flags:  charFlags[core.CharStream],
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					p.onWrite(core.CharStream, offset, value)
				},
			},
		},
	})
	if err != nil {
		return err
	}

	err = s.adapter.AddService(&bluetooth.Service{
		UUID: bluetooth.ServiceUUIDBattery,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &s.battery,
				UUID:   bluetooth.CharacteristicUUIDBatteryLevel,
				Value:  []byte{batteryLevel},
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
			},
		},
	})
	if err != nil {
		return err
	}

	p.setChar(core.CharCommand, &s.command)
	p.setChar(core.CharData1, &s.data1)
	p.setChar(core.CharData2, &s.data2)
	p.setChar(core.CharData4, &s.data4)
	p.setChar(core.CharStream, &s.stream)

	adv := s.adapter.DefaultAdvertisement()
	err = adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    protocol.DeviceName,
		ServiceUUIDs: []bluetooth.UUID{serviceUUID},
	})
	if err != nil {
		return err
	}
	if err := adv.Start(); err != nil {
		return err
	}
	core.DebugPrintln("[BLE] advertising as " + protocol.DeviceName)
	return nil
}

// onRelayChange forwards relay link changes to the dispatcher.
func (p *Peripheral) onRelayChange(connected bool) {
	if h := p.boundHandler(); h != nil {
		h.OnConnectionChanged(core.RoleRelay, connected)
	}
}
